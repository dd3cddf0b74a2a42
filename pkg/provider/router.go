package provider

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/errors"
)

/*
Config carries the credentials New needs. Empty keys disable the matching
backend.
*/
type Config struct {
	GoogleAPIKey      string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	DeepSeekAPIKey    string
	CohereAPIKey      string
	OllamaHost        string
}

type Factory func(model string) (Model, error)

const (
	BackendGoogle     = "google"
	BackendOpenAI     = "openai"
	BackendAnthropic  = "anthropic"
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"
	BackendDeepSeek   = "deepseek"
	BackendCohere     = "cohere"
)

// BackendOf names the backend New would pick for model.
func BackendOf(model string) string {
	prefix, _, found := strings.Cut(model, "/")

	if !found {
		return BackendGoogle
	}

	switch prefix {
	case BackendOpenRouter, BackendOpenAI, BackendAnthropic,
		BackendOllama, BackendDeepSeek, BackendCohere:
		return prefix
	}

	return BackendGoogle
}

/*
New picks a backend from the model string:

	openrouter/<vendor>/<model>  chat completions on OpenRouter
	openai/<model>               OpenAI
	anthropic/<model>            Anthropic
	deepseek/<model>             DeepSeek
	cohere/<model>               Cohere
	ollama/<model>               a local Ollama server, no key needed
	google/<model>, anything     Gemini
*/
func New(ctx context.Context, config Config, model string) (Model, error) {
	prefix, name, found := strings.Cut(model, "/")

	if !found {
		prefix, name = "", model
	}

	switch prefix {
	case "openrouter":
		if config.OpenRouterAPIKey == "" {
			return nil, errors.ErrMissingAPIKey.WithMessagef("OPENROUTER_API_KEY is required for %s", model)
		}

		return NewOpenAIModel(name, WithOpenRouterClient(config.OpenRouterAPIKey, config.OpenRouterBaseURL)), nil
	case "openai":
		if config.OpenAIAPIKey == "" {
			return nil, errors.ErrMissingAPIKey.WithMessagef("OPENAI_API_KEY is required for %s", model)
		}

		return NewOpenAIModel(name, WithOpenAIClient(config.OpenAIAPIKey)), nil
	case "anthropic":
		if config.AnthropicAPIKey == "" {
			return nil, errors.ErrMissingAPIKey.WithMessagef("ANTHROPIC_API_KEY is required for %s", model)
		}

		return NewAnthropicModel(name, WithAnthropicClient(config.AnthropicAPIKey)), nil
	case "deepseek":
		if config.DeepSeekAPIKey == "" {
			return nil, errors.ErrMissingAPIKey.WithMessagef("DEEPSEEK_API_KEY is required for %s", model)
		}

		return NewDeepseekModel(name, WithDeepseekClient(config.DeepSeekAPIKey)), nil
	case "cohere":
		if config.CohereAPIKey == "" {
			return nil, errors.ErrMissingAPIKey.WithMessagef("COHERE_API_KEY is required for %s", model)
		}

		return NewCohereModel(name, WithCohereClient(config.CohereAPIKey)), nil
	case "ollama":
		return NewOllamaModel(name, WithOllamaClient(config.OllamaHost)), nil
	case "google", "gemini":
		model = name
	}

	if config.GoogleAPIKey == "" {
		return nil, errors.ErrMissingAPIKey.WithMessagef("GOOGLE_API_KEY is required for %s", model)
	}

	log.Debug("using gemini backend", "model", model)
	return NewGoogleModel(model, WithGoogleClient(ctx, config.GoogleAPIKey)), nil
}

/*
NewFactory binds New to a context and config.
*/
func NewFactory(ctx context.Context, config Config) Factory {
	return func(model string) (Model, error) {
		return New(ctx, config, model)
	}
}
