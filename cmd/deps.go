package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"github.com/theapemachine/agentdeck/pkg/auth"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"github.com/theapemachine/agentdeck/pkg/stores/s3"
)

func providerConfig() provider.Config {
	return provider.Config{
		GoogleAPIKey:      viper.GetString("providers.google_api_key"),
		OpenAIAPIKey:      viper.GetString("providers.openai_api_key"),
		AnthropicAPIKey:   viper.GetString("providers.anthropic_api_key"),
		OpenRouterAPIKey:  viper.GetString("providers.openrouter_api_key"),
		OpenRouterBaseURL: viper.GetString("providers.openrouter_base_url"),
		DeepSeekAPIKey:    viper.GetString("providers.deepseek_api_key"),
		CohereAPIKey:      viper.GetString("providers.cohere_api_key"),
		OllamaHost:        viper.GetString("providers.ollama_host"),
	}
}

func settings() registry.Settings {
	return registry.Settings{
		FastModel:         viper.GetString("models.fast"),
		ReasoningModel:    viper.GetString("models.reasoning"),
		ImageModel:        viper.GetString("models.image"),
		ExaAPIKey:         viper.GetString("search.exa_api_key"),
		ExaBaseURL:        viper.GetString("search.exa_base_url"),
		TavilyAPIKey:      viper.GetString("search.tavily_api_key"),
		OpenRouterAPIKey:  viper.GetString("providers.openrouter_api_key"),
		OpenRouterBaseURL: viper.GetString("providers.openrouter_base_url"),
		SearchTimeout:     viper.GetDuration("search.timeout"),
		MCPEndpoints:      viper.GetStringMapString("mcp.endpoints"),
	}
}

/*
newArtifactStore picks the artifact backend named by artifacts.backend. The
s3 backend works against any S3 compatible endpoint, MinIO included.
*/
func newArtifactStore(ctx context.Context) (stores.ArtifactStore, error) {
	switch backend := viper.GetString("artifacts.backend"); backend {
	case "", "memory":
		return stores.NewInMemoryArtifactStore(), nil
	case "s3":
		conn, err := s3.NewConn(s3.Config{
			Endpoint:  viper.GetString("artifacts.s3.endpoint"),
			AccessKey: viper.GetString("artifacts.s3.access_key"),
			SecretKey: viper.GetString("artifacts.s3.secret_key"),
			Bucket:    viper.GetString("artifacts.s3.bucket"),
			Secure:    viper.GetBool("artifacts.s3.secure"),
		})

		if err != nil {
			return nil, err
		}

		if err = conn.EnsureBucket(ctx); err != nil {
			return nil, err
		}

		return s3.NewStore(conn), nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", backend)
	}
}

// newDeps gathers what the agent factories need to build the catalogue.
func newDeps(ctx context.Context) (registry.Deps, error) {
	artifacts, err := newArtifactStore(ctx)

	if err != nil {
		return registry.Deps{}, err
	}

	return registry.Deps{
		Models:    provider.NewFactory(ctx, providerConfig()),
		Artifacts: artifacts,
		Settings:  settings(),
	}, nil
}

// newAuth returns nil when no signing secret is configured.
func newAuth() *auth.Service {
	secret := viper.GetString("server.auth.secret")

	if secret == "" {
		return nil
	}

	options := []auth.ServiceOption{}

	if ttl := viper.GetDuration("server.auth.token_ttl"); ttl > 0 {
		options = append(options, auth.WithTokenTTL(ttl))
	}

	if rate, interval := viper.GetInt64("server.auth.rate_limit"), viper.GetDuration("server.auth.rate_interval"); rate > 0 && interval > 0 {
		options = append(options, auth.WithRateLimit(rate, interval))
	}

	log.Info("bearer authentication enabled")
	return auth.NewService(secret, options...)
}
