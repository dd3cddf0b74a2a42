package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

/*
ollamaProperty is the property shape api.ToolFunction expects in its
parameters.
*/
type ollamaProperty = struct {
	Type        api.PropertyType `json:"type"`
	Items       any              `json:"items,omitempty"`
	Description string           `json:"description"`
	Enum        []any            `json:"enum,omitempty"`
}

/*
OllamaModel talks to a local Ollama server. It needs no API key, which makes
ollama/<model> the backend for offline development.
*/
type OllamaModel struct {
	client *api.Client
	model  string
}

type OllamaModelOption func(*OllamaModel)

func NewOllamaModel(model string, options ...OllamaModelOption) *OllamaModel {
	prvdr := &OllamaModel{model: model}

	for _, option := range options {
		option(prvdr)
	}

	return prvdr
}

/*
WithOllamaClient connects to host, or to OLLAMA_HOST (default
http://localhost:11434) when host is empty.
*/
func WithOllamaClient(host string) OllamaModelOption {
	return func(prvdr *OllamaModel) {
		if host == "" {
			client, err := api.ClientFromEnvironment()

			if err != nil {
				log.Error("failed to create ollama client", "error", err)
				return
			}

			prvdr.client = client
			return
		}

		base, err := url.Parse(host)

		if err != nil {
			log.Error("invalid ollama host", "host", host, "error", err)
			return
		}

		prvdr.client = api.NewClient(base, http.DefaultClient)
	}
}

func (prvdr *OllamaModel) Name() string {
	return prvdr.model
}

func (prvdr *OllamaModel) Generate(
	ctx context.Context, request *Request,
) (*Response, error) {
	if prvdr.client == nil {
		return nil, errors.ErrMissingProvider.WithMessagef("ollama client for %s not configured", prvdr.model)
	}

	stream := false
	params := &api.ChatRequest{
		Model:    prvdr.model,
		Messages: prvdr.convertMessages(request.SystemInstruction, request.Contents),
		Tools:    prvdr.convertTools(request.Tools),
		Stream:   &stream,
	}

	if request.OutputSchema != nil {
		params.Format = []byte(marshal(request.OutputSchema))
	}

	var last api.ChatResponse
	message := api.Message{Role: "assistant"}

	if err := prvdr.client.Chat(ctx, params, func(resp api.ChatResponse) error {
		message.Content += resp.Message.Content
		message.ToolCalls = append(message.ToolCalls, resp.Message.ToolCalls...)
		last = resp
		return nil
	}); err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	return &Response{
		Content:      prvdr.convertMessage(message),
		FinishReason: last.DoneReason,
		Usage: Usage{
			PromptTokens:     int64(last.PromptEvalCount),
			CompletionTokens: int64(last.EvalCount),
		},
	}, nil
}

// Ollama has no tool call IDs, so each call gets one here.
func (prvdr *OllamaModel) convertMessage(message api.Message) *genai.Content {
	content := &genai.Content{Role: string(genai.RoleModel)}

	if message.Content != "" {
		content.Parts = append(content.Parts, genai.NewPartFromText(message.Content))
	}

	for _, call := range message.ToolCalls {
		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   uuid.NewString(),
				Name: call.Function.Name,
				Args: map[string]any(call.Function.Arguments),
			},
		})
	}

	return content
}

func (prvdr *OllamaModel) convertMessages(
	system string, contents []*genai.Content,
) []api.Message {
	out := make([]api.Message, 0, len(contents)+1)

	if system != "" {
		out = append(out, api.Message{Role: "system", Content: system})
	}

	for _, content := range contents {
		if content == nil {
			continue
		}

		if isModelRole(content.Role) {
			assistant := api.Message{Role: "assistant", Content: textOf(content)}

			for _, part := range content.Parts {
				if part == nil || part.FunctionCall == nil {
					continue
				}

				assistant.ToolCalls = append(assistant.ToolCalls, api.ToolCall{
					Function: api.ToolCallFunction{
						Name:      part.FunctionCall.Name,
						Arguments: api.ToolCallFunctionArguments(part.FunctionCall.Args),
					},
				})
			}

			out = append(out, assistant)
			continue
		}

		text := ""

		for _, part := range content.Parts {
			switch {
			case part == nil:
			case part.FunctionResponse != nil:
				out = append(out, api.Message{Role: "tool", Content: responseText(part.FunctionResponse)})
			case part.Text != "":
				text += part.Text
			}
		}

		if text != "" {
			out = append(out, api.Message{Role: "user", Content: text})
		}
	}

	return out
}

func (prvdr *OllamaModel) convertTools(attached []tools.Tool) api.Tools {
	declarations, builtins := split(attached)

	for _, builtin := range builtins {
		log.Warn("builtin tool not supported by model, dropped", "tool", builtin.Name(), "model", prvdr.model)
	}

	out := make(api.Tools, 0, len(declarations))

	for _, decl := range declarations {
		schema := tools.ParametersOf(decl)
		function := api.ToolFunction{Name: decl.Name, Description: decl.Description}
		function.Parameters.Type = "object"
		function.Parameters.Required = stringsOf(schema["required"])
		function.Parameters.Properties = map[string]ollamaProperty{}

		properties, _ := schema["properties"].(map[string]any)

		for name, raw := range properties {
			prop, ok := raw.(map[string]any)

			if !ok {
				continue
			}

			typeName, _ := prop["type"].(string)
			description, _ := prop["description"].(string)
			enum, _ := prop["enum"].([]any)

			function.Parameters.Properties[name] = ollamaProperty{
				Type:        api.PropertyType{typeName},
				Items:       prop["items"],
				Description: description,
				Enum:        enum,
			}
		}

		out = append(out, api.Tool{Type: "function", Function: function})
	}

	return out
}
