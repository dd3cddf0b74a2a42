package provider

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	deepseek "github.com/cohesion-org/deepseek-go"
	"github.com/google/uuid"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

/*
DeepseekModel talks to the DeepSeek chat API. DeepSeek has no JSON schema
response format, so an output schema is appended to the system instruction.
*/
type DeepseekModel struct {
	client *deepseek.Client
	model  string
}

type DeepseekModelOption func(*DeepseekModel)

func NewDeepseekModel(model string, options ...DeepseekModelOption) *DeepseekModel {
	prvdr := &DeepseekModel{model: model}

	for _, option := range options {
		option(prvdr)
	}

	return prvdr
}

func WithDeepseekClient(apiKey string) DeepseekModelOption {
	return func(prvdr *DeepseekModel) {
		prvdr.client = deepseek.NewClient(apiKey)
	}
}

func (prvdr *DeepseekModel) Name() string {
	return prvdr.model
}

func (prvdr *DeepseekModel) Generate(
	ctx context.Context, request *Request,
) (*Response, error) {
	if prvdr.client == nil {
		return nil, errors.ErrMissingProvider.WithMessagef("deepseek client for %s not configured", prvdr.model)
	}

	system := request.SystemInstruction

	if request.OutputSchema != nil {
		system += "\n\nRespond only with JSON matching this schema:\n" + marshal(request.OutputSchema)
	}

	response, err := prvdr.client.CreateChatCompletion(ctx, &deepseek.ChatCompletionRequest{
		Model:    prvdr.model,
		Messages: prvdr.convertMessages(system, request.Contents),
		Tools:    prvdr.convertTools(request.Tools),
	})

	if err != nil {
		return nil, fmt.Errorf("deepseek completion failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("deepseek completion returned no choices")
	}

	choice := response.Choices[0]

	return &Response{
		Content:      prvdr.convertMessage(choice.Message),
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     int64(response.Usage.PromptTokens),
			CompletionTokens: int64(response.Usage.CompletionTokens),
		},
	}, nil
}

func (prvdr *DeepseekModel) convertMessage(message deepseek.Message) *genai.Content {
	content := &genai.Content{Role: string(genai.RoleModel)}

	if message.Content != "" {
		content.Parts = append(content.Parts, genai.NewPartFromText(message.Content))
	}

	for _, call := range message.ToolCalls {
		id := call.ID

		if id == "" {
			id = uuid.NewString()
		}

		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   id,
				Name: call.Function.Name,
				Args: unmarshalArgs(call.Function.Arguments),
			},
		})
	}

	return content
}

func (prvdr *DeepseekModel) convertMessages(
	system string, contents []*genai.Content,
) []deepseek.ChatCompletionMessage {
	out := make([]deepseek.ChatCompletionMessage, 0, len(contents)+1)

	if system != "" {
		out = append(out, deepseek.ChatCompletionMessage{Role: deepseek.ChatMessageRoleSystem, Content: system})
	}

	for _, content := range contents {
		if content == nil {
			continue
		}

		if isModelRole(content.Role) {
			assistant := deepseek.ChatCompletionMessage{
				Role:    deepseek.ChatMessageRoleAssistant,
				Content: textOf(content),
			}

			for _, part := range content.Parts {
				if part == nil || part.FunctionCall == nil {
					continue
				}

				assistant.ToolCalls = append(assistant.ToolCalls, deepseek.ToolCall{
					ID:   part.FunctionCall.ID,
					Type: "function",
					Function: deepseek.ToolCallFunction{
						Name:      part.FunctionCall.Name,
						Arguments: marshal(part.FunctionCall.Args),
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
				out = append(out, deepseek.ChatCompletionMessage{
					Role:       "tool",
					Content:    responseText(part.FunctionResponse),
					ToolCallID: part.FunctionResponse.ID,
				})
			case part.Text != "":
				text += part.Text
			}
		}

		if text != "" {
			out = append(out, deepseek.ChatCompletionMessage{Role: deepseek.ChatMessageRoleUser, Content: text})
		}
	}

	return out
}

func (prvdr *DeepseekModel) convertTools(attached []tools.Tool) []deepseek.Tool {
	declarations, builtins := split(attached)

	for _, builtin := range builtins {
		log.Warn("builtin tool not supported by model, dropped", "tool", builtin.Name(), "model", prvdr.model)
	}

	out := make([]deepseek.Tool, 0, len(declarations))

	for _, decl := range declarations {
		schema := tools.ParametersOf(decl)
		properties, _ := schema["properties"].(map[string]any)

		out = append(out, deepseek.Tool{
			Type: "function",
			Function: deepseek.Function{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters: &deepseek.FunctionParameters{
					Type:       "object",
					Properties: properties,
					Required:   stringsOf(schema["required"]),
				},
			},
		})
	}

	return out
}
