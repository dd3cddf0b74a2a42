package provider

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

/*
OpenAIModel talks to the chat completions API. Pointed at OpenRouter it
serves every openrouter/ model.
*/
type OpenAIModel struct {
	client *openai.Client
	model  string
}

type OpenAIModelOption func(*OpenAIModel)

func NewOpenAIModel(model string, options ...OpenAIModelOption) *OpenAIModel {
	prvdr := &OpenAIModel{model: model}

	for _, option := range options {
		option(prvdr)
	}

	return prvdr
}

func WithOpenAIClient(apiKey string, requestOptions ...option.RequestOption) OpenAIModelOption {
	return func(prvdr *OpenAIModel) {
		client := openai.NewClient(
			append([]option.RequestOption{option.WithAPIKey(apiKey)}, requestOptions...)...,
		)

		prvdr.client = &client
	}
}

func WithOpenRouterClient(apiKey, baseURL string) OpenAIModelOption {
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	return WithOpenAIClient(
		apiKey,
		option.WithBaseURL(baseURL),
		option.WithHeader("X-Title", "agentdeck"),
	)
}

func (prvdr *OpenAIModel) Name() string {
	return prvdr.model
}

func (prvdr *OpenAIModel) Generate(
	ctx context.Context, request *Request,
) (*Response, error) {
	if prvdr.client == nil {
		return nil, errors.ErrMissingProvider.WithMessagef("openai client for %s not configured", prvdr.model)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(prvdr.model),
		Messages: prvdr.convertMessages(request.SystemInstruction, request.Contents),
	}

	if toolParams := prvdr.convertTools(request.Tools); len(toolParams) > 0 {
		params.Tools = toolParams
	}

	if request.OutputSchema != nil {
		params.ResponseFormat = prvdr.applySchema(request.OutputSchema)
	}

	completion, err := prvdr.client.Chat.Completions.New(ctx, params)

	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := completion.Choices[0]

	return &Response{
		Content:      prvdr.convertMessage(choice.Message),
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
		},
	}, nil
}

func (prvdr *OpenAIModel) convertMessage(message openai.ChatCompletionMessage) *genai.Content {
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

/*
convertMessages maps genai contents onto chat messages: model turns become
assistant messages carrying their tool calls, function responses become tool
messages and everything else is user text.
*/
func (prvdr *OpenAIModel) convertMessages(
	system string, contents []*genai.Content,
) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(contents)+1)

	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}

	for _, content := range contents {
		if content == nil {
			continue
		}

		if isModelRole(content.Role) {
			out = append(out, prvdr.assistantMessage(content))
			continue
		}

		text := ""

		for _, part := range content.Parts {
			switch {
			case part == nil:
			case part.FunctionResponse != nil:
				out = append(out, openai.ToolMessage(
					responseText(part.FunctionResponse), part.FunctionResponse.ID,
				))
			case part.Text != "":
				text += part.Text
			case part.InlineData != nil:
				text += fmt.Sprintf("[attached %s, %d bytes]", part.InlineData.MIMEType, len(part.InlineData.Data))
			}
		}

		if text != "" {
			out = append(out, openai.UserMessage(text))
		}
	}

	return out
}

func (prvdr *OpenAIModel) assistantMessage(content *genai.Content) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}

	if text := textOf(content); text != "" {
		assistant.Content.OfString = openai.String(text)
	}

	for _, part := range content.Parts {
		if part == nil || part.FunctionCall == nil {
			continue
		}

		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: part.FunctionCall.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      part.FunctionCall.Name,
				Arguments: marshal(part.FunctionCall.Args),
			},
		})
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func (prvdr *OpenAIModel) convertTools(
	attached []tools.Tool,
) []openai.ChatCompletionToolParam {
	declarations, builtins := split(attached)

	for _, builtin := range builtins {
		log.Warn("builtin tool not supported by model, dropped", "tool", builtin.Name(), "model", prvdr.model)
	}

	out := make([]openai.ChatCompletionToolParam, 0, len(declarations))

	for _, decl := range declarations {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        decl.Name,
				Description: openai.String(decl.Description),
				Parameters:  openai.FunctionParameters(tools.ParametersOf(decl)),
			},
		})
	}

	return out
}

func (prvdr *OpenAIModel) applySchema(
	schema map[string]any,
) openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "schema",
				Description: openai.String("The schema to use for your response"),
				Schema:      schema,
				Strict:      openai.Bool(false),
			},
		},
	}
}
