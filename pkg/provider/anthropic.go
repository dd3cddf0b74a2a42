package provider

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

const defaultAnthropicMaxTokens = 4096

/*
AnthropicModel calls the Anthropic messages API.
*/
type AnthropicModel struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

type AnthropicModelOption func(*AnthropicModel)

func NewAnthropicModel(model string, options ...AnthropicModelOption) *AnthropicModel {
	prvdr := &AnthropicModel{model: model, maxTokens: defaultAnthropicMaxTokens}

	for _, option := range options {
		option(prvdr)
	}

	return prvdr
}

func WithAnthropicClient(apiKey string, requestOptions ...option.RequestOption) AnthropicModelOption {
	return func(prvdr *AnthropicModel) {
		client := anthropic.NewClient(
			append([]option.RequestOption{option.WithAPIKey(apiKey)}, requestOptions...)...,
		)

		prvdr.client = &client
	}
}

func WithAnthropicMaxTokens(maxTokens int64) AnthropicModelOption {
	return func(prvdr *AnthropicModel) {
		prvdr.maxTokens = maxTokens
	}
}

func (prvdr *AnthropicModel) Name() string {
	return prvdr.model
}

func (prvdr *AnthropicModel) Generate(
	ctx context.Context, request *Request,
) (*Response, error) {
	if prvdr.client == nil {
		return nil, errors.ErrMissingProvider.WithMessagef("anthropic client for %s not configured", prvdr.model)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(prvdr.model),
		Messages:  prvdr.convertMessages(request.Contents),
		Tools:     prvdr.convertTools(request.Tools),
		MaxTokens: prvdr.maxTokens,
	}

	system := request.SystemInstruction

	if request.OutputSchema != nil {
		system += "\n\nRespond only with JSON matching this schema:\n" + marshal(request.OutputSchema)
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := prvdr.client.Messages.New(ctx, params)

	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	return &Response{
		Content:      prvdr.convertMessage(message),
		FinishReason: string(message.StopReason),
		Usage: Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
		},
	}, nil
}

func (prvdr *AnthropicModel) convertMessage(message *anthropic.Message) *genai.Content {
	content := &genai.Content{Role: string(genai.RoleModel)}

	for _, block := range message.Content {
		switch contentBlock := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.Parts = append(content.Parts, genai.NewPartFromText(contentBlock.Text))
		case anthropic.ToolUseBlock:
			args := map[string]any{}

			if err := json.Unmarshal(contentBlock.Input, &args); err != nil {
				log.Warn("model produced invalid tool input", "tool", contentBlock.Name, "error", err)
			}

			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   contentBlock.ID,
					Name: contentBlock.Name,
					Args: args,
				},
			})
		}
	}

	return content
}

func (prvdr *AnthropicModel) convertMessages(
	contents []*genai.Content,
) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(contents))

	for _, content := range contents {
		if content == nil {
			continue
		}

		blocks := []anthropic.ContentBlockParamUnion{}

		for _, part := range content.Parts {
			switch {
			case part == nil:
			case part.FunctionCall != nil:
				blocks = append(blocks, anthropic.NewToolUseBlock(
					part.FunctionCall.ID, part.FunctionCall.Args, part.FunctionCall.Name,
				))
			case part.FunctionResponse != nil:
				_, failed := part.FunctionResponse.Response["error"]
				blocks = append(blocks, anthropic.NewToolResultBlock(
					part.FunctionResponse.ID, responseText(part.FunctionResponse), failed,
				))
			case part.Text != "" && !part.Thought:
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		}

		if len(blocks) == 0 {
			continue
		}

		if isModelRole(content.Role) {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
			continue
		}

		out = append(out, anthropic.NewUserMessage(blocks...))
	}

	return out
}

func (prvdr *AnthropicModel) convertTools(
	attached []tools.Tool,
) []anthropic.ToolUnionParam {
	declarations, builtins := split(attached)

	for _, builtin := range builtins {
		log.Warn("builtin tool not supported by model, dropped", "tool", builtin.Name(), "model", prvdr.model)
	}

	out := make([]anthropic.ToolUnionParam, 0, len(declarations))

	for _, decl := range declarations {
		params := tools.ParametersOf(decl)
		required := []string{}

		switch typed := params["required"].(type) {
		case []any:
			for _, name := range typed {
				if text, ok := name.(string); ok {
					required = append(required, text)
				}
			}
		case []string:
			required = typed
		}

		toolParam := anthropic.ToolParam{
			Name:        decl.Name,
			Description: anthropic.String(decl.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: params["properties"],
				Required:   required,
			},
		}

		out = append(out, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	return out
}
