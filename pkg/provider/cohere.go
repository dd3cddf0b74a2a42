package provider

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/google/uuid"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

/*
CohereModel talks to the Cohere chat API. The last user turn travels as the
message, everything before it as chat history, and function responses that
close the conversation as tool results.
*/
type CohereModel struct {
	client *cohereclient.Client
	model  string
}

type CohereModelOption func(*CohereModel)

func NewCohereModel(model string, options ...CohereModelOption) *CohereModel {
	prvdr := &CohereModel{model: model}

	for _, option := range options {
		option(prvdr)
	}

	return prvdr
}

func WithCohereClient(apiKey string) CohereModelOption {
	return func(prvdr *CohereModel) {
		prvdr.client = cohereclient.NewClient(cohereclient.WithToken(apiKey))
	}
}

func (prvdr *CohereModel) Name() string {
	return prvdr.model
}

func (prvdr *CohereModel) Generate(
	ctx context.Context, request *Request,
) (*Response, error) {
	if prvdr.client == nil {
		return nil, errors.ErrMissingProvider.WithMessagef("cohere client for %s not configured", prvdr.model)
	}

	system := request.SystemInstruction

	if request.OutputSchema != nil {
		system += "\n\nRespond only with JSON matching this schema:\n" + marshal(request.OutputSchema)
	}

	params := prvdr.convertMessages(request.Contents)
	params.Model = cohere.String(prvdr.model)
	params.Tools = prvdr.convertTools(request.Tools)

	if system != "" {
		params.Preamble = cohere.String(system)
	}

	response, err := prvdr.client.Chat(ctx, params)

	if err != nil {
		return nil, fmt.Errorf("cohere chat failed: %w", err)
	}

	out := &Response{Content: prvdr.convertResponse(response.Text, response.ToolCalls)}

	if response.FinishReason != nil {
		out.FinishReason = string(*response.FinishReason)
	}

	if response.Meta != nil && response.Meta.BilledUnits != nil {
		if units := response.Meta.BilledUnits.InputTokens; units != nil {
			out.Usage.PromptTokens = int64(*units)
		}

		if units := response.Meta.BilledUnits.OutputTokens; units != nil {
			out.Usage.CompletionTokens = int64(*units)
		}
	}

	return out, nil
}

// Cohere tool calls carry no IDs, so each call gets one here.
func (prvdr *CohereModel) convertResponse(text string, calls []*cohere.ToolCall) *genai.Content {
	content := &genai.Content{Role: string(genai.RoleModel)}

	if text != "" {
		content.Parts = append(content.Parts, genai.NewPartFromText(text))
	}

	for _, call := range calls {
		if call == nil {
			continue
		}

		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   uuid.NewString(),
				Name: call.Name,
				Args: call.Parameters,
			},
		})
	}

	return content
}

/*
convertMessages splits the conversation into the request's history, message
and trailing tool results.
*/
func (prvdr *CohereModel) convertMessages(contents []*genai.Content) *cohere.ChatRequest {
	var (
		history []*cohere.Message
		results []*cohere.ToolResult
		message string
		calls   = map[string]*cohere.ToolCall{}
	)

	// Only the newest user turn is sent outside the history.
	flush := func() {
		if message != "" {
			history = append(history, &cohere.Message{Role: "USER", User: &cohere.ChatMessage{Message: message}})
		}

		if len(results) > 0 {
			history = append(history, &cohere.Message{Role: "TOOL", Tool: &cohere.ToolMessage{ToolResults: results}})
		}

		message, results = "", nil
	}

	for _, content := range contents {
		if content == nil {
			continue
		}

		if isModelRole(content.Role) {
			flush()

			chat := &cohere.ChatMessage{Message: textOf(content)}

			for _, part := range content.Parts {
				if part == nil || part.FunctionCall == nil {
					continue
				}

				call := &cohere.ToolCall{Name: part.FunctionCall.Name, Parameters: part.FunctionCall.Args}
				calls[part.FunctionCall.ID] = call
				chat.ToolCalls = append(chat.ToolCalls, call)
			}

			history = append(history, &cohere.Message{Role: "CHATBOT", Chatbot: chat})
			continue
		}

		text := ""
		var turn []*cohere.ToolResult

		for _, part := range content.Parts {
			switch {
			case part == nil:
			case part.FunctionResponse != nil:
				call, ok := calls[part.FunctionResponse.ID]

				if !ok {
					call = &cohere.ToolCall{Name: part.FunctionResponse.Name, Parameters: map[string]any{}}
				}

				turn = append(turn, &cohere.ToolResult{
					Call:    call,
					Outputs: []map[string]any{part.FunctionResponse.Response},
				})
			case part.Text != "":
				text += part.Text
			}
		}

		flush()
		message = text
		results = turn
	}

	return &cohere.ChatRequest{
		Message:     message,
		ChatHistory: history,
		ToolResults: results,
	}
}

func (prvdr *CohereModel) convertTools(attached []tools.Tool) []*cohere.Tool {
	declarations, builtins := split(attached)

	for _, builtin := range builtins {
		log.Warn("builtin tool not supported by model, dropped", "tool", builtin.Name(), "model", prvdr.model)
	}

	out := make([]*cohere.Tool, 0, len(declarations))

	for _, decl := range declarations {
		schema := tools.ParametersOf(decl)
		properties, _ := schema["properties"].(map[string]any)
		required := map[string]bool{}

		for _, name := range stringsOf(schema["required"]) {
			required[name] = true
		}

		definitions := make(map[string]*cohere.ToolParameterDefinitionsValue, len(properties))

		for name, raw := range properties {
			prop, _ := raw.(map[string]any)
			typeName, _ := prop["type"].(string)
			description, _ := prop["description"].(string)
			isRequired := required[name]

			definitions[name] = &cohere.ToolParameterDefinitionsValue{
				Description: cohere.String(description),
				Type:        typeName,
				Required:    &isRequired,
			}
		}

		out = append(out, &cohere.Tool{
			Name:                 decl.Name,
			Description:          decl.Description,
			ParameterDefinitions: definitions,
		})
	}

	return out
}
