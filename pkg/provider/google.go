package provider

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

/*
GoogleModel calls Gemini through google.golang.org/genai. It is the only
backend that honours builtin tools such as Google Search grounding.
*/
type GoogleModel struct {
	client *genai.Client
	model  string
}

type GoogleModelOption func(*GoogleModel)

func NewGoogleModel(model string, options ...GoogleModelOption) *GoogleModel {
	prvdr := &GoogleModel{model: model}

	for _, option := range options {
		option(prvdr)
	}

	return prvdr
}

func WithGoogleClient(ctx context.Context, apiKey string) GoogleModelOption {
	return func(prvdr *GoogleModel) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})

		if err != nil {
			log.Error("failed to create genai client", "error", err)
			return
		}

		prvdr.client = client
	}
}

func (prvdr *GoogleModel) Name() string {
	return prvdr.model
}

func (prvdr *GoogleModel) Generate(
	ctx context.Context, request *Request,
) (*Response, error) {
	if prvdr.client == nil {
		return nil, errors.ErrMissingProvider.WithMessagef("gemini client for %s not configured", prvdr.model)
	}

	resp, err := prvdr.client.Models.GenerateContent(
		ctx, prvdr.model, prvdr.convertContents(request.Contents), prvdr.config(request),
	)

	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no content")
	}

	candidate := resp.Candidates[0]
	out := &Response{
		Content:      candidate.Content,
		FinishReason: string(candidate.FinishReason),
	}

	if out.Content.Role == "" {
		out.Content.Role = string(genai.RoleModel)
	}

	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int64(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	return out, nil
}

func (prvdr *GoogleModel) config(request *Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Tools: prvdr.convertTools(request.Tools),
	}

	if request.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemInstruction}},
		}
	}

	if request.OutputSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toSchema(request.OutputSchema)
	}

	return config
}

/*
convertContents normalises roles to the two Gemini accepts.
*/
func (prvdr *GoogleModel) convertContents(contents []*genai.Content) []*genai.Content {
	out := make([]*genai.Content, 0, len(contents))

	for _, content := range contents {
		if content == nil || len(content.Parts) == 0 {
			continue
		}

		role := string(genai.RoleUser)

		if isModelRole(content.Role) {
			role = string(genai.RoleModel)
		}

		out = append(out, &genai.Content{Role: role, Parts: content.Parts})
	}

	return out
}

func (prvdr *GoogleModel) convertTools(attached []tools.Tool) []*genai.Tool {
	declarations, builtins := split(attached)
	out := make([]*genai.Tool, 0, len(builtins)+1)

	for _, builtin := range builtins {
		out = append(out, builtin.GenaiTool())
	}

	if len(declarations) == 0 {
		return out
	}

	functions := make([]*genai.FunctionDeclaration, 0, len(declarations))

	for _, decl := range declarations {
		functions = append(functions, &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
			Parameters:  toSchema(tools.ParametersOf(decl)),
		})
	}

	return append(out, &genai.Tool{FunctionDeclarations: functions})
}

var schemaTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

/*
toSchema converts a JSON schema map into a genai.Schema. Keywords Gemini does
not support are dropped.
*/
func toSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{Type: genai.TypeObject}

	switch typed := schema["type"].(type) {
	case string:
		if schemaType, ok := schemaTypes[typed]; ok {
			out.Type = schemaType
		}
	case []any:
		// ["string", "null"] style unions.
		for _, candidate := range typed {
			if name, ok := candidate.(string); ok && name != "null" {
				if schemaType, ok := schemaTypes[name]; ok {
					out.Type = schemaType
					break
				}
			}
		}
	default:
		if _, ok := schema["properties"]; !ok {
			out.Type = genai.TypeString
		}
	}

	if description, ok := schema["description"].(string); ok {
		out.Description = description
	}

	if values, ok := schema["enum"].([]any); ok {
		for _, value := range values {
			out.Enum = append(out.Enum, fmt.Sprint(value))
		}
	}

	if properties, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(properties))

		for name, property := range properties {
			if propertyMap, ok := property.(map[string]any); ok {
				out.Properties[name] = toSchema(propertyMap)
			}
		}
	}

	switch required := schema["required"].(type) {
	case []any:
		for _, name := range required {
			if text, ok := name.(string); ok {
				out.Required = append(out.Required, text)
			}
		}
	case []string:
		out.Required = append(out.Required, required...)
	}

	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toSchema(items)
	}

	return out
}
