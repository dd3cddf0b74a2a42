package provider

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

/*
Request is one model call. Contents is the conversation so far in genai
form; every backend converts from it. Tools must already be expanded: only
Runnable and Builtin tools are sent.
*/
type Request struct {
	SystemInstruction string
	Contents          []*genai.Content
	Tools             []tools.Tool
	OutputSchema      map[string]any
}

type Usage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
}

type Response struct {
	Content      *genai.Content
	Usage        Usage
	FinishReason string
}

/*
Model is a chat model that can call functions.
*/
type Model interface {
	Name() string
	Generate(ctx context.Context, request *Request) (*Response, error)
}

/*
split separates the request tools into function declarations and model-side
builtins.
*/
func split(attached []tools.Tool) ([]mcp.Tool, []tools.Builtin) {
	declarations := []mcp.Tool{}
	builtins := []tools.Builtin{}

	for _, tool := range attached {
		switch typed := tool.(type) {
		case tools.Runnable:
			declarations = append(declarations, typed.Declaration())
		case tools.Builtin:
			builtins = append(builtins, typed)
		}
	}

	return declarations, builtins
}

/*
responseText renders a function response as the plain text that the OpenAI
and Anthropic APIs expect: the "result" entry when that is all there is,
otherwise the whole map as JSON.
*/
func responseText(response *genai.FunctionResponse) string {
	if response == nil || response.Response == nil {
		return ""
	}

	if errText, ok := response.Response["error"].(string); ok && errText != "" {
		return "Error: " + errText
	}

	if len(response.Response) == 1 {
		if text, ok := response.Response["result"].(string); ok {
			return text
		}
	}

	return marshal(response.Response)
}
