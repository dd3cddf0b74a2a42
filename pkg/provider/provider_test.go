package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

type weatherInput struct {
	City string `json:"city"`
}

func weatherTool() tools.Tool {
	return tools.NewFunctionTool(
		"weather", "Current weather.",
		func(ctx context.Context, toolCtx *tools.Context, in weatherInput) (any, error) {
			return "sunny", nil
		},
	)
}

func conversation() []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromText("weather in Paris?", genai.RoleUser),
		{
			Role: string(genai.RoleModel),
			Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{ID: "call_1", Name: "weather", Args: map[string]any{"city": "Paris"}},
			}},
		},
		{
			Role: string(genai.RoleUser),
			Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{ID: "call_1", Name: "weather", Response: map[string]any{"result": "sunny"}},
			}},
		},
	}
}

func TestSplit(t *testing.T) {
	declarations, builtins := split([]tools.Tool{weatherTool(), tools.GoogleSearch()})

	require.Len(t, declarations, 1)
	assert.Equal(t, "weather", declarations[0].Name)
	require.Len(t, builtins, 1)
	assert.Equal(t, "google_search", builtins[0].Name())
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "sunny", responseText(&genai.FunctionResponse{Response: map[string]any{"result": "sunny"}}))
	assert.Equal(t, "Error: boom", responseText(&genai.FunctionResponse{Response: map[string]any{"error": "boom"}}))
	assert.JSONEq(t, `{"status":"ok","n":1}`, responseText(&genai.FunctionResponse{Response: map[string]any{"status": "ok", "n": 1}}))
	assert.Empty(t, responseText(nil))
}

func TestToSchema(t *testing.T) {
	schema := toSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "What to search"},
			"limit": map[string]any{"type": "integer"},
			"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"mode":  map[string]any{"type": []any{"string", "null"}, "enum": []any{"fast", "deep"}},
		},
		"required": []any{"query"},
	})

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"query"}, schema.Required)
	assert.Equal(t, genai.TypeString, schema.Properties["query"].Type)
	assert.Equal(t, "What to search", schema.Properties["query"].Description)
	assert.Equal(t, genai.TypeInteger, schema.Properties["limit"].Type)
	assert.Equal(t, genai.TypeString, schema.Properties["tags"].Items.Type)
	assert.Equal(t, genai.TypeString, schema.Properties["mode"].Type)
	assert.Equal(t, []string{"fast", "deep"}, schema.Properties["mode"].Enum)
}

func TestGoogleConvertTools(t *testing.T) {
	converted := NewGoogleModel("gemini-2.5-flash").convertTools([]tools.Tool{tools.GoogleSearch(), weatherTool()})

	require.Len(t, converted, 2)
	assert.NotNil(t, converted[0].GoogleSearch)
	require.Len(t, converted[1].FunctionDeclarations, 1)
	assert.Equal(t, "weather", converted[1].FunctionDeclarations[0].Name)
	assert.Contains(t, converted[1].FunctionDeclarations[0].Parameters.Properties, "city")
}

func TestGoogleConvertContentsNormalisesRoles(t *testing.T) {
	converted := NewGoogleModel("gemini").convertContents([]*genai.Content{
		{Role: "assistant", Parts: []*genai.Part{{Text: "hi"}}},
		{Role: "", Parts: []*genai.Part{{Text: "hello"}}},
		{Role: "user"},
		nil,
	})

	require.Len(t, converted, 2)
	assert.Equal(t, "model", converted[0].Role)
	assert.Equal(t, "user", converted[1].Role)
}

func TestOpenAIConvertMessages(t *testing.T) {
	messages := NewOpenAIModel("gpt").convertMessages("be helpful", conversation())

	require.Len(t, messages, 4)

	buf, err := json.Marshal(messages)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf, &decoded))

	assert.Equal(t, "system", decoded[0]["role"])
	assert.Equal(t, "user", decoded[1]["role"])
	assert.Equal(t, "assistant", decoded[2]["role"])
	assert.Equal(t, "tool", decoded[3]["role"])
	assert.Equal(t, "call_1", decoded[3]["tool_call_id"])
	assert.Equal(t, "sunny", decoded[3]["content"])

	calls := decoded[2]["tool_calls"].([]any)
	require.Len(t, calls, 1)
	function := calls[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "weather", function["name"])
	assert.JSONEq(t, `{"city":"Paris"}`, function["arguments"].(string))
}

func TestOpenAIGenerate(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "google/gemini-3-flash-preview",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "Let me check.",
					"tool_calls": [{
						"id": "call_9",
						"type": "function",
						"function": {"name": "weather", "arguments": "{\"city\":\"Oslo\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer server.Close()

	model := NewOpenAIModel("google/gemini-3-flash-preview", WithOpenRouterClient("sk-test", server.URL))

	resp, err := model.Generate(context.Background(), &Request{
		SystemInstruction: "be helpful",
		Contents:          []*genai.Content{genai.NewContentFromText("weather in Oslo?", genai.RoleUser)},
		Tools:             []tools.Tool{weatherTool(), tools.GoogleSearch()},
	})
	require.NoError(t, err)

	assert.Equal(t, "google/gemini-3-flash-preview", received["model"])
	assert.Len(t, received["tools"], 1)

	require.Len(t, resp.Content.Parts, 2)
	assert.Equal(t, "Let me check.", resp.Content.Parts[0].Text)
	assert.Equal(t, "call_9", resp.Content.Parts[1].FunctionCall.ID)
	assert.Equal(t, "Oslo", resp.Content.Parts[1].FunctionCall.Args["city"])
	assert.Equal(t, int64(12), resp.Usage.PromptTokens)
	assert.Equal(t, "tool_calls", resp.FinishReason)
}

func TestAnthropicConvertMessages(t *testing.T) {
	messages := NewAnthropicModel("claude").convertMessages(conversation())

	require.Len(t, messages, 3)

	buf, err := json.Marshal(messages)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf, &decoded))

	assert.Equal(t, "user", decoded[0]["role"])
	assert.Equal(t, "assistant", decoded[1]["role"])
	assert.Equal(t, "user", decoded[2]["role"])

	toolUse := decoded[1]["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_use", toolUse["type"])
	assert.Equal(t, "call_1", toolUse["id"])

	toolResult := decoded[2]["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", toolResult["type"])
	assert.Equal(t, "call_1", toolResult["tool_use_id"])
}

func TestAnthropicConvertTools(t *testing.T) {
	converted := NewAnthropicModel("claude").convertTools([]tools.Tool{weatherTool(), tools.URLContext()})

	require.Len(t, converted, 1)
	assert.Equal(t, "weather", converted[0].OfTool.Name)
	assert.Equal(t, []string{"city"}, converted[0].OfTool.InputSchema.Required)
}

func TestOllamaConvertMessages(t *testing.T) {
	messages := NewOllamaModel("llama3.2").convertMessages("be helpful", conversation())

	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "be helpful", messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "assistant", messages[2].Role)
	require.Len(t, messages[2].ToolCalls, 1)
	assert.Equal(t, "weather", messages[2].ToolCalls[0].Function.Name)
	assert.Equal(t, "Paris", messages[2].ToolCalls[0].Function.Arguments["city"])
	assert.Equal(t, "tool", messages[3].Role)
	assert.Equal(t, "sunny", messages[3].Content)
}

func TestOllamaConvertTools(t *testing.T) {
	converted := NewOllamaModel("llama3.2").convertTools([]tools.Tool{weatherTool(), tools.GoogleSearch()})

	require.Len(t, converted, 1)
	assert.Equal(t, "function", converted[0].Type)
	assert.Equal(t, "weather", converted[0].Function.Name)
	assert.Equal(t, "object", converted[0].Function.Parameters.Type)
	assert.Equal(t, []string{"city"}, converted[0].Function.Parameters.Required)
	assert.Contains(t, converted[0].Function.Parameters.Properties, "city")
}

func TestOllamaGenerate(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"Let me check.","tool_calls":[{"function":{"name":"weather","arguments":{"city":"Oslo"}}}]},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":5}` + "\n"))
	}))
	defer server.Close()

	model := NewOllamaModel("llama3.2", WithOllamaClient(server.URL))

	resp, err := model.Generate(context.Background(), &Request{
		SystemInstruction: "be helpful",
		Contents:          []*genai.Content{genai.NewContentFromText("weather in Oslo?", genai.RoleUser)},
		Tools:             []tools.Tool{weatherTool()},
		OutputSchema:      map[string]any{"type": "object"},
	})
	require.NoError(t, err)

	assert.Equal(t, "llama3.2", received["model"])
	assert.Equal(t, false, received["stream"])
	assert.Len(t, received["tools"], 1)
	assert.Equal(t, map[string]any{"type": "object"}, received["format"])

	require.Len(t, resp.Content.Parts, 2)
	assert.Equal(t, "Let me check.", resp.Content.Parts[0].Text)
	assert.Equal(t, "weather", resp.Content.Parts[1].FunctionCall.Name)
	assert.NotEmpty(t, resp.Content.Parts[1].FunctionCall.ID)
	assert.Equal(t, "Oslo", resp.Content.Parts[1].FunctionCall.Args["city"])
	assert.Equal(t, int64(12), resp.Usage.PromptTokens)
	assert.Equal(t, int64(5), resp.Usage.CompletionTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestDeepseekConvertMessages(t *testing.T) {
	messages := NewDeepseekModel("deepseek-chat").convertMessages("be helpful", conversation())

	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "assistant", messages[2].Role)
	require.Len(t, messages[2].ToolCalls, 1)
	assert.Equal(t, "call_1", messages[2].ToolCalls[0].ID)
	assert.JSONEq(t, `{"city":"Paris"}`, messages[2].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "tool", messages[3].Role)
	assert.Equal(t, "call_1", messages[3].ToolCallID)
	assert.Equal(t, "sunny", messages[3].Content)
}

func TestDeepseekConvertTools(t *testing.T) {
	converted := NewDeepseekModel("deepseek-chat").convertTools([]tools.Tool{weatherTool(), tools.URLContext()})

	require.Len(t, converted, 1)
	assert.Equal(t, "weather", converted[0].Function.Name)
	assert.Equal(t, []string{"city"}, converted[0].Function.Parameters.Required)
	assert.Contains(t, converted[0].Function.Parameters.Properties, "city")
}

func TestCohereConvertMessages(t *testing.T) {
	request := NewCohereModel("command-r").convertMessages(conversation())

	assert.Empty(t, request.Message)
	require.Len(t, request.ChatHistory, 2)
	assert.Equal(t, "weather in Paris?", request.ChatHistory[0].User.Message)
	require.Len(t, request.ChatHistory[1].Chatbot.ToolCalls, 1)
	assert.Equal(t, "weather", request.ChatHistory[1].Chatbot.ToolCalls[0].Name)

	require.Len(t, request.ToolResults, 1)
	assert.Equal(t, "Paris", request.ToolResults[0].Call.Parameters["city"])
	assert.Equal(t, "sunny", request.ToolResults[0].Outputs[0]["result"])

	followUp := append(conversation(),
		genai.NewContentFromText("It is sunny.", genai.RoleModel),
		genai.NewContentFromText("and tomorrow?", genai.RoleUser),
	)

	request = NewCohereModel("command-r").convertMessages(followUp)

	assert.Equal(t, "and tomorrow?", request.Message)
	assert.Empty(t, request.ToolResults)
	require.Len(t, request.ChatHistory, 4)
	assert.NotNil(t, request.ChatHistory[2].Tool)
	assert.Equal(t, "It is sunny.", request.ChatHistory[3].Chatbot.Message)
}

func TestCohereConvertTools(t *testing.T) {
	converted := NewCohereModel("command-r").convertTools([]tools.Tool{weatherTool(), tools.GoogleSearch()})

	require.Len(t, converted, 1)
	assert.Equal(t, "weather", converted[0].Name)
	require.Contains(t, converted[0].ParameterDefinitions, "city")
	assert.Equal(t, "string", converted[0].ParameterDefinitions["city"].Type)
	assert.True(t, *converted[0].ParameterDefinitions["city"].Required)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	config := Config{
		OpenRouterAPIKey: "or",
		OpenAIAPIKey:     "oa",
		AnthropicAPIKey:  "an",
		GoogleAPIKey:     "go",
		DeepSeekAPIKey:   "ds",
		CohereAPIKey:     "co",
	}

	model, err := New(ctx, config, "openrouter/google/gemini-3-pro-preview")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIModel{}, model)
	assert.Equal(t, "google/gemini-3-pro-preview", model.Name())

	model, err = New(ctx, config, "anthropic/claude-sonnet-4-5")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicModel{}, model)
	assert.Equal(t, "claude-sonnet-4-5", model.Name())

	model, err = New(ctx, config, "openai/gpt-4.1")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIModel{}, model)

	model, err = New(ctx, config, "gemini-2.5-flash")
	require.NoError(t, err)
	assert.IsType(t, &GoogleModel{}, model)
	assert.Equal(t, "gemini-2.5-flash", model.Name())

	model, err = New(ctx, config, "deepseek/deepseek-chat")
	require.NoError(t, err)
	assert.IsType(t, &DeepseekModel{}, model)
	assert.Equal(t, "deepseek-chat", model.Name())

	model, err = New(ctx, config, "cohere/command-r")
	require.NoError(t, err)
	assert.IsType(t, &CohereModel{}, model)

	model, err = New(ctx, Config{OllamaHost: "http://localhost:11434"}, "ollama/llama3.2")
	require.NoError(t, err)
	assert.IsType(t, &OllamaModel{}, model)
	assert.Equal(t, "llama3.2", model.Name())

	_, err = New(ctx, Config{}, "deepseek/deepseek-chat")
	assert.True(t, errors.Is(err, errors.ErrMissingAPIKey))

	_, err = New(ctx, Config{}, "cohere/command-r")
	assert.True(t, errors.Is(err, errors.ErrMissingAPIKey))

	_, err = New(ctx, Config{}, "openrouter/x/y")
	assert.True(t, errors.Is(err, errors.ErrMissingAPIKey))

	_, err = New(ctx, Config{}, "gemini-2.5-flash")
	assert.True(t, errors.Is(err, errors.ErrMissingAPIKey))
}

func TestScripted(t *testing.T) {
	model := NewScripted("fake", &Response{Content: genai.NewContentFromText("one", genai.RoleModel)})

	resp, err := model.Generate(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "one", resp.Content.Parts[0].Text)

	_, err = model.Generate(context.Background(), &Request{})
	assert.Error(t, err)
	assert.Len(t, model.Requests, 2)
}

func TestBackendOf(t *testing.T) {
	assert.Equal(t, BackendOpenRouter, BackendOf("openrouter/google/gemini-3-flash-preview"))
	assert.Equal(t, BackendAnthropic, BackendOf("anthropic/claude-sonnet-4-5"))
	assert.Equal(t, BackendOpenAI, BackendOf("openai/gpt-4.1"))
	assert.Equal(t, BackendGoogle, BackendOf("gemini-2.5-flash"))
	assert.Equal(t, BackendGoogle, BackendOf("google/gemini-2.5-pro"))
	assert.Equal(t, BackendOllama, BackendOf("ollama/llama3.2"))
	assert.Equal(t, BackendDeepSeek, BackendOf("deepseek/deepseek-chat"))
	assert.Equal(t, BackendCohere, BackendOf("cohere/command-r"))
}
