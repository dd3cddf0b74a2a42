package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"github.com/theapemachine/agentdeck/pkg/tools"
	"google.golang.org/genai"
)

const (
	UserAuthor      = "user"
	DefaultMaxTurns = 10
)

type BeforeAgentCallback func(ctx context.Context, agent *LLMAgent) error

/*
LLMAgent answers by looping between the model and its tools: every model turn
that asks for function calls is followed by a turn carrying their results,
until the model replies with text only.
*/
type LLMAgent struct {
	name         string
	description  string
	model        provider.Model
	mu           sync.RWMutex
	instruction  string
	tools        []tools.Tool
	before       []BeforeAgentCallback
	outputKey    string
	outputSchema map[string]any
	decode       func(text string) (any, error)
	maxTurns     int
}

type LLMAgentOption func(*LLMAgent)

func NewLLMAgent(name string, model provider.Model, options ...LLMAgentOption) *LLMAgent {
	agent := &LLMAgent{
		name:     name,
		model:    model,
		maxTurns: DefaultMaxTurns,
	}

	for _, option := range options {
		option(agent)
	}

	return agent
}

func WithDescription(description string) LLMAgentOption {
	return func(agent *LLMAgent) {
		agent.description = description
	}
}

func WithInstruction(instruction string) LLMAgentOption {
	return func(agent *LLMAgent) {
		agent.instruction = instruction
	}
}

func WithTools(attached ...tools.Tool) LLMAgentOption {
	return func(agent *LLMAgent) {
		agent.tools = append(agent.tools, attached...)
	}
}

func WithBeforeAgent(callbacks ...BeforeAgentCallback) LLMAgentOption {
	return func(agent *LLMAgent) {
		agent.before = append(agent.before, callbacks...)
	}
}

// WithOutputKey stores the final answer text in session state under key.
func WithOutputKey(key string) LLMAgentOption {
	return func(agent *LLMAgent) {
		agent.outputKey = key
	}
}

func WithOutputSchema(schema map[string]any) LLMAgentOption {
	return func(agent *LLMAgent) {
		agent.outputSchema = schema
	}
}

/*
WithOutput asks the model for JSON shaped like T and stores the decoded answer
under key. Decoding goes through T, so custom unmarshalers on T normalise the
value before it reaches session state.
*/
func WithOutput[T any](key string) LLMAgentOption {
	return func(agent *LLMAgent) {
		agent.outputKey = key
		agent.outputSchema = tools.SchemaFor[T]()
		agent.decode = func(text string) (any, error) {
			var value T

			if err := json.Unmarshal([]byte(stripFence(text)), &value); err != nil {
				return nil, err
			}

			buf, err := json.Marshal(value)

			if err != nil {
				return nil, err
			}

			out := map[string]any{}
			return out, json.Unmarshal(buf, &out)
		}
	}
}

func WithMaxTurns(turns int) LLMAgentOption {
	return func(agent *LLMAgent) {
		if turns > 0 {
			agent.maxTurns = turns
		}
	}
}

func (agent *LLMAgent) Name() string {
	return agent.name
}

func (agent *LLMAgent) Description() string {
	return agent.description
}

func (agent *LLMAgent) Model() provider.Model {
	return agent.model
}

func (agent *LLMAgent) Instruction() string {
	agent.mu.RLock()
	defer agent.mu.RUnlock()

	return agent.instruction
}

func (agent *LLMAgent) SetInstruction(instruction string) {
	agent.mu.Lock()
	defer agent.mu.Unlock()

	agent.instruction = instruction
}

func (agent *LLMAgent) Tools() []tools.Tool {
	return agent.tools
}

// Close releases the connections held by attached toolsets.
func (agent *LLMAgent) Close() error {
	var first error

	for _, tool := range agent.tools {
		if toolset, ok := tool.(tools.Toolset); ok {
			if err := toolset.Close(); err != nil && first == nil {
				first = err
			}
		}
	}

	return first
}

func (agent *LLMAgent) Run(
	ctx context.Context, invocation *Invocation,
) iter.Seq[*stores.Event] {
	return func(yield func(*stores.Event) bool) {
		for _, callback := range agent.before {
			if err := callback(ctx, agent); err != nil {
				yield(ErrorEvent(invocation, agent.name, err))
				return
			}
		}

		attached := tools.Expand(ctx, agent.tools, func(toolset tools.Toolset, err error) {
			log.Warn("toolset unavailable", "agent", agent.name, "toolset", toolset.Name(), "error", err)
		})

		for turn := 0; turn < agent.maxTurns; turn++ {
			if err := ctx.Err(); err != nil {
				yield(ErrorEvent(invocation, agent.name, err))
				return
			}

			response, err := agent.model.Generate(ctx, &provider.Request{
				SystemInstruction: agent.Instruction(),
				Contents:          agent.history(invocation.Session),
				Tools:             attached,
				OutputSchema:      agent.outputSchema,
			})

			if err != nil {
				log.Error("model call failed", "agent", agent.name, "model", agent.model.Name(), "error", err)
				yield(ErrorEvent(invocation, agent.name, err))
				return
			}

			event := stores.NewEvent(invocation.ID, agent.name, response.Content)
			event.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     int32(response.Usage.PromptTokens),
				CandidatesTokenCount: int32(response.Usage.CompletionTokens),
			}
			calls := event.FunctionCalls()

			for _, call := range calls {
				if call.ID == "" {
					call.ID = "call-" + uuid.NewString()
				}
			}

			if len(calls) == 0 && agent.outputKey != "" {
				event.Actions.StateDelta = map[string]any{agent.outputKey: agent.output(event.Text())}
			}

			if !yield(event) || len(calls) == 0 {
				return
			}

			if !yield(agent.dispatch(ctx, invocation, attached, calls)) {
				return
			}
		}

		yield(ErrorEvent(invocation, agent.name, errors.ErrInternal.WithMessagef(
			"agent %s stopped after %d turns without a final answer", agent.name, agent.maxTurns,
		)))
	}
}

func (agent *LLMAgent) output(text string) any {
	if agent.decode == nil {
		return text
	}

	value, err := agent.decode(text)

	if err != nil {
		log.Warn("answer does not match output schema, storing text", "agent", agent.name, "error", err)
		return text
	}

	return value
}

// stripFence removes a surrounding ```json fence some models add.
func stripFence(text string) string {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}

/*
history turns the session events into model contents. The user's and this
agent's own events pass through unchanged; text from other agents is handed
over as user context.
*/
func (agent *LLMAgent) history(session *stores.Session) []*genai.Content {
	out := []*genai.Content{}

	if session == nil {
		return out
	}

	for _, event := range session.Events {
		if event.Content == nil || len(event.Content.Parts) == 0 || event.ErrorMessage != "" {
			continue
		}

		switch event.Author {
		case UserAuthor, agent.name:
			out = append(out, event.Content)
		default:
			if text := event.Text(); text != "" {
				out = append(out, &genai.Content{
					Role: string(genai.RoleUser),
					Parts: []*genai.Part{
						genai.NewPartFromText(fmt.Sprintf("For context: [%s] said: %s", event.Author, text)),
					},
				})
			}
		}
	}

	return out
}

/*
dispatch runs the requested calls and folds their results into one function
response event. A failing or unknown tool answers with an error payload so the
model can recover on the next turn.
*/
func (agent *LLMAgent) dispatch(
	ctx context.Context, invocation *Invocation, attached []tools.Tool, calls []*genai.FunctionCall,
) *stores.Event {
	content := &genai.Content{Role: string(genai.RoleUser)}
	actions := stores.EventActions{
		StateDelta:    map[string]any{},
		ArtifactDelta: map[string]int{},
	}

	for _, call := range calls {
		var (
			result any
			err    error
		)

		toolCtx := tools.NewContext(invocation.Session, invocation.ID, agent.name, invocation.Artifacts)
		toolCtx.FunctionCallID = call.ID

		if runnable, ok := tools.Find(attached, call.Name); ok {
			log.Debug("calling tool", "agent", agent.name, "tool", call.Name)
			result, err = runnable.Run(ctx, toolCtx, call.Args)
		} else {
			err = errors.ErrToolNotFound.WithMessagef("tool %s not found", call.Name)
		}

		if err != nil {
			log.Warn("tool call failed", "agent", agent.name, "tool", call.Name, "error", err)
		}

		callActions := toolCtx.Actions()
		maps.Copy(actions.StateDelta, callActions.StateDelta)
		maps.Copy(actions.ArtifactDelta, callActions.ArtifactDelta)

		content.Parts = append(content.Parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: responseOf(result, err),
			},
		})
	}

	event := stores.NewEvent(invocation.ID, agent.name, content)
	event.Actions = actions

	return event
}

func responseOf(result any, err error) map[string]any {
	if err != nil {
		return map[string]any{"error": err.Error()}
	}

	switch value := result.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return value
	case string:
		return map[string]any{"result": value}
	}

	buf, err := json.Marshal(result)

	if err != nil {
		return map[string]any{"error": err.Error()}
	}

	out := map[string]any{}

	if err := json.Unmarshal(buf, &out); err != nil {
		var raw any
		_ = json.Unmarshal(buf, &raw)
		return map[string]any{"result": raw}
	}

	return out
}
