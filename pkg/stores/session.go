package stores

// Sessions hold the conversation between a user and one app (agent). Every
// model turn, tool call and tool result is an Event appended to the session;
// state changes travel inside events as a StateDelta so that replaying the
// events reproduces the state.

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// TempStatePrefix marks state keys that live only for one invocation.
const TempStatePrefix = "temp:"

type EventActions struct {
	StateDelta    map[string]any `json:"stateDelta,omitempty"`
	ArtifactDelta map[string]int `json:"artifactDelta,omitempty"`
}

type Event struct {
	ID           string         `json:"id"`
	InvocationID string         `json:"invocationId"`
	Author       string         `json:"author"`
	Content      *genai.Content `json:"content,omitempty"`
	Actions      EventActions   `json:"actions"`
	Partial      bool           `json:"partial,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`

	UsageMetadata *genai.GenerateContentResponseUsageMetadata `json:"usageMetadata,omitempty"`
}

func NewEvent(invocationID, author string, content *genai.Content) *Event {
	return &Event{
		ID:           uuid.NewString(),
		InvocationID: invocationID,
		Author:       author,
		Content:      content,
		Timestamp:    time.Now().UTC(),
	}
}

// Text joins the text parts of the event content.
func (event *Event) Text() string {
	if event.Content == nil {
		return ""
	}

	builder := strings.Builder{}

	for _, part := range event.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			builder.WriteString(part.Text)
		}
	}

	return builder.String()
}

func (event *Event) FunctionCalls() []*genai.FunctionCall {
	out := []*genai.FunctionCall{}

	if event.Content == nil {
		return out
	}

	for _, part := range event.Content.Parts {
		if part != nil && part.FunctionCall != nil {
			out = append(out, part.FunctionCall)
		}
	}

	return out
}

func (event *Event) FunctionResponses() []*genai.FunctionResponse {
	out := []*genai.FunctionResponse{}

	if event.Content == nil {
		return out
	}

	for _, part := range event.Content.Parts {
		if part != nil && part.FunctionResponse != nil {
			out = append(out, part.FunctionResponse)
		}
	}

	return out
}

/*
IsFinalResponse is true for an event that ends an agent turn: it carries no
function calls or responses and is not a partial streaming chunk.
*/
func (event *Event) IsFinalResponse() bool {
	return !event.Partial &&
		len(event.FunctionCalls()) == 0 &&
		len(event.FunctionResponses()) == 0
}

type Session struct {
	ID             string         `json:"id"`
	AppName        string         `json:"appName"`
	UserID         string         `json:"userId"`
	State          map[string]any `json:"state"`
	Events         []*Event       `json:"events"`
	LastUpdateTime time.Time      `json:"lastUpdateTime"`
}

func NewSession(appName, userID, sessionID string, state map[string]any) *Session {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if state == nil {
		state = map[string]any{}
	}

	return &Session{
		ID:             sessionID,
		AppName:        appName,
		UserID:         userID,
		State:          maps.Clone(state),
		Events:         []*Event{},
		LastUpdateTime: time.Now().UTC(),
	}
}

/*
Clone copies the session so callers can mutate it without touching the stored
value. Events are immutable once appended and are shared.
*/
func (session *Session) Clone() *Session {
	out := *session
	out.State = maps.Clone(session.State)
	out.Events = append([]*Event{}, session.Events...)

	if out.State == nil {
		out.State = map[string]any{}
	}

	return &out
}

/*
Apply folds an event into the session: the state delta is merged, except for
temp: keys, and the event is appended.
*/
func (session *Session) Apply(event *Event) {
	if session.State == nil {
		session.State = map[string]any{}
	}

	for key, value := range event.Actions.StateDelta {
		if strings.HasPrefix(key, TempStatePrefix) {
			continue
		}

		session.State[key] = value
	}

	session.Events = append(session.Events, event)
	session.LastUpdateTime = event.Timestamp
}

/*
SessionStore persists sessions and their events. Implementations must be safe
for concurrent use.
*/
type SessionStore interface {
	Create(ctx context.Context, appName, userID, sessionID string, state map[string]any) (*Session, error)
	Get(ctx context.Context, appName, userID, sessionID string) (*Session, error)
	List(ctx context.Context, appName, userID string) ([]*Session, error)
	Delete(ctx context.Context, appName, userID, sessionID string) error
	AppendEvent(ctx context.Context, session *Session, event *Event) error
	Close() error
}
