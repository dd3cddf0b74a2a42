package tools

import (
	"context"
	"maps"
	"sync"

	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"google.golang.org/genai"
)

/*
Context is what a tool sees of the invocation it runs in. State writes are
recorded as a delta, which the agent attaches to the function response event
so the session store persists them.
*/
type Context struct {
	AppName        string
	UserID         string
	SessionID      string
	InvocationID   string
	AgentName      string
	FunctionCallID string

	mu            sync.Mutex
	state         map[string]any
	delta         map[string]any
	artifactDelta map[string]int
	artifacts     stores.ArtifactStore
}

func NewContext(
	session *stores.Session, invocationID, agentName string, artifacts stores.ArtifactStore,
) *Context {
	toolCtx := &Context{
		InvocationID:  invocationID,
		AgentName:     agentName,
		state:         map[string]any{},
		delta:         map[string]any{},
		artifactDelta: map[string]int{},
		artifacts:     artifacts,
	}

	if session != nil {
		toolCtx.AppName = session.AppName
		toolCtx.UserID = session.UserID
		toolCtx.SessionID = session.ID
		toolCtx.state = maps.Clone(session.State)
	}

	return toolCtx
}

func (toolCtx *Context) State(key string) (any, bool) {
	toolCtx.mu.Lock()
	defer toolCtx.mu.Unlock()

	if value, ok := toolCtx.delta[key]; ok {
		return value, true
	}

	value, ok := toolCtx.state[key]
	return value, ok
}

func (toolCtx *Context) SetState(key string, value any) {
	toolCtx.mu.Lock()
	defer toolCtx.mu.Unlock()

	toolCtx.delta[key] = value
}

func (toolCtx *Context) StateDelta() map[string]any {
	toolCtx.mu.Lock()
	defer toolCtx.mu.Unlock()

	return maps.Clone(toolCtx.delta)
}

func (toolCtx *Context) ArtifactDelta() map[string]int {
	toolCtx.mu.Lock()
	defer toolCtx.mu.Unlock()

	return maps.Clone(toolCtx.artifactDelta)
}

/*
Actions returns the recorded state and artifact changes in the form the
session store expects.
*/
func (toolCtx *Context) Actions() stores.EventActions {
	actions := stores.EventActions{}

	if delta := toolCtx.StateDelta(); len(delta) > 0 {
		actions.StateDelta = delta
	}

	if delta := toolCtx.ArtifactDelta(); len(delta) > 0 {
		actions.ArtifactDelta = delta
	}

	return actions
}

func (toolCtx *Context) key(name string) stores.ArtifactKey {
	return stores.ArtifactKey{
		AppName:   toolCtx.AppName,
		UserID:    toolCtx.UserID,
		SessionID: toolCtx.SessionID,
		Name:      name,
	}
}

func (toolCtx *Context) SaveArtifact(
	ctx context.Context, name string, part *genai.Part,
) (int, error) {
	if toolCtx.artifacts == nil {
		return 0, errors.ErrInternal.WithMessagef("no artifact store configured")
	}

	version, err := toolCtx.artifacts.Save(ctx, toolCtx.key(name), part)

	if err != nil {
		return 0, err
	}

	toolCtx.mu.Lock()
	toolCtx.artifactDelta[name] = version
	toolCtx.mu.Unlock()

	return version, nil
}

func (toolCtx *Context) LoadArtifact(
	ctx context.Context, name string, version int,
) (*genai.Part, error) {
	if toolCtx.artifacts == nil {
		return nil, errors.ErrInternal.WithMessagef("no artifact store configured")
	}

	return toolCtx.artifacts.Load(ctx, toolCtx.key(name), version)
}

func (toolCtx *Context) ListArtifacts(ctx context.Context) ([]string, error) {
	if toolCtx.artifacts == nil {
		return []string{}, nil
	}

	return toolCtx.artifacts.List(ctx, toolCtx.AppName, toolCtx.UserID, toolCtx.SessionID)
}
