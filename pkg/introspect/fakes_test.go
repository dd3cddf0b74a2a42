package introspect

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/theapemachine/agentdeck/pkg/tools"
)

type plainTool struct {
	name        string
	description string
}

func (tool *plainTool) Name() string        { return tool.name }
func (tool *plainTool) Description() string { return tool.description }

type openAPITool struct {
	plainTool
	schema map[string]any
	err    error
}

func (tool *openAPITool) OpenAPISchema() (map[string]any, error) {
	return tool.schema, tool.err
}

type chainedTool struct {
	plainTool
	jsonSchema map[string]any
}

func (tool *chainedTool) OpenAPISchema() (map[string]any, error) {
	return nil, stderrors.New("not supported")
}

func (tool *chainedTool) JSONSchema() (map[string]any, error) {
	return tool.jsonSchema, nil
}

type schemaTool struct {
	plainTool
	schema map[string]any
}

func (tool *schemaTool) Schema() map[string]any { return tool.schema }

type unnamedTool struct{}

func (tool *unnamedTool) Name() string        { return "" }
func (tool *unnamedTool) Description() string { return "" }

type fakeToolset struct {
	plainTool
	members []tools.Tool
	err     error
	delay   time.Duration

	mu    sync.Mutex
	calls int
}

func (toolset *fakeToolset) Tools(ctx context.Context) ([]tools.Tool, error) {
	toolset.mu.Lock()
	toolset.calls++
	toolset.mu.Unlock()

	if toolset.delay > 0 {
		select {
		case <-time.After(toolset.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return toolset.members, toolset.err
}

func (toolset *fakeToolset) Close() error { return nil }

type fakeTarget struct {
	mu          sync.Mutex
	instruction string
	tools       []tools.Tool
	sets        int
}

func (target *fakeTarget) Name() string { return "fake_agent" }

func (target *fakeTarget) Instruction() string {
	target.mu.Lock()
	defer target.mu.Unlock()
	return target.instruction
}

func (target *fakeTarget) SetInstruction(instruction string) {
	target.mu.Lock()
	defer target.mu.Unlock()
	target.instruction = instruction
	target.sets++
}

func (target *fakeTarget) Tools() []tools.Tool { return target.tools }
