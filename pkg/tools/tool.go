package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/genai"
)

/*
Tool is anything that can be attached to an agent. Most tools also implement
Runnable; toolsets implement Toolset and model-side tools implement Builtin.
*/
type Tool interface {
	Name() string
	Description() string
}

/*
Runnable is a tool the agent executes itself when the model emits a function
call with a matching name.
*/
type Runnable interface {
	Tool
	Declaration() mcp.Tool
	Run(ctx context.Context, toolCtx *Context, args map[string]any) (any, error)
}

/*
Toolset is a tool that stands for a group of tools which are only known after
talking to something, typically an MCP server.
*/
type Toolset interface {
	Tool
	Tools(ctx context.Context) ([]Tool, error)
	Close() error
}

/*
Builtin is a tool the model provider executes on its side, such as Google
Search grounding.
*/
type Builtin interface {
	Tool
	GenaiTool() *genai.Tool
}

type OpenAPISchemer interface {
	OpenAPISchema() (map[string]any, error)
}

type JSONSchemer interface {
	JSONSchema() (map[string]any, error)
}

type Schemer interface {
	Schema() map[string]any
}

/*
ParametersOf returns the input schema of a declaration as a plain map, which
is the shape every provider SDK accepts.
*/
func ParametersOf(decl mcp.Tool) map[string]any {
	var (
		buf []byte
		err error
	)

	if len(decl.RawInputSchema) > 0 {
		buf = decl.RawInputSchema
	} else if buf, err = json.Marshal(decl.InputSchema); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	out := map[string]any{}

	if err = json.Unmarshal(buf, &out); err != nil || len(out) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}

	return out
}

/*
Expand flattens toolsets into their member tools. Toolsets that fail to list
are reported through onError and skipped.
*/
func Expand(ctx context.Context, attached []Tool, onError func(Toolset, error)) []Tool {
	out := []Tool{}

	for _, tool := range attached {
		toolset, ok := tool.(Toolset)

		if !ok {
			out = append(out, tool)
			continue
		}

		members, err := toolset.Tools(ctx)

		if err != nil {
			if onError != nil {
				onError(toolset, err)
			}

			continue
		}

		out = append(out, members...)
	}

	return out
}

/*
Find returns the runnable tool with the given name.
*/
func Find(runnables []Tool, name string) (Runnable, bool) {
	for _, tool := range runnables {
		if runnable, ok := tool.(Runnable); ok && runnable.Name() == name {
			return runnable, true
		}
	}

	return nil, false
}
