package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
)

/*
FunctionTool turns a Go function into a tool. The parameter schema is
reflected from In, and the model's arguments are decoded into In through a
JSON round trip, so json tags and jsonschema tags on In drive both.
*/
type FunctionTool[In any] struct {
	name        string
	description string
	fn          func(context.Context, *Context, In) (any, error)
	schema      map[string]any
}

func NewFunctionTool[In any](
	name, description string,
	fn func(ctx context.Context, toolCtx *Context, in In) (any, error),
) *FunctionTool[In] {
	return &FunctionTool[In]{
		name:        name,
		description: description,
		fn:          fn,
		schema:      SchemaFor[In](),
	}
}

// SchemaFor reflects the JSON schema of T as a plain map.
func SchemaFor[T any]() map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}

	schema := reflector.Reflect(new(T))
	buf, err := json.Marshal(schema)

	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	out := map[string]any{}

	if err = json.Unmarshal(buf, &out); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	delete(out, "$schema")
	delete(out, "$id")
	delete(out, "additionalProperties")

	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}

	return out
}

func (tool *FunctionTool[In]) Name() string {
	return tool.name
}

func (tool *FunctionTool[In]) Description() string {
	return tool.description
}

func (tool *FunctionTool[In]) JSONSchema() (map[string]any, error) {
	return tool.schema, nil
}

func (tool *FunctionTool[In]) Declaration() mcp.Tool {
	buf, _ := json.Marshal(tool.schema)
	return mcp.NewToolWithRawSchema(tool.name, tool.description, buf)
}

func (tool *FunctionTool[In]) Run(
	ctx context.Context, toolCtx *Context, args map[string]any,
) (any, error) {
	var in In

	if args == nil {
		args = map[string]any{}
	}

	buf, err := json.Marshal(args)

	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments for %s: %w", tool.name, err)
	}

	if err = json.Unmarshal(buf, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", tool.name, err)
	}

	return tool.fn(ctx, toolCtx, in)
}
