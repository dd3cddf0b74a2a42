package introspect

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/stoewer/go-strcase"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const placeholderDescription = "No description available."

/*
Line is one entry of the rendered tool list.
*/
type Line struct {
	Name        string
	Description string
	Parameters  []string
	Placeholder bool
}

func (line Line) String() string {
	description := strings.TrimSpace(line.Description)

	if description == "" {
		description = placeholderDescription
	}

	out := fmt.Sprintf("- **%s**: %s", line.Name, description)

	if len(line.Parameters) > 0 {
		out += fmt.Sprintf(" Arguments: %s.", strings.Join(line.Parameters, ", "))
	}

	return out
}

/*
Metadata records where the information in a Line came from. It is logged,
not rendered.
*/
type Metadata struct {
	Name         string
	Kind         string
	Description  string
	SchemaFound  bool
	SchemaSource string
	Parameters   []string
}

/*
Describe derives the name, description and parameter names of a tool. The
schema is looked up through OpenAPISchema, then JSONSchema, then Schema; the
first one that produces a map wins and failures fall through to the next.
*/
func Describe(tool tools.Tool) (Line, Metadata) {
	meta := Metadata{
		Name: toolName(tool),
		Kind: kindOf(tool),
	}

	meta.Description = strings.TrimSpace(tool.Description())

	schema, source := schemaOf(tool)

	if schema != nil {
		meta.SchemaFound = true
		meta.SchemaSource = source

		if description, ok := schema["description"].(string); ok && strings.TrimSpace(description) != "" {
			meta.Description = strings.TrimSpace(description)
		}

		meta.Parameters = parameterNames(schema)
	}

	return Line{
		Name:        meta.Name,
		Description: meta.Description,
		Parameters:  meta.Parameters,
	}, meta
}

func toolName(tool tools.Tool) string {
	if name := strings.TrimSpace(tool.Name()); name != "" {
		return name
	}

	return strcase.SnakeCase(typeName(tool))
}

func typeName(value any) string {
	t := reflect.TypeOf(value)

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()

	// Generic instantiations carry their type arguments in the name.
	if idx := strings.Index(name, "["); idx >= 0 {
		name = name[:idx]
	}

	return name
}

func kindOf(tool tools.Tool) string {
	switch tool.(type) {
	case tools.Toolset:
		return "toolset"
	case tools.Builtin:
		return "builtin"
	case tools.Runnable:
		return "function"
	}

	return "tool"
}

func schemaOf(tool tools.Tool) (map[string]any, string) {
	if schemer, ok := tool.(tools.OpenAPISchemer); ok {
		if schema, err := schemer.OpenAPISchema(); err == nil && schema != nil {
			return schema, "openapi"
		}
	}

	if schemer, ok := tool.(tools.JSONSchemer); ok {
		if schema, err := schemer.JSONSchema(); err == nil && schema != nil {
			return schema, "json"
		}
	}

	if schemer, ok := tool.(tools.Schemer); ok {
		if schema := schemer.Schema(); schema != nil {
			return schema, "schema"
		}
	}

	return nil, ""
}

/*
parameterNames reads the argument names from parameters.properties, or from
parameters itself, or from a top-level properties object.
*/
func parameterNames(schema map[string]any) []string {
	var source map[string]any

	if params, ok := schema["parameters"].(map[string]any); ok {
		if properties, ok := params["properties"].(map[string]any); ok {
			source = properties
		} else {
			source = params
		}
	} else if properties, ok := schema["properties"].(map[string]any); ok {
		source = properties
	}

	names := make([]string, 0, len(source))

	for name := range source {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
