package provider

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

func marshal(value any) string {
	buf, err := json.Marshal(value)

	if err != nil {
		log.Warn("failed to marshal value", "error", err)
		return ""
	}

	return string(buf)
}

func unmarshalArgs(raw string) map[string]any {
	args := map[string]any{}

	if strings.TrimSpace(raw) == "" {
		return args
	}

	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		log.Warn("model produced invalid function arguments", "error", err)
	}

	return args
}

// textOf joins the non-thought text parts of a content.
func textOf(content *genai.Content) string {
	if content == nil {
		return ""
	}

	builder := strings.Builder{}

	for _, part := range content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			builder.WriteString(part.Text)
		}
	}

	return builder.String()
}

func isModelRole(role string) bool {
	return role == string(genai.RoleModel) || role == "assistant" || role == "agent"
}

// stringsOf reads a JSON array of strings, such as a schema's "required".
func stringsOf(value any) []string {
	out := []string{}

	switch typed := value.(type) {
	case []string:
		out = append(out, typed...)
	case []any:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				out = append(out, text)
			}
		}
	}

	return out
}
