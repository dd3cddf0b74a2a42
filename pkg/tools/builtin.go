package tools

import "google.golang.org/genai"

// Grounding tools executed by Gemini itself. Other providers drop them.

type builtin struct {
	name        string
	description string
	tool        *genai.Tool
}

func (tool *builtin) Name() string           { return tool.name }
func (tool *builtin) Description() string    { return tool.description }
func (tool *builtin) GenaiTool() *genai.Tool { return tool.tool }

func GoogleSearch() Builtin {
	return &builtin{
		name:        "google_search",
		description: "Searches the web with Google Search and grounds the answer in the results.",
		tool:        &genai.Tool{GoogleSearch: &genai.GoogleSearch{}},
	}
}

func GoogleMaps() Builtin {
	return &builtin{
		name:        "google_maps_grounding",
		description: "Grounds answers about places, routes and local businesses in Google Maps data.",
		tool:        &genai.Tool{GoogleMaps: &genai.GoogleMaps{}},
	}
}

func URLContext() Builtin {
	return &builtin{
		name:        "url_context",
		description: "Reads the content of URLs mentioned in the conversation.",
		tool:        &genai.Tool{URLContext: &genai.URLContext{}},
	}
}
