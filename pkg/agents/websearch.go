package agents

import (
	"context"

	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const webSearchPrompt = "web_search_agent"

func init() {
	register(registry.Definition{
		Name:        "web_search_agent",
		Description: "AI assistant that grounds answers using web search and always cites sources",
		Factory:     newWebSearchAgent,
	}, prompts.Prompt{
		Name:    webSearchPrompt,
		Version: "v0",
		Template: `
You are a helpful assistant that answers questions by searching the web first.

Today's date is {{.CurrentDate}}.

**How to answer:**
- Search before answering anything that depends on current or specific facts.
- Base the answer on what the search returned, not on memory.
- Start with a direct answer, never with a header or "I will search...".
- Use Markdown: short paragraphs, bullet points, tables for comparisons and **bold** for key facts.
- If the results are thin or contradictory, say so and suggest a sharper query.

**Sources:**
End every answer with:

---

## 🔗 Sources

1. [Title](URL)
2. [Title](URL)
`,
	})
}

/*
newWebSearchAgent grounds with Gemini's google_search when the fast model is
served by Gemini, and falls back to the Exa backed web_search tool otherwise.
*/
func newWebSearchAgent(ctx context.Context, deps registry.Deps) (agent.Agent, error) {
	model, err := fastModel(deps)

	if err != nil {
		return nil, err
	}

	instruction, err := deps.Instruction(webSearchPrompt)

	if err != nil {
		return nil, err
	}

	var search tools.Tool = tools.GoogleSearch()

	if provider.BackendOf(fastModelName(deps)) != provider.BackendGoogle {
		if deps.Settings.ExaAPIKey == "" {
			return nil, errors.ErrMissingAPIKey.WithMessagef(
				"EXA_API_KEY is required for web search with %s", fastModelName(deps),
			)
		}

		search = tools.NewWebSearchTool(tools.WebSearchConfig{
			APIKey:  deps.Settings.ExaAPIKey,
			BaseURL: deps.Settings.ExaBaseURL,
			Timeout: deps.Settings.SearchTimeout,
		})
	}

	return agent.NewLLMAgent("web_search_agent", model,
		agent.WithDescription("AI assistant that grounds answers using web search and always cites sources"),
		agent.WithInstruction(instruction),
		agent.WithTools(search),
	), nil
}
