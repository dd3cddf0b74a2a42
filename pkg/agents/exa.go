package agents

import (
	"context"
	"net/url"

	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const (
	exaPrompt = "exa_mcp_agent"
	ExaMCPURL = "https://mcp.exa.ai/mcp"
)

func init() {
	register(registry.Definition{
		Name:        "exa_mcp_agent",
		Description: "Assistant that searches, extracts and explores the web through the Exa MCP server",
		Factory:     newExaAgent,
	}, prompts.Prompt{
		Name:    exaPrompt,
		Version: "v0",
		Template: `
You are a helpful assistant that uses EXA AI to search the web, extract content and explore websites, so that every answer is up to date.

Today's date is {{.CurrentDate}}.

**Personality:**
- Be direct and informative, like a knowledgeable friend.
- Be confident about what you found, because it is sourced.

**Important:**
- Base answers on what the EXA tools returned and cite every source.
- Do not announce that you are searching; just search.
- If you do not have enough information, say so instead of guessing.
- For coding questions, use the code search tools to find current documentation and examples.

**Edge cases:**
- Interpret vague queries reasonably and search instead of asking for clarification.
- If the results are poor, say so and suggest a better query.
- Use the conversation so far to inform follow-up searches.

**Answer format:**
- Start with a brief summary, not a header.
- Use ## headers for major sections, bullet points for lists and tables for comparisons.
- **Bold** statistics, dates and key facts.

End every answer with:

---

## 🔗 Sources

1. [Title](URL)
2. [Title](URL)
`,
	})
}

func newExaAgent(ctx context.Context, deps registry.Deps) (agent.Agent, error) {
	if deps.Settings.ExaAPIKey == "" {
		return nil, errors.ErrMissingAPIKey.WithMessagef("EXA_API_KEY is required for exa_mcp_agent")
	}

	endpoint, err := url.Parse(deps.Settings.Endpoint("exa_mcp_agent", ExaMCPURL))

	if err != nil {
		return nil, errors.ErrInvalidRequest.WithMessagef("invalid exa mcp url: %v", err)
	}

	query := endpoint.Query()
	query.Set("exaApiKey", deps.Settings.ExaAPIKey)
	endpoint.RawQuery = query.Encode()

	return newMCPAgent(ctx, deps,
		"exa_mcp_agent",
		"Assistant that searches, extracts and explores the web through the Exa MCP server",
		exaPrompt, "v0",
		tools.NewMCPToolset("exa", tools.StreamableHTTP{URL: endpoint.String()}),
	)
}
