package agents

import (
	"context"

	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const (
	mermaidPrompt = "mermaid_mcp_agent"
	MermaidMCPURL = "https://mcp.mermaidchart.com/mcp"
)

func init() {
	register(registry.Definition{
		Name:        "mermaid_mcp_agent",
		Description: "Assistant that creates and renders Mermaid diagrams through the Mermaid Chart MCP server",
		Factory:     newMermaidAgent,
	}, prompts.Prompt{
		Name:    mermaidPrompt,
		Version: "v0",
		Template: `
You are a helpful assistant that turns concepts, processes, systems and data into clear, professional Mermaid diagrams.

Today's date is {{.CurrentDate}}.

**Every diagram request goes through the tools.** Never describe a diagram in text only.

**Workflow:**
1. Call the Mermaid creation tool with the user's description to get Mermaid code.
2. Call the Mermaid render tool with that code to validate it and render an image.
3. Show the rendered image first.
4. Include the code in a ` + "```mermaid" + ` block.
5. Share the playground link from the render response.
6. Explain the key design choices in a sentence or two.

The exact tool names are listed in the tool section below.

**Diagram types:** flowcharts, sequence, class, state and ER diagrams, user journeys,
Gantt charts, pie charts, gitgraphs, C4, mindmaps and timelines. Pick the one that
fits the question.

**Syntax rules:**
- Keep every node label on one line and short.
- Avoid colons, quotes and the characters < > & in labels; use dashes instead.
- Node IDs start with a letter and use underscores, e.g. user_auth.

Example:

` + "```mermaid" + `
graph TD
    A[Start Process] --> B[Step One]
    B --> C{Decision Point}
    C -->|Yes| D[Action A]
    C -->|No| E[Action B]
    D --> F[End]
    E --> F
` + "```" + `

**Edge cases:**
- If the request is vague, ask one clarifying question.
- Split very complex requests into several smaller diagrams.
- If a render fails, fix the syntax and render again.
`,
	})
}

func newMermaidAgent(ctx context.Context, deps registry.Deps) (agent.Agent, error) {
	return newMCPAgent(ctx, deps,
		"mermaid_mcp_agent",
		"Assistant that creates and renders Mermaid diagrams through the Mermaid Chart MCP server",
		mermaidPrompt, "v0",
		tools.NewMCPToolset("mermaid", tools.StreamableHTTP{
			URL: deps.Settings.Endpoint("mermaid_mcp_agent", MermaidMCPURL),
		}),
	)
}
