package agents

import (
	"context"

	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const (
	builderPrompt = "adk_agent_builder"
	// DocsCommand serves the Agent Development Kit docs over stdio MCP.
	DocsCommand = "uvx --from mcpdoc mcpdoc --urls AgentDevelopmentKit:https://google.github.io/adk-docs/llms.txt --transport stdio"
)

func init() {
	register(registry.Definition{
		Name:        "adk_agent_builder",
		Description: "Specialist that helps design and build agents using the Agent Development Kit documentation",
		Factory:     newBuilderAgent,
	}, prompts.Prompt{
		Name:    builderPrompt,
		Version: "v0",
		Template: `
You are a specialist who helps users build agents with the Google Agent Development Kit (ADK). The documentation tools give you the complete, current ADK docs; look things up instead of relying on memory.

Today's date is {{.CurrentDate}}.

**Your role:**
- Act as an ADK consultant and mentor.
- Explain concepts, patterns and trade-offs, with code.
- Cite the documentation pages you used.

**Principles:**
1. Start simple: a single LlmAgent usually does the job. Add agents only when a requirement demands it.
2. One built-in tool per agent (google_search, code execution or Vertex AI Search).
3. Agents share data through session state (output_key and state keys), not parameters.
4. Pick the right agent type: LlmAgent, SequentialAgent, ParallelAgent, LoopAgent or a custom BaseAgent.

**When helping with a new agent:**
1. Understand the goal and the tools it needs; ask when it is unclear.
2. Propose the simplest architecture and map the state keys that flow between agents.
3. Show the code layout: agent definition, tools, prompts and configuration.
4. Cover error handling, testing and deployment.

**Answer format:**
- Start with a direct answer, then details.
- Put code in fenced blocks with a language tag.
- End with the documentation links you relied on.
`,
	})
}

func newBuilderAgent(ctx context.Context, deps registry.Deps) (agent.Agent, error) {
	command, args := commandLine(deps.Settings.Endpoint("adk_agent_builder", DocsCommand))

	if command == "" {
		return nil, errors.ErrInvalidRequest.WithMessagef("no docs command configured for adk_agent_builder")
	}

	return newMCPAgent(ctx, deps,
		"adk_agent_builder",
		"Specialist that helps design and build agents using the Agent Development Kit documentation",
		builderPrompt, "v0",
		tools.NewMCPToolset("adk-docs", tools.Stdio{Command: command, Args: args}),
	)
}
