package agents

// Every file in this package registers one app with the registry from
// init(), together with the versioned prompts it uses. Importing the package
// for side effects makes the whole catalogue available.

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/introspect"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/provider"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const (
	DefaultFastModel      = "gemini-2.5-flash"
	DefaultReasoningModel = "gemini-2.5-pro"
)

func register(def registry.Definition, versions ...prompts.Prompt) {
	for _, prompt := range versions {
		prompts.Default().Register(prompt)
	}

	registry.Register(def)
}

func fastModelName(deps registry.Deps) string {
	if deps.Settings.FastModel == "" {
		return DefaultFastModel
	}

	return deps.Settings.FastModel
}

func fastModel(deps registry.Deps) (provider.Model, error) {
	return modelNamed(deps, deps.Settings.FastModel, DefaultFastModel)
}

func reasoningModel(deps registry.Deps) (provider.Model, error) {
	return modelNamed(deps, deps.Settings.ReasoningModel, DefaultReasoningModel)
}

func modelNamed(deps registry.Deps, name, fallback string) (provider.Model, error) {
	if name == "" {
		name = fallback
	}

	if deps.Models == nil {
		return nil, errors.ErrMissingProvider.WithMessagef("no model factory for %s", name)
	}

	return deps.Models(name)
}

func refreshTools(ctx context.Context, llm *agent.LLMAgent) error {
	return introspect.Refresh(ctx, llm)
}

/*
newMCPAgent builds an agent around one MCP toolset. The tool section of its
instruction is filled in now when the server answers and kept current before
every run.
*/
func newMCPAgent(
	ctx context.Context,
	deps registry.Deps,
	name, description, promptName, promptVersion string,
	toolset *tools.MCPToolset,
) (agent.Agent, error) {
	model, err := fastModel(deps)

	if err != nil {
		return nil, err
	}

	instruction, err := deps.InstructionAt(promptName, promptVersion)

	if err != nil {
		return nil, err
	}

	llm := agent.NewLLMAgent(name, model,
		agent.WithDescription(description),
		agent.WithInstruction(instruction),
		agent.WithTools(toolset),
		agent.WithBeforeAgent(refreshTools),
	)

	llm.SetInstruction(introspect.MakeInstructionWithTools(ctx, llm))
	log.Debug("built mcp agent", "name", name, "toolset", toolset.Description())

	return llm, nil
}

// commandLine splits a configured stdio command into program and arguments.
func commandLine(line string) (string, []string) {
	fields := strings.Fields(line)

	if len(fields) == 0 {
		return "", nil
	}

	return fields[0], fields[1:]
}
