package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/catalog"
	"github.com/theapemachine/agentdeck/pkg/introspect"
	"github.com/theapemachine/agentdeck/pkg/registry"
)

var (
	agentsCmd = &cobra.Command{
		Use:   "agents",
		Short: "Inspect the agent catalogue",
		Long:  longAgents,
	}

	agentsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered agents and whether they can be built",
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, err := buildCatalog(cmd.Context())

			if err != nil {
				return err
			}

			defer apps.Close()

			fmt.Fprintln(cmd.OutOrStdout(), agentTable(apps))
			return nil
		},
	}

	agentsInstructionCmd = &cobra.Command{
		Use:   "instruction <name>",
		Short: "Print an agent's instruction including its tool section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, err := buildCatalog(cmd.Context(), args[0])

			if err != nil {
				return err
			}

			defer apps.Close()

			built, err := apps.GetAgent(args[0])

			if err != nil {
				return err
			}

			printInstructions(cmd.Context(), cmd, built)
			return nil
		},
	}

	agentsCardCmd = &cobra.Command{
		Use:   "card <name>",
		Short: "Describe an agent as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, err := buildCatalog(cmd.Context(), args[0])

			if err != nil {
				return err
			}

			defer apps.Close()

			card, err := apps.Card(cmd.Context(), args[0])

			if err != nil {
				return err
			}

			out, err := card.YAML()

			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsListCmd, agentsInstructionCmd, agentsCardCmd)
}

func buildCatalog(ctx context.Context, names ...string) (*catalog.Catalog, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := newDeps(ctx)

	if err != nil {
		return nil, err
	}

	return catalog.Build(ctx, deps, names...), nil
}

func agentTable(apps *catalog.Catalog) string {
	disabled := apps.Disabled()
	rows := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "STATUS", "DESCRIPTION")

	for _, def := range registry.Definitions() {
		status := "ready"

		if reason, ok := disabled[def.Name]; ok {
			status = "disabled: " + reason
		}

		rows.Row(def.Name, status, def.Description)
	}

	return rows.Render()
}

func printInstructions(ctx context.Context, cmd *cobra.Command, built agent.Agent) {
	switch typed := built.(type) {
	case *agent.LLMAgent:
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n\n%s\n\n", typed.Name(), introspect.MakeInstructionWithTools(ctx, typed))
	case *agent.SequentialAgent:
		for _, sub := range typed.SubAgents() {
			printInstructions(ctx, cmd, sub)
		}
	}
}

var longAgents = `
Inspect the agent catalogue without starting the server.

Examples:
  # Which agents are available with the current keys?
  agentdeck agents list

  # Show what the model is told, tool section included
  agentdeck agents instruction mermaid_mcp_agent

  # Describe the resume screener pipeline
  agentdeck agents card resume_screener_agent
`
