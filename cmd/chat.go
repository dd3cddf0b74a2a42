package cmd

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/theapemachine/agentdeck/pkg/ui"
)

var (
	chatCmd = &cobra.Command{
		Use:   "chat <name>",
		Short: "Chat with an agent in the terminal",
		Long:  longChat,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if ctx == nil {
				ctx = context.Background()
			}

			if path := os.Getenv("TEA_LOGFILE"); path != "" {
				fh, err := tea.LogToFile(path, "chat")

				if err != nil {
					return err
				}

				defer fh.Close()
			}

			transport, release, err := chatTransport(ctx, args[0])

			if err != nil {
				return err
			}

			defer release()

			if _, err = tea.NewProgram(ui.New(ctx, args[0], transport), tea.WithAltScreen()).Run(); err != nil {
				log.Error("chat ended with an error", "error", err)
				return err
			}

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chatTransport(ctx context.Context, name string) (ui.Transport, func(), error) {
	if remoteFlag {
		conn := newClient()
		session, err := conn.CreateSession(ctx, name, userID(), "", nil)

		if err != nil {
			return nil, nil, err
		}

		return &ui.RemoteTransport{
			Client:    conn,
			AppName:   name,
			UserID:    userID(),
			SessionID: session.ID,
		}, func() {}, nil
	}

	runner, release, err := localRunner(ctx, name)

	if err != nil {
		return nil, nil, err
	}

	return &ui.LocalTransport{
		Runner:    runner,
		UserID:    userID(),
		SessionID: uuid.NewString(),
	}, release, nil
}

var longChat = `
Chat with one agent in a terminal UI. Every message goes to the same session,
so the agent sees the whole conversation.

Examples:
  # Chat in process
  agentdeck chat mermaid_mcp_agent

  # Chat with an agent on a server
  agentdeck chat --remote tavily_mcp_agent
`
