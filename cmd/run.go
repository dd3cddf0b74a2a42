package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/client"
	"github.com/theapemachine/agentdeck/pkg/metrics"
	"github.com/theapemachine/agentdeck/pkg/service"
	"github.com/theapemachine/agentdeck/pkg/stores"
	"github.com/theapemachine/agentdeck/pkg/ui"
	"google.golang.org/genai"
)

var (
	remoteFlag bool
	urlFlag    string
	userFlag   string

	runCmd = &cobra.Command{
		Use:   "run <name> <message>",
		Short: "Run an agent once and print its events",
		Long:  longRun,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if ctx == nil {
				ctx = context.Background()
			}

			message := userMessage(strings.Join(args[1:], " "))
			printEvent := func(event *stores.Event) error {
				if line := ui.RenderEvent(event); line != "" {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}

				return nil
			}

			if remoteFlag {
				return runRemote(ctx, args[0], message, printEvent)
			}

			return runLocal(ctx, args[0], message, printEvent)
		},
	}
)

func init() {
	rootCmd.AddCommand(runCmd)

	for _, command := range []*cobra.Command{runCmd, chatCmd} {
		command.Flags().BoolVar(&remoteFlag, "remote", false, "Run against an agentdeck server instead of in process")
		command.Flags().StringVar(&urlFlag, "url", "", "Server URL (default client.url from the config)")
		command.Flags().StringVar(&userFlag, "user", "", "User ID (default client.user from the config)")
	}
}

func userMessage(text string) *genai.Content {
	return &genai.Content{
		Role:  string(genai.RoleUser),
		Parts: []*genai.Part{genai.NewPartFromText(text)},
	}
}

func userID() string {
	if userFlag != "" {
		return userFlag
	}

	if user := viper.GetString("client.user"); user != "" {
		return user
	}

	return "user"
}

func newClient() *client.Client {
	url := urlFlag

	if url == "" {
		url = viper.GetString("client.url")
	}

	options := []client.Option{}

	if token := viper.GetString("client.token"); token != "" {
		options = append(options, client.WithToken(token))
	}

	return client.New(url, options...)
}

/*
localRunner builds one agent and wraps it in a runner over an in-memory
session store that creates sessions on first use.
*/
func localRunner(ctx context.Context, name string) (*agent.Runner, func(), error) {
	apps, err := buildCatalog(ctx, name)

	if err != nil {
		return nil, nil, err
	}

	built, err := apps.GetAgent(name)

	if err != nil {
		apps.Close()
		return nil, nil, err
	}

	artifacts, err := newArtifactStore(ctx)

	if err != nil {
		apps.Close()
		return nil, nil, err
	}

	sessions := stores.NewInMemorySessionStore()

	runner := &agent.Runner{
		AppName:    built.Name(),
		Agent:      built,
		Sessions:   sessions,
		Artifacts:  artifacts,
		Metrics:    metrics.NewRunMetrics(),
		AutoCreate: true,
	}

	return runner, func() {
		sessions.Close()
		apps.Close()
	}, nil
}

func runLocal(ctx context.Context, name string, message *genai.Content, handler func(*stores.Event) error) error {
	runner, release, err := localRunner(ctx, name)

	if err != nil {
		return err
	}

	defer release()

	events, err := runner.Run(ctx, userID(), "", message)

	if err != nil {
		return err
	}

	for event := range events {
		if err = handler(event); err != nil {
			return err
		}
	}

	return nil
}

func runRemote(ctx context.Context, name string, message *genai.Content, handler func(*stores.Event) error) error {
	conn := newClient()
	session, err := conn.CreateSession(ctx, name, userID(), "", nil)

	if err != nil {
		return err
	}

	return conn.RunSSE(ctx, service.RunRequest{
		AppName:    name,
		UserID:     userID(),
		SessionID:  session.ID,
		NewMessage: message,
	}, handler)
}

var longRun = `
Run an agent once against a fresh session and print every event it produces:
tool calls, tool results and the final answer.

Examples:
  # Ask the web search agent in process
  agentdeck run web_search_agent "What changed in Go 1.24?"

  # Stream the same run from a server
  agentdeck run --remote --url http://localhost:8000 web_search_agent "What changed in Go 1.24?"
`
