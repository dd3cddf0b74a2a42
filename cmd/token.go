package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/theapemachine/agentdeck/pkg/errors"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a bearer token for the HTTP API",
	Long:  longToken,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service := newAuth()

		if service == nil {
			return errors.ErrInvalidRequest.WithMessagef("server.auth.secret is not set")
		}

		info, err := service.GenerateToken(args[0])

		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), info.Token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", info.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

var longToken = `
Issue a bearer token signed with server.auth.secret (AUTH_SECRET). Clients
send it as "Authorization: Bearer <token>"; set it as client.token to use it
from run --remote and chat --remote.
`
