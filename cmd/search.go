package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/agentdeck/pkg/errors"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

var (
	queryFlag    string
	limitFlag    int
	categoryFlag string
	domainsFlag  []string

	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Call the web_search tool directly",
		Long:  longSearch,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if ctx == nil {
				ctx = context.Background()
			}

			apiKey := viper.GetString("search.exa_api_key")

			if apiKey == "" {
				return errors.ErrMissingAPIKey.WithMessagef("EXA_API_KEY is not set")
			}

			result := tools.NewWebSearch(tools.WebSearchConfig{
				APIKey:  apiKey,
				BaseURL: viper.GetString("search.exa_base_url"),
				Timeout: searchTimeout(),
			}).Search(ctx, tools.WebSearchInput{
				Query:          queryFlag,
				Limit:          limitFlag,
				Category:       categoryFlag,
				IncludeDomains: domainsFlag,
			})

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Search query")
	searchCmd.Flags().IntVarP(&limitFlag, "limit", "l", tools.DefaultSearchLimit, "Number of results (1 to 5)")
	searchCmd.Flags().StringVarP(&categoryFlag, "category", "c", "", "Search category, e.g. news or github")
	searchCmd.Flags().StringSliceVar(&domainsFlag, "domain", nil, "Restrict results to these domains")
	_ = searchCmd.MarkFlagRequired("query")
}

func searchTimeout() time.Duration {
	if timeout := viper.GetDuration("search.timeout"); timeout > 0 {
		return timeout
	}

	return 30 * time.Second
}

var longSearch = `
Call the web_search tool without an agent in between, printing the JSON the
model would see. Needs EXA_API_KEY.

Examples:
  agentdeck search --query "fiber v3 release notes" --limit 3 --category news
`
