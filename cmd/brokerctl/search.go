package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// newSearchCommand implements spec §6's `search <query>`: each
// whitespace-separated word of the query is a workspace term
// ("owner/name/path" or "name/path") resolved through the credential
// broker's Search operation, returning both the matching workspaces and
// the scoped tokens needed to read them. Object contents are not searched.
func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "resolve workspace terms and mint credentials for the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			terms := strings.Fields(strings.Join(args, " "))
			var out map[string]interface{}
			if err := client.post("/api/token/search", map[string]interface{}{
				"terms": terms,
			}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
