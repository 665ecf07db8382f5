package main

import (
	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "manage short-lived S3 credentials",
	}
	cmd.AddCommand(newTokenFetchCommand(), newTokenListCommand(), newTokenDeleteCommand(), newTokenGCCommand())
	return cmd
}

func newTokenFetchCommand() *cobra.Command {
	var workspaceIDs []string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "mint scoped S3 credentials for one or more workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out []map[string]interface{}
			if err := client.post("/api/token", map[string]interface{}{
				"workspace_ids": workspaceIDs,
			}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringSliceVar(&workspaceIDs, "workspace-id", nil, "workspace id to include (repeatable)")
	_ = cmd.MarkFlagRequired("workspace-id")
	return cmd
}

func newTokenListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list tokens you currently hold",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out []map[string]interface{}
			if err := client.get("/api/token", &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newTokenDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token-id>",
		Short: "revoke a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			return client.delete("/api/token/" + args[0])
		},
	}
}

// newTokenGCCommand triggers the broker's expired-token sweep (the
// token-GC supplement), a maintenance operation rather than a
// per-user one, but exposed here since no separate admin binary
// exists yet.
func newTokenGCCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "reclaim broker-side bookkeeping rows for expired tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out map[string]interface{}
			if err := client.post("/api/token/gc", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
