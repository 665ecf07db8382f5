package main

import (
	"github.com/spf13/cobra"
)

// newRootResourceCommand is named to avoid colliding with
// newRootCommand, brokerctl's own cobra root. Spec §6's `root`
// subcommand manages WorkspaceRoot resources.
func newRootResourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "root",
		Short: "manage workspace roots on a storage node",
	}
	cmd.AddCommand(newRootCreateCommand(), newRootListCommand(), newRootDeleteCommand(), newRootImportCommand())
	return cmd
}

type rootCreateFlags struct {
	nodeID   string
	bucket   string
	basePath string
	rootType string
}

func bindRootCreateFlags(cmd *cobra.Command, flags *rootCreateFlags) {
	cmd.Flags().StringVar(&flags.nodeID, "node-id", "", "storage node id the root lives on")
	cmd.Flags().StringVar(&flags.bucket, "bucket", "", "backing bucket name")
	cmd.Flags().StringVar(&flags.basePath, "base-path", "", "prefix within the bucket under which the root's workspaces live")
	cmd.Flags().StringVar(&flags.rootType, "type", "private", "root type: public, private, or unmanaged")
	_ = cmd.MarkFlagRequired("node-id")
	_ = cmd.MarkFlagRequired("bucket")
}

func newRootCreateCommand() *cobra.Command {
	var flags rootCreateFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "provision a new workspace root and its backing bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out map[string]interface{}
			if err := client.post("/api/root", map[string]interface{}{
				"node_id":   flags.nodeID,
				"bucket":    flags.bucket,
				"base_path": flags.basePath,
				"root_type": flags.rootType,
			}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	bindRootCreateFlags(cmd, &flags)
	return cmd
}

func newRootListCommand() *cobra.Command {
	var nodeID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list the roots on a storage node",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out []map[string]interface{}
			if err := client.get("/api/root?node_id="+nodeID, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&nodeID, "node-id", "", "storage node id to list roots for")
	_ = cmd.MarkFlagRequired("node-id")
	return cmd
}

func newRootDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <root-id>",
		Short: "delete a workspace root with no remaining workspaces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			return client.delete("/api/root/" + args[0])
		},
	}
}

// newRootImportCommand is a convenience wrapper around `root create`
// for an existing bucket an operator already owns: it is the same
// POST /api/root call, with --type defaulted to unmanaged so the
// broker never tries to reshape a bucket it didn't provision.
func newRootImportCommand() *cobra.Command {
	var flags rootCreateFlags
	flags.rootType = "unmanaged"
	cmd := &cobra.Command{
		Use:   "import",
		Short: "register an existing bucket as an unmanaged workspace root",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out map[string]interface{}
			if err := client.post("/api/root", map[string]interface{}{
				"node_id":   flags.nodeID,
				"bucket":    flags.bucket,
				"base_path": flags.basePath,
				"root_type": "unmanaged",
			}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&flags.nodeID, "node-id", "", "storage node id the bucket lives on")
	cmd.Flags().StringVar(&flags.bucket, "bucket", "", "existing bucket name")
	cmd.Flags().StringVar(&flags.basePath, "base-path", "", "prefix within the bucket to import")
	_ = cmd.MarkFlagRequired("node-id")
	_ = cmd.MarkFlagRequired("bucket")
	return cmd
}
