package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWorkspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "manage workspaces",
	}
	cmd.AddCommand(
		newWorkspaceCreateCommand(),
		newWorkspaceListCommand(),
		newWorkspaceShareCommand(),
		newWorkspaceDeleteCommand(),
		newWorkspaceIndexCommand(),
	)
	return cmd
}

func newWorkspaceCreateCommand() *cobra.Command {
	var name, rootID, basePath string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "create a workspace on a root",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out map[string]interface{}
			if err := client.post("/api/workspace", map[string]interface{}{
				"name":      name,
				"root_id":   rootID,
				"base_path": basePath,
			}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "workspace name")
	cmd.Flags().StringVar(&rootID, "root-id", "", "workspace root id")
	cmd.Flags().StringVar(&basePath, "base-path", "", "prefix within the root (unmanaged roots only)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("root-id")
	return cmd
}

func newWorkspaceListCommand() *cobra.Command {
	var name, ownerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "search workspaces by name and/or owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			path := "/api/workspace?name=" + name
			if ownerID != "" {
				path += "&owner_id=" + ownerID
			}
			var out []map[string]interface{}
			if err := client.get(path, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "filter by workspace name")
	cmd.Flags().StringVar(&ownerID, "owner-id", "", "filter by owner id")
	return cmd
}

func newWorkspaceShareCommand() *cobra.Command {
	var workspaceID, workspaceTerm, shareeID, shareeUsername, permission string
	cmd := &cobra.Command{
		Use:   "share",
		Short: "grant another user access to a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			if permission == "" {
				return fatalf("--permission is required")
			}
			body := map[string]interface{}{"permission": permission}
			if workspaceID != "" {
				body["workspace_id"] = workspaceID
			}
			if workspaceTerm != "" {
				body["workspace_term"] = workspaceTerm
			}
			if shareeID != "" {
				body["sharee_id"] = shareeID
			}
			if shareeUsername != "" {
				body["sharee_username"] = shareeUsername
			}
			var out map[string]interface{}
			if err := client.post("/api/workspace/share", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&workspaceID, "workspace-id", "", "workspace id to share (mutually exclusive with --workspace-term)")
	cmd.Flags().StringVar(&workspaceTerm, "workspace-term", "", "owner/name-style term naming the workspace")
	cmd.Flags().StringVar(&shareeID, "sharee-id", "", "user id to share with (mutually exclusive with --sharee-username)")
	cmd.Flags().StringVar(&shareeUsername, "sharee-username", "", "username to share with")
	cmd.Flags().StringVar(&permission, "permission", "", "permission to grant (read, readwrite or own)")
	return cmd
}

func newWorkspaceDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "delete a workspace you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			return client.delete("/api/workspace/" + args[0])
		},
	}
}

// newWorkspaceIndexCommand implements the `workspace index` verb: it
// resolves the workspace's root and subscribes or unsubscribes that
// root for indexing, since indexing is a root-level concern (spec §6
// RootIndex) the CLI exposes at workspace scope for discoverability.
func newWorkspaceIndexCommand() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "index <workspace-id>",
		Short: "subscribe (or, with --remove, unsubscribe) a workspace's root for indexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var ws map[string]interface{}
			if err := client.get("/api/workspace/"+args[0], &ws); err != nil {
				return err
			}
			rootID, _ := ws["root_id"].(string)
			if rootID == "" {
				rootID, _ = ws["RootID"].(string)
			}
			if rootID == "" {
				return fatalf("could not determine root id for workspace %s", args[0])
			}

			if remove {
				return client.delete(fmt.Sprintf("/api/root/%s/index", rootID))
			}
			var out map[string]interface{}
			if err := client.post(fmt.Sprintf("/api/root/%s/index", rootID), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "unsubscribe instead of subscribe")
	return cmd
}
