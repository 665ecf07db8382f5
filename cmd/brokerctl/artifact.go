package main

import (
	"github.com/spf13/cobra"
)

func newArtifactCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "manage derived-object registrations within a workspace",
	}
	cmd.AddCommand(
		newArtifactListCommand(),
		newArtifactCreateCommand(),
		newArtifactCompleteCommand(),
		newArtifactDeleteCommand(),
	)
	return cmd
}

func newArtifactListCommand() *cobra.Command {
	var workspaceID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list artifacts registered for a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out []map[string]interface{}
			if err := client.get("/api/artifact?workspace_id="+workspaceID, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&workspaceID, "workspace-id", "", "workspace id to list artifacts for")
	_ = cmd.MarkFlagRequired("workspace-id")
	return cmd
}

func newArtifactCreateCommand() *cobra.Command {
	var workspaceID, objectPath, objectName, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "register a derived object against a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out map[string]interface{}
			if err := client.post("/api/artifact", map[string]interface{}{
				"workspace_id": workspaceID,
				"object_path":  objectPath,
				"object_name":  objectName,
				"name":         name,
			}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&workspaceID, "workspace-id", "", "workspace the artifact belongs to")
	cmd.Flags().StringVar(&objectPath, "object-path", "", "path of the derived object within the workspace")
	cmd.Flags().StringVar(&objectName, "object-name", "", "filename of the derived object")
	cmd.Flags().StringVar(&name, "name", "", "human-readable artifact name")
	_ = cmd.MarkFlagRequired("workspace-id")
	_ = cmd.MarkFlagRequired("object-path")
	return cmd
}

func newArtifactCompleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <artifact-id>",
		Short: "mark a registered artifact as generated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out map[string]interface{}
			if err := client.post("/api/artifact/"+args[0]+"/complete", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newArtifactDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <artifact-id>",
		Short: "remove an artifact registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			return client.delete("/api/artifact/" + args[0])
		},
	}
}
