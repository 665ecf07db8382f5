package main

import (
	"github.com/spf13/cobra"
)

func newNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "manage storage nodes backing the broker",
	}
	cmd.AddCommand(newNodeCreateCommand(), newNodeListCommand(), newNodeDeleteCommand())
	return cmd
}

type nodeCreateFlags struct {
	name            string
	apiURL          string
	stsAPIURL       string
	region          string
	accessKeyID     string
	secretAccessKey string
	assumeRoleARN   string
}

func newNodeCreateCommand() *cobra.Command {
	var flags nodeCreateFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "register a new storage node",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			body := map[string]interface{}{
				"name":              flags.name,
				"api_url":           flags.apiURL,
				"sts_api_url":       flags.stsAPIURL,
				"region":            flags.region,
				"access_key_id":     flags.accessKeyID,
				"secret_access_key": flags.secretAccessKey,
				"assume_role_arn":   flags.assumeRoleARN,
			}
			var out map[string]interface{}
			if err := client.post("/api/node", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "display name for the node")
	cmd.Flags().StringVar(&flags.apiURL, "api-url", "", "S3-compatible endpoint URL")
	cmd.Flags().StringVar(&flags.stsAPIURL, "sts-api-url", "", "STS endpoint URL, if distinct from --api-url")
	cmd.Flags().StringVar(&flags.region, "region", "us-east-1", "S3 region")
	cmd.Flags().StringVar(&flags.accessKeyID, "access-key-id", "", "operator access key id")
	cmd.Flags().StringVar(&flags.secretAccessKey, "secret-access-key", "", "operator secret access key")
	cmd.Flags().StringVar(&flags.assumeRoleARN, "assume-role-arn", "", "role ARN the broker assumes when minting scoped credentials")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("api-url")
	return cmd
}

func newNodeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list registered storage nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var out []map[string]interface{}
			if err := client.get("/api/node", &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func newNodeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <node-id>",
		Short: "delete a storage node you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			return client.delete("/api/node/" + args[0])
		},
	}
}
