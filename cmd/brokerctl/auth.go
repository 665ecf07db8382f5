package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "manage the CLI's saved broker credentials",
	}
	cmd.AddCommand(newAuthLoginCommand(), newAuthInfoCommand())
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "save broker address and API key credentials for subsequent commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if globalFlags.addr == "" || globalFlags.apiKeyID == "" || globalFlags.apiSecret == "" {
				return fatalf("auth login requires --addr, --api-key-id and --api-secret")
			}

			client := &apiClient{addr: globalFlags.addr, keyID: globalFlags.apiKeyID, secret: globalFlags.apiSecret, http: http.DefaultClient}
			var whoami map[string]interface{}
			if err := client.get("/api/users/me", &whoami); err != nil {
				return fatalf("login check failed: %w", err)
			}

			if err := saveLogin(loginFile{Addr: globalFlags.addr, APIKeyID: globalFlags.apiKeyID, APISecret: globalFlags.apiSecret}); err != nil {
				return err
			}
			return printJSON(whoami)
		},
	}
}

func newAuthInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			var whoami map[string]interface{}
			if err := client.get("/api/users/me", &whoami); err != nil {
				return err
			}
			return printJSON(whoami)
		},
	}
}
