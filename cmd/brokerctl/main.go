// Command brokerctl is the thin command-line client for the broker's
// REST surface (spec.md §6 CLI). It is one of the "named interfaces
// only" external collaborators spec.md §1 declares out of scope for
// the core: every subcommand is a JSON HTTP call against cmd/brokerd,
// nothing here touches the data model directly. Modeled on cmd/uplink's
// single-binary, many-subcommand cobra tree.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var globalFlags struct {
	addr      string
	apiKeyID  string
	apiSecret string
	jsonOut   bool
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "brokerctl",
		Short:         "command-line client for the S3 workspace broker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&globalFlags.addr, "addr", "", "broker base address, e.g. http://localhost:8080 (defaults to the saved auth login)")
	root.PersistentFlags().StringVar(&globalFlags.apiKeyID, "api-key-id", "", "API key id (defaults to the saved auth login)")
	root.PersistentFlags().StringVar(&globalFlags.apiSecret, "api-secret", "", "API key secret (defaults to the saved auth login)")
	root.PersistentFlags().BoolVar(&globalFlags.jsonOut, "json", true, "print machine-readable JSON output")

	root.AddCommand(
		newWorkspaceCommand(),
		newNodeCommand(),
		newRootResourceCommand(),
		newTokenCommand(),
		newArtifactCommand(),
		newMCCommand(),
		newSearchCommand(),
		newAuthCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError implements spec §7's CLI contract: error bodies print to
// stderr colored red.
func printError(err error) {
	red := color.New(color.FgRed)
	_, _ = red.Fprintln(os.Stderr, err.Error())
}

func printJSON(v interface{}) error {
	enc := jsonEncoder(os.Stdout)
	return enc.Encode(v)
}

func fatalf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
