// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated
// to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the k3pilot CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "k3pilot",
		Short: "Operate K3s clusters over SSH",
	}

	// Lifecycle commands
	cmd.AddCommand(Bootstrap())
	cmd.AddCommand(Join())
	cmd.AddCommand(Upgrade())

	// Day-two commands
	cmd.AddCommand(Backup())
	cmd.AddCommand(Restore())
	cmd.AddCommand(Certs())
	cmd.AddCommand(Kubeconfig())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
