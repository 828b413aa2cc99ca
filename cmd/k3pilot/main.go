// Package main is the entry point for the k3pilot CLI.
//
// k3pilot drives the lifecycle of K3s clusters over plain SSH: an
// nginx proxy fronting the API servers, control planes with NFS-backed
// storage, workers, rolling upgrades, certificate rotation, and etcd
// backup/restore. There is no agent and no state file; the cluster
// itself is the source of truth and the only input is a YAML
// descriptor.
//
// Commands: bootstrap, join, upgrade, backup, restore, certs,
// kubeconfig.
//
// For detailed usage information, run:
//
//	k3pilot --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// An interrupt cancels the session context, which unwinds polls
	// and inter-batch pauses instead of killing mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
