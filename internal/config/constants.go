package config

import "time"

// Common port numbers and defaults used throughout the application.
const (
	// KubeAPIPort is the standard Kubernetes API server port. The proxy
	// listens on it and forwards to the control-plane set.
	KubeAPIPort = 6443

	// DefaultSSHPort is used when the descriptor does not set one.
	DefaultSSHPort = 22

	// DefaultChannel is the release channel used when no version is pinned.
	DefaultChannel = "stable"

	// DefaultUpgradeBatchSize upgrades workers one at a time unless the
	// descriptor widens the batch.
	DefaultUpgradeBatchSize = 1

	// DefaultSnapshotRetention bounds how many named snapshots each
	// control-plane node keeps.
	DefaultSnapshotRetention = 5

	// DefaultSnapshotDir is where pulled backup archives land locally.
	DefaultSnapshotDir = "backups"

	// DefaultDrainTimeout bounds a per-node drain unless overridden.
	DefaultDrainTimeout = 90 * time.Second
)
