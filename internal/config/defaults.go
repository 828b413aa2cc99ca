package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ApplyDefaults completes a validated descriptor: fills operational
// defaults, generates the join token when absent, and derives the TLS SAN
// set. Called once by Load; the descriptor is read-only afterwards.
func (c *Cluster) ApplyDefaults() error {
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.Runtime.Version == "" && c.Runtime.Channel == "" {
		c.Runtime.Channel = DefaultChannel
	}
	if c.Storage.ExportPath == "" {
		c.Storage.ExportPath = c.Storage.MountPath
	}

	if c.Operations.UpgradeBatchSize == 0 {
		c.Operations.UpgradeBatchSize = DefaultUpgradeBatchSize
	}
	if c.Operations.SnapshotRetention == 0 {
		c.Operations.SnapshotRetention = DefaultSnapshotRetention
	}
	if c.Operations.SnapshotDir == "" {
		c.Operations.SnapshotDir = DefaultSnapshotDir
	}
	if c.Operations.DrainTimeout.Duration == 0 {
		c.Operations.DrainTimeout = Duration{DefaultDrainTimeout}
	}

	if c.Runtime.Token == "" {
		token, err := generateToken()
		if err != nil {
			return fmt.Errorf("failed to generate join token: %w", err)
		}
		c.Runtime.Token = token
	}

	c.Runtime.TLSSANs = c.deriveSANs()
	return nil
}

// deriveSANs unions the proxy address, every control-plane address, and the
// explicit entries, preserving first-seen order and dropping duplicates.
func (c *Cluster) deriveSANs() []string {
	seen := make(map[string]bool)
	sans := make([]string, 0, 1+len(c.ControlPlanes)+len(c.Runtime.TLSSANs))

	add := func(entry string) {
		if entry == "" || seen[entry] {
			return
		}
		seen[entry] = true
		sans = append(sans, entry)
	}

	add(c.Proxy)
	for _, addr := range c.ControlPlanes {
		add(addr)
	}
	for _, entry := range c.Runtime.TLSSANs {
		add(entry)
	}

	return sans
}

// generateToken produces a fresh random join secret.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
