package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "k3pilot", cmd.Use)
	assert.Equal(t, "Operate K3s clusters over SSH", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"bootstrap",
		"join",
		"upgrade",
		"backup",
		"restore",
		"certs",
		"kubeconfig",
		"version",
		"completion",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestRoot_SubcommandCount(t *testing.T) {
	cmd := Root()
	assert.Len(t, cmd.Commands(), 9, "Expected 9 subcommands")
}

func TestCerts_HasSubcommands(t *testing.T) {
	cmd := Certs()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	assert.True(t, subcommands["check"], "Expected subcommand check not found")
	assert.True(t, subcommands["rotate"], "Expected subcommand rotate not found")
	assert.Len(t, cmd.Commands(), 2)
}
