package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDescriptor writes a minimal valid descriptor into dir and
// returns its path. The SSH key points inside dir, so openSession
// fails deterministically on the missing key.
func writeDescriptor(t *testing.T, dir string) string {
	t.Helper()

	yaml := fmt.Sprintf(`
name: lab
proxy: 192.168.56.10
control_planes:
  - 192.168.56.11
workers:
  - 192.168.56.21
ssh:
  user: vagrant
  key_file: %s
storage:
  device: /dev/sdb
  mount_path: /srv/export
`, filepath.Join(dir, "id_ed25519"))

	path := filepath.Join(dir, "k3pilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoadCluster_Valid(t *testing.T) {
	path := writeDescriptor(t, t.TempDir())

	c, err := loadCluster(path)
	require.NoError(t, err)
	assert.Equal(t, "lab", c.Name)
	assert.Equal(t, "192.168.56.11", c.FirstControlPlane())
}

func TestLoadCluster_MissingFile(t *testing.T) {
	_, err := loadCluster(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestLoadCluster_AutoDetect(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir)
	t.Chdir(dir)

	c, err := loadCluster("")
	require.NoError(t, err)
	assert.Equal(t, "lab", c.Name)
}

func TestLoadCluster_AutoDetectMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := loadCluster("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cluster descriptor found")
}

func TestOpenSession_MissingKey(t *testing.T) {
	path := writeDescriptor(t, t.TempDir())
	c, err := loadCluster(path)
	require.NoError(t, err)

	_, _, err = openSession(t.Context(), c, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH gateway")
}
