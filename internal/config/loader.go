package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the default descriptor filename.
const DefaultConfigFilename = "k3pilot.yaml"

// Load reads, validates, and completes a cluster descriptor from a file.
// Any error it returns is fatal for the invocation: no workflow runs
// against a descriptor that failed to load.
func Load(path string) (*Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes validates and completes a cluster descriptor from raw YAML.
func LoadFromBytes(data []byte) (*Cluster, error) {
	cluster, err := parse(data)
	if err != nil {
		return nil, err
	}

	if err := cluster.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := cluster.ApplyDefaults(); err != nil {
		return nil, err
	}

	return cluster, nil
}

// parse unmarshals YAML data into a Cluster.
func parse(data []byte) (*Cluster, error) {
	var cluster Cluster
	if err := yaml.Unmarshal(data, &cluster); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cluster, nil
}

// Save writes a descriptor to a file. Workflows never write the
// descriptor back.
func Save(cluster *Cluster, path string) error {
	data, err := yaml.Marshal(cluster)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a descriptor in the current directory, then
// walks up the directory tree.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent

		path := filepath.Join(dir, DefaultConfigFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("config file %s not found", DefaultConfigFilename)
}
