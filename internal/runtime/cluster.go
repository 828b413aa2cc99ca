package runtime

import (
	"fmt"
	"strings"
)

const (
	nodeTokenPath = "/var/lib/rancher/k3s/server/node-token"

	// KubeconfigPath is where k3s writes the admin kubeconfig on
	// server nodes.
	KubeconfigPath = "/etc/rancher/k3s/k3s.yaml"
)

// TokenCommand reads the cluster join token from a server node.
func TokenCommand() string {
	return "sudo cat " + nodeTokenPath
}

// VersionCommand reports the installed k3s release.
func VersionCommand() string {
	return "k3s -v"
}

// KubeconfigCommand reads the admin kubeconfig from a server node.
func KubeconfigCommand() string {
	return "sudo cat " + KubeconfigPath
}

// ParseVersion extracts the release tag from `k3s -v` output, which
// looks like:
//
//	k3s version v1.32.1+k3s1 (6a322f15)
//	go version go1.23.4
func ParseVersion(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == "k3s" && fields[1] == "version" {
			return fields[2], nil
		}
	}
	return "", fmt.Errorf("no k3s version in output: %q", strings.TrimSpace(output))
}
