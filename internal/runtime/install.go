package runtime

import (
	"fmt"
	"strings"

	"github.com/k3pilot/k3pilot/internal/config"
)

const installerURL = "https://get.k3s.io"

// Install describes one invocation of the k3s install script. Command
// renders it into the shell line executed on the node.
type Install struct {
	// Role is "server" or "agent".
	Role string
	// Version pins an exact release. It takes precedence over Channel.
	Version string
	// Channel selects a release channel when no version is pinned.
	Channel string
	// Token is the cluster join token, passed as K3S_TOKEN.
	Token string
	// SkipEnable installs the binary and unit without starting the
	// service, for upgrades that stop and start explicitly.
	SkipEnable bool
	// Args are the role arguments appended after "sh -s - <role>".
	Args []string
}

// Command renders the full installer invocation.
func (i Install) Command() string {
	var env []string
	if i.Version != "" {
		env = append(env, fmt.Sprintf("INSTALL_K3S_VERSION='%s'", i.Version))
	} else if i.Channel != "" {
		env = append(env, fmt.Sprintf("INSTALL_K3S_CHANNEL='%s'", i.Channel))
	}
	if i.SkipEnable {
		env = append(env, "INSTALL_K3S_SKIP_ENABLE=true")
	}
	if i.Token != "" {
		env = append(env, fmt.Sprintf("K3S_TOKEN='%s'", i.Token))
	}

	cmd := fmt.Sprintf("curl -sfL %s | sudo %s sh -s - %s", installerURL, strings.Join(env, " "), i.Role)
	if len(i.Args) > 0 {
		cmd += " " + strings.Join(i.Args, " ")
	}
	return cmd
}

// ServerInstall builds the installer invocation that bootstraps a
// control-plane node at the configured version or channel.
func ServerInstall(c *config.Cluster, first bool) Install {
	return Install{
		Role:    "server",
		Version: c.Runtime.Version,
		Channel: c.Runtime.Channel,
		Token:   c.Runtime.Token,
		Args:    ServerArgs(c, first),
	}
}

// AgentInstall builds the installer invocation that joins a worker
// through the given URL.
func AgentInstall(c *config.Cluster, joinURL string) Install {
	return Install{
		Role:    "agent",
		Version: c.Runtime.Version,
		Channel: c.Runtime.Channel,
		Token:   c.Runtime.Token,
		Args:    AgentArgs(c, joinURL),
	}
}

// ServerUpgrade builds the reinstall invocation for upgrading a
// control-plane node. The service is not started by the installer; the
// upgrade sequence stops it beforehand and starts it afterwards. The
// argument list is regenerated so the upgraded node keeps exactly its
// bootstrap configuration.
func ServerUpgrade(c *config.Cluster, version string, first bool) Install {
	return Install{
		Role:       "server",
		Version:    version,
		Token:      c.Runtime.Token,
		SkipEnable: true,
		Args:       ServerArgs(c, first),
	}
}

// AgentUpgrade builds the reinstall invocation for upgrading a worker.
func AgentUpgrade(c *config.Cluster, version, joinURL string) Install {
	return Install{
		Role:       "agent",
		Version:    version,
		Token:      c.Runtime.Token,
		SkipEnable: true,
		Args:       AgentArgs(c, joinURL),
	}
}
