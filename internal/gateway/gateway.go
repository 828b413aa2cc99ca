package gateway

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/util/retry"
)

// Executor runs commands and transfers files on cluster nodes. Nodes
// are addressed by the same address strings the configuration uses.
type Executor interface {
	// Execute runs a command on the node and returns its combined
	// stdout and stderr. A non-zero exit yields a *CommandError with
	// the output still populated.
	Execute(ctx context.Context, node, command string) (string, error)

	// Upload writes content to remotePath on the node with the given
	// mode, creating parent directories as needed.
	Upload(ctx context.Context, node string, content []byte, remotePath string, mode fs.FileMode) error

	// Push copies a local file to remotePath on the node.
	Push(ctx context.Context, node, localPath, remotePath string) error

	// Pull copies a remote file from the node to localPath.
	Pull(ctx context.Context, node, remotePath, localPath string) error
}

// Gateway implements [Executor] over cached SSH connections, one per
// node, dialed lazily with the credentials resolved from the cluster
// configuration.
type Gateway struct {
	timeouts *config.Timeouts
	hostKey  ssh.HostKeyCallback

	mu      sync.Mutex
	targets map[string]*target
}

type target struct {
	node   string
	addr   string
	user   string
	signer ssh.Signer
	client *ssh.Client
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHostKeyCallback overrides host key verification. The default
// accepts any host key, which matches freshly provisioned machines
// whose keys are not known in advance.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(g *Gateway) {
		g.hostKey = cb
	}
}

// New builds a Gateway for every node in the cluster. Private keys are
// read and parsed once here so that credential problems surface before
// any workflow starts.
func New(cluster *config.Cluster, timeouts *config.Timeouts, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		timeouts: timeouts,
		hostKey:  ssh.InsecureIgnoreHostKey(), //nolint:gosec // nodes are provisioned fresh, keys unknown in advance
		targets:  make(map[string]*target),
	}
	for _, opt := range opts {
		opt(g)
	}

	signers := make(map[string]ssh.Signer)
	for node, cred := range cluster.CredentialTable() {
		signer, ok := signers[cred.KeyFile]
		if !ok {
			var err error
			signer, err = loadSigner(cred.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load key for %s: %w", node, err)
			}
			signers[cred.KeyFile] = signer
		}
		g.targets[node] = &target{
			node:   node,
			addr:   fmt.Sprintf("%s:%d", node, cred.Port),
			user:   cred.User,
			signer: signer,
		}
	}
	return g, nil
}

// loadSigner reads and parses a private key file, expanding a leading
// "~/" to the current user's home directory.
func loadSigner(path string) (ssh.Signer, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return signer, nil
}

// Execute runs a command on the node through a fresh session on the
// cached connection.
func (g *Gateway) Execute(ctx context.Context, node, command string) (string, error) {
	session, err := g.session(ctx, node)
	if err != nil {
		return "", err
	}
	defer func() { _ = session.Close() }()

	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), g.commandError(node, command, string(output), err)
	}
	return string(output), nil
}

// session returns a new SSH session on the node, reconnecting once if
// the cached connection has gone stale.
func (g *Gateway) session(ctx context.Context, node string) (*ssh.Session, error) {
	client, err := g.connection(ctx, node)
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err == nil {
		return session, nil
	}

	g.invalidate(node)
	client, connErr := g.connection(ctx, node)
	if connErr != nil {
		return nil, connErr
	}
	session, err = client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", node, err)
	}
	return session, nil
}

// connection returns the cached connection for the node, dialing if
// none exists or the cached one no longer answers.
func (g *Gateway) connection(ctx context.Context, node string) (*ssh.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.targets[node]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", node)
	}

	if t.client != nil {
		if ping(t.client) == nil {
			return t.client, nil
		}
		_ = t.client.Close()
		t.client = nil
	}

	client, err := g.dial(ctx, t)
	if err != nil {
		return nil, err
	}
	t.client = client
	return client, nil
}

// ping verifies the connection still accepts sessions.
func ping(client *ssh.Client) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	return session.Run("echo ok")
}

// dial establishes the SSH connection with exponential backoff.
// Authentication rejections abort immediately since the credentials
// are static.
func (g *Gateway) dial(ctx context.Context, t *target) (*ssh.Client, error) {
	cfg := &ssh.ClientConfig{
		User:            t.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(t.signer)},
		HostKeyCallback: g.hostKey,
		Timeout:         g.timeouts.Dial,
	}

	var client *ssh.Client
	err := retry.Do(ctx, func() error {
		c, dialErr := ssh.Dial("tcp", t.addr, cfg)
		if dialErr != nil {
			if authFailure(dialErr) {
				return retry.Fatal(dialErr)
			}
			return dialErr
		}
		client = c
		return nil
	},
		retry.WithMaxAttempts(g.timeouts.RetryMax),
		retry.WithInitialDelay(g.timeouts.RetryDelay),
	)
	if err != nil {
		return nil, &ConnectError{Node: t.node, Addr: t.addr, Err: err}
	}
	return client, nil
}

func (g *Gateway) invalidate(node string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.targets[node]; ok && t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}
}

// commandError wraps a session error, extracting the exit status when
// the command itself ran and failed.
func (g *Gateway) commandError(node, command, output string, err error) error {
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{
			Node:     node,
			Command:  command,
			ExitCode: exitErr.ExitStatus(),
			Output:   output,
		}
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return &CommandError{Node: node, Command: command, ExitCode: -1, Output: output}
	}
	return fmt.Errorf("command failed on %s: %w", node, err)
}

// Close tears down all cached connections.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var firstErr error
	for _, t := range g.targets {
		if t.client != nil {
			if err := t.client.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			t.client = nil
		}
	}
	return firstErr
}
