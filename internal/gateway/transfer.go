package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
)

// Upload writes content to remotePath on the node. Parent directories
// are created if missing. The transfer runs as the SSH user, so
// privileged destinations need a staging path plus a sudo move.
func (g *Gateway) Upload(ctx context.Context, node string, content []byte, remotePath string, mode fs.FileMode) error {
	client, err := g.sftpClient(ctx, node)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create %s on %s: %w", dir, node, err)
		}
	}

	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create %s on %s: %w", remotePath, node, err)
	}
	if _, err := io.Copy(f, bytes.NewReader(content)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s on %s: %w", remotePath, node, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s on %s: %w", remotePath, node, err)
	}
	if err := client.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf("failed to chmod %s on %s: %w", remotePath, node, err)
	}
	return nil
}

// Push copies a local file to remotePath on the node, preserving the
// local file's mode.
func (g *Gateway) Push(ctx context.Context, node, localPath, remotePath string) error {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	return g.Upload(ctx, node, content, remotePath, info.Mode().Perm())
}

// Pull copies a remote file from the node to localPath. The local file
// is written with mode 0600 since pulled artifacts may hold secrets.
func (g *Gateway) Pull(ctx context.Context, node, remotePath, localPath string) error {
	client, err := g.sftpClient(ctx, node)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	src, err := client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open %s on %s: %w", remotePath, node, err)
	}
	defer func() { _ = src.Close() }()

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	dst, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy %s from %s: %w", remotePath, node, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", localPath, err)
	}
	return nil
}

// sftpClient opens an SFTP subsystem on the node's cached connection.
func (g *Gateway) sftpClient(ctx context.Context, node string) (*sftp.Client, error) {
	conn, err := g.connection(ctx, node)
	if err != nil {
		return nil, err
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sftp on %s: %w", node, err)
	}
	return client, nil
}
