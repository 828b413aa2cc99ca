package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// RunScript uploads a shell script to the node, executes it under sudo
// with the given arguments, and removes it afterwards. The script's
// combined output is returned even when it fails.
func RunScript(ctx context.Context, ex Executor, node string, script []byte, args ...string) (string, error) {
	remote := fmt.Sprintf("/tmp/k3pilot-%s.sh", randomSuffix())
	if err := ex.Upload(ctx, node, script, remote, 0o755); err != nil {
		return "", fmt.Errorf("failed to stage script on %s: %w", node, err)
	}

	cmd := "sudo " + remote
	if len(args) > 0 {
		cmd += " " + joinArgs(args)
	}
	output, err := ex.Execute(ctx, node, cmd)

	// Best effort cleanup; the script result is what matters.
	_, _ = ex.Execute(ctx, node, "rm -f "+remote)

	if err != nil {
		return output, err
	}
	return output, nil
}

// joinArgs single-quotes each argument for the remote shell.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(b)
}
