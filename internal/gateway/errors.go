package gateway

import (
	"fmt"
	"strings"
)

// ConnectError indicates that a node could not be reached over SSH
// after the configured number of dial attempts.
type ConnectError struct {
	Node string
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("cannot reach %s (%s): %v", e.Node, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// CommandError indicates that a remote command started but exited
// non-zero. Output holds the combined stdout and stderr of the command.
type CommandError struct {
	Node     string
	Command  string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed on %s (exit %d): %s", e.Node, e.ExitCode, e.Command)
	if tail := lastLines(e.Output, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

// lastLines returns the final n non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return ""
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// authFailure reports whether the dial error is an authentication
// rejection. Credentials come from static configuration, so retrying
// the same key against the same host cannot succeed.
func authFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}
