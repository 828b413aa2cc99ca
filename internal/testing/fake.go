package testing

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"
)

// Call records one Execute invocation against the fake gateway.
type Call struct {
	Node    string
	Command string
}

// Response is what a scripted rule replays.
type Response struct {
	Output string
	Err    error
}

type rule struct {
	node   string // empty matches any node
	substr string
	fn     func(Call) Response
}

// FakeGateway is a scriptable in-memory stand-in for the SSH gateway.
// Rules are matched by command substring, most recently registered
// first, so a test can layer specific behavior over broad defaults.
// Unmatched commands succeed with empty output.
type FakeGateway struct {
	mu      sync.Mutex
	rules   []rule
	calls   []Call
	uploads map[string][]byte
	pushes  map[string]string
	pulls   map[string]string
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		uploads: make(map[string][]byte),
		pushes:  make(map[string]string),
		pulls:   make(map[string]string),
	}
}

// Handle replays the given output and error for any command containing
// substr on any node.
func (f *FakeGateway) Handle(substr, output string, err error) {
	f.HandleFunc(substr, func(Call) Response {
		return Response{Output: output, Err: err}
	})
}

// HandleNode is like Handle but only matches commands sent to node.
func (f *FakeGateway) HandleNode(node, substr, output string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{node: node, substr: substr, fn: func(Call) Response {
		return Response{Output: output, Err: err}
	}})
}

// HandleFunc routes matching commands through fn, for behavior that
// changes across calls.
func (f *FakeGateway) HandleFunc(substr string, fn func(Call) Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{substr: substr, fn: fn})
}

// Execute implements gateway.Executor.
func (f *FakeGateway) Execute(_ context.Context, node, command string) (string, error) {
	f.mu.Lock()
	call := Call{Node: node, Command: command}
	f.calls = append(f.calls, call)
	var matched *rule
	for i := len(f.rules) - 1; i >= 0; i-- {
		r := f.rules[i]
		if r.node != "" && r.node != node {
			continue
		}
		if strings.Contains(command, r.substr) {
			matched = &f.rules[i]
			break
		}
	}
	f.mu.Unlock()

	if matched == nil {
		return "", nil
	}
	resp := matched.fn(call)
	return resp.Output, resp.Err
}

// Upload implements gateway.Executor, retaining the content under
// "node:path".
func (f *FakeGateway) Upload(_ context.Context, node string, content []byte, remotePath string, _ fs.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[node+":"+remotePath] = append([]byte(nil), content...)
	return nil
}

// Push implements gateway.Executor.
func (f *FakeGateway) Push(_ context.Context, node, localPath, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes[node+":"+remotePath] = localPath
	return nil
}

// Pull implements gateway.Executor.
func (f *FakeGateway) Pull(_ context.Context, node, remotePath, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls[node+":"+remotePath] = localPath
	return nil
}

// Calls returns every Execute call in order.
func (f *FakeGateway) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CommandsMatching returns the commands containing substr, in order.
func (f *FakeGateway) CommandsMatching(substr string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if strings.Contains(c.Command, substr) {
			out = append(out, c)
		}
	}
	return out
}

// NodeCommands returns the commands executed on node, in order.
func (f *FakeGateway) NodeCommands(node string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Node == node {
			out = append(out, c.Command)
		}
	}
	return out
}

// Uploaded returns the content most recently uploaded to path on node.
func (f *FakeGateway) Uploaded(node, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.uploads[node+":"+path]
	return content, ok
}

// UploadsTo returns the remote paths uploaded on node, unordered.
func (f *FakeGateway) UploadsTo(node string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	prefix := node + ":"
	for key := range f.uploads {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	return out
}

// PushedTo returns the local source of a Push to node:remotePath.
func (f *FakeGateway) PushedTo(node, remotePath string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	local, ok := f.pushes[node+":"+remotePath]
	return local, ok
}

// PulledTo returns the local destination of a Pull from node:remotePath.
func (f *FakeGateway) PulledTo(node, remotePath string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	local, ok := f.pulls[node+":"+remotePath]
	return local, ok
}

// String summarizes recorded traffic, useful in failure messages.
func (f *FakeGateway) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for _, c := range f.calls {
		fmt.Fprintf(&b, "%s $ %s\n", c.Node, c.Command)
	}
	return b.String()
}
