package proxy

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/k3pilot/k3pilot/internal/config"
)

const (
	// ConfPath is the live nginx configuration on the proxy node.
	ConfPath = "/etc/nginx/nginx.conf"

	upstreamBegin = "# k3pilot:upstream begin"
	upstreamEnd   = "# k3pilot:upstream end"
)

var confTemplate = template.Must(template.New("nginx").Parse(`# Generated by k3pilot. The marked upstream block is maintained by
# the join workflow; edits elsewhere are preserved.
worker_processes 2;

events {
    worker_connections 1024;
}

stream {
    upstream k3s_api {
        {{.Begin}}
{{- range .Servers}}
        server {{.}} max_fails=3 fail_timeout=5s;
{{- end}}
        {{.End}}
    }

    server {
        listen {{.Port}};
        proxy_pass k3s_api;
        proxy_connect_timeout 5s;
        proxy_timeout 10m;
    }
}
`))

// Render produces a complete load-balancer configuration whose
// upstream block holds the given members in order.
func Render(servers []string) (string, error) {
	var b strings.Builder
	err := confTemplate.Execute(&b, struct {
		Begin   string
		End     string
		Port    int
		Servers []string
	}{
		Begin:   upstreamBegin,
		End:     upstreamEnd,
		Port:    config.KubeAPIPort,
		Servers: servers,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render load-balancer config: %w", err)
	}
	return b.String(), nil
}

// UpstreamMember formats a control-plane address as an upstream entry.
func UpstreamMember(address string) string {
	return fmt.Sprintf("%s:%d", address, config.KubeAPIPort)
}

// ParseServers extracts the upstream members between the markers, in
// file order.
func ParseServers(text string) ([]string, error) {
	inBlock := false
	var servers []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == upstreamBegin:
			if inBlock {
				return nil, fmt.Errorf("nested upstream markers")
			}
			inBlock = true
		case trimmed == upstreamEnd:
			if !inBlock {
				return nil, fmt.Errorf("upstream end marker before begin")
			}
			return servers, nil
		case inBlock:
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			entry, ok := parseServerLine(trimmed)
			if !ok {
				return nil, fmt.Errorf("unrecognized line in upstream block: %q", trimmed)
			}
			servers = append(servers, entry)
		}
	}
	if inBlock {
		return nil, fmt.Errorf("upstream block never closed")
	}
	return nil, fmt.Errorf("no managed upstream block in configuration")
}

func parseServerLine(line string) (string, bool) {
	fields := strings.Fields(strings.TrimSuffix(line, ";"))
	if len(fields) < 2 || fields[0] != "server" {
		return "", false
	}
	return fields[1], true
}

// ReplaceServers splices a new member list into the marked block,
// leaving every other line of the file untouched.
func ReplaceServers(text string, servers []string) (string, error) {
	lines := strings.Split(text, "\n")
	begin, end := -1, -1
	var indent string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == upstreamBegin {
			begin = i
			indent = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		}
		if trimmed == upstreamEnd {
			end = i
			break
		}
	}
	if begin == -1 || end == -1 || end < begin {
		return "", fmt.Errorf("no managed upstream block in configuration")
	}

	var block []string
	for _, s := range servers {
		block = append(block, fmt.Sprintf("%sserver %s max_fails=3 fail_timeout=5s;", indent, s))
	}

	out := make([]string, 0, len(lines)-(end-begin-1)+len(block))
	out = append(out, lines[:begin+1]...)
	out = append(out, block...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n"), nil
}
