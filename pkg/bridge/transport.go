package bridge

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TransportFactory creates the MCP transport for one bridge operation.
type TransportFactory func(ctx context.Context) (mcp.Transport, error)

// newTransport builds an MCP transport from the configuration. A stdio
// transport starts a new subprocess each time it is connected.
func (b *Bridge) newTransport(ctx context.Context) (mcp.Transport, error) {
	switch b.cfg.Transport {
	case TransportStdio:
		cmd := exec.Command(b.cfg.Command, b.cfg.Args...)
		cmd.Dir = b.cfg.Dir
		if len(b.cfg.Env) > 0 {
			cmd.Env = append(os.Environ(), b.cfg.Env...)
		}
		cmd.Stderr = &stderrLogger{command: b.cfg.Command}
		return &mcp.CommandTransport{Command: cmd}, nil

	case TransportSSE:
		httpClient, err := b.httpClient(ctx)
		if err != nil {
			return nil, err
		}
		t := &mcp.SSEClientTransport{Endpoint: b.cfg.URL}
		if httpClient != nil {
			t.HTTPClient = httpClient
		}
		return t, nil

	case TransportStreamableHTTP:
		httpClient, err := b.httpClient(ctx)
		if err != nil {
			return nil, err
		}
		t := &mcp.StreamableClientTransport{Endpoint: b.cfg.URL}
		if httpClient != nil {
			t.HTTPClient = httpClient
		}
		return t, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", b.cfg.Transport)
	}
}

// httpClient returns an HTTP client carrying the static headers and, when
// configured, a freshly obtained bearer token. Returns nil when neither is
// needed.
func (b *Bridge) httpClient(ctx context.Context) (*http.Client, error) {
	headers := make(map[string]string, len(b.cfg.Headers)+1)
	for k, v := range b.cfg.Headers {
		headers[k] = v
	}

	if b.creds != nil {
		authHeaders, err := b.creds.headers(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range authHeaders {
			headers[k] = v
		}
	}

	if len(headers) == 0 {
		return nil, nil
	}
	return &http.Client{
		Transport: &headerTransport{base: http.DefaultTransport, headers: headers},
	}, nil
}

// stderrLogger forwards the subprocess stderr to slog, one record per line.
type stderrLogger struct {
	command string

	mu  sync.Mutex
	buf []byte
}

func (l *stderrLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(l.buf[:i], "\r")
		if len(line) > 0 {
			slog.Debug("resource server stderr", "command", l.command, "line", string(line))
		}
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}
