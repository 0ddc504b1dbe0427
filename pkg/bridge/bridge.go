package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sandbox-llm/orch/pkg/api"
	"github.com/sandbox-llm/orch/pkg/debug"
	"github.com/sandbox-llm/orch/pkg/observability"
)

// ErrNotFound is returned when the resource server does not know the
// requested URI.
var ErrNotFound = errors.New("resource not found")

// clientVersion is reported to the resource server during initialization.
const clientVersion = "1.0.0"

// Bridge reads resources from an MCP resource server. It holds no
// connection between calls: every operation connects, performs one
// request, and closes the session, which also stops a stdio subprocess.
type Bridge struct {
	cfg     Config
	creds   *clientCredentials
	connect TransportFactory
}

// New validates cfg and returns a Bridge.
func New(cfg Config) (*Bridge, error) {
	return NewWithTransport(cfg, nil)
}

// NewWithTransport is like New but obtains the transport of every
// operation from factory. A nil factory builds transports from cfg.
func NewWithTransport(cfg Config, factory TransportFactory) (*Bridge, error) {
	cfg.applyDefaults()
	if factory == nil {
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("invalid bridge config: %w", err)
		}
	}

	b := &Bridge{cfg: cfg, connect: factory}
	if cfg.Auth.Type == "oauth_client_credentials" {
		b.creds = newClientCredentials(cfg.Auth)
	}
	if b.connect == nil {
		b.connect = b.newTransport
	}
	return b, nil
}

// List returns every resource advertised by the server, following
// pagination cursors until exhausted.
func (b *Bridge) List(ctx context.Context) ([]api.ResourceInfo, error) {
	var resources []api.ResourceInfo
	err := b.withSession(ctx, "list", func(ctx context.Context, session *mcp.ClientSession) error {
		for r, err := range session.Resources(ctx, nil) {
			if err != nil {
				return fmt.Errorf("listing resources: %w", err)
			}
			resources = append(resources, convertResource(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resources == nil {
		resources = []api.ResourceInfo{}
	}
	return resources, nil
}

// Read fetches the resource at uri and extracts its first content item.
func (b *Bridge) Read(ctx context.Context, uri string) (*api.ResourceContent, error) {
	var content *api.ResourceContent
	err := b.withSession(ctx, "read", func(ctx context.Context, session *mcp.ClientSession) error {
		result, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: %s", ErrNotFound, uri)
			}
			return fmt.Errorf("reading resource %s: %w", uri, err)
		}
		content = extractContent(uri, result, b.cfg.MaxContentBytes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	debug.Log("bridge", "resource read", "uri", uri, "mime_type", content.MIMEType,
		"binary", content.Binary, "size", content.Size(), "truncated", content.Truncated)
	return content, nil
}

// withSession connects, runs fn, and closes the session on every path.
func (b *Bridge) withSession(ctx context.Context, op string, fn func(context.Context, *mcp.ClientSession) error) (err error) {
	start := time.Now()
	defer func() {
		status := "success"
		switch {
		case errors.Is(err, ErrNotFound):
			status = "not_found"
		case err != nil:
			status = "error"
		}
		observability.ResourceOperationsTotal.WithLabelValues(op, status).Inc()
		observability.ResourceOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	transport, err := b.connect(ctx)
	if err != nil {
		return fmt.Errorf("creating %s transport: %w", b.cfg.Transport, err)
	}

	client := mcp.NewClient(
		&mcp.Implementation{Name: "orch", Version: clientVersion},
		&mcp.ClientOptions{Capabilities: &mcp.ClientCapabilities{}},
	)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to resource server: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Debug("closing resource server session", "operation", op, "error", closeErr)
		}
	}()

	debug.Log("bridge", "session open", "operation", op, "transport", b.cfg.Transport)
	return fn(ctx, session)
}

// isNotFound reports whether err carries the MCP resource-not-found code.
// Other server failures keep their own error, whatever their message says.
func isNotFound(err error) bool {
	var werr *jsonrpc.Error
	return errors.As(err, &werr) && werr.Code == mcp.CodeResourceNotFound
}
