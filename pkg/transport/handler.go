package transport

import (
	"context"

	"github.com/sandbox-llm/orch/pkg/api"
	"github.com/sandbox-llm/orch/pkg/journal"
)

// ChatHandler handles one chat request.
type ChatHandler interface {
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
}

// ChatHandlerFunc is an adapter that allows using an ordinary function
// as a ChatHandler.
type ChatHandlerFunc func(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)

// Chat calls f(ctx, req).
func (f ChatHandlerFunc) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	return f(ctx, req)
}

// ResourceReader exposes the resource bridge.
type ResourceReader interface {
	// ResolveURI maps a file path or resource URI to the URI to read.
	ResolveURI(file, resource string) (string, *api.APIError)

	// Resources lists the available resources.
	Resources(ctx context.Context) ([]api.ResourceInfo, error)

	// ReadResource reads one resource.
	ReadResource(ctx context.Context, uri string) (*api.ResourceContent, error)
}

// ExchangeReader exposes the exchange journal. Both methods return
// journal.ErrDisabled when no journal is configured.
type ExchangeReader interface {
	Exchanges(ctx context.Context, opts journal.ListOptions) (*journal.ExchangeList, error)
	Exchange(ctx context.Context, id string) (*journal.Exchange, error)
}
