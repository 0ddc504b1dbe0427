package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandbox-llm/orch/pkg/api"
	"github.com/sandbox-llm/orch/pkg/debug"
	"github.com/sandbox-llm/orch/pkg/journal"
	"github.com/sandbox-llm/orch/pkg/observability"
	"github.com/sandbox-llm/orch/pkg/transport"
)

// HealthMessage is the body of GET /health.
const HealthMessage = "Orchestrator is running!"

// Adapter serves the orch API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	chat      transport.ChatHandler
	resources transport.ResourceReader // nil if no bridge
	exchanges transport.ExchangeReader // nil if no journal
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// Metrics exposes GET /metrics from the default Prometheus registry.
	Metrics bool
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
		Metrics:     true,
	}
}

// NewAdapter creates an HTTP adapter. resources and exchanges are
// optional. Middleware is applied to the chat handler in the given order.
func NewAdapter(chat transport.ChatHandler, resources transport.ResourceReader, exchanges transport.ExchangeReader, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		chat = transport.Chain(middlewares...)(chat)
	}

	a := &Adapter{
		chat:      chat,
		resources: resources,
		exchanges: exchanges,
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.HandleFunc("POST /api/chat", a.handleChat)
	a.mux.HandleFunc("GET /api/resources", a.handleListResources)
	a.mux.HandleFunc("GET /api/resources/read", a.handleReadResource)
	a.mux.HandleFunc("GET /api/exchanges", a.handleListExchanges)
	a.mux.HandleFunc("GET /api/exchanges/{id}", a.handleGetExchange)
	if cfg.Metrics {
		a.mux.Handle("GET /metrics", promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter, including request ID
// propagation and route recording for metrics.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.RouteRecorder(a.mux))
}

// httpRequestIDMiddleware takes the request ID from the X-Request-ID
// header, or generates one, stores it in the context and echoes it in
// the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

func (a *Adapter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, api.HealthResponse{Message: HealthMessage})
}

// handleChat handles POST /api/chat.
func (a *Adapter) handleChat(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	resp, err := a.chat.Chat(r.Context(), &req)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// handleListResources handles GET /api/resources.
func (a *Adapter) handleListResources(w http.ResponseWriter, r *http.Request) {
	if a.resources == nil {
		writeNotAvailable(w, "resource listing")
		return
	}

	resources, err := a.resources.Resources(r.Context())
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.ResourceList{Resources: resources})
}

// handleReadResource handles GET /api/resources/read?uri=... or ?file=...
func (a *Adapter) handleReadResource(w http.ResponseWriter, r *http.Request) {
	if a.resources == nil {
		writeNotAvailable(w, "resource reading")
		return
	}

	q := r.URL.Query()
	file, resource := q.Get("file"), q.Get("uri")
	switch {
	case file == "" && resource == "":
		transport.WriteAPIError(w, api.NewInvalidRequestError("uri", "uri or file is required"))
		return
	case file != "" && resource != "":
		transport.WriteAPIError(w, api.NewInvalidRequestError("uri", "uri and file are mutually exclusive"))
		return
	}

	uri, apiErr := a.resources.ResolveURI(file, resource)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	debug.Log("transport", "reading resource", "uri", uri)
	content, err := a.resources.ReadResource(r.Context(), uri)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	transport.WriteJSON(w, http.StatusOK, content)
}

// handleListExchanges handles GET /api/exchanges.
func (a *Adapter) handleListExchanges(w http.ResponseWriter, r *http.Request) {
	if a.exchanges == nil {
		writeNotAvailable(w, "exchange listing")
		return
	}

	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	list, err := a.exchanges.Exchanges(r.Context(), opts)
	if err != nil {
		if errors.Is(err, journal.ErrDisabled) {
			writeNotAvailable(w, "exchange listing")
			return
		}
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	transport.WriteJSON(w, http.StatusOK, list)
}

// handleGetExchange handles GET /api/exchanges/{id}.
func (a *Adapter) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	if a.exchanges == nil {
		writeNotAvailable(w, "exchange retrieval")
		return
	}

	x, err := a.exchanges.Exchange(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, journal.ErrDisabled) {
			writeNotAvailable(w, "exchange retrieval")
			return
		}
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	transport.WriteJSON(w, http.StatusOK, x)
}

// parseListOptions extracts pagination parameters from the query string.
func parseListOptions(r *http.Request) (journal.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := journal.ListOptions{After: q.Get("after")}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}

	return opts, nil
}

func writeNotAvailable(w http.ResponseWriter, what string) {
	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("", what+" is not available"),
		http.StatusNotImplemented,
	)
}
