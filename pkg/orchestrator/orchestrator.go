package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/sandbox-llm/orch/pkg/api"
	"github.com/sandbox-llm/orch/pkg/auth"
	"github.com/sandbox-llm/orch/pkg/bridge"
	"github.com/sandbox-llm/orch/pkg/completion"
	"github.com/sandbox-llm/orch/pkg/debug"
	"github.com/sandbox-llm/orch/pkg/journal"
	"github.com/sandbox-llm/orch/pkg/observability"
	"github.com/sandbox-llm/orch/pkg/transport"
)

// bridgeDisabled is reported when a resource is requested but no bridge
// is configured.
const bridgeDisabled = "resource bridge disabled"

// Completer sends one prompt to the completion service.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Result, error)
}

// Fetcher lists and reads resources. *bridge.Bridge implements it.
type Fetcher interface {
	ResolveURI(file, resource string) (string, error)
	List(ctx context.Context) ([]api.ResourceInfo, error)
	Read(ctx context.Context, uri string) (*api.ResourceContent, error)
}

// Orchestrator handles chat requests. It implements transport.ChatHandler.
type Orchestrator struct {
	completer Completer
	fetcher   Fetcher
	journal   journal.Store
	cfg       Config
	now       func() time.Time
}

// Ensure Orchestrator implements transport.ChatHandler at compile time.
var _ transport.ChatHandler = (*Orchestrator)(nil)

// New creates an Orchestrator. The completer must not be nil; fetcher and
// store may be nil.
func New(c Completer, f Fetcher, store journal.Store, cfg Config) (*Orchestrator, error) {
	if c == nil {
		return nil, errors.New("orchestrator: completer must not be nil")
	}
	return &Orchestrator{
		completer: c,
		fetcher:   f,
		journal:   store,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Chat processes one chat request.
func (o *Orchestrator) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	if apiErr := req.Validate(); apiErr != nil {
		return nil, apiErr
	}

	start := o.now()
	id := api.NewExchangeID()

	uri, apiErr := o.ResolveURI(req.File, req.Resource)
	if apiErr != nil {
		return nil, apiErr
	}

	content, info := o.fetchContext(ctx, uri)
	prompt := ComposePrompt(o.cfg.preamble(), req.Message, content)

	creq := completion.Request{Prompt: prompt, Temperature: req.Temperature}
	if req.MaxTokens != nil {
		creq.MaxTokens = *req.MaxTokens
	}

	result, err := o.complete(ctx, creq)

	x := &journal.Exchange{
		ID:          id,
		Message:     req.Message,
		ResourceURI: uri,
		Prompt:      prompt,
		CreatedAt:   start.UTC(),
	}
	if err != nil {
		x.Status = journal.StatusFailed
		x.ErrorType, x.ErrorMessage = errorFields(err)
		x.Duration = o.now().Sub(start)
		o.record(ctx, x)
		return nil, err
	}

	x.Status = journal.StatusCompleted
	x.Response = result.Text
	x.Usage = result.Usage
	x.Duration = o.now().Sub(start)
	o.record(ctx, x)

	return &api.ChatResponse{
		ID:       id,
		Response: result.Text,
		Usage:    result.Usage,
		Context:  info,
	}, nil
}

// ResolveURI maps the file or resource of a request to a resource URI.
// Without a bridge, a resource URI is kept as is and a file path becomes
// file:///abs/path when absolute or file:rel/path when relative.
func (o *Orchestrator) ResolveURI(file, resource string) (string, *api.APIError) {
	if file == "" && resource == "" {
		return "", nil
	}
	if o.fetcher == nil {
		if resource != "" {
			return resource, nil
		}
		p := filepath.ToSlash(file)
		if path.IsAbs(p) {
			return "file://" + p, nil
		}
		return "file:" + p, nil
	}

	uri, err := o.fetcher.ResolveURI(file, resource)
	if err != nil {
		param := "file"
		if resource != "" {
			param = "resource"
		}
		return "", api.NewInvalidRequestError(param, err.Error())
	}
	return uri, nil
}

// fetchContext reads uri when set. A failed read is reported in the
// returned ContextInfo and yields nil content.
func (o *Orchestrator) fetchContext(ctx context.Context, uri string) (*api.ResourceContent, *api.ContextInfo) {
	if uri == "" {
		return nil, nil
	}
	if o.fetcher == nil {
		return nil, &api.ContextInfo{URI: uri, Error: bridgeDisabled}
	}

	content, err := o.fetcher.Read(ctx, uri)
	if err != nil {
		slog.Warn("resource read failed, continuing without context", "uri", uri, "subject", auth.SubjectFromContext(ctx), "error", err)
		return nil, &api.ContextInfo{URI: uri, Error: err.Error()}
	}

	debug.Log("orchestrator", "context attached", "uri", uri, "size", content.Size(), "binary", content.Binary)
	return content, &api.ContextInfo{
		URI:       content.URI,
		MIMEType:  content.MIMEType,
		Binary:    content.Binary,
		Size:      content.Size(),
		Truncated: content.Truncated,
	}
}

func (o *Orchestrator) complete(ctx context.Context, req completion.Request) (*completion.Result, error) {
	start := time.Now()
	result, err := o.completer.Complete(ctx, req)
	observability.CompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.CompletionRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.CompletionRequestsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// record writes x to the journal. Failures are logged and counted only.
func (o *Orchestrator) record(ctx context.Context, x *journal.Exchange) {
	if o.journal == nil {
		return
	}
	if id := auth.IdentityFromContext(ctx); id != nil {
		x.Subject = id.Subject
		x.Tenant = id.Tenant
	}
	if err := o.journal.Record(context.WithoutCancel(ctx), x); err != nil {
		observability.JournalErrorsTotal.WithLabelValues("record").Inc()
		slog.Warn("journal write failed", "exchange_id", x.ID, "error", err)
		return
	}
	debug.Log("journal", "exchange recorded", "exchange_id", x.ID, "status", x.Status)
}

// Resources lists the resources offered by the bridge.
func (o *Orchestrator) Resources(ctx context.Context) ([]api.ResourceInfo, error) {
	if o.fetcher == nil {
		return nil, api.NewServerError(bridgeDisabled)
	}
	resources, err := o.fetcher.List(ctx)
	if err != nil {
		return nil, resourceError(err)
	}
	return resources, nil
}

// ReadResource reads one resource through the bridge.
func (o *Orchestrator) ReadResource(ctx context.Context, uri string) (*api.ResourceContent, error) {
	if o.fetcher == nil {
		return nil, api.NewServerError(bridgeDisabled)
	}
	content, err := o.fetcher.Read(ctx, uri)
	if err != nil {
		return nil, resourceError(err)
	}
	return content, nil
}

// Exchanges lists journaled exchanges.
func (o *Orchestrator) Exchanges(ctx context.Context, opts journal.ListOptions) (*journal.ExchangeList, error) {
	if o.journal == nil {
		return nil, journal.ErrDisabled
	}
	list, err := o.journal.List(ctx, opts)
	if err != nil {
		observability.JournalErrorsTotal.WithLabelValues("list").Inc()
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	return list, nil
}

// Exchange returns one journaled exchange.
func (o *Orchestrator) Exchange(ctx context.Context, id string) (*journal.Exchange, error) {
	if o.journal == nil {
		return nil, journal.ErrDisabled
	}
	if !api.ValidateExchangeID(id) {
		return nil, api.NewNotFoundError(fmt.Sprintf("exchange %q not found", id))
	}
	x, err := o.journal.Get(ctx, id)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			return nil, api.NewNotFoundError(fmt.Sprintf("exchange %q not found", id))
		}
		observability.JournalErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("getting exchange: %w", err)
	}
	return x, nil
}

func resourceError(err error) *api.APIError {
	if errors.Is(err, bridge.ErrNotFound) {
		return api.NewNotFoundError(err.Error())
	}
	return api.NewResourceError("Resource bridge error: " + err.Error())
}

func errorFields(err error) (string, string) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type), apiErr.Message
	}
	return string(api.ErrorTypeServerError), err.Error()
}
