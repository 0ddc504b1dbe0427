package journal

import (
	"context"
	"encoding/json"
	"time"
)

// Exchange statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// List limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Exchange is one processed chat request.
type Exchange struct {
	ID           string          `json:"id"`
	Tenant       string          `json:"tenant,omitempty"`
	Subject      string          `json:"subject,omitempty"`
	Message      string          `json:"message"`
	ResourceURI  string          `json:"resource_uri,omitempty"`
	Prompt       string          `json:"prompt"`
	Response     string          `json:"response,omitempty"`
	Usage        json.RawMessage `json:"usage,omitempty"`
	Status       string          `json:"status"`
	ErrorType    string          `json:"error_type,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Duration     time.Duration   `json:"duration_ns"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListOptions selects one page of exchanges, newest first.
type ListOptions struct {
	// Limit is the page size. Zero means DefaultListLimit; values above
	// MaxListLimit are clamped.
	Limit int

	// After is the ID of the last exchange of the previous page.
	After string
}

// ExchangeList is one page of exchanges.
type ExchangeList struct {
	Object  string      `json:"object"`
	Data    []*Exchange `json:"data"`
	HasMore bool        `json:"has_more"`
	FirstID string      `json:"first_id,omitempty"`
	LastID  string      `json:"last_id,omitempty"`
}

// Store persists exchanges.
type Store interface {
	// Record persists a new exchange. The tenant is taken from the
	// exchange, falling back to the context tenant when empty. Returns
	// ErrConflict if the ID is taken.
	Record(ctx context.Context, x *Exchange) error

	// Get retrieves an exchange by ID, scoped to the context tenant.
	Get(ctx context.Context, id string) (*Exchange, error)

	// List returns a page of exchanges, scoped to the context tenant.
	// An After cursor that does not name a visible exchange yields an
	// empty page.
	List(ctx context.Context, opts ListOptions) (*ExchangeList, error)

	// HealthCheck verifies the store is usable.
	HealthCheck(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// NormalizeLimit applies the default and maximum page size.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// NewList builds an ExchangeList from up to limit+1 fetched rows. The
// extra row, when present, only signals that another page exists.
func NewList(rows []*Exchange, limit int) *ExchangeList {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []*Exchange{}
	}

	list := &ExchangeList{Object: "list", Data: rows, HasMore: hasMore}
	if len(rows) > 0 {
		list.FirstID = rows[0].ID
		list.LastID = rows[len(rows)-1].ID
	}
	return list
}
