// Package postgres provides a PostgreSQL implementation of journal.Store.
// It uses pgx/v5 for connection pooling and stores usage as JSONB.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sandbox-llm/orch/pkg/journal"
)

// Store is a PostgreSQL-backed journal.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements journal.Store at compile time.
var _ journal.Store = (*Store)(nil)

const selectColumns = `id, tenant_id, subject, message, resource_uri, prompt, response,
	usage, status, error_type, error_message, duration_ns, created_at`

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Record inserts an exchange.
func (s *Store) Record(ctx context.Context, x *journal.Exchange) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exchanges (
			id, tenant_id, subject, message, resource_uri, prompt, response,
			usage, status, error_type, error_message, duration_ns, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		x.ID, journal.TenantFor(ctx, x), x.Subject, x.Message, x.ResourceURI, x.Prompt, x.Response,
		nullJSON(x.Usage), x.Status, x.ErrorType, x.ErrorMessage, int64(x.Duration), x.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return journal.ErrConflict
		}
		return fmt.Errorf("inserting exchange: %w", err)
	}
	return nil
}

// Get retrieves an exchange by ID, scoped to the context tenant.
func (s *Store) Get(ctx context.Context, id string) (*journal.Exchange, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM exchanges
		WHERE id = $1 AND ($2 = '' OR tenant_id = $2)
	`, id, journal.GetTenant(ctx))

	x, err := scanExchange(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("querying exchange: %w", err)
	}
	return x, nil
}

// List returns exchanges newest first. The cursor is resolved inside the
// query; an unknown cursor compares against NULL and matches nothing.
func (s *Store) List(ctx context.Context, opts journal.ListOptions) (*journal.ExchangeList, error) {
	limit := journal.NormalizeLimit(opts.Limit)
	tenantID := journal.GetTenant(ctx)

	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM exchanges
		WHERE ($1 = '' OR tenant_id = $1)
		  AND ($2 = '' OR (created_at, id) < (
			SELECT c.created_at, c.id FROM exchanges c
			WHERE c.id = $2 AND ($1 = '' OR c.tenant_id = $1)
		  ))
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, tenantID, opts.After, limit+1)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	var out []*journal.Exchange
	for rows.Next() {
		x, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}

	return journal.NewList(out, limit), nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanExchange(row pgx.Row) (*journal.Exchange, error) {
	var (
		x          journal.Exchange
		usage      []byte
		durationNS int64
		createdAt  time.Time
	)
	if err := row.Scan(
		&x.ID, &x.Tenant, &x.Subject, &x.Message, &x.ResourceURI, &x.Prompt, &x.Response,
		&usage, &x.Status, &x.ErrorType, &x.ErrorMessage, &durationNS, &createdAt,
	); err != nil {
		return nil, err
	}
	if len(usage) > 0 {
		x.Usage = usage
	}
	x.Duration = time.Duration(durationNS)
	x.CreatedAt = createdAt.UTC()
	return &x, nil
}

// nullJSON converts empty raw JSON to nil for the nullable JSONB column.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
