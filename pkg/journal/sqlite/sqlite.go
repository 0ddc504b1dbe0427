// Package sqlite provides a journal.Store on a local SQLite database
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sandbox-llm/orch/pkg/journal"
)

// Store is a SQLite-backed journal.Store.
type Store struct {
	path string
	db   *sql.DB
	now  func() time.Time
}

// Ensure Store implements journal.Store at compile time.
var _ journal.Store = (*Store)(nil)

const selectColumns = `id, tenant_id, subject, message, resource_uri, prompt, response,
	usage_json, status, error_type, error_message, duration_ns, created_at_us`

// New opens (creating if needed) the database at path and applies
// pending migrations.
func New(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite journal: empty database path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{path: path, db: db, now: time.Now}

	if err := s.configure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies all pending migrations and records versions in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("sqlite journal: create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts an exchange.
func (s *Store) Record(ctx context.Context, x *journal.Exchange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (
			id, tenant_id, subject, message, resource_uri, prompt, response,
			usage_json, status, error_type, error_message, duration_ns, created_at_us
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`,
		x.ID, journal.TenantFor(ctx, x), x.Subject, x.Message, x.ResourceURI, x.Prompt, x.Response,
		nullString(string(x.Usage)), x.Status, x.ErrorType, x.ErrorMessage, int64(x.Duration), x.CreatedAt.UnixMicro(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return journal.ErrConflict
		}
		return fmt.Errorf("sqlite journal: insert exchange: %w", err)
	}
	return nil
}

// Get retrieves an exchange by ID, scoped to the context tenant.
func (s *Store) Get(ctx context.Context, id string) (*journal.Exchange, error) {
	tenantID := journal.GetTenant(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM exchanges
		WHERE id = ? AND (? = '' OR tenant_id = ?);
	`, id, tenantID, tenantID)

	x, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, journal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite journal: get exchange: %w", err)
	}
	return x, nil
}

// List returns exchanges newest first. An unknown cursor compares against
// NULL and matches nothing.
func (s *Store) List(ctx context.Context, opts journal.ListOptions) (*journal.ExchangeList, error) {
	limit := journal.NormalizeLimit(opts.Limit)
	tenantID := journal.GetTenant(ctx)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM exchanges
		WHERE (?1 = '' OR tenant_id = ?1)
		  AND (?2 = '' OR (created_at_us, id) < (
			SELECT c.created_at_us, c.id FROM exchanges c
			WHERE c.id = ?2 AND (?1 = '' OR c.tenant_id = ?1)
		  ))
		ORDER BY created_at_us DESC, id DESC
		LIMIT ?3;
	`, tenantID, opts.After, limit+1)
	if err != nil {
		return nil, fmt.Errorf("sqlite journal: list exchanges: %w", err)
	}
	defer rows.Close()

	var out []*journal.Exchange
	for rows.Next() {
		x, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite journal: scan exchange: %w", err)
		}
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite journal: list exchanges: %w", err)
	}

	return journal.NewList(out, limit), nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(row scanner) (*journal.Exchange, error) {
	var (
		x          journal.Exchange
		usage      sql.NullString
		durationNS int64
		createdUS  int64
	)
	if err := row.Scan(
		&x.ID, &x.Tenant, &x.Subject, &x.Message, &x.ResourceURI, &x.Prompt, &x.Response,
		&usage, &x.Status, &x.ErrorType, &x.ErrorMessage, &durationNS, &createdUS,
	); err != nil {
		return nil, err
	}
	if usage.Valid && usage.String != "" {
		x.Usage = []byte(usage.String)
	}
	x.Duration = time.Duration(durationNS)
	x.CreatedAt = time.UnixMicro(createdUS).UTC()
	return &x, nil
}

func (s *Store) configure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("sqlite journal: set pragma busy_timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("sqlite journal: set pragma journal_mode: %w", err)
	}
	return nil
}

func (s *Store) migrationApplied(ctx context.Context, version int) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1
		FROM schema_migrations
		WHERE version = ?;
	`, version).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite journal: query schema_migrations: %w", err)
	}
	return true, nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite journal: begin migration %d: %w", m.version, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range m.sql {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite journal: migration %d (%s): %w", m.version, m.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, name, applied_at)
		VALUES (?, ?, ?);
	`, m.version, m.name, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("sqlite journal: record migration %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite journal: commit migration %d: %w", m.version, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
