/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sqlstore implements store.Store on database/sql for PostgreSQL
// (lib/pq) and SQLite (go-sqlite3).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"chainguard.dev/maige/store"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Placeholders are numbered in order of first appearance in every statement;
// go-sqlite3 assigns $N slots by position rather than by number.

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQL-backed store.Store.
type Store struct {
	db         *sql.DB
	q          queryer
	driver     string
	usageLimit int64
	now        func() time.Time
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithDefaultUsageLimit sets the usage limit given to newly created customers
// when the schema is first created.
func WithDefaultUsageLimit(limit int64) Option {
	return func(s *Store) { s.usageLimit = limit }
}

// Open connects to the database named by rawURL. postgres:// and
// postgresql:// URLs use lib/pq; sqlite:// URLs and file: DSNs use go-sqlite3.
func Open(ctx context.Context, rawURL string, opts ...Option) (*Store, error) {
	driver, dsn, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s: %w", driver, err)
	}

	s := &Store{
		db:         db,
		q:          db,
		driver:     driver,
		usageLimit: store.DefaultUsageLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	clog.FromContext(ctx).With("driver", driver).Info("Opened store")
	return s, nil
}

func parseURL(rawURL string) (driver, dsn string, err error) {
	if strings.HasPrefix(rawURL, "file:") {
		return "sqlite3", rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing database url: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", rawURL, nil
	case "sqlite", "sqlite3":
		return "sqlite3", strings.TrimPrefix(rawURL, u.Scheme+"://"), nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn inside a database transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) (err error) {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				clog.WarnContextf(ctx, "rolling back transaction: %v", rbErr)
			}
		}
	}()

	txStore := *s
	txStore.q = tx
	if err := fn(&txStore); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, name string, projects []string) (*store.Customer, error) {
	var c *store.Customer
	err := s.InTx(ctx, func(tx store.Store) error {
		ts := tx.(*Store)
		now := ts.now().UTC()
		id := uuid.NewString()
		if _, err := ts.q.ExecContext(ctx,
			`INSERT INTO customers (id, name, usage_limit, usage_updated_at, created_at) VALUES ($1, $2, $3, $4, $4)`,
			id, name, ts.usageLimit, now); err != nil {
			return fmt.Errorf("inserting customer: %w", err)
		}
		if err := ts.CreateProjects(ctx, id, projects); err != nil {
			return err
		}
		var err error
		c, err = ts.GetCustomer(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) UpsertCustomer(ctx context.Context, name string) (*store.Customer, error) {
	now := s.now().UTC()
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO customers (id, name, usage_limit, usage_updated_at, created_at) VALUES ($1, $2, $3, $4, $4) ON CONFLICT (name) DO NOTHING`,
		uuid.NewString(), name, s.usageLimit, now); err != nil {
		return nil, fmt.Errorf("upserting customer: %w", err)
	}
	return s.GetCustomer(ctx, name)
}

func (s *Store) GetCustomer(ctx context.Context, name string) (*store.Customer, error) {
	var c store.Customer
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, usage, usage_limit, usage_warned, usage_updated_at, created_at FROM customers WHERE name = $1`,
		name).Scan(&c.ID, &c.Name, &c.Usage, &c.UsageLimit, &c.UsageWarned, &c.UsageUpdatedAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer: %w", err)
	}
	return &c, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, name string) error {
	return s.InTx(ctx, func(tx store.Store) error {
		ts := tx.(*Store)
		c, err := ts.GetCustomer(ctx, name)
		if err != nil {
			return err
		}
		if _, err := ts.q.ExecContext(ctx, `DELETE FROM projects WHERE customer_id = $1`, c.ID); err != nil {
			return fmt.Errorf("deleting projects: %w", err)
		}
		if _, err := ts.q.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, c.ID); err != nil {
			return fmt.Errorf("deleting customer: %w", err)
		}
		return nil
	})
}

func (s *Store) ListProjects(ctx context.Context, customerID string) ([]store.Project, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, customer_id, created_at FROM projects WHERE customer_id = $1 ORDER BY name`,
		customerID)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var ps []store.Project
	for rows.Next() {
		var p store.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CustomerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

func (s *Store) CreateProjects(ctx context.Context, customerID string, names []string) error {
	now := s.now().UTC()
	for _, n := range names {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO projects (id, name, customer_id, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (customer_id, name) DO NOTHING`,
			uuid.NewString(), n, customerID, now); err != nil {
			return fmt.Errorf("inserting project %q: %w", n, err)
		}
	}
	return nil
}

func (s *Store) DeleteProjects(ctx context.Context, customerID string, names []string) error {
	for _, n := range names {
		if _, err := s.q.ExecContext(ctx,
			`DELETE FROM projects WHERE customer_id = $1 AND name = $2`, customerID, n); err != nil {
			return fmt.Errorf("deleting project %q: %w", n, err)
		}
	}
	return nil
}

func (s *Store) ClaimUsageWarning(ctx context.Context, customerID string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE customers SET usage_warned = TRUE WHERE id = $1 AND NOT usage_warned`, customerID)
	if err != nil {
		return false, fmt.Errorf("claiming usage warning: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	var one int
	switch err := s.q.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE id = $1`, customerID).Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("customer %s: %w", customerID, store.ErrNotFound)
	case err != nil:
		return false, fmt.Errorf("looking up customer: %w", err)
	}
	return false, nil
}

func (s *Store) ReleaseUsageWarning(ctx context.Context, customerID string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE customers SET usage_warned = FALSE WHERE id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("releasing usage warning: %w", err)
	}
	return expectRow(res)
}

func (s *Store) IncrementUsage(ctx context.Context, name string, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE customers SET usage = usage + 1, usage_updated_at = $1 WHERE name = $2`, at.UTC(), name)
	if err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
