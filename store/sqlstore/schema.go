/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// schema is valid for both PostgreSQL and SQLite. Foreign keys are not
// relied upon for cascading; DeleteCustomer removes projects explicitly.
const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	usage BIGINT NOT NULL DEFAULT 0,
	usage_limit BIGINT NOT NULL DEFAULT %d,
	usage_warned BOOLEAN NOT NULL DEFAULT FALSE,
	usage_updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	customer_id TEXT NOT NULL REFERENCES customers(id),
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (customer_id, name)
);

CREATE INDEX IF NOT EXISTS idx_projects_customer ON projects(customer_id);
`

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(fmt.Sprintf(schema, s.usageLimit), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
