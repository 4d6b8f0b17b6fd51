/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package store defines the persistence contract for customers and their
// projects.
package store

import (
	"context"
	"errors"
	"time"
)

// DefaultUsageLimit is the number of labeling operations a new customer may
// consume before payment is required.
const DefaultUsageLimit = 30

// ErrNotFound is returned when a customer does not exist.
var ErrNotFound = errors.New("not found")

// Customer is an installation owner, keyed by its platform account login.
type Customer struct {
	ID             string
	Name           string
	Usage          int64
	UsageLimit     int64
	UsageWarned    bool
	UsageUpdatedAt time.Time
	CreatedAt      time.Time
}

// OverLimit reports whether the customer may not consume another operation.
func (c *Customer) OverLimit() bool {
	return c.Usage > c.UsageLimit
}

// Project is one repository belonging to a customer.
type Project struct {
	ID         string
	Name       string
	CustomerID string
	CreatedAt  time.Time
}

// Store persists customers and projects.
type Store interface {
	// CreateCustomer creates the customer and one project per name in a single
	// unit of work.
	CreateCustomer(ctx context.Context, name string, projects []string) (*Customer, error)
	// UpsertCustomer returns the customer named name, creating it when absent.
	UpsertCustomer(ctx context.Context, name string) (*Customer, error)
	// GetCustomer returns ErrNotFound when no customer is named name.
	GetCustomer(ctx context.Context, name string) (*Customer, error)
	// DeleteCustomer removes the customer and its projects. It returns
	// ErrNotFound when no customer is named name.
	DeleteCustomer(ctx context.Context, name string) error

	// ListProjects returns the customer's projects ordered by name.
	ListProjects(ctx context.Context, customerID string) ([]Project, error)
	// CreateProjects inserts projects, skipping names the customer already has.
	CreateProjects(ctx context.Context, customerID string, names []string) error
	// DeleteProjects removes the named projects of the customer.
	DeleteProjects(ctx context.Context, customerID string, names []string) error

	// ClaimUsageWarning atomically sets the customer's warned flag. It
	// reports false when the flag was already set, meaning another caller
	// owns the billing warning.
	ClaimUsageWarning(ctx context.Context, customerID string) (bool, error)
	// ReleaseUsageWarning clears the warned flag so a failed warning is
	// retried by a later event.
	ReleaseUsageWarning(ctx context.Context, customerID string) error
	// IncrementUsage adds exactly one to the customer's usage and stamps
	// usageUpdatedAt, atomically in the backing store.
	IncrementUsage(ctx context.Context, name string, at time.Time) error

	Close() error
}

// Transactor is implemented by stores that can apply several operations as a
// single unit. The Store passed to fn is only valid for the duration of fn.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
