/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package apperr classifies failures so the webhook boundary can map them to
// response statuses without inspecting concrete error types.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind int

const (
	// Unknown is the zero Kind and is treated as a server error.
	Unknown Kind = iota
	// Authorization means the caller could not be authenticated.
	Authorization
	// NotFound means a required record does not exist.
	NotFound
	// QuotaExceeded means the customer is over its usage limit.
	QuotaExceeded
	// Upstream means an external dependency failed or timed out.
	Upstream
	// Resolution means the model answer did not resolve to any label.
	Resolution
	// Invalid means the inbound payload was malformed.
	Invalid
)

func (k Kind) String() string {
	switch k {
	case Authorization:
		return "authorization"
	case NotFound:
		return "not_found"
	case QuotaExceeded:
		return "quota_exceeded"
	case Upstream:
		return "upstream"
	case Resolution:
		return "resolution"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "list labels".
	Op string
	// Message is safe to return to the caller.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error without a cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Upstreamf wraps err as an Upstream failure with a formatted caller message.
func Upstreamf(op string, err error, format string, args ...any) error {
	return Wrap(Upstream, op, fmt.Sprintf(format, args...), err)
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// MessageOf returns the caller-facing message of err, or fallback when err
// carries none.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
