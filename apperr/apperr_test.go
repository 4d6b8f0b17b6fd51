/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "op and cause", err: &Error{Op: "list labels", Err: cause}, want: "list labels: connection reset"},
		{name: "cause only", err: &Error{Err: cause}, want: "connection reset"},
		{name: "op and message", err: &Error{Op: "usage gate", Message: "over limit"}, want: "usage gate: over limit"},
		{name: "message only", err: &Error{Message: "over limit"}, want: "over limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassification(t *testing.T) {
	cause := errors.New("timeout")
	wrapped := fmt.Errorf("labeling: %w", Upstreamf("list labels", cause, "Could not list labels for %s", "acme/widgets"))

	if got := KindOf(wrapped); got != Upstream {
		t.Errorf("KindOf() = %v, want %v", got, Upstream)
	}
	if !Is(wrapped, Upstream) || Is(wrapped, NotFound) {
		t.Error("Is() misclassified a wrapped Upstream error")
	}
	if got := MessageOf(wrapped, "fallback"); got != "Could not list labels for acme/widgets" {
		t.Errorf("MessageOf() = %q", got)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("classified error does not unwrap to its cause")
	}

	plain := errors.New("plain")
	if KindOf(plain) != Unknown || MessageOf(plain, "fallback") != "fallback" {
		t.Error("unclassified errors must be Unknown with the fallback message")
	}
	if MessageOf(New(Invalid, "parse", ""), "fallback") != "fallback" {
		t.Error("an empty message must yield the fallback")
	}
	if Wrap(Upstream, "op", "msg", nil) != nil {
		t.Error("Wrap(nil) must be nil")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		Unknown:       "unknown",
		Authorization: "authorization",
		NotFound:      "not_found",
		QuotaExceeded: "quota_exceeded",
		Upstream:      "upstream",
		Resolution:    "resolution",
		Invalid:       "invalid",
		Kind(99):      "unknown",
	} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
