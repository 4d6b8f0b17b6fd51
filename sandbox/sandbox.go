/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sandbox defines the isolated environment the engineering agent
// runs commands in.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is one line of process output.
type Message struct {
	Line string `json:"line"`
	// Error is set for lines written to stderr.
	Error bool `json:"error"`
}

// Output is everything a finished process wrote, in order.
type Output struct {
	Messages []Message `json:"messages"`
	ExitCode int       `json:"exitCode"`
}

// JSON renders o for a model to read.
func (o *Output) JSON() (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(b), nil
}

// Process is a command started in a Sandbox.
type Process interface {
	// Wait blocks until the process exits and returns its output.
	Wait(ctx context.Context) (*Output, error)
}

// Sandbox is a provisioned environment.
type Sandbox interface {
	ID() string
	// Start runs cmd with sh -c.
	Start(ctx context.Context, cmd string) (Process, error)
	// Close releases the environment. It is safe to call more than once.
	Close(ctx context.Context) error
}

// LineFunc observes output lines as they are produced.
type LineFunc func(Message)

// Provider provisions sandboxes from a named template.
type Provider interface {
	Provision(ctx context.Context, template string, onLine LineFunc) (Sandbox, error)
}

// Run starts cmd in sb and waits for it.
func Run(ctx context.Context, sb Sandbox, cmd string) (*Output, error) {
	p, err := sb.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}
