/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package engineer runs the coding agent for one task: it provisions a
// sandbox, binds the agent's tools to that sandbox and the task's repository,
// runs the tool loop and releases the sandbox on every exit path.
package engineer
