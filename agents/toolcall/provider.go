/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

// ToolProvider defines tools for an agent.
// Compose providers by wrapping: Empty -> Research -> GitHub -> Sandbox.
type ToolProvider[Resp, CB any] interface {
	Tools(cb CB) map[string]Tool[Resp]
}
