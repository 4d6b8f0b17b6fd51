/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

// EmptyTools is the base of every callback stack.
type EmptyTools struct{}

type emptyToolsProvider[Resp any] struct{}

var _ ToolProvider[any, EmptyTools] = (*emptyToolsProvider[any])(nil)

// NewEmptyToolsProvider returns a ToolProvider that provides no tools.
func NewEmptyToolsProvider[Resp any]() ToolProvider[Resp, EmptyTools] {
	return emptyToolsProvider[Resp]{}
}

func (emptyToolsProvider[Resp]) Tools(EmptyTools) map[string]Tool[Resp] {
	return map[string]Tool[Resp]{}
}
