/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package labeler

// MaxBodyLength bounds the issue body embedded in the prompt, in characters.
const MaxBodyLength = 2000

// ellipsis marks a truncated body.
const ellipsis = "..."

// Truncate returns s cut to limit characters followed by "..." when it is
// longer than limit, and s unchanged otherwise.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + ellipsis
}
