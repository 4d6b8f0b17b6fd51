/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package labeler picks a label for a GitHub issue with an LLM.
//
// The pipeline lists the repository's labels, asks the model for a
// "type, category" pair, resolves each answer token to an existing label with
// a Matcher and attaches the first resolved label. The default matcher is a
// deliberate heuristic: a token resolves to the first label whose lowercased
// name contains it. ExactMatcher is the strict alternative.
//
// Only the first resolved label is attached. The second ("category") label is
// resolved and reported in Result but never applied.
package labeler
