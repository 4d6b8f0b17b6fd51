/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package webhook

import (
	"strings"

	"github.com/google/go-github/v84/github"
)

// SignatureHeader carries the HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Hub-Signature-256"

// ValidSignature reports whether header is the "sha256=<hex>" signature of
// body under secret. Other digests are refused even where GitHub supports
// them.
func ValidSignature(body []byte, header, secret string) bool {
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	return github.ValidateSignature(header, body, []byte(secret)) == nil
}
