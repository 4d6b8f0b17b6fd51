/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package webhook

import (
	"net/http"

	"chainguard.dev/maige/apperr"
)

// statusFor maps a processing error to its response status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Authorization:
		return http.StatusForbidden
	case apperr.QuotaExceeded:
		return http.StatusPaymentRequired
	case apperr.Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
