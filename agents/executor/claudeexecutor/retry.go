/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"errors"

	"chainguard.dev/maige/agents/executor/retry"
	"github.com/anthropics/anthropic-sdk-go"
)

// 529 is Anthropic's overloaded status.
var retryableStatus = retry.StatusCodes(429, 500, 502, 503, 504, 529)

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	return errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode)
}
