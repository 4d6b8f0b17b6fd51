/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"errors"

	"chainguard.dev/maige/agents/executor/retry"
	"github.com/openai/openai-go"
)

var retryableStatus = retry.StatusCodes(429, 500, 502, 503, 504)

func isRetryable(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode)
}
