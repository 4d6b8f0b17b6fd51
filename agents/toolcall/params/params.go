/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package params reads typed arguments out of decoded tool call JSON.
package params

import (
	"fmt"
	"strconv"
)

// Extract returns the required argument name as a T.
func Extract[T any](args map[string]any, name string) (T, error) {
	var zero T
	value, ok := args[name]
	if !ok {
		return zero, fmt.Errorf("%s parameter is required", name)
	}
	return convert[T](name, value)
}

// ExtractOptional returns the argument name as a T, or def when absent.
func ExtractOptional[T any](args map[string]any, name string, def T) (T, error) {
	value, ok := args[name]
	if !ok || value == nil {
		return def, nil
	}
	return convert[T](name, value)
}

func convert[T any](name string, value any) (T, error) {
	if v, ok := value.(T); ok {
		return v, nil
	}
	if v, ok := integer[T](value); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

// integer covers JSON numbers and models that quote integers.
func integer[T any](value any) (T, bool) {
	var zero T
	var n int64
	switch v := value.(type) {
	case float64:
		if v != float64(int64(v)) {
			return zero, false
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return zero, false
		}
		n = parsed
	default:
		return zero, false
	}

	switch any(zero).(type) {
	case int:
		return any(int(n)).(T), true
	case int32:
		return any(int32(n)).(T), true
	case int64:
		return any(n).(T), true
	}
	return zero, false
}

// Error builds the response a tool returns when it fails.
func Error(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}
