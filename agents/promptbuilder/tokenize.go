/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// expand replaces every {{name}} in template with resolve(name).
func expand(template string, resolve func(name string) (string, error)) (string, error) {
	var sb strings.Builder
	for {
		start := strings.Index(template, "{{")
		if start < 0 {
			sb.WriteString(template)
			return sb.String(), nil
		}
		sb.WriteString(template[:start])

		rest := template[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return "", errors.New("unclosed binding: missing '}}'")
		}
		name := strings.TrimSpace(rest[:end])
		if !validName(name) {
			return "", fmt.Errorf("invalid binding identifier %q", name)
		}
		s, err := resolve(name)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
		template = rest[end+2:]
	}
}

// validName accepts a letter followed by letters, digits and underscores.
func validName(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return s != ""
}
