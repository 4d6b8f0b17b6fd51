/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAnswerString(t *testing.T) {
	got, err := ParseAnswer[string]("Opened PR #12.")
	if err != nil || got != "Opened PR #12." {
		t.Errorf("ParseAnswer() = %q, %v", got, err)
	}
}

func TestParseAnswerJSON(t *testing.T) {
	type summary struct {
		PR    int    `json:"pr"`
		Notes string `json:"notes"`
	}

	tests := []struct {
		name    string
		text    string
		want    summary
		wantErr bool
	}{{
		name: "bare",
		text: `{"pr": 12, "notes": "fixed"}`,
		want: summary{PR: 12, Notes: "fixed"},
	}, {
		name: "fenced",
		text: "Done.\n```json\n{\"pr\": 3}\n```",
		want: summary{PR: 3},
	}, {
		name:    "no object",
		text:    "I could not do it.",
		wantErr: true,
	}, {
		name:    "broken",
		text:    `{"pr": }`,
		wantErr: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswer[summary](tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAnswer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); !tt.wantErr && diff != "" {
				t.Errorf("ParseAnswer() (-want +got):\n%s", diff)
			}
		})
	}
}
