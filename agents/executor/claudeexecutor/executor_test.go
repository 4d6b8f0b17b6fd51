/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chainguard.dev/maige/agents/executor"
	"chainguard.dev/maige/agents/executor/claudeexecutor"
	"chainguard.dev/maige/agents/executor/retry"
	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/agents/toolcall"
	"chainguard.dev/maige/agents/toolcall/callbacks"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type goal struct{ Text string }

func (g goal) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.Bind("goal", promptbuilder.XML(struct {
		XMLName struct{} `xml:"goal"`
		Text    string   `xml:",chardata"`
	}{Text: g.Text}))
}

var prompt = promptbuilder.MustNew("Accomplish this:\n{{goal}}")

type reply struct {
	status int
	body   string
}

// fakeClaude serves queued replies and keeps the request bodies.
type fakeClaude struct {
	mu       sync.Mutex
	replies  []reply
	requests []map[string]any
}

func (f *fakeClaude) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(b, &req)
	f.requests = append(f.requests, req)

	if len(f.replies) == 0 {
		http.Error(w, `{"type":"error","error":{"type":"invalid_request_error","message":"no more replies"}}`, http.StatusBadRequest)
		return
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(next.status)
	_, _ = io.WriteString(w, next.body)
}

func message(content string) reply {
	return reply{status: http.StatusOK, body: `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
		"content": ` + content + `,
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 3}
	}`}
}

func toolUse(id, name, input string) reply {
	return message(`[{"type":"tool_use","id":"` + id + `","name":"` + name + `","input":` + input + `}]`)
}

func text(s string) reply {
	b, _ := json.Marshal(s)
	return message(`[{"type":"text","text":` + string(b) + `}]`)
}

const overloaded = `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`

func newExecutor(t *testing.T, f *fakeClaude, opts ...claudeexecutor.Option[goal, string]) executor.Interface[goal, string] {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	opts = append([]claudeexecutor.Option[goal, string]{
		claudeexecutor.WithRetryConfig[goal, string](retry.Config{
			MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond,
		}),
	}, opts...)
	exec, err := claudeexecutor.New[goal, string](client, prompt, opts...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return exec
}

func shellTools(ran *[]string) map[string]toolcall.Tool[string] {
	return toolcall.NewSandboxToolsProvider(toolcall.NewEmptyToolsProvider[string]()).Tools(
		toolcall.NewSandboxTools(toolcall.EmptyTools{}, callbacks.SandboxCallbacks{
			Shell: func(_ context.Context, cmd string) (string, error) {
				*ran = append(*ran, cmd)
				return `{"messages":[{"line":"ok","error":false}],"exitCode":0}`, nil
			},
		}))
}

func TestExecuteRunsToolsUntilAnswer(t *testing.T) {
	f := &fakeClaude{replies: []reply{
		toolUse("tu_1", "shell", `{"command":"go test ./..."}`),
		{status: 529, body: overloaded},
		text("All tests pass."),
	}}
	var ran []string
	exec := newExecutor(t, f)

	got, err := exec.Execute(context.Background(), goal{Text: "make the tests pass"}, shellTools(&ran))
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if got != "All tests pass." {
		t.Errorf("Execute() = %q", got)
	}
	if len(ran) != 1 || ran[0] != "go test ./..." {
		t.Errorf("shell ran %v", ran)
	}
	if len(f.requests) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(f.requests))
	}

	first, _ := json.Marshal(f.requests[0]["messages"])
	if !strings.Contains(string(first), "make the tests pass") {
		t.Errorf("first request lacks the bound goal: %s", first)
	}
	last, _ := json.Marshal(f.requests[2]["messages"])
	if !strings.Contains(string(last), `"tool_use_id":"tu_1"`) {
		t.Errorf("tool result not sent back: %s", last)
	}
}

func TestExecuteUnknownToolIsReported(t *testing.T) {
	f := &fakeClaude{replies: []reply{
		toolUse("tu_1", "teleport", `{}`),
		text("Sorry."),
	}}
	var ran []string
	exec := newExecutor(t, f)

	if _, err := exec.Execute(context.Background(), goal{Text: "x"}, shellTools(&ran)); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	last, _ := json.Marshal(f.requests[1]["messages"])
	if !strings.Contains(string(last), `unknown tool`) {
		t.Errorf("unknown tool error not sent back: %s", last)
	}
}

func TestExecuteStepBudget(t *testing.T) {
	f := &fakeClaude{replies: []reply{
		toolUse("tu_1", "shell", `{"command":"ls"}`),
		toolUse("tu_2", "shell", `{"command":"ls"}`),
		toolUse("tu_3", "shell", `{"command":"ls"}`),
	}}
	var ran []string
	exec := newExecutor(t, f, claudeexecutor.WithMaxSteps[goal, string](2))

	_, err := exec.Execute(context.Background(), goal{Text: "loop"}, shellTools(&ran))
	if !errors.Is(err, executor.ErrStepBudget) {
		t.Errorf("Execute() = %v, want ErrStepBudget", err)
	}
	if len(ran) != 2 {
		t.Errorf("shell ran %d times, want 2", len(ran))
	}
}

func TestExecutePermanentError(t *testing.T) {
	f := &fakeClaude{}
	exec := newExecutor(t, f)

	if _, err := exec.Execute(context.Background(), goal{Text: "x"}, nil); err == nil {
		t.Fatal("Execute() succeeded against a failing API")
	}
	if len(f.requests) != 1 {
		t.Errorf("400 was retried: %d requests", len(f.requests))
	}
}

func TestOptions(t *testing.T) {
	client := anthropic.NewClient(option.WithAPIKey("test"))
	tests := []struct {
		name string
		opt  claudeexecutor.Option[goal, string]
	}{
		{"not claude", claudeexecutor.WithModel[goal, string]("gpt-4")},
		{"zero tokens", claudeexecutor.WithMaxTokens[goal, string](0)},
		{"hot", claudeexecutor.WithTemperature[goal, string](1.5)},
		{"small thinking", claudeexecutor.WithThinking[goal, string](10)},
		{"no steps", claudeexecutor.WithMaxSteps[goal, string](0)},
		{"nil system", claudeexecutor.WithSystemInstructions[goal, string](nil)},
		{"bad retry", claudeexecutor.WithRetryConfig[goal, string](retry.Config{MaxRetries: -1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := claudeexecutor.New[goal, string](client, prompt, tt.opt); err == nil {
				t.Error("New() accepted an invalid option")
			}
		})
	}

	if _, err := claudeexecutor.New[goal, string](client, nil); err == nil {
		t.Error("New() accepted a nil prompt")
	}
}
