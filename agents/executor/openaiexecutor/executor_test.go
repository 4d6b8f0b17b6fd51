/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor_test

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
	"chainguard.dev/maige/agents/executor/openaiexecutor"
	"chainguard.dev/maige/agents/executor/retry"
	"chainguard.dev/maige/agents/promptbuilder"
	"chainguard.dev/maige/agents/toolcall"
	"chainguard.dev/maige/agents/toolcall/callbacks"
	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type goal struct{ Text string }

func (g goal) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	return p.Bind("goal", promptbuilder.JSON(g))
}

var (
	prompt    = promptbuilder.MustNew("{{goal}}")
	directive = promptbuilder.MustNew("You are a careful engineer.")
)

type reply struct {
	status int
	body   string
}

type fakeOpenAI struct {
	mu       sync.Mutex
	replies  []reply
	requests []map[string]any
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(b, &req)
	f.requests = append(f.requests, req)

	w.Header().Set("Content-Type", "application/json")
	if len(f.replies) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"no more replies","type":"invalid_request_error"}}`)
		return
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	w.WriteHeader(next.status)
	_, _ = io.WriteString(w, next.body)
}

func completion(message string) reply {
	return reply{status: http.StatusOK, body: `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4-1106-preview",
		"choices": [{"index": 0, "finish_reason": "stop", "message": ` + message + `}],
		"usage": {"prompt_tokens": 20, "completion_tokens": 4, "total_tokens": 24}
	}`}
}

func toolCall(id, name, args string) reply {
	b, _ := json.Marshal(args)
	return completion(`{"role":"assistant","content":null,"tool_calls":[{"id":"` + id +
		`","type":"function","function":{"name":"` + name + `","arguments":` + string(b) + `}}]}`)
}

func answer(s string) reply {
	b, _ := json.Marshal(s)
	return completion(`{"role":"assistant","content":` + string(b) + `}`)
}

func newExecutor(t *testing.T, f *fakeOpenAI, opts ...openaiexecutor.Option[goal, string]) executor.Interface[goal, string] {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	opts = append([]openaiexecutor.Option[goal, string]{
		openaiexecutor.WithSystemInstructions[goal, string](directive),
		openaiexecutor.WithRetryConfig[goal, string](retry.Config{
			MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond,
		}),
	}, opts...)
	exec, err := openaiexecutor.New[goal, string](client, prompt, opts...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return exec
}

func gitTools(ran *[]string) map[string]toolcall.Tool[string] {
	return toolcall.NewSandboxToolsProvider(toolcall.NewEmptyToolsProvider[string]()).Tools(
		toolcall.NewSandboxTools(toolcall.EmptyTools{}, callbacks.SandboxCallbacks{
			Git: func(_ context.Context, cmd string) (string, error) {
				*ran = append(*ran, cmd)
				return `{"messages":[],"exitCode":0}`, nil
			},
		}))
}

func TestExecute(t *testing.T) {
	f := &fakeOpenAI{replies: []reply{
		toolCall("call_1", "git", `{"command":"git status"}`),
		{status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down","type":"rate_limit"}}`},
		answer("Working tree clean."),
	}}
	var ran []string
	exec := newExecutor(t, f)

	got, err := exec.Execute(context.Background(), goal{Text: "check the repo"}, gitTools(&ran))
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if got != "Working tree clean." {
		t.Errorf("Execute() = %q", got)
	}
	if diff := cmp.Diff([]string{"git status"}, ran); diff != "" {
		t.Errorf("git calls (-want +got):\n%s", diff)
	}
	if len(f.requests) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(f.requests))
	}

	if f.requests[0]["model"] != openaiexecutor.DefaultModel || f.requests[0]["temperature"] != 0.7 {
		t.Errorf("first request model/temperature = %v/%v", f.requests[0]["model"], f.requests[0]["temperature"])
	}
	msgs, _ := json.Marshal(f.requests[2]["messages"])
	for _, want := range []string{"You are a careful engineer.", "check the repo", `"tool_call_id":"call_1"`} {
		if !strings.Contains(string(msgs), want) {
			t.Errorf("final request lacks %q: %s", want, msgs)
		}
	}
}

func TestExecuteStepBudget(t *testing.T) {
	f := &fakeOpenAI{replies: []reply{
		toolCall("call_1", "git", `{"command":"git log"}`),
		toolCall("call_2", "git", `{"command":"git log"}`),
	}}
	var ran []string
	exec := newExecutor(t, f, openaiexecutor.WithMaxSteps[goal, string](1))

	if _, err := exec.Execute(context.Background(), goal{}, gitTools(&ran)); !errors.Is(err, executor.ErrStepBudget) {
		t.Errorf("Execute() = %v, want ErrStepBudget", err)
	}
	if len(f.requests) != 1 {
		t.Errorf("server saw %d requests, want 1", len(f.requests))
	}
}

func TestExecuteBadArguments(t *testing.T) {
	f := &fakeOpenAI{replies: []reply{
		toolCall("call_1", "git", `{"command":`),
		answer("Gave up."),
	}}
	var ran []string
	exec := newExecutor(t, f)

	if _, err := exec.Execute(context.Background(), goal{}, gitTools(&ran)); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if len(ran) != 0 {
		t.Errorf("git ran with malformed arguments: %v", ran)
	}
	msgs, _ := json.Marshal(f.requests[1]["messages"])
	if !strings.Contains(string(msgs), "decoding git arguments") {
		t.Errorf("argument error not sent back: %s", msgs)
	}
}

func TestExecuteUpstreamError(t *testing.T) {
	f := &fakeOpenAI{}
	exec := newExecutor(t, f)

	_, err := exec.Execute(context.Background(), goal{}, nil)
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Execute() = %v, want a 400 *openai.Error", err)
	}
}
