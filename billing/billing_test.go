/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPaymentLink(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_links" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"plink_1","object":"payment_link","url":"https://buy.stripe.com/test_abc"}`))
	}))
	defer srv.Close()

	s := NewStripe("sk_test_123", map[string]string{PlanBase: "price_base"},
		WithBackendURL(srv.URL), WithHTTPClient(srv.Client()))

	got, err := s.PaymentLink(context.Background(), "cust-1", PlanBase)
	if err != nil {
		t.Fatalf("PaymentLink() = %v", err)
	}
	if got != "https://buy.stripe.com/test_abc" {
		t.Errorf("PaymentLink() = %q", got)
	}
	for k, want := range map[string]string{
		"line_items[0][price]":    "price_base",
		"line_items[0][quantity]": "1",
		"metadata[customerId]":    "cust-1",
	} {
		if form[k] != want {
			t.Errorf("form[%s] = %q, want %q", k, form[k], want)
		}
	}
}

func TestPaymentLinkUnknownPlan(t *testing.T) {
	s := NewStripe("sk_test_123", map[string]string{PlanBase: ""}, WithBackendURL("http://127.0.0.1:0"))
	for _, plan := range []string{PlanBase, "enterprise"} {
		if _, err := s.PaymentLink(context.Background(), "cust-1", plan); err == nil || !strings.Contains(err.Error(), "no price") {
			t.Errorf("PaymentLink(%q) = %v, want a missing price error", plan, err)
		}
	}
}

func TestPaymentLinkUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price: 'price_base'"}}`))
	}))
	defer srv.Close()

	s := NewStripe("sk_test_123", map[string]string{PlanBase: "price_base"},
		WithBackendURL(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := s.PaymentLink(context.Background(), "cust-1", PlanBase); err == nil {
		t.Error("PaymentLink() succeeded against a failing backend")
	}
}
