/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"chainguard.dev/maige/billing"
	"chainguard.dev/maige/config"
	"chainguard.dev/maige/dedupe"
	"chainguard.dev/maige/ghapp"
	"chainguard.dev/maige/labeler"
	"chainguard.dev/maige/store/sqlstore"
	"chainguard.dev/maige/usagegate"
	"chainguard.dev/maige/webhook"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/chainguard-dev/terraform-infra-common/pkg/profiler"
	"github.com/gorilla/mux"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve GitHub App webhook deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	go httpmetrics.ScrapeDiskUsage(ctx)
	profiler.SetupProfiler()
	defer httpmetrics.SetupTracer(ctx)()

	st, err := sqlstore.Open(ctx, cfg.DatabaseURL, sqlstore.WithDefaultUsageLimit(cfg.DefaultUsageLimit))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	deduper, closeDeduper, err := newDeduper(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeDeduper()

	apps := ghapp.NewApps(cfg.GitHub.AppID, cfg.PrivateKeyPEM(), httpmetrics.Transport, githubOptions(cfg)...)
	installations := webhook.InstallationsFunc(func(ctx context.Context, id int64) (webhook.InstallationClient, error) {
		c, err := apps.Installation(ctx, id)
		if err != nil {
			return nil, err
		}
		return c, nil
	})

	httpClient := &http.Client{Transport: httpmetrics.Transport}
	gate := usagegate.New(st, billing.NewStripe(cfg.StripeSecretKey, map[string]string{
		billing.PlanBase: cfg.StripeBasePriceID,
	}, billing.WithHTTPClient(httpClient)))
	completer := labeler.NewOpenAICompleter(
		openai.NewClient(
			option.WithAPIKey(cfg.OpenAIKey),
			option.WithHTTPClient(httpClient),
		),
		labeler.WithModel(cfg.LabelModel),
	)

	hook := webhook.New(webhook.Deps{
		Secret:        cfg.GitHub.WebhookSecret,
		OpenAIKey:     cfg.OpenAIKey,
		Store:         st,
		Installations: installations,
		Gate:          gate,
		Pipeline:      labeler.New(completer, gate),
	}, webhook.WithDeduper(deduper), webhook.WithUpstreamTimeout(cfg.UpstreamTimeout))

	api := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           routes(hook),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metrics := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.MetricsPort),
		Handler:           metricsRoutes(cfg.EnablePprof),
		ReadHeaderTimeout: 10 * time.Second,
	}

	clog.InfoContextf(ctx, "Serving webhooks on %s, metrics on %s", api.Addr, metrics.Addr)
	return listenAndServe(ctx, api, metrics)
}

// listenAndServe runs servers until ctx is done, then shuts them all down
// within shutdownTimeout. A server that fails to serve stops the others.
func listenAndServe(ctx context.Context, servers ...*http.Server) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		eg.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(sctx))
		}
		return errors.Join(errs...)
	})
	return eg.Wait()
}

func routes(hook http.Handler) *mux.Router {
	r := mux.NewRouter()
	h := httpmetrics.Handler("webhook", hook)
	r.Handle("/api/webhook", h)
	r.Handle("/api/webhook/github", h)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return r
}

func metricsRoutes(enablePprof bool) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	if enablePprof {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}
	return r
}

// newDeduper uses Redis when configured and an in-process set otherwise,
// which only dedupes deliveries that reach the same replica.
func newDeduper(ctx context.Context, redisURL string) (dedupe.Deduper, func(), error) {
	if redisURL == "" {
		clog.WarnContext(ctx, "REDIS_URL unset; deduping deliveries in memory")
		return dedupe.NewMemory(), func() {}, nil
	}
	r, err := dedupe.NewRedis(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return r, func() {
		if err := r.Close(); err != nil {
			clog.WarnContextf(ctx, "closing redis: %v", err)
		}
	}, nil
}

func githubOptions(cfg *config.Config) []ghapp.Option {
	if cfg.GitHub.BaseURL == "" {
		return nil
	}
	return []ghapp.Option{ghapp.WithBaseURL(cfg.GitHub.BaseURL)}
}
