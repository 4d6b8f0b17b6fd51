/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads maige settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// GitHub holds the app and bot credentials.
type GitHub struct {
	AppID         int64  `env:"GITHUB_APP_ID"`
	AppName       string `env:"GITHUB_APP_NAME,default=maige"`
	PrivateKey    string `env:"GITHUB_PRIVATE_KEY"`
	WebhookSecret string `env:"GITHUB_WEBHOOK_SECRET"`
	// AccessToken authenticates the engineer's git pushes and REST calls.
	AccessToken string `env:"GITHUB_ACCESS_TOKEN"`
	Email       string `env:"GITHUB_EMAIL"`
	Username    string `env:"GITHUB_USERNAME"`
	// BaseURL targets GitHub Enterprise; empty means github.com.
	BaseURL string `env:"GITHUB_BASE_URL"`
}

// Config is the full process configuration. Each command checks the
// subset it needs with its Validate method.
type Config struct {
	Port        int  `env:"PORT,default=8080"`
	MetricsPort int  `env:"METRICS_PORT,default=2112"`
	EnablePprof bool `env:"ENABLE_PPROF,default=false"`

	GitHub GitHub

	// OpenAIKey is checked per webhook request so a missing key is
	// reported to the caller rather than failing startup.
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	LabelModel    string `env:"LABEL_MODEL,default=gpt-3.5-turbo"`
	EngineerModel string `env:"ENGINEER_MODEL,default=gpt-4-1106-preview"`

	DatabaseURL       string `env:"DATABASE_URL"`
	DefaultUsageLimit int64  `env:"DEFAULT_USAGE_LIMIT,default=30"`
	RedisURL          string `env:"REDIS_URL"`

	StripeSecretKey   string `env:"STRIPE_SECRET_KEY"`
	StripeBasePriceID string `env:"STRIPE_BASE_PRICE_ID"`

	SerpAPIKey     string `env:"SERPAPI_API_KEY"`
	WeaviateScheme string `env:"WEAVIATE_SCHEME,default=https"`
	WeaviateHost   string `env:"WEAVIATE_HOST"`

	SandboxTemplate string `env:"SANDBOX_TEMPLATE,default=cgr.dev/chainguard/wolfi-base:latest"`
	// CommandTimeout bounds each sandbox command the engineer runs.
	CommandTimeout time.Duration `env:"ENGINEER_COMMAND_TIMEOUT,default=5m"`
	// RunTimeout bounds a whole engineer run.
	RunTimeout time.Duration `env:"ENGINEER_RUN_TIMEOUT,default=30m"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT,default=30s"`
}

// Load reads files (default ".env") into the environment without
// overriding variables already set, then processes the environment.
func Load(ctx context.Context, files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return process(ctx, envconfig.OsLookuper())
}

func process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	return &cfg, nil
}

type missing []string

func (m *missing) need(name, value string) {
	if value == "" {
		*m = append(*m, name)
	}
}

func (m missing) err() error {
	if len(m) == 0 {
		return nil
	}
	return fmt.Errorf("missing required environment: %s", strings.Join(m, ", "))
}

// ValidateServe checks the settings the webhook server needs.
func (c *Config) ValidateServe() error {
	var m missing
	if c.GitHub.AppID == 0 {
		m = append(m, "GITHUB_APP_ID")
	}
	m.need("GITHUB_PRIVATE_KEY", c.GitHub.PrivateKey)
	m.need("GITHUB_WEBHOOK_SECRET", c.GitHub.WebhookSecret)
	m.need("DATABASE_URL", c.DatabaseURL)
	m.need("STRIPE_SECRET_KEY", c.StripeSecretKey)
	m.need("STRIPE_BASE_PRICE_ID", c.StripeBasePriceID)
	return m.err()
}

// ValidateEngineer checks the settings an engineer run needs.
func (c *Config) ValidateEngineer() error {
	var m missing
	m.need("GITHUB_ACCESS_TOKEN", c.GitHub.AccessToken)
	m.need("GITHUB_EMAIL", c.GitHub.Email)
	m.need("GITHUB_USERNAME", c.GitHub.Username)
	if strings.HasPrefix(strings.ToLower(c.EngineerModel), "claude-") {
		m.need("ANTHROPIC_API_KEY", c.AnthropicKey)
	} else {
		m.need("OPENAI_API_KEY", c.OpenAIKey)
	}
	return m.err()
}

// ValidateMigrate checks the settings schema migration needs.
func (c *Config) ValidateMigrate() error {
	var m missing
	m.need("DATABASE_URL", c.DatabaseURL)
	return m.err()
}

// PrivateKeyPEM returns the app key with escaped newlines expanded, as
// single-line environment values often carry them.
func (c *Config) PrivateKeyPEM() []byte {
	return []byte(strings.ReplaceAll(c.GitHub.PrivateKey, `\n`, "\n"))
}
