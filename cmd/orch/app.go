package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/sandbox-llm/orch/pkg/auth"
	"github.com/sandbox-llm/orch/pkg/auth/apikey"
	"github.com/sandbox-llm/orch/pkg/auth/jwt"
	"github.com/sandbox-llm/orch/pkg/auth/noop"
	"github.com/sandbox-llm/orch/pkg/bridge"
	"github.com/sandbox-llm/orch/pkg/completion"
	"github.com/sandbox-llm/orch/pkg/config"
	"github.com/sandbox-llm/orch/pkg/debug"
	"github.com/sandbox-llm/orch/pkg/journal"
	"github.com/sandbox-llm/orch/pkg/journal/memory"
	"github.com/sandbox-llm/orch/pkg/journal/postgres"
	"github.com/sandbox-llm/orch/pkg/journal/sqlite"
	"github.com/sandbox-llm/orch/pkg/orchestrator"
	transporthttp "github.com/sandbox-llm/orch/pkg/transport/http"
)

// app holds the components built from one configuration.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	completion   *completion.Client
	bridge       *bridge.Bridge
	journal      journal.Store
}

// loadConfig loads the configuration and installs the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})
	return cfg, logger, nil
}

// newApp builds the orchestrator and its dependencies. Callers must Close
// the returned app.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	cc, err := completion.New(completionConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	a.completion = cc

	var fetcher orchestrator.Fetcher
	if cfg.Bridge.Enabled {
		b, err := bridge.New(bridgeConfig(cfg))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating resource bridge: %w", err)
		}
		a.bridge = b
		fetcher = b
		slog.Info("resource bridge enabled", "transport", cfg.Bridge.Transport, "root", cfg.Bridge.Root)
	} else {
		slog.Info("resource bridge disabled")
	}

	store, err := newJournal(ctx, cfg.Journal)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.journal = store

	o, err := orchestrator.New(cc, fetcher, store, orchestrator.Config{Preamble: cfg.Prompt.Preamble})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.orchestrator = o
	return a, nil
}

// Close releases the journal and idle completion connections.
func (a *app) Close() error {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.completion != nil {
		errs = append(errs, a.completion.Close())
	}
	return errors.Join(errs...)
}

// server builds the HTTP server over the app's orchestrator.
func (a *app) server() (*transporthttp.Server, error) {
	cfg := a.cfg

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(a.logger),
		transporthttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled),
	}
	if a.bridge != nil {
		opts = append(opts, transporthttp.WithResources(a.orchestrator))
	}
	if a.journal != nil {
		opts = append(opts, transporthttp.WithExchanges(a.orchestrator))
	}

	mw, err := authMiddleware(cfg.Auth)
	if err != nil {
		return nil, err
	}
	opts = append(opts, transporthttp.WithAuth(mw))

	return transporthttp.NewServer(a.orchestrator, opts...), nil
}

func completionConfig(cfg *config.Config) completion.Config {
	return completion.Config{
		URL:         cfg.Completion.URL,
		APIKey:      cfg.Completion.APIKey,
		Model:       cfg.Completion.Model,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Completion.Timeout,
	}
}

func bridgeConfig(cfg *config.Config) bridge.Config {
	bc := cfg.Bridge
	return bridge.Config{
		Transport: bc.Transport,
		Command:   bc.Command,
		Args:      bc.Args,
		Env:       bc.Env,
		Dir:       bc.Dir,
		URL:       bc.URL,
		Headers:   bc.Headers,
		Auth: bridge.AuthConfig{
			Type:         bc.Auth.Type,
			TokenURL:     bc.Auth.TokenURL,
			ClientID:     bc.Auth.ClientID,
			ClientSecret: bc.Auth.ClientSecret,
			Scopes:       bc.Auth.Scopes,
		},
		Root:            bc.Root,
		Timeout:         bc.Timeout,
		MaxContentBytes: bc.MaxContentBytes,
	}
}

// newJournal opens the configured exchange journal. It returns nil for
// type "none".
func newJournal(ctx context.Context, cfg config.JournalConfig) (journal.Store, error) {
	switch cfg.Type {
	case "", "none":
		slog.Info("exchange journal disabled")
		return nil, nil
	case "memory":
		slog.Info("exchange journal enabled", "type", "memory")
		return memory.New(), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres journal: %w", err)
		}
		slog.Info("exchange journal enabled", "type", "postgres")
		return store, nil
	case "sqlite":
		store, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite journal: %w", err)
		}
		slog.Info("exchange journal enabled", "type", "sqlite", "path", cfg.SQLite.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

// authMiddleware builds the authentication middleware. Type "none" admits
// every request as the anonymous subject.
func authMiddleware(cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	var authn auth.Authenticator
	switch cfg.Type {
	case "", "none":
		authn = &noop.Authenticator{}
	case "apikey":
		entries := make([]apikey.Entry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.Entry{Key: k.Key, Subject: k.Subject, TenantID: k.TenantID})
		}
		authn = apikey.New(entries)
	case "jwt":
		jc := jwt.Config{
			HMACSecret:  cfg.JWT.HMACSecret,
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			UserClaim:   cfg.JWT.UserClaim,
			TenantClaim: cfg.JWT.TenantClaim,
			ScopesClaim: cfg.JWT.ScopesClaim,
		}
		if cfg.JWT.PublicKeyFile != "" {
			pem, err := os.ReadFile(cfg.JWT.PublicKeyFile)
			if err != nil {
				return nil, fmt.Errorf("reading jwt public key: %w", err)
			}
			jc.PublicKeyPEM = pem
		}
		ja, err := jwt.New(jc)
		if err != nil {
			return nil, fmt.Errorf("creating jwt authenticator: %w", err)
		}
		authn = ja
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}

	debug.Log("auth", "authenticator configured", "type", cfg.Type)
	chain := &auth.AuthChain{
		Authenticators:  []auth.Authenticator{authn},
		DefaultDecision: auth.No,
	}
	return auth.Middleware(chain, auth.DefaultBypassEndpoints), nil
}
