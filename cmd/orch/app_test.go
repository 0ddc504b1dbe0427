package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandbox-llm/orch/pkg/api"
	"github.com/sandbox-llm/orch/pkg/config"
	"github.com/sandbox-llm/orch/pkg/journal"
)

// completionServer answers every completion with text and counts calls.
func completionServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding completion request: %v", err)
		}
		if !strings.HasSuffix(body.Prompt, "\nAssistant:") {
			t.Errorf("prompt = %q", body.Prompt)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": text,
			"usage":    map[string]int{"total_tokens": 7},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// useConfig writes a config file and points the --config flag at it.
func useConfig(t *testing.T, yaml string) {
	t.Helper()
	for _, k := range []string{"ORCH_CONFIG", "PORT", "ORCH_PORT", "ORCH_COMPLETION_URL", "ORCH_BRIDGE_ENABLED", "ORCH_JOURNAL", "ORCH_AUTH_TYPE", "ORCH_API_KEYS"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	configPath = path
	t.Cleanup(func() { configPath = "" })
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return cmd, &out
}

func TestRunChat(t *testing.T) {
	srv := completionServer(t, " Hello from the model. ")
	useConfig(t, `
completion:
  url: `+srv.URL+`/v1/completions
bridge:
  enabled: false
`)

	cmd, out := testCommand()
	if err := runChat(cmd, []string{"Hi", "there"}); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if got := out.String(); got != "Hello from the model.\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRunChatJSON(t *testing.T) {
	srv := completionServer(t, "ok")
	useConfig(t, `
completion:
  url: `+srv.URL+`/v1/completions
bridge:
  enabled: false
`)
	chatJSON = true
	t.Cleanup(func() { chatJSON = false })

	cmd, out := testCommand()
	if err := runChat(cmd, []string{"Hi"}); err != nil {
		t.Fatalf("runChat: %v", err)
	}

	var resp api.ChatResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decoding output %q: %v", out.String(), err)
	}
	if resp.Response != "ok" || !api.ValidateExchangeID(resp.ID) {
		t.Errorf("response = %+v", resp)
	}
}

func TestRunChatBadConfig(t *testing.T) {
	useConfig(t, "completion:\n  url: ftp://example.com\n")

	cmd, _ := testCommand()
	err := runChat(cmd, []string{"Hi"})
	if err == nil || !strings.Contains(err.Error(), "completion.url") {
		t.Errorf("error = %v, want completion.url validation error", err)
	}
}

func TestResourcesRequireBridge(t *testing.T) {
	useConfig(t, "bridge:\n  enabled: false\n")

	cmd, _ := testCommand()
	if err := runResourcesList(cmd, nil); err == nil {
		t.Error("expected error with the bridge disabled")
	}
}

func TestServerWiring(t *testing.T) {
	srv := completionServer(t, "wired")
	cfg := config.Defaults()
	cfg.Completion.URL = srv.URL + "/v1/completions"
	cfg.Bridge.Enabled = false
	cfg.Journal.Type = "memory"
	cfg.Auth.Type = "apikey"
	cfg.Auth.APIKeys = []config.APIKeyConfig{{Key: "secret", Subject: "alice", TenantID: "org-1"}}

	a, err := newApp(context.Background(), &cfg, slog.Default())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	s, err := a.server()
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	h := s.Handler()

	do := func(method, path, key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
	if rec := do(http.MethodPost, "/api/chat", "", `{"message":"hi"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/chat without key = %d, want 401", rec.Code)
	}

	rec := do(http.MethodPost, "/api/chat", "secret", `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/chat = %d: %s", rec.Code, rec.Body)
	}
	var resp api.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Response != "wired" {
		t.Errorf("response = %q", resp.Response)
	}

	rec = do(http.MethodGet, "/api/exchanges/"+resp.ID, "secret", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET exchange = %d: %s", rec.Code, rec.Body)
	}
	var x journal.Exchange
	if err := json.Unmarshal(rec.Body.Bytes(), &x); err != nil {
		t.Fatal(err)
	}
	if x.Subject != "alice" || x.Tenant != "org-1" {
		t.Errorf("exchange identity = %q/%q", x.Subject, x.Tenant)
	}

	// The bridge is disabled, so the resource routes are not available.
	if rec := do(http.MethodGet, "/api/resources", "secret", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("GET /api/resources = %d, want 501", rec.Code)
	}
}

func TestNewJournal(t *testing.T) {
	ctx := context.Background()

	for _, typ := range []string{"", "none"} {
		store, err := newJournal(ctx, config.JournalConfig{Type: typ})
		if err != nil || store != nil {
			t.Errorf("type %q: store = %v, err = %v", typ, store, err)
		}
	}

	store, err := newJournal(ctx, config.JournalConfig{Type: "memory"})
	if err != nil || store == nil {
		t.Fatalf("memory: store = %v, err = %v", store, err)
	}
	store.Close()

	store, err = newJournal(ctx, config.JournalConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "orch.db")},
	})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Errorf("sqlite health: %v", err)
	}
	store.Close()

	if _, err := newJournal(ctx, config.JournalConfig{Type: "redis"}); err == nil {
		t.Error("expected error for unknown journal type")
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		cfg     config.AuthConfig
		header  string
		want    int
		wantErr bool
	}{
		{name: "none admits anonymous", cfg: config.AuthConfig{Type: "none"}, want: http.StatusNoContent},
		{
			name:   "apikey accepts known key",
			cfg:    config.AuthConfig{Type: "apikey", APIKeys: []config.APIKeyConfig{{Key: "k1", Subject: "bob"}}},
			header: "Bearer k1",
			want:   http.StatusNoContent,
		},
		{
			name:   "apikey rejects unknown key",
			cfg:    config.AuthConfig{Type: "apikey", APIKeys: []config.APIKeyConfig{{Key: "k1", Subject: "bob"}}},
			header: "Bearer nope",
			want:   http.StatusUnauthorized,
		},
		{
			name: "jwt rejects missing token",
			cfg:  config.AuthConfig{Type: "jwt", JWT: config.JWTConfig{HMACSecret: "0123456789abcdef0123456789abcdef"}},
			want: http.StatusUnauthorized,
		},
		{
			name:    "jwt missing key file",
			cfg:     config.AuthConfig{Type: "jwt", JWT: config.JWTConfig{PublicKeyFile: "/nonexistent/key.pem"}},
			wantErr: true,
		},
		{name: "unknown type", cfg: config.AuthConfig{Type: "ldap"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := authMiddleware(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("authMiddleware: %v", err)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestBridgeConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Bridge.Transport = "streamable-http"
	cfg.Bridge.URL = "http://mcp.internal/mcp"
	cfg.Bridge.Root = "/srv/docs"
	cfg.Bridge.Timeout = 5 * time.Second
	cfg.Bridge.Auth.Type = "oauth_client_credentials"
	cfg.Bridge.Auth.ClientID = "orch"

	bc := bridgeConfig(&cfg)
	if bc.Transport != "streamable-http" || bc.URL != "http://mcp.internal/mcp" || bc.Root != "/srv/docs" {
		t.Errorf("bridge config = %+v", bc)
	}
	if bc.Timeout != 5*time.Second || bc.MaxContentBytes != cfg.Bridge.MaxContentBytes {
		t.Errorf("limits = %v, %d", bc.Timeout, bc.MaxContentBytes)
	}
	if bc.Auth.Type != "oauth_client_credentials" || bc.Auth.ClientID != "orch" {
		t.Errorf("auth = %+v", bc.Auth)
	}
}
