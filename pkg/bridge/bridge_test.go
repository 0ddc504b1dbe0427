package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/goleak"

	"github.com/sandbox-llm/orch/pkg/resourceserver"
)

const (
	envTestServer = "ORCH_BRIDGE_TEST_SERVER"
	envTestRoot   = "ORCH_BRIDGE_TEST_ROOT"
)

// TestMain doubles as a stdio resource server when the test binary is
// re-executed by the subprocess tests.
func TestMain(m *testing.M) {
	if os.Getenv(envTestServer) == "1" {
		os.Exit(runStdioServer(os.Getenv(envTestRoot)))
	}
	os.Exit(m.Run())
}

func runStdioServer(root string) int {
	server, err := resourceserver.New(root, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string][]byte{
		"notes.txt":     []byte("hello from notes"),
		"docs/guide.md": []byte("# Guide\n\nStep one."),
		"logo.bin":      {0xff, 0xd8, 0x00, 0x10},
		"unicode.txt":   []byte("héllo wörld"),
	}
	for name, data := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// inMemoryFactory starts a fresh resource server for every connection,
// mirroring a stdio subprocess. wg tracks the server goroutines.
func inMemoryFactory(t *testing.T, root string, wg *sync.WaitGroup, dials *atomic.Int32) TransportFactory {
	t.Helper()
	return func(ctx context.Context) (mcp.Transport, error) {
		server, err := resourceserver.New(root, nil)
		if err != nil {
			return nil, err
		}
		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = server.Run(context.Background(), serverTransport)
		}()
		if dials != nil {
			dials.Add(1)
		}
		return clientTransport, nil
	}
}

func newInMemoryBridge(t *testing.T, root string, cfg Config) (*Bridge, *sync.WaitGroup) {
	t.Helper()
	var wg sync.WaitGroup
	cfg.Root = root
	b, err := NewWithTransport(cfg, inMemoryFactory(t, root, &wg, nil))
	if err != nil {
		t.Fatalf("NewWithTransport: %v", err)
	}
	return b, &wg
}

// waitServers fails the test if a server goroutine outlives its session.
func waitServers(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("resource server still running after the bridge operation returned")
	}
}

func TestList(t *testing.T) {
	root := newTestTree(t)
	b, wg := newInMemoryBridge(t, root, Config{})

	resources, err := b.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	waitServers(t, wg)

	names := map[string]bool{}
	for _, r := range resources {
		names[r.Name] = true
		if !strings.HasPrefix(r.URI, "file://") {
			t.Errorf("URI %q is not a file URI", r.URI)
		}
	}
	for _, want := range []string{"notes.txt", "docs/guide.md", "logo.bin", "unicode.txt"} {
		if !names[want] {
			t.Errorf("resource %q missing from %v", want, names)
		}
	}
}

func TestReadText(t *testing.T) {
	root := newTestTree(t)
	b, wg := newInMemoryBridge(t, root, Config{})

	uri, err := b.ResolveURI("notes.txt", "")
	if err != nil {
		t.Fatalf("ResolveURI: %v", err)
	}
	content, err := b.Read(context.Background(), uri)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	waitServers(t, wg)

	if content.Binary {
		t.Error("expected text content")
	}
	if content.Text != "hello from notes" {
		t.Errorf("Text = %q", content.Text)
	}
	if content.URI != uri {
		t.Errorf("URI = %q, want %q", content.URI, uri)
	}
	if content.MIMEType == "" {
		t.Error("MIMEType is empty")
	}
}

func TestReadBinary(t *testing.T) {
	root := newTestTree(t)
	b, wg := newInMemoryBridge(t, root, Config{})

	uri, _ := b.ResolveURI("logo.bin", "")
	content, err := b.Read(context.Background(), uri)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	waitServers(t, wg)

	if !content.Binary {
		t.Fatal("expected binary content")
	}
	if len(content.Blob) != 4 {
		t.Errorf("len(Blob) = %d, want 4", len(content.Blob))
	}
	if content.Text != "" {
		t.Errorf("Text = %q, want empty", content.Text)
	}
	if content.MIMEType != "application/octet-stream" {
		t.Errorf("MIMEType = %q", content.MIMEType)
	}
}

func TestReadTruncatesText(t *testing.T) {
	root := newTestTree(t)
	// "héllo wörld": 'é' spans bytes 1-2, so a 2-byte cut keeps only "h".
	b, wg := newInMemoryBridge(t, root, Config{MaxContentBytes: 2})

	uri, _ := b.ResolveURI("unicode.txt", "")
	content, err := b.Read(context.Background(), uri)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	waitServers(t, wg)

	if !content.Truncated {
		t.Error("expected Truncated")
	}
	if content.Text != "h" {
		t.Errorf("Text = %q, want %q", content.Text, "h")
	}
}

func TestReadNotFound(t *testing.T) {
	root := newTestTree(t)
	b, wg := newInMemoryBridge(t, root, Config{})

	uri, _ := b.ResolveURI("missing.txt", "")
	_, err := b.Read(context.Background(), uri)
	waitServers(t, wg)

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReadServerErrorIsNotNotFound(t *testing.T) {
	var wg sync.WaitGroup
	factory := func(ctx context.Context) (mcp.Transport, error) {
		server := mcp.NewServer(&mcp.Implementation{Name: "failing", Version: "1.0.0"}, nil)
		server.AddResource(&mcp.Resource{URI: "file:///x.txt", Name: "x.txt"},
			func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
				return nil, errors.New("decoder plugin not found on server")
			})
		serverTransport, clientTransport := mcp.NewInMemoryTransports()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = server.Run(context.Background(), serverTransport)
		}()
		return clientTransport, nil
	}
	b, err := NewWithTransport(Config{}, factory)
	if err != nil {
		t.Fatal(err)
	}

	_, err = b.Read(context.Background(), "file:///x.txt")
	waitServers(t, &wg)

	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want a resource server error", err)
	}
	if !strings.Contains(err.Error(), "decoder plugin not found on server") {
		t.Errorf("err = %v, want the server's message", err)
	}
}

func TestEveryOperationOpensNewSession(t *testing.T) {
	root := newTestTree(t)
	var wg sync.WaitGroup
	var dials atomic.Int32
	b, err := NewWithTransport(Config{Root: root}, inMemoryFactory(t, root, &wg, &dials))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := b.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	uri, _ := b.ResolveURI("notes.txt", "")
	if _, err := b.Read(ctx, uri); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := b.Read(ctx, uri+".missing"); err == nil {
		t.Fatal("expected error for missing resource")
	}
	waitServers(t, &wg)

	if got := dials.Load(); got != 3 {
		t.Errorf("opened %d sessions, want 3", got)
	}
}

func TestOperationsDoNotLeakGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := newTestTree(t)
	b, wg := newInMemoryBridge(t, root, Config{})

	ctx := context.Background()
	if _, err := b.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	uri, _ := b.ResolveURI("docs/guide.md", "")
	if _, err := b.Read(ctx, uri); err != nil {
		t.Fatalf("Read: %v", err)
	}
	missing, _ := b.ResolveURI("nope.txt", "")
	if _, err := b.Read(ctx, missing); err == nil {
		t.Fatal("expected error")
	}
	waitServers(t, wg)
}

func TestTransportFactoryError(t *testing.T) {
	boom := errors.New("boom")
	b, err := NewWithTransport(Config{}, func(context.Context) (mcp.Transport, error) {
		return nil, boom
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := b.Read(context.Background(), "file:///x"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if _, err := b.List(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestCanceledContext(t *testing.T) {
	root := newTestTree(t)
	b, _ := newInMemoryBridge(t, root, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.List(ctx); err == nil {
		t.Fatal("expected error with canceled context")
	}
}

func TestStdioSubprocess(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a subprocess")
	}
	root := newTestTree(t)

	b, err := New(Config{
		Transport: TransportStdio,
		Command:   os.Args[0],
		Env:       []string{envTestServer + "=1", envTestRoot + "=" + root},
		Root:      root,
		Timeout:   20 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	resources, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resources) != 4 {
		t.Errorf("listed %d resources, want 4", len(resources))
	}

	uri, _ := b.ResolveURI("docs/guide.md", "")
	content, err := b.Read(ctx, uri)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content.Text != "# Guide\n\nStep one." {
		t.Errorf("Text = %q", content.Text)
	}

	missing, _ := b.ResolveURI("missing.txt", "")
	if _, err := b.Read(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStdioCommandNotFound(t *testing.T) {
	b, err := New(Config{Command: filepath.Join(t.TempDir(), "no-such-server")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := b.Read(context.Background(), "file:///x"); err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestStreamableHTTPWithOAuth(t *testing.T) {
	root := newTestTree(t)

	var tokenCalls atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.FormValue("grant_type") != "client_credentials" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer","expires_in":3600}`, tokenCalls.Load())
	}))
	defer tokenSrv.Close()

	server, err := resourceserver.New(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	mcpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") || r.Header.Get("X-Tenant") != "acme" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		mcpHandler.ServeHTTP(w, r)
	}))
	defer mcpSrv.Close()

	b, err := New(Config{
		Transport: TransportStreamableHTTP,
		URL:       mcpSrv.URL,
		Headers:   map[string]string{"X-Tenant": "acme"},
		Auth: AuthConfig{
			Type:         "oauth_client_credentials",
			TokenURL:     tokenSrv.URL,
			ClientID:     "orch",
			ClientSecret: "secret",
		},
		Root: root,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	uri, _ := b.ResolveURI("notes.txt", "")
	content, err := b.Read(ctx, uri)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content.Text != "hello from notes" {
		t.Errorf("Text = %q", content.Text)
	}
	if _, err := b.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}

	if got := tokenCalls.Load(); got != 2 {
		t.Errorf("token endpoint called %d times, want 2 (one per operation)", got)
	}
}

func TestStreamableHTTPRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b, err := New(Config{Transport: TransportStreamableHTTP, URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.List(context.Background()); err == nil {
		t.Fatal("expected error from rejecting server")
	}
}

func TestOAuthTokenFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer tokenSrv.Close()

	b, err := New(Config{
		Transport: TransportSSE,
		URL:       "http://127.0.0.1:1/sse",
		Auth:      AuthConfig{Type: "oauth_client_credentials", TokenURL: tokenSrv.URL},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = b.List(context.Background())
	if err == nil || !strings.Contains(err.Error(), "OAuth") {
		t.Fatalf("err = %v, want OAuth token error", err)
	}
}
