package resourceserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// connect starts server over in-memory transports and returns a client
// session that is closed when the test ends.
func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("hello from notes"))
	writeFile(t, filepath.Join(root, "docs", "guide.md"), []byte("# Guide"))
	writeFile(t, filepath.Join(root, "image.bin"), []byte{0xff, 0xfe, 0x00, 0x01})
	writeFile(t, filepath.Join(root, ".secret", "key"), []byte("hidden"))
	writeFile(t, filepath.Join(root, ".env"), []byte("A=1"))
	return root
}

func TestListResources(t *testing.T) {
	root := newTree(t)
	server, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)

	got := map[string]*mcp.Resource{}
	for r, err := range session.Resources(context.Background(), nil) {
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		got[r.Name] = r
	}

	for _, name := range []string{"notes.txt", "docs/guide.md", "image.bin"} {
		if _, ok := got[name]; !ok {
			t.Errorf("resource %q not listed", name)
		}
	}
	for _, name := range []string{".env", ".secret/key"} {
		if _, ok := got[name]; ok {
			t.Errorf("hidden resource %q listed", name)
		}
	}

	notes := got["notes.txt"]
	if notes == nil {
		t.FailNow()
	}
	if want := FileURI(filepath.Join(root, "notes.txt")); notes.URI != want {
		t.Errorf("URI = %q, want %q", notes.URI, want)
	}
	if notes.Size != int64(len("hello from notes")) {
		t.Errorf("Size = %d", notes.Size)
	}
}

func TestListRespectsMaxFiles(t *testing.T) {
	root := newTree(t)
	server, err := New(root, &Options{MaxFiles: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)

	n := 0
	for _, err := range session.Resources(context.Background(), nil) {
		if err != nil {
			t.Fatalf("listing: %v", err)
		}
		n++
	}
	if n != 1 {
		t.Errorf("listed %d resources, want 1", n)
	}
}

func TestReadText(t *testing.T) {
	root := newTree(t)
	server, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)

	uri := FileURI(filepath.Join(root, "notes.txt"))
	res, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(res.Contents))
	}
	c := res.Contents[0]
	if c.Text != "hello from notes" {
		t.Errorf("Text = %q", c.Text)
	}
	if c.Blob != nil {
		t.Errorf("Blob = %v, want nil", c.Blob)
	}
	if c.MIMEType == "" {
		t.Error("MIMEType is empty")
	}
}

func TestReadBinary(t *testing.T) {
	root := newTree(t)
	server, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)

	uri := FileURI(filepath.Join(root, "image.bin"))
	res, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	c := res.Contents[0]
	if len(c.Blob) != 4 || c.Blob[0] != 0xff {
		t.Errorf("Blob = %v", c.Blob)
	}
	if c.MIMEType != "application/octet-stream" {
		t.Errorf("MIMEType = %q", c.MIMEType)
	}
}

func TestReadFileCreatedAfterStart(t *testing.T) {
	root := newTree(t)
	server, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)

	path := filepath.Join(root, "later.txt")
	writeFile(t, path, []byte("late arrival"))

	res, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: FileURI(path)})
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if res.Contents[0].Text != "late arrival" {
		t.Errorf("Text = %q", res.Contents[0].Text)
	}
}

func TestReadNotFound(t *testing.T) {
	root := newTree(t)
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "other.txt"), []byte("outside"))

	server, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)

	tests := []struct {
		name string
		uri  string
	}{
		{"missing file", FileURI(filepath.Join(root, "missing.txt"))},
		{"outside root", FileURI(filepath.Join(outside, "other.txt"))},
		{"escaping root", "file://" + filepath.ToSlash(root) + "/../" + filepath.Base(outside) + "/other.txt"},
		{"directory", FileURI(filepath.Join(root, "docs"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: tt.uri})
			if err == nil {
				t.Fatalf("expected error for %s", tt.uri)
			}
		})
	}
}

func TestNewRejectsBadRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	writeFile(t, file, []byte("x"))

	if _, err := New(filepath.Join(root, "missing"), nil); err == nil {
		t.Error("expected error for missing root")
	}
	if _, err := New(file, nil); err == nil {
		t.Error("expected error for file root")
	}
}

func TestReadRejectsSymlinkEscape(t *testing.T) {
	root := newTree(t)
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.txt"), []byte("TOP SECRET"))

	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "secret-link.txt")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "notes.txt"), filepath.Join(root, "notes-link.txt")); err != nil {
		t.Fatal(err)
	}

	server, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)
	ctx := context.Background()

	for _, name := range []string{"link/secret.txt", "secret-link.txt"} {
		uri := FileURI(filepath.Join(root, name))
		res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		if err == nil {
			t.Errorf("%s: read %q, want resource not found", name, res.Contents[0].Text)
		}
	}

	res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: FileURI(filepath.Join(root, "notes-link.txt"))})
	if err != nil {
		t.Fatalf("symlink inside root: %v", err)
	}
	if res.Contents[0].Text != "hello from notes" {
		t.Errorf("Text = %q", res.Contents[0].Text)
	}
}

func TestReadHiddenFiles(t *testing.T) {
	root := newTree(t)
	ctx := context.Background()
	hidden := []string{".env", ".secret/key"}

	server, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session := connect(t, server)
	for _, name := range hidden {
		uri := FileURI(filepath.Join(root, name))
		if _, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri}); err == nil {
			t.Errorf("%s readable without IncludeHidden", name)
		}
	}

	server, err = New(root, &Options{IncludeHidden: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	session = connect(t, server)
	for _, name := range hidden {
		uri := FileURI(filepath.Join(root, name))
		if _, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri}); err != nil {
			t.Errorf("%s with IncludeHidden: %v", name, err)
		}
	}
}
