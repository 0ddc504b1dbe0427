// Package resourceserver exposes a directory tree as MCP resources. Every
// regular file under the root is advertised as a file:// resource and can
// be read as text (valid UTF-8) or as a blob.
package resourceserver

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultName     = "orch-resource-server"
	defaultVersion  = "1.0.0"
	defaultMaxFiles = 10000
)

// Options configures the server. The zero value is usable.
type Options struct {
	Name    string
	Version string

	// MaxFiles caps the number of files advertised by resources/list.
	// Files beyond the cap can still be read.
	MaxFiles int

	// IncludeHidden advertises and serves dot files and the contents of
	// dot directories. Without it they are neither listed nor readable.
	IncludeHidden bool
}

// New returns an MCP server serving the files under root.
func New(root string, opts *Options) (*mcp.Server, error) {
	if opts == nil {
		opts = &Options{}
	}
	name, version := opts.Name, opts.Version
	if name == "" {
		name = defaultName
	}
	if version == "" {
		version = defaultVersion
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", absRoot)
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", absRoot, err)
	}

	fr := &fileReader{root: absRoot, realRoot: realRoot, includeHidden: opts.IncludeHidden}
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	count := 0
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != absRoot && !opts.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if count >= maxFiles {
			return fs.SkipAll
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}

		server.AddResource(&mcp.Resource{
			URI:      FileURI(path),
			Name:     filepath.ToSlash(rel),
			MIMEType: mimeType(path, ""),
			Size:     fi.Size(),
		}, fr.read)
		count++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking root: %w", err)
	}

	// Files created after startup are readable through the template.
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "file:///{+path}",
		Name:        "file",
		Description: "Any file under " + absRoot,
	}, fr.read)

	return server, nil
}

// FileURI returns the file:// URI of an absolute path.
func FileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

type fileReader struct {
	// root is the absolute root as configured; resource URIs are built on it.
	root string
	// realRoot is root with symlinks evaluated.
	realRoot      string
	includeHidden bool
}

func (f *fileReader) read(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI

	path, ok := f.resolve(uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}

	content := &mcp.ResourceContents{URI: uri}
	if utf8.Valid(data) {
		content.MIMEType = mimeType(path, "text/plain")
		content.Text = string(data)
	} else {
		content.MIMEType = mimeType(path, "application/octet-stream")
		content.Blob = data
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{content}}, nil
}

// resolve maps a file:// URI to a path under the root. The URI path and
// the file it points to after following symlinks must both stay inside
// the root, and hidden segments are refused unless includeHidden is set.
func (f *fileReader) resolve(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	path := filepath.Clean(filepath.FromSlash(u.Path))
	if !f.allowed(f.root, path) {
		return "", false
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil || !f.allowed(f.realRoot, target) {
		return "", false
	}
	return target, true
}

func (f *fileReader) allowed(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if f.includeHidden {
		return true
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if seg != "." && strings.HasPrefix(seg, ".") {
			return false
		}
	}
	return true
}

// mimeType guesses a MIME type from the file extension.
func mimeType(path, fallback string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return fallback
}
