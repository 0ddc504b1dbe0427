package bridge

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ResolveURI returns the resource URI named by a chat request. A resource
// URI is used verbatim. A file path becomes a file:// URI; relative paths
// are joined onto the configured root. When neither is set, the result is
// empty.
func (b *Bridge) ResolveURI(file, resource string) (string, error) {
	return resolveURI(b.cfg.Root, file, resource)
}

func resolveURI(root, file, resource string) (string, error) {
	if resource != "" {
		u, err := url.Parse(resource)
		if err != nil || u.Scheme == "" {
			return "", fmt.Errorf("invalid resource URI %q", resource)
		}
		return resource, nil
	}

	file = strings.TrimSpace(file)
	if file == "" {
		return "", nil
	}

	path := file
	if !filepath.IsAbs(path) {
		if root == "" {
			return "", fmt.Errorf("relative path %q needs a configured bridge root", file)
		}
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}
