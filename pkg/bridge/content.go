package bridge

import (
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sandbox-llm/orch/pkg/api"
)

const (
	defaultTextMIME   = "text/plain"
	defaultBinaryMIME = "application/octet-stream"
)

// extractContent turns a resources/read result into an api.ResourceContent.
// Only the first content item is used. Text longer than maxBytes is cut at
// a rune boundary.
func extractContent(uri string, result *mcp.ReadResourceResult, maxBytes int) *api.ResourceContent {
	out := &api.ResourceContent{URI: uri, MIMEType: defaultTextMIME}
	if result == nil || len(result.Contents) == 0 || result.Contents[0] == nil {
		return out
	}

	rc := result.Contents[0]
	if rc.URI != "" {
		out.URI = rc.URI
	}

	if rc.Blob != nil {
		out.Binary = true
		out.Blob = rc.Blob
		out.MIMEType = defaultBinaryMIME
		if rc.MIMEType != "" {
			out.MIMEType = rc.MIMEType
		}
		return out
	}

	if rc.MIMEType != "" {
		out.MIMEType = rc.MIMEType
	}
	out.Text, out.Truncated = truncateUTF8(rc.Text, maxBytes)
	return out
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) (string, bool) {
	if n <= 0 || len(s) <= n {
		return s, false
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// convertResource converts an MCP Resource to an api.ResourceInfo.
func convertResource(r *mcp.Resource) api.ResourceInfo {
	return api.ResourceInfo{
		URI:         r.URI,
		Name:        r.Name,
		Title:       r.Title,
		Description: r.Description,
		MIMEType:    r.MIMEType,
		Size:        r.Size,
	}
}
