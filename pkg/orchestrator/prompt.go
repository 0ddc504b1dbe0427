package orchestrator

import (
	"fmt"
	"strings"

	"github.com/sandbox-llm/orch/pkg/api"
)

// ComposePrompt builds the completion prompt. content may be nil, in which
// case no context block is emitted. Binary content is described, not
// inlined.
func ComposePrompt(preamble, message string, content *api.ResourceContent) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")

	if content != nil {
		fmt.Fprintf(&b, "Context from %s:\n", content.URI)
		if content.Binary {
			fmt.Fprintf(&b, "[binary resource %s (%s, %d bytes) omitted]", content.URI, content.MIMEType, len(content.Blob))
		} else {
			b.WriteString(content.Text)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}
