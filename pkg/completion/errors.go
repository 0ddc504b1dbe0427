package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/sandbox-llm/orch/pkg/api"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4096

// MapHTTPError converts a non-2xx completion response into an upstream
// APIError carrying the service's own explanation.
func MapHTTPError(resp *http.Response) *api.APIError {
	detail := ExtractErrorDetail(resp.Body)
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return api.NewUpstreamError("Error from LLM server: " + detail)
}

// MapNetworkError converts a failed round trip into an APIError. Refused
// or failed dials mean the service is not running; deadlines map to a
// timeout.
func MapNetworkError(err error, host string) *api.APIError {
	switch {
	case isTimeout(err):
		return api.NewUpstreamTimeoutError(fmt.Sprintf("The LLM service at %s did not respond in time.", host))
	case isUnavailable(err):
		return api.NewUpstreamUnavailableError(fmt.Sprintf("Could not connect to the LLM service at %s. Is it running?", host))
	default:
		return api.NewServerError("Internal server error")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isUnavailable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// ExtractErrorDetail reads an error body and returns the most specific
// message it carries: a FastAPI style "detail" (string or structured),
// an OpenAI style "error.message", a plain "error" string, or the raw
// body text.
func ExtractErrorDetail(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return strings.TrimSpace(string(data))
	}

	if raw, ok := fields["detail"]; ok && !isNull(raw) {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return string(raw)
	}

	if raw, ok := fields["error"]; ok && !isNull(raw) {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}

	if raw, ok := fields["message"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}

	return ""
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
