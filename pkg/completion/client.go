package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sandbox-llm/orch/pkg/api"
	"github.com/sandbox-llm/orch/pkg/debug"
)

// Client sends prompts to the completion service. It makes exactly one
// attempt per call.
type Client struct {
	httpClient *http.Client
	cfg        Config
	host       string
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("completion url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing completion url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("completion url %q must use http or https", cfg.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("completion url %q has no host", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		host:       u.Host,
	}, nil
}

// Complete sends req and returns the completion. Failures are *api.APIError.
func (c *Client) Complete(ctx context.Context, req Request) (*Result, error) {
	wire := completionRequest{
		Model:       c.cfg.Model,
		Prompt:      req.Prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	if req.MaxTokens > 0 {
		wire.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		wire.Temperature = *req.Temperature
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	debug.Log("completion", "request", "url", c.cfg.URL, "max_tokens", wire.MaxTokens,
		"temperature", wire.Temperature, "prompt_bytes", len(wire.Prompt))
	debug.Trace("completion", "prompt", "prompt", wire.Prompt)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err, c.host)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var resp completionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		if isTimeout(err) {
			return nil, MapNetworkError(err, c.host)
		}
		return nil, api.NewUpstreamError(fmt.Sprintf("Error from LLM server: undecodable response: %s", err.Error()))
	}

	result := &Result{Usage: resp.Usage}
	switch {
	case resp.Response != nil:
		result.Text = *resp.Response
	case len(resp.Choices) > 0:
		result.Text = resp.Choices[0].Text
	}
	if isNull(result.Usage) {
		result.Usage = nil
	}

	debug.Log("completion", "response", "status", httpResp.StatusCode, "text_bytes", len(result.Text))
	return result, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
