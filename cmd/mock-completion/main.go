// Command mock-completion runs a deterministic completion server for local
// development and end-to-end tests. It answers POST /v1/completions with
// predictable text derived from the prompt.
//
// Configuration:
//
//	MOCK_PORT   - Listen port (default: 8001)
//	MOCK_FORMAT - "response" (default) for {"response", "usage"} bodies,
//	              "choices" for OpenAI-style {"choices": [{"text"}]} bodies
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

// errorMarker in a prompt makes the server fail the request.
const errorMarker = "[mock:error]"

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "8001"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newHandler(os.Getenv("MOCK_FORMAT") == "choices"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock completion server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock completion server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock completion server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type completionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type choice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

func newHandler(choices bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/completions", func(w http.ResponseWriter, r *http.Request) {
		handleCompletion(w, r, choices)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

func handleCompletion(w http.ResponseWriter, r *http.Request, choices bool) {
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}
	if strings.Contains(req.Prompt, errorMarker) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "mock failure requested"})
		return
	}

	text := respond(req.Prompt)
	u := usage{PromptTokens: wordCount(req.Prompt), CompletionTokens: wordCount(text)}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens

	if choices {
		model := req.Model
		if model == "" {
			model = "mock-model"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "cmpl-mock",
			"object":  "text_completion",
			"model":   model,
			"choices": []choice{{Text: text, FinishReason: "stop"}},
			"usage":   u,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": text, "usage": u})
}

// respond derives the answer from the user message and any context block.
func respond(prompt string) string {
	message := prompt
	if i := strings.LastIndex(prompt, "User: "); i >= 0 {
		message = prompt[i+len("User: "):]
	}
	message = strings.TrimSuffix(message, "\nAssistant:")

	switch {
	case strings.Contains(strings.ToLower(message), "count from 1 to 5"):
		return "1, 2, 3, 4, 5"
	case strings.Contains(prompt, "Context from "):
		uri := prompt[strings.Index(prompt, "Context from ")+len("Context from "):]
		uri, _, _ = strings.Cut(uri, ":\n")
		return fmt.Sprintf("I read %s. You asked: %s", uri, message)
	default:
		return "Hello, nice day!"
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
