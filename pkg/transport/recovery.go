package transport

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/sandbox-llm/orch/pkg/api"
)

// Recovery turns a panic inside the chat pipeline into a plain
// "Internal server error" for the client. The panic value and stack go
// to the log, tagged with the request ID, and never into the response.
func Recovery() Middleware {
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest) (resp *api.ChatResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logPanic(ctx, r)
					resp, err = nil, api.NewServerError("Internal server error")
				}
			}()
			return next.Chat(ctx, req)
		})
	}
}

func logPanic(ctx context.Context, r any) {
	slog.ErrorContext(ctx, "chat handler panicked",
		"request_id", RequestIDFromContext(ctx),
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
