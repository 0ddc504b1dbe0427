package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandbox-llm/orch/pkg/api"
)

// Logging returns middleware that emits one structured log entry per chat
// request. HTTP method, path and status are logged by the HTTP layer.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
			start := time.Now()

			resp, err := next.Chat(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.Duration("duration", time.Since(start)),
			}
			if req.File != "" {
				attrs = append(attrs, slog.String("file", req.File))
			}
			if req.Resource != "" {
				attrs = append(attrs, slog.String("resource", req.Resource))
			}
			if resp != nil {
				attrs = append(attrs, slog.String("exchange_id", resp.ID))
				if resp.Context != nil && resp.Context.Error != "" {
					attrs = append(attrs, slog.String("context_error", resp.Context.Error))
				}
			}

			if err != nil {
				apiErr := AsAPIError(err)
				attrs = append(attrs,
					slog.String("error_type", string(apiErr.Type)),
					slog.String("error", err.Error()),
				)
				level := slog.LevelError
				if HTTPStatusFromError(apiErr) < 500 {
					level = slog.LevelWarn
				}
				logger.LogAttrs(ctx, level, "chat failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "chat completed", attrs...)
			}

			return resp, err
		})
	}
}
