// Command resource-server serves a directory tree as MCP resources, either
// over stdio (as a subprocess of the orchestrator) or over streamable HTTP
// on /mcp.
//
// Example bridge configuration for the stdio mode:
//
//	bridge:
//	  command: resource-server
//	  args: ["--root", "/srv/docs"]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sandbox-llm/orch/pkg/debug"
	"github.com/sandbox-llm/orch/pkg/resourceserver"
)

var (
	root          string
	transport     string
	addr          string
	maxFiles      int
	includeHidden bool
)

var rootCmd = &cobra.Command{
	Use:          "resource-server",
	Short:        "Serve a directory as MCP resources",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&root, "root", ".", "directory to serve")
	f.StringVar(&transport, "transport", "stdio", `"stdio" or "http"`)
	f.StringVar(&addr, "addr", ":8090", "listen address for the http transport")
	f.IntVar(&maxFiles, "max-files", 0, "maximum number of files advertised by resources/list")
	f.BoolVar(&includeHidden, "include-hidden", false, "list and serve dot files")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// stdout carries the protocol in stdio mode; logs go to stderr.
	debug.Init(debug.Options{Output: os.Stderr})

	server, err := resourceserver.New(root, &resourceserver.Options{
		MaxFiles:      maxFiles,
		IncludeHidden: includeHidden,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch transport {
	case "stdio":
		return server.Run(ctx, &mcp.StdioTransport{})
	case "http":
		return serveHTTP(ctx, server)
	default:
		return fmt.Errorf("unknown transport %q", transport)
	}
}

func serveHTTP(ctx context.Context, server *mcp.Server) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("resource server starting", "addr", addr, "root", root)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("resource server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
