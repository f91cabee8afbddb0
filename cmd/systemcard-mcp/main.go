// Command systemcard-mcp serves an AI system card as read-only MCP resources
// over HTTP.
//
// Startup loads the card, compiles the schema and validates the card once.
// Any failure exits with status 1 before a listener is opened.
//
// Usage:
//
//	systemcard-mcp <system_card_path> <schema_path> [--host H] [--port P]
//	systemcard-mcp <system_card_path> <schema_path> --stdio
//
// Defaults come from SYSTEMCARD_* environment variables; flags win.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ggoodman/systemcard-mcp/document"
	"github.com/ggoodman/systemcard-mcp/internal/config"
	"github.com/ggoodman/systemcard-mcp/internal/logging"
	"github.com/ggoodman/systemcard-mcp/internal/validation"
	"github.com/ggoodman/systemcard-mcp/mcpservice"
	"github.com/ggoodman/systemcard-mcp/stdio"
	"github.com/ggoodman/systemcard-mcp/streaminghttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(logOut io.Writer) *cobra.Command {
	def := config.Default()
	var (
		flags    config.Config
		useStdio bool
	)

	cmd := &cobra.Command{
		Use:           "systemcard-mcp <system_card_path> <schema_path>",
		Short:         "Serve an AI system card as MCP resources over HTTP",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logging.New(logOut, cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}

			server, err := startup(cmd.Context(), log, args[0], args[1])
			if err != nil {
				return err
			}

			if useStdio {
				return serveStdio(cmd.Context(), stdio.NewHandler(server,
					stdio.WithLogger(log),
					stdio.WithMaxMessageBytes(int(min(cfg.MaxBodyBytes, math.MaxInt32))),
				))
			}

			h, err := streaminghttp.New(server,
				streaminghttp.WithLogger(log),
				streaminghttp.WithMaxBodyBytes(cfg.MaxBodyBytes),
			)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), log, cfg.Addr(), h)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.Host, "host", def.Host, "host to bind to")
	f.IntVar(&flags.Port, "port", def.Port, "port to bind to")
	f.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&flags.LogFormat, "log-format", def.LogFormat, "log format (text, json)")
	f.BoolVar(&useStdio, "stdio", false, "serve over stdin/stdout instead of HTTP")

	return cmd
}

// applyFlags copies explicitly set flags over the environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host = flags.Host
	}
	if f.Changed("port") {
		cfg.Port = flags.Port
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = flags.LogFormat
	}
}

// requireFile reports a missing input file by name.
func requireFile(kind, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s file not found: %s", kind, path)
		}
		return fmt.Errorf("%s file: %w", kind, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s path is a directory: %s", kind, path)
	}
	return nil
}

// startup loads and validates the card and returns the server for it. No
// transport is started until startup succeeds.
func startup(ctx context.Context, log *slog.Logger, cardPath, schemaPath string) (*mcpservice.Server, error) {
	if err := requireFile("system card", cardPath); err != nil {
		return nil, err
	}
	if err := requireFile("schema", schemaPath); err != nil {
		return nil, err
	}

	doc, err := document.Load(cardPath)
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "startup.document.ok", slog.String("path", cardPath))

	schema, err := validation.LoadSchemaFile(schemaPath)
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "startup.schema.ok", slog.String("path", schemaPath))

	if err := validation.Check(doc.Tree(), schema); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "startup.validation.ok", slog.String("card", cardPath))

	return mcpservice.NewServer(doc, mcpservice.WithLogger(log)), nil
}

// serveStdio runs the stdio transport. Cancellation is a clean exit.
func serveStdio(ctx context.Context, h *stdio.Handler) error {
	if err := h.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func serve(ctx context.Context, log *slog.Logger, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.InfoContext(ctx, "http.listen", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("http.shutdown.start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("http.shutdown.ok")
	return nil
}
