package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sitesearch/internal/config"
	"github.com/rpggio/sitesearch/internal/domain/analytics"
	"github.com/rpggio/sitesearch/internal/domain/search"
	"github.com/rpggio/sitesearch/internal/mcp"
	"github.com/rpggio/sitesearch/internal/sqlite"
	"github.com/rpggio/sitesearch/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Stdio mode keeps stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("SITESEARCH_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	index, closeIndex, err := openIndex(cfg.Index, logger)
	if err != nil {
		logger.Error("failed to open search index", "backend", cfg.Index.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeIndex(); err != nil {
			logger.Warn("failed to close search index", "error", err)
		}
	}()

	searchSvc := search.NewService(index, logger, search.WithSuggestLimits(cfg.Suggest.MinLength, cfg.Suggest.Limit))
	analyticsSvc := analytics.NewService(sqlite.NewInteractionRepository(db), logger)
	defer analyticsSvc.Wait()

	resolver := transport.NewKeyResolver(sqlite.NewViewerRepository(db))

	mcpServices := mcp.Services{Search: searchSvc}
	if cfg.Analytics.Enabled {
		mcpServices.Analytics = analyticsSvc
	}
	mcpServer := mcp.NewServer(mcp.Config{
		Services:         mcpServices,
		Resolver:         resolver,
		AuthEnabled:      cfg.Auth.Enabled,
		TransportMode:    cfg.Transport.Mode,
		Logger:           logger,
		LocationFallback: cfg.Analytics.LocationFallback,
		Production:       cfg.Production(),
	})

	logger.Info("search index ready", "backend", cfg.Index.Backend, "analytics", cfg.Analytics.Enabled)

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	restCfg := transport.Config{
		Search:           searchSvc,
		Logger:           logger,
		Auth:             transport.AuthMiddleware(resolver, cfg.Auth.Enabled),
		LocationFallback: cfg.Analytics.LocationFallback,
		Production:       cfg.Production(),
		SuggestDebounce:  cfg.Suggest.Debounce,
		SuggestMinLength: searchSvc.MinSuggestLength(),
		SuggestTimeout:   cfg.Index.Timeout,
	}
	if cfg.Analytics.Enabled {
		restCfg.Analytics = analyticsSvc
	}
	runHTTPMode(logger, transport.NewServer(restCfg), mcpServer, cfg.Server.Host, cfg.Server.Port)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or the context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("stdio server error", "error", err)
	}
	logger.Info("shutting down")
}

func runHTTPMode(logger *slog.Logger, router *chi.Mux, mcpServer *sdkmcp.Server, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/*", mcpHandler)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and trims it to its newest
// keepLogSizeBytes once it grows past maxLogSizeBytes.
type logFileWriter struct {
	file *os.File
	mu   sync.Mutex
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{file: file}
	if err := writer.trim(); err != nil {
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.trim()
}

func (w *logFileWriter) trim() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= maxLogSizeBytes {
		return nil
	}

	tail := make([]byte, keepLogSizeBytes)
	n, err := w.file.ReadAt(tail, size-keepLogSizeBytes)
	if err != nil && err != io.EOF {
		return err
	}

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end regardless of offset.
	_, err = w.file.Write(tail[:n])
	return err
}
