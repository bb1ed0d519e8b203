// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/harwell/attest/internal/agent"
	"github.com/harwell/attest/internal/answer"
	"github.com/harwell/attest/internal/api"
	"github.com/harwell/attest/internal/audit"
	"github.com/harwell/attest/internal/catalog"
	"github.com/harwell/attest/internal/checklist"
	"github.com/harwell/attest/internal/evidence"
	"github.com/harwell/attest/internal/events"
	"github.com/harwell/attest/internal/generation"
	"github.com/harwell/attest/internal/ingest"
	"github.com/harwell/attest/internal/mcpserver"
	"github.com/harwell/attest/internal/policy"
	"github.com/harwell/attest/internal/storage"
	"github.com/harwell/attest/internal/valuation"
)

// pipeline holds the fully wired decision loop and its supporting
// services, shared by the HTTP server and the stdio MCP server.
type pipeline struct {
	catalog  *catalog.DB
	trail    *audit.Trail
	guard    *policy.Guard
	analyzer *checklist.Analyzer
	agent    *agent.Agent
	ingest   *ingest.Service
	broker   *events.Broker
}

func (p *pipeline) close() {
	if p.broker != nil {
		p.broker.Close()
	}
	if p.trail != nil {
		p.trail.Close()
	}
	if p.catalog != nil {
		p.catalog.Close()
	}
}

// buildPipeline wires every component from configuration. withEvents
// controls whether an SSE broker is attached (the stdio server has no
// use for one).
func buildPipeline(cfg *Config, logger *slog.Logger, withEvents bool) (*pipeline, error) {
	if err := os.MkdirAll(cfg.Corpus.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create corpus dir: %w", err)
	}
	corpus, err := storage.NewFS(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("init corpus storage: %w", err)
	}

	p := &pipeline{}
	p.catalog, err = catalog.Open(cfg.SQLite.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	p.trail, err = audit.Open(cfg.SQLite.AuditPath)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("init audit trail: %w", err)
	}

	policyCfg, err := policy.LoadConfig(cfg.Policy.Path)
	if err != nil {
		p.close()
		return nil, err
	}
	p.guard = policy.NewGuard(policyCfg)

	checklistCfg, err := checklist.LoadConfig(cfg.Policy.ChecklistPath)
	if err != nil {
		p.close()
		return nil, err
	}

	var port generation.Port
	switch cfg.Generation.Provider {
	case ProviderOpenAI:
		port = generation.NewOpenAIPort(cfg.Generation.APIKey, cfg.Generation.Model,
			generation.WithBaseURL(cfg.Generation.BaseURL),
			generation.WithTimeout(cfg.Generation.Timeout()))
	default:
		port = &generation.MockPort{}
	}

	store := evidence.NewCatalogStore(p.catalog, nil)
	retriever := evidence.NewRetriever(store, cfg.Retrieval.MinScore, cfg.Retrieval.Timeout(), logger)
	synth := answer.NewSynthesizer(retriever, port, logger)

	p.analyzer = checklist.NewAnalyzer(p.catalog, port, checklistCfg,
		cfg.Retrieval.MinScore, cfg.Retrieval.Timeout(), cfg.Policy.Workers, logger)

	if withEvents {
		p.broker = events.NewBroker(30 * time.Second)
	}

	val := valuation.NewClient(cfg.Valuation.BaseURL, cfg.Valuation.Timeout())
	p.agent = agent.New(synth, p.guard, p.analyzer, p.catalog, val, p.trail, p.broker, logger)
	p.ingest = ingest.NewService(p.catalog, corpus, p.broker, logger)
	return p, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg)
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("catalog_path", cfg.SQLite.CatalogPath),
		slog.String("audit_path", cfg.SQLite.AuditPath),
		slog.String("corpus_path", cfg.Corpus.Path),
		slog.String("generation_provider", cfg.Generation.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	p, err := buildPipeline(cfg, logger, true)
	if err != nil {
		return err
	}
	defer p.close()

	handler := api.NewHandler(p.agent, p.ingest, p.catalog, p.guard, p.trail)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, p.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Hot reload of policy and checklist definitions.
	reloads := map[string]policy.ReloadFunc{}
	if cfg.Policy.Path != "" {
		reloads[cfg.Policy.Path] = func() error {
			next, loadErr := policy.LoadConfig(cfg.Policy.Path)
			if loadErr != nil {
				return loadErr
			}
			p.guard.Reload(next)
			return nil
		}
	}
	if cfg.Policy.ChecklistPath != "" {
		reloads[cfg.Policy.ChecklistPath] = func() error {
			next, loadErr := checklist.LoadConfig(cfg.Policy.ChecklistPath)
			if loadErr != nil {
				return loadErr
			}
			p.analyzer.Reload(next)
			return nil
		}
	}
	g.Go(func() error {
		if watchErr := policy.Watch(gCtx, logger, reloads); watchErr != nil {
			logger.Warn("policy watcher unavailable", slog.String("error", watchErr.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", serveErr)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutErr := httpServer.Shutdown(shutdownCtx); shutErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutErr.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the stdio MCP server with the given options. Logs go to
// stderr so stdout stays clean for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	p, err := buildPipeline(cfg, logger, false)
	if err != nil {
		return err
	}
	defer p.close()

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(p.agent).ServeStdio()
}
