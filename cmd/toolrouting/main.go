// Command toolrouting serves the routing and retrieval engine over
// stdio, HTTP, or SSE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonwraymond/toolrouting/config"
	"github.com/jonwraymond/toolrouting/index"
	"github.com/jonwraymond/toolrouting/provider"
	"github.com/jonwraymond/toolrouting/registry"
	"github.com/jonwraymond/toolrouting/retrieval"
	"github.com/jonwraymond/toolrouting/routing"
	"github.com/jonwraymond/toolrouting/server"
)

var version = "dev" // set at build time via ldflags

func main() {
	configPath := flag.String("config", "", "path to configuration file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "toolrouting: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := provider.NewHTTPClient(provider.HTTPConfig{
		BaseURL:         cfg.Provider.BaseURL,
		APIKey:          cfg.Provider.APIKey,
		EmbeddingModel:  cfg.Provider.EmbeddingModel,
		GenerationModel: cfg.Provider.GenerationModel,
		RerankModel:     cfg.Provider.RerankModel,
		Timeout:         cfg.Provider.Timeout,
		MaxTries:        uint(cfg.Provider.MaxTries),
	})
	if err != nil {
		return fmt.Errorf("build provider client: %w", err)
	}
	embedder := provider.NewCachingEmbedder(client, cfg.Provider.EmbeddingCacheEntries)

	reg := registry.New(registry.Config{Logger: logger})
	for _, backend := range cfg.Backends {
		err := reg.RegisterMCP(registry.BackendConfig{
			Name:     backend.Name,
			URL:      backend.URL,
			Headers:  backend.Headers,
			Keywords: backend.Keywords,
		})
		if err != nil {
			return fmt.Errorf("register backend %s: %w", backend.Name, err)
		}
	}
	if err := reg.Start(ctx); err != nil {
		return fmt.Errorf("start registry: %w", err)
	}
	defer func() { _ = reg.Stop() }()

	router := routing.New(reg, routing.Options{
		Embedder:            embedder,
		SimilarityThreshold: cfg.Routing.SimilarityThreshold,
		MinRuleConfidence:   cfg.Routing.MinRuleConfidence,
		Logger:              logger,
	})

	store := index.NewStore(index.StoreOptions{Embedder: embedder, Logger: logger})
	defer func() { _ = store.Close() }()

	retriever, err := retrieval.New(retrieval.Options{
		Store:            store,
		Embedder:         embedder,
		Transformer:      retrieval.NewTransformer(client, logger),
		Reranker:         client,
		Method:           retrieval.Method(cfg.Retrieval.Method),
		Rewrite:          cfg.Retrieval.Rewrite,
		HyDE:             cfg.Retrieval.HyDE,
		Rerank:           cfg.Retrieval.Rerank,
		TopK:             cfg.Retrieval.TopK,
		LegTopN:          cfg.Retrieval.LegTopN,
		RRFK:             cfg.Retrieval.RRFK,
		RerankCandidates: cfg.Retrieval.RerankCandidates,
		LegTimeout:       cfg.Retrieval.LegTimeout,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("build retriever: %w", err)
	}

	srv, err := server.New(server.Options{
		Registry:  reg,
		Router:    router,
		Retriever: retriever,
		Store:     store,
		Name:      "toolrouting",
		Version:   version,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	switch cfg.Server.Transport {
	case "stdio":
		logger.Info("serving on stdio")
		err = server.ServeStdio(ctx, srv)
	case "http":
		err = serveNetwork(ctx, logger, cfg.Server.Address, server.ServeHTTP(srv))
	case "sse":
		err = serveNetwork(ctx, logger, cfg.Server.Address, server.ServeSSE(srv))
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveNetwork(ctx context.Context, logger *zap.Logger, address string, handler http.Handler) error {
	httpSrv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("address", address))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	// Logs share stdout with JSON-RPC responses on stdio transport, so
	// always log to stderr.
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	return zapCfg.Build()
}
