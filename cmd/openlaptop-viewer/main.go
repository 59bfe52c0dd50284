// openlaptop-viewer serves the OpenLaptop model viewer API, the published GLB
// models and the admin endpoints that regenerate them.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openlaptop/viewer/internal/api"
	"github.com/openlaptop/viewer/internal/auth"
	"github.com/openlaptop/viewer/internal/config"
	"github.com/openlaptop/viewer/internal/database"
	"github.com/openlaptop/viewer/internal/logger"
	"github.com/openlaptop/viewer/internal/manifest"
	"github.com/openlaptop/viewer/internal/performance"
	"github.com/openlaptop/viewer/internal/storage"
	"github.com/openlaptop/viewer/internal/workflow"
)

const shutdownTimeout = 15 * time.Second

func main() {
	hashToken := flag.String("hash-admin-token", "", "print a bcrypt hash for ADMIN_TOKEN_HASH and exit")
	flag.Parse()

	if *hashToken != "" {
		hash, err := auth.HashAdminToken(*hashToken, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	if err := run(cfg, logr); err != nil {
		logr.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	for _, warning := range cfg.Warnings {
		logr.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	store, dispatches, db, err := openStorage(ctx, cfg, logr)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	workflowClient, err := workflow.NewClient(cfg.Workflow, logr)
	if err != nil {
		return err
	}
	if !workflowClient.Configured() {
		logr.Warn("GITHUB_TOKEN not set, workflow dispatch is disabled")
	}

	verifier := auth.NewAdminVerifier(cfg)
	if !verifier.Configured() {
		logr.Warn("No admin token configured, admin endpoints will reject every request")
	}
	sessions := auth.NewSessionService(cfg)
	if sessions.Ephemeral() {
		logr.Warn("SESSION_SECRET not set, admin sessions will not survive a restart")
	}

	manifests := manifest.NewStore(store)
	if _, err := manifests.Refresh(ctx); err != nil {
		logr.Warn("Initial manifest load failed", zap.Error(err))
	}

	hub := api.NewEventHub(cfg.Server.AllowedOrigins, logr)
	go hub.Run(ctx)

	profiler := performance.NewProfiler(true)

	router := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Catalog:    catalog,
		Store:      store,
		Manifests:  manifests,
		Workflow:   workflowClient,
		Dispatches: dispatches,
		Hub:        hub,
		Profiler:   profiler,
		Auth:       auth.NewHandlers(verifier, sessions, logr),
		Log:        logr,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logr.Info("OpenLaptop viewer server starting",
			zap.String("address", server.Addr),
			zap.String("environment", cfg.Server.Environment),
			zap.String("storage", cfg.Storage.Backend),
			zap.Int("projects", len(catalog.Projects)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logr.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	profiler.LogReport(logr)
	return nil
}

// openStorage selects the model store. The dispatch log and database handle
// are nil for the file backend.
func openStorage(ctx context.Context, cfg *config.Config, logr *zap.Logger) (storage.Store, api.DispatchLog, *sql.DB, error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		db, err := database.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		logr.Info("Using PostgreSQL model storage", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		return database.NewModelStorage(db), database.NewDispatchStorage(db), db, nil

	default:
		store, err := storage.NewFileStore(cfg.Storage.ModelsDir)
		if err != nil {
			return nil, nil, nil, err
		}
		logr.Info("Using file model storage", zap.String("dir", store.Root()))
		return store, nil, nil, nil
	}
}
