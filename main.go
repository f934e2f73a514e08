package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"loft/internal/api"
	"loft/internal/archive"
	"loft/internal/config"
	"loft/internal/logging"
	"loft/internal/middleware"
	"loft/internal/pool"
	"loft/internal/revision"
	"loft/internal/watch"
	"loft/internal/workspace"

	"go.uber.org/zap"
)

const exportCacheSize = 256

func main() {
	// Load configuration; LOFT_CONFIG overrides the discovery path
	cfg, err := config.Load(os.Getenv("LOFT_CONFIG"))
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Initialize revision store
	store := revision.NewStore(cfg.Storage.Root, logger.Logger)
	if err := store.Bootstrap(); err != nil {
		logger.Fatal("failed to bootstrap revision store", zap.Error(err))
	}

	// Initialize workspace over the current revision
	ws := workspace.New(store, logger.Logger)

	// Initialize worker pool
	workers := pool.New(cfg.Pool.Workers, logger.Logger)

	// Initialize archive import/export
	importer := archive.NewImporter(store, archive.Limits{
		MaxEntries:    cfg.Archive.MaxEntries,
		MaxTotalBytes: cfg.Archive.MaxTotalBytes,
	}, logger.Logger)
	exporter, err := archive.NewExporter(store, exportCacheSize, logger.Logger)
	if err != nil {
		logger.Fatal("failed to initialize exporter", zap.Error(err))
	}

	// Watch the working copy for out-of-band changes
	watcher, err := watch.New(store.Dir(store.Head()), logger.Logger)
	if err != nil {
		logger.Warn("working copy watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	onHeadChange := func() {
		if watcher == nil {
			return
		}
		if err := watcher.Reroot(store.Dir(store.Head())); err != nil {
			logger.Warn("failed to re-root watcher", zap.Error(err))
		}
	}

	// Initialize handlers
	filesHandler := api.NewFilesHandler(ws, store, workers, logger.Logger)
	filesHandler.OnHeadChange = onHeadChange
	revisionsHandler := api.NewRevisionsHandler(store, importer, exporter, workers, logger.Logger)
	revisionsHandler.OnHeadChange = onHeadChange

	// Set up router
	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("GET /api/health", healthCheck)

	// Workspace endpoints
	mux.HandleFunc("GET /api/fs/list", filesHandler.List)
	mux.HandleFunc("GET /api/fs/read", filesHandler.Read)
	mux.HandleFunc("POST /api/fs/save", filesHandler.Save)
	mux.HandleFunc("POST /api/fs/write", filesHandler.Save)
	mux.HandleFunc("POST /api/fs/rename", filesHandler.Rename)
	mux.HandleFunc("POST /api/fs/delete", filesHandler.Delete)
	mux.HandleFunc("POST /api/fs/mkdir", filesHandler.Mkdir)
	mux.HandleFunc("GET /api/fs/search", filesHandler.Search)
	mux.HandleFunc("POST /api/fs/snapshot", filesHandler.Snapshot)

	// Revision endpoints
	mux.HandleFunc("GET /api/revisions", revisionsHandler.List)
	mux.HandleFunc("POST /api/revisions", revisionsHandler.Create)
	mux.HandleFunc("GET /api/revisions/file", revisionsHandler.File)

	// Apply middleware
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recover(logger),
	)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server",
		zap.String("address", addr),
		zap.String("storage", cfg.Storage.Root),
		zap.Uint64("head", store.Head()),
		zap.Int("workers", workers.Size()))

	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}
