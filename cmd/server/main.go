package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/config"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
	firestorerepo "github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/firestore"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/instrumented"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/memory"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/mongodb"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/sheets"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/scheduler"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/server/handlers"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/server/router"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/deletion"
	exportsvc "github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/export"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/listing"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/workspace"
	firestoreclient "github.com/jyunichimaruta/TruckMaintenanceApp/pkg/clients/firestore"
	"github.com/jyunichimaruta/TruckMaintenanceApp/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	m := metrics.New()

	store, closeStore, err := openStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init record store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer closeStore()

	repo := instrumented.Wrap(store, m, baseLogger.Named("repo"))

	loc := cfg.Location()
	builder := listing.NewBuilder(loc)
	listingSvc := listing.NewService(repo, builder, baseLogger.Named("svc.listing"))
	deletions := deletion.NewCoordinator(repo, m, baseLogger.Named("svc.deletion"))

	ws := workspace.New(repo, listingSvc, deletions, m, cfg.Workspace.IdleTTL, baseLogger.Named("workspace"))
	defer ws.Close()

	var exporter scheduler.Exporter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = exportsvc.NewService(listingSvc, sheetsRepo, cfg.Sheets.Range, baseLogger.Named("svc.export"))
		baseLogger.Info("sheets export enabled", zap.String("range", cfg.Sheets.Range))
	} else {
		baseLogger.Warn("GOOGLE_SHEET_DATABASE_ID missing, daily export disabled")
	}

	sched := scheduler.NewScheduler(cfg.Export.CronSchedule, loc, exporter, ws, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	engine := router.New(router.Handlers{
		Records:   handlers.NewRecordsHandler(repo, listingSvc, deletions, baseLogger.Named("handlers.records")),
		Sessions:  handlers.NewSessionsHandler(ws, baseLogger.Named("handlers.sessions")),
		Views:     handlers.NewViewsHandler(ws, builder, baseLogger.Named("handlers.views")),
		Deletions: handlers.NewDeletionsHandler(ws, baseLogger.Named("handlers.deletions")),
	}, m, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.RecordRepository, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case config.BackendMongoDB:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.MongoDB.Collection)
		if err != nil {
			return nil, noop, err
		}
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				log.Error("failed to close mongodb connection", zap.Error(err))
			}
		}, nil
	case config.BackendFirestore:
		c := firestoreclient.NewClient(cfg.Firestore)
		return firestorerepo.NewFirestoreRepository(c, cfg.Firestore.Collection, log.Named("repo.firestore")), noop, nil
	case config.BackendMemory:
		log.Warn("using in-memory record store, data is lost on restart")
		return memory.New(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
