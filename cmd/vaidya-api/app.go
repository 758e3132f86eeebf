package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/TeamVaidya/prescription/internal/config"
	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
	v1 "github.com/TeamVaidya/prescription/internal/handler/v1"
	"github.com/TeamVaidya/prescription/internal/repository/memory"
	"github.com/TeamVaidya/prescription/internal/repository/postgres"
	"github.com/TeamVaidya/prescription/internal/service"
	"github.com/TeamVaidya/prescription/pkg/blobstore"
	"github.com/TeamVaidya/prescription/pkg/database"
	"github.com/TeamVaidya/prescription/pkg/events"
	"github.com/TeamVaidya/prescription/pkg/logger"
	"github.com/TeamVaidya/prescription/pkg/metrics"
	"github.com/TeamVaidya/prescription/pkg/tracer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// repositories is the persistence gateway selected by STORE_DRIVER.
type repositories struct {
	prescriptions prescription.Repository
	patients      patient.Repository
	slots         slot.Repository
	users         domain.UserRepository
	audit         service.AuditRepository

	ready func(ctx context.Context) error
	close func() error
}

func openRepositories(cfg *config.Config, log *zap.Logger) (*repositories, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.New()
		return &repositories{
			prescriptions: store.Prescriptions,
			patients:      store.Patients,
			slots:         store.Slots,
			users:         store.Users,
			audit:         store.Audit,
			ready:         func(context.Context) error { return nil },
			close:         func() error { return nil },
		}, nil
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if cfg.Store.AutoMigrate {
		if err := database.Migrate(db, log); err != nil {
			_ = database.Close(db)
			return nil, err
		}
	}
	return postgresRepositories(db), nil
}

func postgresRepositories(db *gorm.DB) *repositories {
	return &repositories{
		prescriptions: postgres.NewPrescriptionRepository(db),
		patients:      postgres.NewPatientRepository(db),
		slots:         postgres.NewSlotRepository(db),
		users:         postgres.NewUserRepository(db),
		audit:         postgres.NewAuditRepository(db),
		ready:         func(ctx context.Context) error { return database.Ping(ctx, db) },
		close:         func() error { return database.Close(db) },
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	log = log.With(
		zap.String("service", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)
	return cfg, log, nil
}

func runServer(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	repos, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(); err != nil {
			log.Warn("closing store failed", zap.Error(err))
		}
	}()

	var attachments service.AttachmentStore
	if cfg.Blob.Enabled {
		store, err := blobstore.NewMinIO(ctx, cfg.Blob)
		if err != nil {
			return err
		}
		attachments = store
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Events)
		if err != nil {
			return err
		}
		publisher = kp
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing event publisher failed", zap.Error(err))
		}
	}()

	m := metrics.NewCollector(cfg.App.Name)
	audit := service.NewAuditService(repos.audit, m, log.Named("audit"))

	svc := service.NewPrescriptionService(service.PrescriptionDeps{
		Prescriptions: repos.prescriptions,
		Patients:      repos.patients,
		Slots:         repos.slots,
		Users:         repos.users,
		Attachments:   attachments,
		Events:        publisher,
		Audit:         audit,
		Metrics:       m,
		Log:           log.Named("prescription_service"),
	})

	router := v1.NewRouter(v1.RouterDeps{
		Config:    cfg,
		Service:   svc,
		Metrics:   m,
		Log:       log,
		Readiness: repos.ready,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		audit.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	// Handlers have returned, so no more audit entries can arrive.
	audit.Shutdown()

	log.Info("server stopped")
	return nil
}

func runMigrate() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StoreDriverPostgres)
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	return database.Migrate(db, log)
}
