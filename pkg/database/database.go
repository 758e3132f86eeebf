package database

import (
	"context"
	"fmt"
	"time"

	"github.com/TeamVaidya/prescription/internal/config"
	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		// Slow queries and SQL errors go through zap; record-not-found is an
		// expected outcome and stays quiet.
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt:    true,
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Ping reports whether the database answers within the context deadline.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&slot.Slot{},
		&patient.Patient{},
		&prescription.Prescription{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	if err := addForeignKeys(db, log); err != nil {
		return fmt.Errorf("adding foreign keys: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Medicine search: containment queries on the jsonb list
		{
			name:  "idx_prescriptions_medicines",
			query: `CREATE INDEX IF NOT EXISTS idx_prescriptions_medicines ON prescriptions USING gin (medicines jsonb_path_ops)`,
		},
		{
			name:  "idx_slots_user_starts_at",
			query: `CREATE INDEX IF NOT EXISTS idx_slots_user_starts_at ON slots (user_id, starts_at)`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
		log.Debug("index ensured", zap.String("index", idx.name))
	}

	return nil
}

// foreignKey is a many-to-one reference from table.column to ref(id).
type foreignKey struct {
	name   string
	table  string
	column string
	ref    string
}

var foreignKeys = []foreignKey{
	{"fk_slots_user", "slots", "user_id", "users"},
	{"fk_patients_user", "patients", "user_id", "users"},
	{"fk_patients_slot", "patients", "slot_id", "slots"},
	{"fk_prescriptions_user", "prescriptions", "user_id", "users"},
	{"fk_prescriptions_slot", "prescriptions", "slot_id", "slots"},
	{"fk_prescriptions_patient", "prescriptions", "patient_id", "patients"},
}

// addForeignKeys adds the reference constraints AutoMigrate cannot derive
// from plain id columns. Postgres has no ADD CONSTRAINT IF NOT EXISTS, so
// existing constraints are looked up first.
func addForeignKeys(db *gorm.DB, log *zap.Logger) error {
	for _, fk := range foreignKeys {
		if db.Migrator().HasConstraint(fk.table, fk.name) {
			continue
		}
		query := fmt.Sprintf(
			`ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (id) ON DELETE RESTRICT`,
			fk.table, fk.name, fk.column, fk.ref,
		)
		if err := db.Exec(query).Error; err != nil {
			return fmt.Errorf("%s: %w", fk.name, err)
		}
		log.Debug("foreign key ensured", zap.String("constraint", fk.name))
	}
	return nil
}
