package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"billing-admin-backend/config"
	"billing-admin-backend/internal/auth"
	"billing-admin-backend/internal/model"
)

// Init opens the database named by cfg.DSN, tunes the pool and runs
// migrations. A "sqlite:" or "file:" prefix selects sqlite, anything else is
// handed to the postgres driver.
func Init(cfg *config.DatabaseConfig, log *zap.Logger, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         NewGormLogger(log, time.Duration(cfg.SlowQueryMS)*time.Millisecond, debug),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(dialector(cfg.DSN), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	switch {
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	case db.Dialector.Name() == "sqlite":
		// sqlite serialises writers; one connection avoids lock errors.
		sqlDB.SetMaxOpenConns(1)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database initialization complete")
	return db, nil
}

func dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

// Migrate creates or updates the schema and the indexes AutoMigrate cannot
// express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return applyIndexes(db)
}

func applyIndexes(db *gorm.DB) error {
	ddls := []string{
		// at most one open alert per machine and title
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_system_alerts_open_machine_title " +
			"ON system_alerts (machine_id, title) WHERE resolved = false",
		"CREATE INDEX IF NOT EXISTS idx_payments_machine_created ON payments (machine_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_logs_machine_created ON logs (machine_id, created_at)",
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

// SeedAdmin creates the bootstrap administrator when it does not exist yet.
// It reports whether a user was created.
func SeedAdmin(ctx context.Context, db *gorm.DB, admin config.BootstrapAdmin, hasher auth.PasswordHasher) (bool, error) {
	if admin.Username == "" || admin.Password == "" {
		return false, nil
	}

	var existing model.User
	err := db.WithContext(ctx).Where("username = ?", admin.Username).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	hash, err := hasher.Hash(admin.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}
	email := admin.Email
	if email == "" {
		email = admin.Username + "@billingadmin.local"
	}

	user := model.User{
		Username:       admin.Username,
		Email:          email,
		HashedPassword: hash,
		Role:           model.RoleAdmin,
		IsActive:       true,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	return true, nil
}
