package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/deskline/helpdesk-service/internal/config"
)

// Gorm wraps a gorm handle opened for the MySQL or SQLite driver.
type Gorm struct {
	DB *gorm.DB
}

// NewGorm opens the database selected by cfg.Driver.
func NewGorm(cfg config.StoreConfig, logger *zap.Logger) (*Gorm, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("STORE_DSN is required for the %s store", cfg.Driver)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.StoreDriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case config.StoreDriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("gorm does not serve driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(zap.NewStdLog(logger), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == config.StoreDriverSQLite {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Info("connected to database", zap.String("driver", cfg.Driver))
	return &Gorm{DB: db}, nil
}

// Ping verifies database connectivity.
func (g *Gorm) Ping(ctx context.Context) error {
	if g == nil || g.DB == nil {
		return errors.New("gorm database not configured")
	}
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connections.
func (g *Gorm) Close() {
	if g == nil || g.DB == nil {
		return
	}
	if sqlDB, err := g.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
