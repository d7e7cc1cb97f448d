// Package runlog persists stage executions so that operators can audit what
// each batch run read, wrote and how it ended. Run-log failures are reported
// by the caller but never fail a stage: observability must not break the
// pipeline.
package runlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

// StageExecutionRecord is the persisted shape of a model.StageExecution.
type StageExecutionRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	Stage          string `gorm:"size:32;index"`
	Status         string `gorm:"size:16"`
	StartTime      time.Time
	EndTime        *time.Time
	RowsRead       int64
	RowsWritten    int64
	FailureMessage string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName fixes the table name independent of gorm's pluralization config.
func (StageExecutionRecord) TableName() string { return "stage_executions" }

// Repository persists stage executions.
type Repository interface {
	// Save inserts or updates the record for the given execution.
	Save(ctx context.Context, exec *model.StageExecution) error
	// Find returns the record with the given execution id.
	Find(ctx context.Context, id string) (*StageExecutionRecord, error)
	// Close releases the underlying database handle.
	Close() error
}

// gormRepository implements Repository on a gorm DB.
type gormRepository struct {
	db *gorm.DB
}

// New creates a Repository over an existing gorm DB without running
// migrations. Used by tests that supply a mocked connection.
func New(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Open connects to the configured run-log database, migrates the single
// run-log table and returns the repository. A nil Repository with no error
// means run logging is disabled.
func Open(cfg *config.Config) (Repository, error) {
	rc := cfg.Ridelake.Runlog
	if rc.Disabled || rc.DSN == "" {
		logger.Infof("Run log disabled; stage executions will not be persisted.")
		return nil, nil
	}

	dialector, err := dialectorFor(rc.Driver, rc.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run-log database (driver=%s): %w", rc.Driver, err)
	}
	if err := db.AutoMigrate(&StageExecutionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run-log schema: %w", err)
	}
	return &gormRepository{db: db}, nil
}

// dialectorFor maps the configured driver name onto a gorm dialector.
func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported run-log driver '%s'", driver)
	}
}

// Save upserts the execution. The record is written once at stage start and
// once at stage end, keyed by the execution id.
func (r *gormRepository) Save(ctx context.Context, exec *model.StageExecution) error {
	rec := &StageExecutionRecord{
		ID:             exec.ID,
		Stage:          exec.Stage,
		Status:         string(exec.Status),
		StartTime:      exec.StartTime,
		EndTime:        exec.EndTime,
		RowsRead:       exec.RowsRead,
		RowsWritten:    exec.RowsWritten,
		FailureMessage: strings.Join(exec.Failures, "; "),
	}
	return r.db.WithContext(ctx).Save(rec).Error
}

// Find returns the persisted record for an execution id.
func (r *gormRepository) Find(ctx context.Context, id string) (*StageExecutionRecord, error) {
	var rec StageExecutionRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close releases the underlying sql.DB.
func (r *gormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Module provides the run-log repository to an fx application.
var Module = fx.Options(
	fx.Provide(Open),
)
