// Package storage persists analysis results to TimescaleDB. Each run lands
// as one row with queryable scalar columns plus JSONB documents for the
// per-segment detail and warnings.
package storage

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/internal/log"
)

// ErrRunNotFound is returned when no stored run matches the requested ID.
var ErrRunNotFound = errors.New("analysis run not found")

// Client holds the connection to a TimescaleDB database
type Client struct {
	db *gorm.DB
}

// NewClient connects to TimescaleDB and migrates the analysis_runs table.
func NewClient(connectionString string) (*Client, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}
	log.Info("TimescaleDB connection successful")

	if err := db.AutoMigrate(&AnalysisRun{}); err != nil {
		return nil, fmt.Errorf("error creating or migrating analysis runs table: %w", err)
	}

	return &Client{db: db}, nil
}

// DB exposes the underlying GORM handle for callers composing their own
// queries.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SaveResult stores one analysis result and returns the stored row.
func (c *Client) SaveResult(res *analysis.Result) (*AnalysisRun, error) {
	run, err := NewAnalysisRun(res)
	if err != nil {
		return nil, err
	}
	if err := c.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("could not store analysis run %s: %w", run.RunID, err)
	}
	log.Debugf("stored analysis run %s (%d segments)", run.RunID, run.SegmentCount)
	return run, nil
}

// GetRunByID fetches one stored run by its run ID.
func (c *Client) GetRunByID(runID string) (*AnalysisRun, error) {
	var run AnalysisRun
	err := c.db.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not fetch analysis run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. A non-empty project
// filters to that project; limit <= 0 uses a sane default.
func (c *Client) ListRuns(limit int, project string) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	q := c.db.Order("generated_at DESC").Limit(limit)
	if project != "" {
		q = q.Where("project = ?", project)
	}

	var runs []AnalysisRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("could not list analysis runs: %w", err)
	}
	return runs, nil
}

// Close releases the underlying database connection.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
