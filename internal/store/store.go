package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/idmasse/mappingbot/internal/pipeline"
)

// Run is one persisted run summary row.
type Run struct {
	ID           string `gorm:"primaryKey"`
	Profile      string
	Scope        string
	Brands       int
	Collected    int
	Attempted    int
	Approved     int
	Failed       int
	ChunksSent   int
	ChunksFailed int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store keeps run summaries in a local SQLite file.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open runs database: %w", err)
	}

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate runs database: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveRun persists a finished run summary.
func (s *Store) SaveRun(summary *pipeline.RunSummary) error {
	run := Run{
		ID:           summary.RunID,
		Profile:      summary.Profile,
		Scope:        summary.Scope,
		Brands:       summary.Brands,
		Collected:    summary.Totals.Collected,
		Attempted:    summary.Totals.Attempted,
		Approved:     summary.Totals.Approved,
		Failed:       summary.Totals.Failed,
		ChunksSent:   summary.Totals.ChunksSent,
		ChunksFailed: summary.Totals.ChunksFailed,
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
	}
	if err := s.db.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", summary.RunID, err)
	}
	return nil
}

// RecentRuns returns the latest run summaries, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	if err := s.db.Order("started_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
