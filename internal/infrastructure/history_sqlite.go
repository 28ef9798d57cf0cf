package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/yt-grab-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// historyRow is the persisted form of a download record
type historyRow struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	Title        string    `gorm:"not null"`
	URL          string    `gorm:"not null;index"`
	Format       string    `gorm:"not null;index"`
	DownloadedAt time.Time `gorm:"not null"`
}

func (historyRow) TableName() string {
	return "download_history"
}

// SQLiteHistoryStore implements domain.HistoryStore using SQLite
type SQLiteHistoryStore struct {
	db *gorm.DB
}

// NewSQLiteHistoryStore opens (and migrates) the history database
func NewSQLiteHistoryStore(dbPath string) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&historyRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryStore{db: db}, nil
}

// Append inserts a record
func (r *SQLiteHistoryStore) Append(record domain.DownloadResult) error {
	row := historyRow{
		Title:        record.Title,
		URL:          record.URL,
		Format:       string(record.Format),
		DownloadedAt: record.Time.Time,
	}
	return r.db.Create(&row).Error
}

// ListAll returns every record in insertion order
func (r *SQLiteHistoryStore) ListAll() ([]domain.DownloadResult, error) {
	var rows []historyRow
	if err := r.db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]domain.DownloadResult, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.DownloadResult{
			Title:  row.Title,
			URL:    row.URL,
			Format: domain.Mode(row.Format),
			Time:   domain.NewTimestamp(row.DownloadedAt),
		})
	}
	return records, nil
}

// Stats returns record counts per format
func (r *SQLiteHistoryStore) Stats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	if err := r.db.Model(&historyRow{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	formatCounts := []struct {
		Format string
		Count  int64
	}{}

	if err := r.db.Model(&historyRow{}).
		Select("format, count(*) as count").
		Group("format").
		Scan(&formatCounts).Error; err != nil {
		return nil, err
	}

	for _, fc := range formatCounts {
		switch domain.Mode(fc.Format) {
		case domain.ModeVideo:
			stats.Video = fc.Count
		case domain.ModeAudio:
			stats.Audio = fc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
