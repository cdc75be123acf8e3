package focus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"argos/logging"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interval is a persisted focus interval
type Interval struct {
	ID          uint `gorm:"primaryKey"`
	ActualSecs  int64
	Completed   bool
	CreatedAt   time.Time
	PlannedSecs int64
	StartedAt   time.Time
}

// DayTotal aggregates focused time for one calendar day
type DayTotal struct {
	Day       string
	TotalSecs int64
}

// gormLogger routes GORM output through the argos logger
type gormLogger struct {
	level logger.LogLevel
}

// LogMode sets the log level
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

// Info logs info messages
func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

// Warn logs warn messages
func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

// Error logs error messages
func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs queries; errors and slow queries only
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Warn {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("focus store query error",
			"error", err, "duration", elapsed, "sql", sql, "rows", rows)
	} else if elapsed > 200*time.Millisecond {
		logging.Logger.Warn("focus store slow query",
			"duration", elapsed, "sql", sql, "rows", rows)
	}
}

// Store persists completed focus intervals in a SQLite database
type Store struct {
	db *gorm.DB
}

// NewStore opens (creating if needed) the focus database with WAL mode
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:  (&gormLogger{}).LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open focus database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&Interval{}); err != nil {
		return nil, fmt.Errorf("failed to migrate focus schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

// Record persists one elapsed interval
func (s *Store) Record(e Elapsed) error {
	interval := Interval{
		ActualSecs:  int64(e.Actual.Seconds()),
		Completed:   e.Completed,
		PlannedSecs: int64(e.Planned.Seconds()),
		StartedAt:   e.StartedAt.UTC(),
	}
	if err := s.db.Create(&interval).Error; err != nil {
		return fmt.Errorf("failed to record focus interval: %w", err)
	}
	return nil
}

// Recent returns the most recent intervals, newest first
func (s *Store) Recent(limit int) ([]Interval, error) {
	var intervals []Interval
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&intervals).Error; err != nil {
		return nil, fmt.Errorf("failed to list focus intervals: %w", err)
	}
	return intervals, nil
}

// TotalsByDay aggregates focused seconds per day over the last n days
func (s *Store) TotalsByDay(days int) ([]DayTotal, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	var totals []DayTotal
	err := s.db.Model(&Interval{}).
		Select("date(started_at) AS day, sum(actual_secs) AS total_secs").
		Where("started_at >= ?", since).
		Group("date(started_at)").
		Order("day DESC").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate focus totals: %w", err)
	}
	return totals, nil
}
