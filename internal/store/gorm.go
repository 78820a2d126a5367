package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// preference is one key-value row. The key column is a reserved word in
// MySQL, so conditions on it go through struct or clause values gorm quotes.
type preference struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time
}

func (preference) TableName() string { return "preferences" }

// run is one history row.
type run struct {
	ID         string `gorm:"primaryKey;size:36"`
	Kind       string `gorm:"size:32"`
	OK         bool
	Status     string
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time
	Report     []byte
}

func (run) TableName() string { return "runs" }

// GORM is the store over a relational database through gorm. SQLite is the
// default backend; MySQL shares the code.
type GORM struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the SQLite file at path.
func OpenSQLite(path string, logger *zap.Logger) (*GORM, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return openGORM(sqlite.Open(path), logger)
}

// OpenMySQL connects to a MySQL server.
func OpenMySQL(dsn string, logger *zap.Logger) (*GORM, error) {
	return openGORM(mysql.Open(dsn), logger)
}

// NewGORM wraps an open database and migrates the schema.
func NewGORM(db *gorm.DB, logger *zap.Logger) (*GORM, error) {
	if err := db.AutoMigrate(&preference{}, &run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate store schema: %w", err)
	}
	return &GORM{db: db, logger: logger.Named("store")}, nil
}

func openGORM(dialector gorm.Dialector, logger *zap.Logger) (*GORM, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return NewGORM(db, logger)
}

func (g *GORM) Get(ctx context.Context, key string) ([]byte, error) {
	var p preference
	err := g.db.WithContext(ctx).Where(&preference{Key: key}).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return p.Value, nil
}

func (g *GORM) Set(ctx context.Context, key string, value []byte) error {
	p := preference{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (g *GORM) Delete(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Where(&preference{Key: key}).Delete(&preference{}).Error; err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

func (g *GORM) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := g.db.WithContext(ctx).Model(&preference{}).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return keys, nil
}

func (g *GORM) RecordRun(ctx context.Context, r RunRecord) error {
	row := run{
		ID:         r.ID,
		Kind:       r.Kind,
		OK:         r.OK,
		Status:     r.Status,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
		Report:     r.Report,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	return nil
}

func (g *GORM) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	q := g.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []run
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]RunRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, RunRecord{
			ID: r.ID, Kind: r.Kind, OK: r.OK, Status: r.Status,
			StartedAt: r.StartedAt, FinishedAt: r.FinishedAt, Report: r.Report,
		})
	}
	return out, nil
}

func (g *GORM) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
