package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"step2hub/internal/config"
	"step2hub/internal/model"
	"step2hub/pkg/logger"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database 同一连接池上的 gorm 与 sqlx 句柄
type Database struct {
	Gorm    *gorm.DB
	SQL     *sqlx.DB
	Backend Backend
}

// InitDB 选择后端、建立连接并确保 logs 表存在
func InitDB(cfg *config.DBConfig, mode string) (*Database, error) {
	backend, err := SelectBackend(cfg)
	if err != nil {
		return nil, err
	}

	if backend.Remote() && cfg.SQLitePath != "" && cfg.SQLitePath != config.DefaultSQLitePath {
		logger.Log.Warn("db.url and db.sqlite_path both set, using remote database",
			zap.String("backend", backend.Name()),
			zap.String("ignored_sqlite_path", cfg.SQLitePath))
	}

	return Open(backend, mode)
}

// Open 打开指定后端
func Open(backend Backend, mode string) (*Database, error) {
	if b, ok := backend.(*SQLiteBackend); ok {
		if dir := filepath.Dir(b.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
	}

	logLevel := gormlogger.Warn
	if mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(backend.Dialector(), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if backend.Remote() {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// SQLite 只允许单个写连接
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s connection failed: %w", backend.Name(), err)
	}
	if backend.Remote() {
		logger.Log.Info("Remote database connection OK", zap.String("backend", backend.Name()))
	}

	if err := EnsureSchema(ctx, db, backend); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Log.Info("Database ready", zap.String("backend", backend.Name()))

	return &Database{
		Gorm:    db,
		SQL:     sqlx.NewDb(sqlDB, backend.DriverName()),
		Backend: backend,
	}, nil
}

// EnsureSchema 建表；表已存在时补齐缺失的列，多余的列与类型差异不处理
func EnsureSchema(ctx context.Context, db *gorm.DB, backend Backend) error {
	db = db.WithContext(ctx)
	if err := db.Exec(backend.CreateTableSQL()).Error; err != nil {
		return fmt.Errorf("failed to create logs table: %w", err)
	}

	columnTypes, err := db.Migrator().ColumnTypes(&model.LogEntry{})
	if err != nil {
		return fmt.Errorf("failed to inspect logs table: %w", err)
	}
	existing := make(map[string]bool, len(columnTypes))
	for _, ct := range columnTypes {
		existing[ct.Name()] = true
	}

	for _, column := range MissingColumns(existing) {
		stmt := fmt.Sprintf("ALTER TABLE logs ADD COLUMN %s %s", column, backend.ColumnType(column))
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add column %s: %w", column, err)
		}
		logger.Log.Warn("logs table was missing a column, added it", zap.String("column", column))
	}
	return nil
}

// MissingColumns 主键列无法补加，跳过
func MissingColumns(existing map[string]bool) []string {
	var missing []string
	for _, column := range model.Columns {
		if column == "id" || existing[column] {
			continue
		}
		missing = append(missing, column)
	}
	return missing
}

func (d *Database) Ping(ctx context.Context) error {
	return d.SQL.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.SQL.Close()
}
