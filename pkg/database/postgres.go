package database

import (
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresBackend 远程 Postgres（如 Supabase）。底层驱动使用 lib/pq
type PostgresBackend struct {
	DSN string
}

func (b *PostgresBackend) Name() string       { return "postgres" }
func (b *PostgresBackend) Remote() bool       { return true }
func (b *PostgresBackend) DriverName() string { return "postgres" }

func (b *PostgresBackend) Dialector() gorm.Dialector {
	return postgres.New(postgres.Config{
		DriverName: b.DriverName(),
		DSN:        b.DSN,
	})
}

// CreateTableSQL 与已部署的远程表结构保持一致，列名和类型不要改
func (b *PostgresBackend) CreateTableSQL() string {
	return `
CREATE TABLE IF NOT EXISTS logs (
    id BIGSERIAL PRIMARY KEY,
    created_at TIMESTAMPTZ,
    source TEXT,
    exam TEXT,
    qnum TEXT,
    raw_question TEXT,
    choices TEXT,
    your_answer TEXT,
    correct_answer TEXT,
    confidence INTEGER,
    explanation_raw TEXT,
    topics TEXT,
    question_type TEXT,
    error_types TEXT,
    missed_clues TEXT,
    notes TEXT
)`
}

func (b *PostgresBackend) ColumnType(column string) string {
	switch column {
	case "id":
		return "BIGINT"
	case "created_at":
		return "TIMESTAMPTZ"
	case "confidence":
		return "INTEGER"
	default:
		return "TEXT"
	}
}
