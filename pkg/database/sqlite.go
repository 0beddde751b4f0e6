package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteBackend 本地嵌入式数据库，db.url 为空时的默认选择
type SQLiteBackend struct {
	Path string
}

func (b *SQLiteBackend) Name() string       { return "sqlite" }
func (b *SQLiteBackend) Remote() bool       { return false }
func (b *SQLiteBackend) DriverName() string { return "sqlite3" }

func (b *SQLiteBackend) Dialector() gorm.Dialector {
	return sqlite.Open(b.Path)
}

func (b *SQLiteBackend) CreateTableSQL() string {
	return `
CREATE TABLE IF NOT EXISTS logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT,
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

func (b *SQLiteBackend) ColumnType(column string) string {
	switch column {
	case "id", "confidence":
		return "INTEGER"
	default:
		return "TEXT"
	}
}
