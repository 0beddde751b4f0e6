package database

import (
	"fmt"
	"net/url"
	"step2hub/internal/config"
	"step2hub/internal/util"
	"strings"

	"gorm.io/gorm"
)

// Backend 一种 logs 表存储后端。启动时根据配置选定一次，运行期间不切换
type Backend interface {
	// Name sqlite / postgres / mysql
	Name() string
	// Remote 是否为远程数据库
	Remote() bool
	// DriverName database/sql 驱动名，sqlx 据此选择占位符风格
	DriverName() string
	Dialector() gorm.Dialector
	// CreateTableSQL logs 建表语句
	CreateTableSQL() string
	// ColumnType 补列时使用的列类型
	ColumnType(column string) string
}

// SelectBackend db.url 为空使用本地 SQLite，否则按连接串的 scheme 选择远程后端
func SelectBackend(cfg *config.DBConfig) (Backend, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		path := cfg.SQLitePath
		if path == "" {
			path = config.DefaultSQLitePath
		}
		return &SQLiteBackend{Path: path}, nil
	}

	scheme := ""
	if i := strings.Index(raw, "://"); i > 0 {
		scheme = strings.ToLower(raw[:i])
		// SQLAlchemy 风格的 postgresql+psycopg2://
		if j := strings.Index(scheme, "+"); j > 0 {
			raw = scheme[:j] + raw[i:]
			scheme = scheme[:j]
		}
	}

	switch scheme {
	case "postgres", "postgresql":
		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrUnsupportedDatabaseURL, err)
		}
		return &PostgresBackend{DSN: raw}, nil
	case "mysql":
		dsn, err := mysqlURLToDSN(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrUnsupportedDatabaseURL, err)
		}
		return &MySQLBackend{DSN: mysqlDSN(dsn)}, nil
	case "":
		// libpq 的 key=value 形式
		if strings.Contains(raw, "host=") || strings.Contains(raw, "dbname=") {
			return &PostgresBackend{DSN: raw}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", util.ErrUnsupportedDatabaseURL, redact(raw))
}

// redact 去掉连接串中的密码再输出到日志
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
