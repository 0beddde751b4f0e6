package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultSQLitePath = "step2hub.db"

type Config struct {
	Server    ServerConfig
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Tagging   TaggingConfig   `mapstructure:"tagging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool `mapstructure:"-"`
	// 配置文件实际路径，配置监听使用
	ConfigFile string `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// DBConfig URL 为空时使用本地 SQLite 文件
type DBConfig struct {
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type TaggingConfig struct {
	RulesFile string `mapstructure:"rules_file"`
	Watch     bool   `mapstructure:"watch"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// UsesRemoteDB 配置了连接串即视为远程数据库
func (c *DBConfig) UsesRemoteDB() bool {
	return strings.TrimSpace(c.URL) != ""
}

// LoadConfig 从 path 目录读取 config.yaml，环境变量优先
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8501")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("db.url", "")
	v.SetDefault("db.sqlite_path", DefaultSQLitePath)
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.level", "")
	v.SetDefault("tagging.rules_file", "")
	v.SetDefault("tagging.watch", true)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_endpoint", "")
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetEnvPrefix("STEP2HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Database
	v.BindEnv("db.url", "STEP2HUB_DB_URL", "DATABASE_URL")
	v.BindEnv("db.sqlite_path", "STEP2HUB_DB_SQLITE_PATH", "STEP2HUB_SQLITE")

	// Server
	v.BindEnv("server.port", "STEP2HUB_SERVER_PORT", "PORT")
	v.BindEnv("server.mode", "STEP2HUB_SERVER_MODE", "SERVER_MODE")

	// Tracing
	v.BindEnv("tracing.enabled", "STEP2HUB_TRACING_ENABLED", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "STEP2HUB_TRACING_COLLECTOR_ENDPOINT", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	cfg.DB.URL = strings.TrimSpace(cfg.DB.URL)
	if cfg.DB.SQLitePath == "" {
		cfg.DB.SQLitePath = DefaultSQLitePath
	}

	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("invalid server mode %q, expected debug, release or test", cfg.Server.Mode)
	}

	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = 600
	}
	if cfg.RateLimit.WindowMinutes <= 0 {
		cfg.RateLimit.WindowMinutes = 1
	}

	return &cfg, nil
}
