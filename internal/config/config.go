package config

import (
	"os"
	"strconv"

	"parish-data/internal/database"
)

// Config parish-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  database.Config
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Import ImportConfig
}

// ImportConfig CSV/Excel 导入配置
type ImportConfig struct {
	// SessionTTLSeconds 导入会话在 KV 中的保留时间（秒）
	SessionTTLSeconds int
	// WebhookURL 导入完成后推送结果摘要的地址（可选，为空则不推送）
	WebhookURL string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, parish-data will fall back to memory repos.
	// This avoids "empty admin pages" when starting with plain `go run`.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "parish")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 导入配置
	cfg.Import.SessionTTLSeconds = parseInt(getEnv("IMPORT_SESSION_TTL", "1800"), 1800) // 默认 30 分钟
	cfg.Import.WebhookURL = getEnv("IMPORT_WEBHOOK_URL", "")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
