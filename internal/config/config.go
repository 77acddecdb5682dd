package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Token
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Password
	BcryptCost int

	// External API (The One API)
	LorAPIKey     string
	LorAPIBaseURL string

	// Sync
	SyncHour          int // 日次同期を実行する時刻（時、UTC）
	SyncCheckInterval time.Duration
	FetchTimeout      time.Duration

	// Cache
	FavoritesCacheTTL  time.Duration
	CharactersCacheTTL time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.LorAPIKey = os.Getenv("LOR_API_KEY")
	if cfg.LorAPIKey == "" {
		missing = append(missing, "LOR_API_KEY")
	}

	cfg.LorAPIBaseURL = os.Getenv("LOR_API_BASE_URL")
	if cfg.LorAPIBaseURL == "" {
		missing = append(missing, "LOR_API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.SyncHour = getEnvInt("SYNC_HOUR", 0)
	cfg.SyncCheckInterval = getEnvDuration("SYNC_CHECK_INTERVAL", time.Minute)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.FavoritesCacheTTL = getEnvDuration("FAVORITES_CACHE_TTL", time.Hour)
	cfg.CharactersCacheTTL = getEnvDuration("CHARACTERS_CACHE_TTL", 10*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.SyncHour < 0 || cfg.SyncHour > 23 {
		return nil, fmt.Errorf("SYNC_HOUR must be between 0 and 23, got %d", cfg.SyncHour)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
