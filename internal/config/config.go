// Package config はアプリケーション設定を提供する。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// DefaultDatabaseURL はDATABASE_URL未設定時の接続先。
// ローカルのSQLiteファイルにフォールバックする。
const DefaultDatabaseURL = "sqlite://cafelist.db"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Rate Limit
	RateLimitGeneral int
	RateLimitCafeReg int

	// Server
	ServerPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// SESSION_SECRETはセッションCookieの署名鍵であり、未設定の場合は
// 安全に起動できないためエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("required environment variable is not set: SESSION_SECRET")
	}

	// Optional fields with defaults
	cfg.DatabaseURL = getEnvString("DATABASE_URL", DefaultDatabaseURL)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCafeReg = getEnvInt("RATE_LIMIT_CAFE_REG", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt は整数の環境変数を読み込む。
// 解析できない値は起動を止めず、警告ログを残してデフォルト値を使う。
func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment variable, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Int("default", defaultVal),
		)
		return defaultVal
	}
	return i
}

// getEnvBool は真偽値の環境変数を読み込む。
// 解析できない値は起動を止めず、警告ログを残してデフォルト値を使う。
func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean in environment variable, using default",
			slog.String("key", key),
			slog.String("value", v),
			slog.Bool("default", defaultVal),
		)
		return defaultVal
	}
	return b
}
