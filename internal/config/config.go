package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIKey       string
	DefaultEmail string

	// Browser
	Headless       bool
	Stealth        bool
	InstallBrowser bool
	UserAgent      string
	BrowserTimeout time.Duration
	ViewportWidth  int
	ViewportHeight int

	// Login / OAuth
	LoginURL                string
	AuthenticatedPaths      []string
	VerificationWaitTimeout time.Duration
	LoginSettleDelay        time.Duration
	AuthorizeSettleDelay    time.Duration

	// Database（空の場合は監査ログを無効化する）
	DatabaseURL        string
	AuditRetentionDays int

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitFlow    int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS（空の場合はCORSヘッダーを付与しない）
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに .env があれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIKey = os.Getenv("API_KEY")
	if cfg.APIKey == "" {
		missing = append(missing, "API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DefaultEmail = getEnvString("CLAUDE_EMAIL", "")
	cfg.Headless = getEnvBool("HEADLESS", true)
	cfg.Stealth = getEnvBool("STEALTH", false)
	cfg.InstallBrowser = getEnvBool("BROWSER_INSTALL", true)
	cfg.UserAgent = getEnvString("BROWSER_USER_AGENT",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	cfg.BrowserTimeout = getEnvDuration("BROWSER_TIMEOUT", 30*time.Second)
	cfg.ViewportWidth = getEnvInt("VIEWPORT_WIDTH", 1280)
	cfg.ViewportHeight = getEnvInt("VIEWPORT_HEIGHT", 720)
	cfg.LoginURL = getEnvString("LOGIN_URL", "https://claude.ai/login")
	cfg.AuthenticatedPaths = getEnvList("AUTHENTICATED_PATHS", []string{"claude.ai/chat", "claude.ai/new"})
	cfg.VerificationWaitTimeout = getEnvDuration("VERIFICATION_WAIT_TIMEOUT", 10*time.Second)
	cfg.LoginSettleDelay = getEnvDuration("LOGIN_SETTLE_DELAY", 3*time.Second)
	cfg.AuthorizeSettleDelay = getEnvDuration("AUTHORIZE_SETTLE_DELAY", 2*time.Second)
	cfg.DatabaseURL = getEnvString("DATABASE_URL", "")
	cfg.AuditRetentionDays = getEnvInt("AUDIT_RETENTION_DAYS", 30)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitFlow = getEnvInt("RATE_LIMIT_FLOW", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

	return cfg, nil
}

// Mode はブラウザの表示モードを返す。
func (c *Config) Mode() string {
	if c.Headless {
		return "headless"
	}
	return "visual"
}

// AuditEnabled は監査ログ（PostgreSQL）が有効かどうかを返す。
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return defaultVal
	}
	return b
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

// getEnvList はカンマ区切りの環境変数をスライスとして返す。空要素は除外する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
