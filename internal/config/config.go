package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// minJWTSecretLength はHS256署名鍵として受け付ける最小バイト長。
const minJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Auth
	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	// Inference
	ModelPath             string
	ModelEndpoint         string // 空の場合はModelPathのアーティファクトでプロセス内推論する
	ModelTimeout          time.Duration
	ModelFailureThreshold int
	ModelOpenTimeout      time.Duration

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int
	RateLimitPredict int
	RateLimitAuth    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
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

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.ModelPath = getEnvString("MODEL_PATH", "models/yield_model.json")
	cfg.ModelEndpoint = getEnvString("MODEL_ENDPOINT", "")
	cfg.ModelTimeout = getEnvDuration("MODEL_TIMEOUT", 5*time.Second)
	cfg.ModelFailureThreshold = getEnvInt("MODEL_FAILURE_THRESHOLD", 5)
	cfg.ModelOpenTimeout = getEnvDuration("MODEL_OPEN_TIMEOUT", 30*time.Second)
	cfg.RateLimitGeneral = getEnvPositiveInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitPredict = getEnvPositiveInt("RATE_LIMIT_PREDICT", 30)
	cfg.RateLimitAuth = getEnvPositiveInt("RATE_LIMIT_AUTH", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))

	return cfg, nil
}

// UsesRemoteModel は外部推論エンドポイントを使うかどうかを返す。
func (c *Config) UsesRemoteModel() bool {
	return c.ModelEndpoint != ""
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

// getEnvPositiveInt は0以下の値をデフォルト値として扱う。
func getEnvPositiveInt(key string, defaultVal int) int {
	if i := getEnvInt(key, defaultVal); i > 0 {
		return i
	}
	return defaultVal
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
