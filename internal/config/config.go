package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevSecret 是未配置密钥时使用的公开默认值，只适合本地开发。
const DevSecret = "blogzine-dev-secret"

// ErrDevSecret is returned by Validate when release mode would sign tokens with DevSecret.
var ErrDevSecret = errors.New("SESSION_SECRET and JWT_SECRET must not use the development default in release mode")

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr       string
	Port             string
	DatabaseDriver   string
	DatabasePath     string
	DatabaseURL      string
	SessionSecret    string
	JWTSecret        string
	TokenTTL         time.Duration
	GinMode          string
	UploadDir        string
	UploadURLPath    string
	MaxUploadBytes   int64
	FeedPageSize     int
	CORSOrigins      []string
	SeedUserName     string
	SeedUserPassword string
}

// LoadDotEnv 读取 .env 文件（若存在），不会覆盖已经设置的环境变量。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envString("PORT", "8080")

	listenAddr := envString("LISTEN_ADDR", "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	sessionSecret := envString("SESSION_SECRET", DevSecret)

	jwtSecret := envString("JWT_SECRET", "")
	if jwtSecret == "" {
		jwtSecret = sessionSecret
	}

	uploadMB := envInt("MAX_UPLOAD_MB", 32)
	if uploadMB <= 0 {
		uploadMB = 32
	}

	pageSize := envInt("FEED_PAGE_SIZE", 10)
	if pageSize <= 0 {
		pageSize = 10
	}

	return AppConfig{
		ListenAddr:       listenAddr,
		Port:             port,
		DatabaseDriver:   strings.ToLower(envString("DATABASE_DRIVER", "sqlite")),
		DatabasePath:     envString("DATABASE_PATH", "blogzine.db"),
		DatabaseURL:      envString("DATABASE_URL", ""),
		SessionSecret:    sessionSecret,
		JWTSecret:        jwtSecret,
		TokenTTL:         envDuration("TOKEN_TTL", 24*time.Hour),
		GinMode:          envString("GIN_MODE", "release"),
		UploadDir:        envString("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath:    envString("UPLOAD_URL_PATH", "/static/uploads"),
		MaxUploadBytes:   int64(uploadMB) << 20,
		FeedPageSize:     pageSize,
		CORSOrigins:      envList("CORS_ORIGINS"),
		SeedUserName:     envString("SEED_USER_NAME", ""),
		SeedUserPassword: envString("SEED_USER_PASSWORD", ""),
	}
}

// UsesDevSecret reports whether tokens or session cookies are signed with DevSecret.
func (c AppConfig) UsesDevSecret() bool {
	return c.JWTSecret == DevSecret || c.SessionSecret == DevSecret
}

// Validate 拒绝在 release 模式下使用默认密钥
func (c AppConfig) Validate() error {
	if c.GinMode == "release" && c.UsesDevSecret() {
		return ErrDevSecret
	}
	return nil
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
