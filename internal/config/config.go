package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr            string
	Port                  string
	DatabaseDriver        string
	DatabasePath          string
	DatabaseDSN           string
	SessionSecret         string
	GinMode               string
	SuperRootUserName     string
	SuperRootPassword     string
	Location              *time.Location
	RollupWorkers         int
	RollupJobPollInterval time.Duration
	RollupMaxRangeDays    int
}

// DatabaseSource 返回当前驱动对应的连接串：sqlite 使用文件路径，postgres 使用 DSN。
func (c AppConfig) DatabaseSource() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseDSN
	}
	return c.DatabasePath
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 工作目录下存在 .env 时先加载，已存在的环境变量不会被覆盖。
func Load() AppConfig {
	_ = godotenv.Load()

	port := stringEnv("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	driver := strings.ToLower(stringEnv("DATABASE_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "postgres" {
		driver = "sqlite"
	}

	location := time.UTC
	if name := strings.TrimSpace(os.Getenv("APP_TIMEZONE")); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			location = loc
		}
	}

	return AppConfig{
		ListenAddr:            listenAddr,
		Port:                  port,
		DatabaseDriver:        driver,
		DatabasePath:          stringEnv("DATABASE_PATH", "vitalog.db"),
		DatabaseDSN:           strings.TrimSpace(os.Getenv("DATABASE_DSN")),
		SessionSecret:         stringEnv("SESSION_SECRET", "vitalog-dev-secret"),
		GinMode:               stringEnv("GIN_MODE", "release"),
		SuperRootUserName:     strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword:     strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		Location:              location,
		RollupWorkers:         intEnv("ROLLUP_WORKERS", 4),
		RollupJobPollInterval: durationEnv("ROLLUP_JOB_POLL_INTERVAL", 30*time.Second),
		RollupMaxRangeDays:    intEnv("ROLLUP_MAX_RANGE_DAYS", 366),
	}
}

func stringEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
