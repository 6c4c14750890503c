package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config contains process-level settings. Per-account settings live in the workspace registry.
type Config struct {
	LogLevel   string
	Host       string // default 127.0.0.1
	Port       int    // default 5001
	ConfigPath string // account registry, default config/accounts.json
	DataDir    string // ledgers, uploads, run records
	RedisURL   string // empty disables snapshot publishing
	ChromePath string // empty lets chromedp find Chrome
}

// Load reads envFile when it exists, then the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := Config{
		LogLevel:   getEnv("EASYAPPLY_LOG_LEVEL", "info"),
		Host:       getEnv("EASYAPPLY_HOST", "127.0.0.1"),
		Port:       getEnvAsInt("EASYAPPLY_PORT", 5001),
		ConfigPath: getEnv("EASYAPPLY_CONFIG", filepath.Join("config", "accounts.json")),
		DataDir:    getEnv("EASYAPPLY_DATA_DIR", "data"),
		RedisURL:   getEnv("EASYAPPLY_REDIS_URL", ""),
		ChromePath: getEnv("EASYAPPLY_CHROME_PATH", ""),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid EASYAPPLY_PORT %d", cfg.Port)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
