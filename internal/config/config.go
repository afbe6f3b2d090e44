package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	ETA     ETAConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	eta, err := loadETAConfig()
	if err != nil {
		return nil, err
	}

	var logCfg LogConfig
	if err := parseEnv(&logCfg); err != nil {
		return nil, err
	}

	return &Config{Server: server, Storage: storage, ETA: eta, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

type serverEnv struct {
	Port string `env:"PORT" envDefault:"8080"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	var raw serverEnv
	if err := parseEnv(&raw); err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(raw.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Storage backends accepted by PREFS_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StorageConfig 描述收藏存储所使用的键值后端。
type StorageConfig struct {
	Backend string `env:"PREFS_BACKEND" envDefault:"file"`
	Path    string `env:"PREFS_PATH" envDefault:"data/favorites.json"`
}

func loadStorageConfig() (StorageConfig, error) {
	var cfg StorageConfig
	if err := parseEnv(&cfg); err != nil {
		return StorageConfig{}, err
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Path = strings.TrimSpace(cfg.Path)

	switch cfg.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if cfg.Path == "" {
			return StorageConfig{}, fmt.Errorf("PREFS_PATH is required for backend %q", cfg.Backend)
		}
	default:
		return StorageConfig{}, fmt.Errorf("invalid PREFS_BACKEND value: %q", cfg.Backend)
	}
	return cfg, nil
}

// ETAConfig 描述到站时间网关的访问配置。
type ETAConfig struct {
	GatewayURL    string        `env:"ETA_GATEWAY_URL"`
	Timeout       time.Duration `env:"ETA_TIMEOUT" envDefault:"30s"`
	RetryAttempts uint          `env:"ETA_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `env:"ETA_RETRY_DELAY" envDefault:"500ms"`
}

// Enabled 表示是否配置了网关地址。
func (c ETAConfig) Enabled() bool {
	return c.GatewayURL != ""
}

func loadETAConfig() (ETAConfig, error) {
	var cfg ETAConfig
	if err := parseEnv(&cfg); err != nil {
		return ETAConfig{}, err
	}

	cfg.GatewayURL = strings.TrimRight(strings.TrimSpace(cfg.GatewayURL), "/")
	if cfg.Timeout <= 0 {
		return ETAConfig{}, fmt.Errorf("invalid ETA_TIMEOUT value: %s", cfg.Timeout)
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return cfg, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Dev   bool   `env:"LOG_DEV" envDefault:"false"`
}

func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
