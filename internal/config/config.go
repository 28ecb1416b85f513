package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	OCR         OCRConfig                 `json:"ocr"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	SessionsDir   string `json:"sessions_dir"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
	SSLMode  string `json:"ssl_mode"`
}

type OCRConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.BasicConfig.SessionsDir == "" {
		cfg.BasicConfig.SessionsDir = "sessions"
	}
	if !filepath.IsAbs(cfg.BasicConfig.SessionsDir) {
		cfg.BasicConfig.SessionsDir = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.SessionsDir)
	}

	// API keys may come from the environment instead of the config file,
	// e.g. DEEPSEEK_API_KEY.
	for name, provider := range cfg.Providers {
		if provider.APIKey != "" {
			continue
		}
		envKey := strings.ToUpper(name) + "_API_KEY"
		if val := strings.TrimSpace(os.Getenv(envKey)); val != "" {
			provider.APIKey = val
			cfg.Providers[name] = provider
		}
	}

	return &cfg, nil
}
