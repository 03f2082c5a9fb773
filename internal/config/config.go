// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BackendConfig struct {
	BaseURL  string        `yaml:"base_url"` // e.g. http://127.0.0.1:5000/api
	Timeout  time.Duration `yaml:"timeout"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
}

type TrackerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`   // task-status cadence
	VerifyInterval time.Duration `yaml:"verify_interval"` // storage existence cadence
	HistorySize    int           `yaml:"history_size"`    // upload history cap
}

type HistoryConfig struct {
	Store string `yaml:"store"` // redis | file
	Key   string `yaml:"key"`   // document key / file path
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Port          int           `yaml:"port"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookie  bool          `yaml:"secure_cookie"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	History  HistoryConfig  `yaml:"history"`
	Redis    RedisConfig    `yaml:"redis"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Secrets may come from the environment instead of the file.
	if v := os.Getenv("VIC_BACKEND_PASSWORD"); v != "" {
		cfg.Backend.Password = v
	}
	if v := os.Getenv("VIC_SESSION_SECRET"); v != "" {
		cfg.Web.SessionSecret = v
	}
	if v := os.Getenv("VIC_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}

	// defaults
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 15 * time.Second
	}
	if cfg.Tracker.PollInterval <= 0 {
		cfg.Tracker.PollInterval = 2 * time.Second
	}
	if cfg.Tracker.VerifyInterval <= 0 {
		cfg.Tracker.VerifyInterval = 5 * time.Second
	}
	if cfg.Tracker.HistorySize <= 0 {
		cfg.Tracker.HistorySize = 10
	}
	if cfg.History.Store == "" {
		cfg.History.Store = "file"
	}
	if cfg.History.Key == "" {
		if cfg.History.Store == "redis" {
			cfg.History.Key = "upload_history"
		} else {
			cfg.History.Key = "upload_history.json"
		}
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.SessionTTL <= 0 {
		cfg.Web.SessionTTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// Minimal validation
	if cfg.Backend.BaseURL == "" {
		return nil, errors.New("backend.base_url is required")
	}
	if cfg.History.Store != "file" && cfg.History.Store != "redis" {
		return nil, fmt.Errorf("history.store must be file or redis, got %q", cfg.History.Store)
	}
	if cfg.History.Store == "redis" && cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required when history.store is redis")
	}
	if cfg.Web.SessionSecret == "" && !dev {
		return nil, errors.New("web.session_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
