package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 认证类型，对应 AUTH_TYPE 环境变量
const (
	AuthNone           = "none"
	AuthBasic          = "basic_auth"
	AuthSession        = "session_auth"
	AuthSessionExpiry  = "session_exp_auth"
	AuthSessionDB      = "session_db_auth"
	StorageSQLite      = "sqlite"
	StorageFile        = "file"
	DefaultSessionName = "_my_session_id"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Auth         AuthConfig         `yaml:"auth"`
	Database     DatabaseConfig     `yaml:"database"`
	Notification NotificationConfig `yaml:"notification"`
	Log          LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig 会话认证配置
type AuthConfig struct {
	Type            string   `yaml:"type"`
	SessionName     string   `yaml:"session_name"`
	SessionDuration int      `yaml:"session_duration"` // 秒，0 表示永不过期
	SweepInterval   int      `yaml:"sweep_interval"`   // 秒，过期会话清理周期
	ExcludedPaths   []string `yaml:"excluded_paths"`
}

// DatabaseConfig 持久化配置
// Storage 决定会话记录写入 sqlite 还是 yaml 文件
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	Storage     string `yaml:"storage"`
	SessionFile string `yaml:"session_file"`
}

type NotificationConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
	ResetURL     string `yaml:"reset_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Duration returns the configured session lifetime.
func (a AuthConfig) Duration() time.Duration {
	if a.SessionDuration <= 0 {
		return 0
	}
	return time.Duration(a.SessionDuration) * time.Second
}

// Default returns the configuration used when neither file nor env set a value.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 5000},
		Auth: AuthConfig{
			Type:          AuthSessionDB,
			SessionName:   DefaultSessionName,
			SweepInterval: 3600,
			ExcludedPaths: []string{
				"/api/v1/status/",
				"/api/v1/unauthorized/",
				"/api/v1/forbidden/",
				"/api/v1/auth_session/login/",
				"/api/v1/auth_session/logout/",
				"/api/v1/users/",
				"/api/v1/reset_password/",
				"/health/",
				"/metrics/",
				"/socket.io/*",
			},
		},
		Database: DatabaseConfig{
			Path:        "session-gate.db",
			Storage:     StorageSQLite,
			SessionFile: "sessions.yaml",
		},
		Notification: NotificationConfig{
			FromEmail: "onboarding@resend.dev",
			FromName:  "Session Gate",
		},
		Log: LogConfig{Level: "info", File: "logs/session-gate.log"},
	}
}

// LoadConfig reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("SESSION_NAME"); v != "" {
		cfg.Auth.SessionName = v
	}
	if v := os.Getenv("SESSION_DURATION"); v != "" {
		// 非法值按 0 处理，即不过期
		d, err := strconv.Atoi(v)
		if err != nil {
			d = 0
		}
		cfg.Auth.SessionDuration = d
	}
	if v := os.Getenv("API_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_PORT: %w", err)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Notification.ResendAPIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.Auth.Type {
	case AuthNone, AuthBasic, AuthSession, AuthSessionExpiry, AuthSessionDB:
	default:
		return fmt.Errorf("unknown auth type %q", c.Auth.Type)
	}
	switch c.Database.Storage {
	case StorageSQLite, StorageFile:
	default:
		return fmt.Errorf("unknown session storage %q", c.Database.Storage)
	}
	if c.Auth.SessionName == "" {
		return fmt.Errorf("session name must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
