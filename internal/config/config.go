package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files, environment variables
// and command-line flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	UserAgent            string `mapstructure:"user_agent"`
	TimeoutSeconds       int64  `mapstructure:"timeout_seconds"`
	UploadTimeoutSeconds int64  `mapstructure:"upload_timeout_seconds"`
	Verbose              bool   `mapstructure:"verbose"`
	FailOnHTTPError      bool   `mapstructure:"fail_on_http_error"`
	ProfileFile          string `mapstructure:"profile_file"`

	ServerAddr        string        `mapstructure:"server_addr"`
	StorageType       string        `mapstructure:"storage_type"`
	BBoltPath         string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds int64         `mapstructure:"storage_ttl_seconds"`
	StorageTTL        time.Duration `mapstructure:"-"`
	PublishersFile    string        `mapstructure:"publishers_file"`
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"verbose":    "verbose",
	"timeout":    "timeout_seconds",
	"user-agent": "user_agent",
	"profile":    "profile_file",
	"fail":       "fail_on_http_error",
	"addr":       "server_addr",
	"storage":    "storage_type",
	"bbolt-path": "bbolt_path",
	"publishers": "publishers_file",
}

// RegisterClientFlags adds the flags shared by the transfer CLIs.
func RegisterClientFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.BoolP("verbose", "v", false, "log transfer details")
	fs.Int64("timeout", 0, "transfer timeout in seconds (0 disables)")
	fs.String("user-agent", "", "User-Agent header to send")
	fs.String("profile", "", "YAML or JSON session profile file")
	fs.Bool("fail", false, "treat HTTP status >= 400 as a transfer failure")
}

// RegisterServerFlags adds the demo server flags.
func RegisterServerFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("addr", "", "listen address")
	fs.String("storage", "", "storage backend (bbolt, memory, none)")
	fs.String("bbolt-path", "", "bbolt database path")
	fs.String("publishers", "", "YAML or JSON file listing upload event publishers")
}

// Load reads configuration from environment variables, configs/.env and any flags in fs
// that were set explicitly. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "easyxfer")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "warn")
	v.SetDefault("user_agent", "")
	v.SetDefault("timeout_seconds", 0)
	v.SetDefault("upload_timeout_seconds", 30)
	v.SetDefault("verbose", false)
	v.SetDefault("fail_on_http_error", false)
	v.SetDefault("profile_file", "")
	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/values.db")
	v.SetDefault("storage_ttl_seconds", 0) // never expire
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid timeout_seconds (must be zero or positive seconds)")
	}
	if cfg.UploadTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid upload_timeout_seconds (must be positive seconds)")
	}
	if cfg.StorageTTLSeconds < 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be zero or positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second

	return &cfg, nil
}
