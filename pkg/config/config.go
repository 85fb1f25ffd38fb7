// Package config loads server configuration from defaults, an optional YAML
// file, and GOBBS_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Data   DataConfig
	Chat   ChatConfig
	Log    LogConfig
}

type ServerConfig struct {
	ListenAddr  string // TCP bind address for the BBS protocol
	MetricsAddr string // HTTP bind address for Prometheus /metrics (empty = disabled)
	IdleTimeout int    // Seconds a connection may sit idle between requests (0 = no limit)
}

type DBConfig struct {
	Path string // SQLite database file path
}

type DataConfig struct {
	DocsDir    string // text library documents (.txt)
	UploadsDir string // upload area checked by FILE REGISTER
}

type ChatConfig struct {
	HistorySize int // public chat lines kept in memory
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply; a named file that cannot be read is an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvPrefix("GOBBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
