// Package config loads server configuration from a YAML file, environment
// variables, and defaults, the same precedence and viper wiring the rest of
// the pack uses for its daemons.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for the nfs3d daemon.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (NFS3D_*), for keys the configuration file sets
//  2. Configuration file (YAML)
//  3. Defaults applied by ApplyDefaults
//
// Without a configuration file, environment variables are not read and
// only the defaults apply.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	DRC     DRCConfig     `mapstructure:"drc" yaml:"drc"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Profiling controls continuous CPU/heap profiling submission.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// LoggingConfig controls logger.Init.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ServerConfig controls server.Config.
type ServerConfig struct {
	Addr                     string        `mapstructure:"addr" yaml:"addr"`
	MaxConnections           int           `mapstructure:"max_connections" yaml:"max_connections"`
	MaxRequestsPerConnection int           `mapstructure:"max_requests_per_connection" yaml:"max_requests_per_connection"`
	MaxMessageSize           uint32        `mapstructure:"max_message_size" yaml:"max_message_size"`
	ReadTimeout              time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout             time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout              time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout          time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DRCConfig controls the duplicate request cache.
type DRCConfig struct {
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxEntries int           `mapstructure:"max_entries" yaml:"max_entries"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// ProfilingConfig controls the Pyroscope continuous-profiling agent.
// Disabled by default: unlike /metrics, pushing profiles means talking to
// an external collector, which most deployments of this server won't have.
type ProfilingConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	ApplicationName string `mapstructure:"application_name" yaml:"application_name"`
	ServerAddr      string `mapstructure:"server_addr" yaml:"server_addr"`
}

// envPrefix is the environment variable prefix viper uses for overrides,
// e.g. NFS3D_SERVER_ADDR.
const envPrefix = "NFS3D"

// Load reads configuration from configPath (if non-empty and present),
// layers NFS3D_* environment variables over the keys that file sets, and
// fills in defaults for anything left unset. When no configuration file is
// found, environment variables are ignored and the result is the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if found {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("nfs3d")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/nfs3d")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

// ApplyDefaults fills in every field left at its zero value. It is exported
// so callers that build a Config programmatically (tests, embedders) get
// the same defaults Load would apply.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":2049"
	}
	if cfg.Server.MaxRequestsPerConnection == 0 {
		cfg.Server.MaxRequestsPerConnection = 128
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 5 * time.Minute
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 5 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.DRC.TTL == 0 {
		cfg.DRC.TTL = 240 * time.Second
	}
	if cfg.DRC.MaxEntries == 0 {
		cfg.DRC.MaxEntries = 65536
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9100"
	}

	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = "nfs3d"
	}
	if cfg.Profiling.ServerAddr == "" {
		cfg.Profiling.ServerAddr = "http://localhost:4040"
	}
}
