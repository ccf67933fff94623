// Package config holds the typed runtime configuration, loaded from
// defaults, an optional config file and OPENALGO_-prefixed environment
// variables via viper.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the control plane.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

type PathsConfig struct {
	// InstancesRoot holds one directory per managed instance.
	InstancesRoot string `mapstructure:"instances_root"`
	// VhostDir maps served hostnames to instance directories via symlinks.
	VhostDir string `mapstructure:"vhost_dir"`

	HealthCheckScript  string `mapstructure:"health_check_script"`
	UpdateScript       string `mapstructure:"update_script"`
	DailyRestartScript string `mapstructure:"daily_restart_script"`
}

type JobsConfig struct {
	Capacity           int           `mapstructure:"capacity"`
	HealthCheckTimeout time.Duration `mapstructure:"health_check_timeout"`
	UpdateTimeout      time.Duration `mapstructure:"update_timeout"`
	// RatePerMinute caps job-creating requests across all clients
	// with a single process-wide bucket.
	RatePerMinute int `mapstructure:"rate_per_minute"`
}

type ReadinessConfig struct {
	Timezone    string `mapstructure:"timezone"`
	CutoverHour int    `mapstructure:"cutover_hour"`
}

var (
	configMu  sync.Mutex
	appConfig *Config
)

// SetDefaults seeds viper with the deployment defaults. Called before any
// flag or env binding so precedence stays flags > env > file > defaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8888)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("paths.instances_root", "/var/python/openalgo-flask")
	v.SetDefault("paths.vhost_dir", "/etc/openalgo/vhosts")
	v.SetDefault("paths.health_check_script", "/usr/local/bin/openalgo-health-check.sh")
	v.SetDefault("paths.update_script", "/usr/local/bin/openalgo-update.sh")
	v.SetDefault("paths.daily_restart_script", "/usr/local/bin/openalgo-daily-restart.sh")

	v.SetDefault("jobs.capacity", 50)
	v.SetDefault("jobs.health_check_timeout", "300s")
	v.SetDefault("jobs.update_timeout", "1800s")
	v.SetDefault("jobs.rate_per_minute", 30)

	v.SetDefault("readiness.timezone", "Asia/Kolkata")
	v.SetDefault("readiness.cutover_hour", 8)
}

// Load materializes the typed config from a prepared viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	decode := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decode); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// Get returns the last loaded config, or nil before Load.
func Get() *Config {
	configMu.Lock()
	defer configMu.Unlock()
	return appConfig
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Paths.InstancesRoot) == "" {
		return fmt.Errorf("paths.instances_root is required")
	}
	if c.Readiness.CutoverHour < 0 || c.Readiness.CutoverHour > 23 {
		return fmt.Errorf("readiness.cutover_hour %d out of range", c.Readiness.CutoverHour)
	}
	if c.Jobs.Capacity <= 0 {
		return fmt.Errorf("jobs.capacity must be positive")
	}
	return nil
}
