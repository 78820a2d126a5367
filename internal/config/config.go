// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Automation() AutomationConfig
	Store() StoreConfig
	Server() ServerConfig
	Events() EventsConfig

	SetServerListenAddr(string)
}

// Config holds the entire application configuration.
// Sections are exported so viper can decode into them; callers go through the getters.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	AutomationCfg AutomationConfig `mapstructure:"automation" yaml:"automation"`
	StoreCfg      StoreConfig      `mapstructure:"store" yaml:"store"`
	ServerCfg     ServerConfig     `mapstructure:"server" yaml:"server"`
	EventsCfg     EventsConfig     `mapstructure:"events" yaml:"events"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Automation() AutomationConfig { return c.AutomationCfg }
func (c *Config) Store() StoreConfig           { return c.StoreCfg }
func (c *Config) Server() ServerConfig         { return c.ServerCfg }
func (c *Config) Events() EventsConfig         { return c.EventsCfg }

// SetServerListenAddr overrides the configured listen address.
func (c *Config) SetServerListenAddr(addr string) { c.ServerCfg.ListenAddr = addr }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Browser driver names.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// BrowserConfig holds settings for the browser the automation drives.
type BrowserConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Headless bool   `mapstructure:"headless" yaml:"headless"`
	// RemoteURL attaches to an already running browser (the technician's own window)
	// instead of launching one. Accepts a ws:// DevTools URL.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
	// TargetID selects an existing tab when attaching. Empty opens a new tab.
	TargetID          string         `mapstructure:"target_id" yaml:"target_id"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir       string         `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// OperationTimeout bounds every single CDP round trip.
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// Store backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendRedis    = "redis"
)

// StoreConfig selects and configures the preference store.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	// DSN is a file path for sqlite, a connection URL for postgres and a
	// go-sql-driver DSN for mysql.
	DSN           string `mapstructure:"dsn" yaml:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"-"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// ServerConfig configures the HTTP command server.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst          int           `mapstructure:"burst" yaml:"burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// AuthSecret signs API access tokens. Empty leaves the API open, which is
	// only sane on a loopback listener.
	AuthSecret string `mapstructure:"auth_secret" yaml:"auth_secret"`
}

// EventsConfig configures status event publication on a NATS bus.
// An empty URL disables publication.
type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url" yaml:"nats_url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "repairfill")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverChromedp)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport", map[string]int{"width": 1366, "height": 900})
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.operation_timeout", "10s")

	// -- Automation --
	// All timing defaults live in automation_config.go.
	setAutomationDefaults(v)

	// -- Store --
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.dsn", "~/.repairfill/prefs.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.key_prefix", "repairfill:")

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:8737")
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.burst", 10)
	v.SetDefault("server.request_timeout", "2m")
	v.SetDefault("server.auth_secret", "")

	// -- Events --
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject", "repairfill.status")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("store.dsn", "REPAIRFILL_STORE_DSN")
	_ = v.BindEnv("store.redis_password", "REPAIRFILL_REDIS_PASSWORD")
	_ = v.BindEnv("server.auth_secret", "REPAIRFILL_SERVER_AUTH_SECRET")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in file system paths.
func (c *Config) expandPaths() error {
	if c.StoreCfg.Backend == BackendSQLite {
		p, err := homedir.Expand(c.StoreCfg.DSN)
		if err != nil {
			return fmt.Errorf("failed to expand store.dsn: %w", err)
		}
		c.StoreCfg.DSN = p
	}
	if c.LoggerCfg.LogFile != "" {
		p, err := homedir.Expand(c.LoggerCfg.LogFile)
		if err != nil {
			return fmt.Errorf("failed to expand logger.log_file: %w", err)
		}
		c.LoggerCfg.LogFile = p
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.BrowserCfg.Driver) {
	case DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("browser.driver must be one of %q or %q, got %q", DriverChromedp, DriverRod, c.BrowserCfg.Driver)
	}
	if c.BrowserCfg.OperationTimeout <= 0 {
		return fmt.Errorf("browser.operation_timeout must be a positive duration")
	}
	if err := c.AutomationCfg.Validate(); err != nil {
		return fmt.Errorf("automation configuration invalid: %w", err)
	}
	if err := c.StoreCfg.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	if c.ServerCfg.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be positive")
	}
	if c.ServerCfg.Burst <= 0 {
		return fmt.Errorf("server.burst must be a positive integer")
	}
	return nil
}

// Validate checks the store configuration.
func (s *StoreConfig) Validate() error {
	switch s.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite, BackendPostgres, BackendMySQL:
		if s.DSN == "" {
			return fmt.Errorf("dsn is required for the %s backend", s.Backend)
		}
		return nil
	case BackendRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
}
