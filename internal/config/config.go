package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Log modes.
const (
	LogsRemote = "remote"
	LogsLocal  = "local"
)

type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	API struct {
		DefaultURL  string `mapstructure:"default_url"`
		LoopbackURL string `mapstructure:"loopback_url"`
		BaseURL     string `mapstructure:"base_url"`
	} `mapstructure:"api"`

	Probe struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"probe"`

	Request struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"request"`

	Storage struct {
		Driver        string `mapstructure:"driver"`
		SQLitePath    string `mapstructure:"sqlite_path"`
		RedisAddr     string `mapstructure:"redis_addr"`
		RedisPassword string `mapstructure:"redis_password"`
		RedisDB       int    `mapstructure:"redis_db"`
		Prefix        string `mapstructure:"prefix"`
	} `mapstructure:"storage"`

	Logs struct {
		Mode       string `mapstructure:"mode"`
		MaxEntries int    `mapstructure:"max_entries"`
	} `mapstructure:"logs"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`
}

// Load reads defaults, then the YAML file at path (or ./bricksync.yaml when
// path is empty and the file exists), then BRICKSYNC_* environment
// variables. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bricksync")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BRICKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8081)
	v.SetDefault("api.default_url", "http://192.168.1.125:3000")
	v.SetDefault("api.loopback_url", "http://localhost:3000")
	v.SetDefault("api.base_url", "")
	v.SetDefault("probe.timeout", 5*time.Second)
	v.SetDefault("request.timeout", 15*time.Second)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "bricksync.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.prefix", "bricksync:")
	v.SetDefault("logs.mode", LogsRemote)
	v.SetDefault("logs.max_entries", 1000)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the client cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	for key, u := range map[string]string{
		"api.default_url":  c.API.DefaultURL,
		"api.loopback_url": c.API.LoopbackURL,
	} {
		if !isHTTPURL(u) {
			problems = append(problems, fmt.Sprintf("%s %q is not an http(s) URL", key, u))
		}
	}
	if c.API.BaseURL != "" && !isHTTPURL(c.API.BaseURL) {
		problems = append(problems, fmt.Sprintf("api.base_url %q is not an http(s) URL", c.API.BaseURL))
	}
	if c.Probe.Timeout <= 0 {
		problems = append(problems, "probe.timeout must be positive")
	}
	if c.Request.Timeout <= 0 {
		problems = append(problems, "request.timeout must be positive")
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q unknown", c.Storage.Driver))
	}
	switch c.Logs.Mode {
	case LogsRemote, LogsLocal:
	default:
		problems = append(problems, fmt.Sprintf("logs.mode %q unknown", c.Logs.Mode))
	}
	if c.Logs.MaxEntries < 0 {
		problems = append(problems, "logs.max_entries must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitialBaseURL is the URL to start from when nothing is persisted.
func (c *Config) InitialBaseURL() string {
	if c.API.BaseURL != "" {
		return c.API.BaseURL
	}
	return c.API.DefaultURL
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}
