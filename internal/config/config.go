// Package config loads backend settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Tomlord1122/todo-list/internal/database"
	"github.com/Tomlord1122/todo-list/internal/repository"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

const (
	envPrefix      = "TODO"
	configFileName = "todo"
	configFileType = "yaml"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Postgres database.Config `mapstructure:"postgres"`
	CORS     CORSConfig      `mapstructure:"cors"`
	Watch    WatchConfig     `mapstructure:"watch"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr is the host:port the API listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return level, nil
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	SQLitePath string `mapstructure:"sqlite_path"`
	IDStrategy string `mapstructure:"id_strategy"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// WatchConfig switches the /watch change feed on. It is off by default.
type WatchConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit YAML file. When empty, ./todo.yaml is read
	// if it exists.
	ConfigFile string
	// EnvFiles are loaded into the process environment before reading it.
	// Missing files are skipped. Defaults to ".env".
	EnvFiles []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", time.Minute)

	v.SetDefault("log.level", "info")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", repository.DefaultStoragePath)
	v.SetDefault("storage.sqlite_path", repository.DefaultSQLitePath)
	v.SetDefault("storage.id_strategy", string(repository.IDStrategySize))

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.username", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "")
	v.SetDefault("postgres.schema", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.log_level", "warn")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:8080"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Accept", "Content-Type"})
	v.SetDefault("cors.max_age", int((365 * 24 * time.Hour).Seconds()))

	v.SetDefault("watch.enabled", false)
}

// bindLegacyEnv keeps the PORT and BLUEPRINT_DB_* variable names working
// alongside the TODO_* ones.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":       {"TODO_SERVER_PORT", "PORT"},
		"postgres.host":     {"TODO_POSTGRES_HOST", "BLUEPRINT_DB_HOST"},
		"postgres.port":     {"TODO_POSTGRES_PORT", "BLUEPRINT_DB_PORT"},
		"postgres.username": {"TODO_POSTGRES_USERNAME", "BLUEPRINT_DB_USERNAME"},
		"postgres.password": {"TODO_POSTGRES_PASSWORD", "BLUEPRINT_DB_PASSWORD"},
		"postgres.database": {"TODO_POSTGRES_DATABASE", "BLUEPRINT_DB_DATABASE"},
		"postgres.schema":   {"TODO_POSTGRES_SCHEMA", "BLUEPRINT_DB_SCHEMA"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load resolves the configuration. Precedence, highest first: environment
// (including values from the env files), config file, defaults.
func Load(opts Options) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q (valid: memory, file, postgres, sqlite)", c.Storage.Backend)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if _, err := repository.ParseIDStrategy(c.Storage.IDStrategy); err != nil {
		return err
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}
