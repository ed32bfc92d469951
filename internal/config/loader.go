package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings of the flexspace service.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Auth     AuthConfig
	QR       QRConfig
	Redis    RedisConfig
	Log      LogConfig
	Timezone string
	Location *time.Location
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AuthConfig configures bearer tokens.
type AuthConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

// QRConfig configures access tokens.
type QRConfig struct {
	Secret      string
	AuditDenied bool
}

// RedisConfig enables the distributed admission lock when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level slog.Level
}

// fileConfig mirrors the YAML layout. Durations and levels stay strings so
// that file and environment values go through the same parsers.
type fileConfig struct {
	HTTP struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"http"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		JWTTTL    string `yaml:"jwt_ttl"`
	} `yaml:"auth"`
	QR struct {
		Secret      string `yaml:"secret"`
		AuditDenied *bool  `yaml:"audit_denied"`
	} `yaml:"qr"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Timezone string `yaml:"timezone"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:        ":3000",
			CORSOrigins: []string{"http://localhost:3001"},
		},
		Database: DatabaseConfig{Driver: "sqlite"},
		Auth:     AuthConfig{JWTTTL: 24 * time.Hour},
		Log:      LogConfig{Level: slog.LevelInfo},
		Timezone: "Local",
		Location: time.Local,
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// (or FLEXSPACE_CONFIG_FILE when path is empty) and FLEXSPACE_* environment
// variables, in increasing precedence. Missing and invalid keys are reported
// together.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("FLEXSPACE_CONFIG_FILE"))
	}

	var invalid []string
	var jwtTTL, logLevel string
	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		jwtTTL, logLevel = file.Auth.JWTTTL, file.Log.Level
		cfg.applyFile(file)
	}

	if v := env("FLEXSPACE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := env("FLEXSPACE_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	if v := env("FLEXSPACE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := env("FLEXSPACE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := env("FLEXSPACE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := env("FLEXSPACE_JWT_TTL"); v != "" {
		jwtTTL = v
	}
	if v := env("FLEXSPACE_QR_SECRET"); v != "" {
		cfg.QR.Secret = v
	}
	if v := env("FLEXSPACE_QR_AUDIT_DENIED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "FLEXSPACE_QR_AUDIT_DENIED")
		} else {
			cfg.QR.AuditDenied = enabled
		}
	}
	if v := env("FLEXSPACE_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := env("FLEXSPACE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := env("FLEXSPACE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := env("FLEXSPACE_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			invalid = append(invalid, "FLEXSPACE_REDIS_DB")
		} else {
			cfg.Redis.DB = db
		}
	}
	if v := env("FLEXSPACE_LOG_LEVEL"); v != "" {
		logLevel = v
	}

	if jwtTTL != "" {
		ttl, err := time.ParseDuration(jwtTTL)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "FLEXSPACE_JWT_TTL")
		} else {
			cfg.Auth.JWTTTL = ttl
		}
	}
	if logLevel != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(logLevel)); err != nil {
			invalid = append(invalid, "FLEXSPACE_LOG_LEVEL")
		}
	}
	switch strings.ToLower(cfg.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pq":
	default:
		invalid = append(invalid, "FLEXSPACE_DATABASE_DRIVER")
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "FLEXSPACE_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	var missing []string
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "FLEXSPACE_JWT_SECRET")
	}
	if cfg.QR.Secret == "" {
		missing = append(missing, "FLEXSPACE_QR_SECRET")
	}

	var problems []error
	if len(missing) > 0 {
		problems = append(problems, fmt.Errorf("required configuration is missing: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		problems = append(problems, fmt.Errorf("configuration values are invalid: %s", strings.Join(invalid, ", ")))
	}
	if len(problems) > 0 {
		return Config{}, errors.Join(problems...)
	}

	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	var file fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

func (c *Config) applyFile(file fileConfig) {
	if file.HTTP.Addr != "" {
		c.HTTP.Addr = file.HTTP.Addr
	}
	if len(file.HTTP.CORSOrigins) > 0 {
		c.HTTP.CORSOrigins = file.HTTP.CORSOrigins
	}
	if file.Database.Driver != "" {
		c.Database.Driver = file.Database.Driver
	}
	if file.Database.DSN != "" {
		c.Database.DSN = file.Database.DSN
	}
	if file.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = file.Auth.JWTSecret
	}
	if file.QR.Secret != "" {
		c.QR.Secret = file.QR.Secret
	}
	if file.QR.AuditDenied != nil {
		c.QR.AuditDenied = *file.QR.AuditDenied
	}
	if file.Redis.Addr != "" {
		c.Redis.Addr = file.Redis.Addr
	}
	if file.Redis.Password != "" {
		c.Redis.Password = file.Redis.Password
	}
	if file.Redis.DB > 0 {
		c.Redis.DB = file.Redis.DB
	}
	if file.Timezone != "" {
		c.Timezone = file.Timezone
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
