package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var validEnvs = map[string]bool{
	"local": true,
	"alpha": true,
	"beta":  true,
	"prod":  true,
}

type Config struct {
	ServerPort      string        `yaml:"server_port"`
	AppEnv          string        `yaml:"app_env"`
	AuthDevMode     bool          `yaml:"auth_dev_mode"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	LogLevel        string        `yaml:"log_level"`
	NotifyQueueSize int           `yaml:"notify_queue_size"`
	DB              DBConfig      `yaml:"db"`
	Cognito         CognitoConfig `yaml:"cognito"`
	Redis           RedisConfig   `yaml:"redis"`
}

func (c Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid SERVER_PORT %q: %w", c.ServerPort, err)
	}
	if !validEnvs[c.AppEnv] {
		return fmt.Errorf("invalid APP_ENV %q: must be one of local, alpha, beta, prod", c.AppEnv)
	}
	if c.AuthDevMode && c.AppEnv != "local" {
		return fmt.Errorf("AUTH_DEV_MODE must not be enabled in %s environment", c.AppEnv)
	}
	if !c.AuthDevMode {
		if c.Cognito.UserPoolID == "" {
			return fmt.Errorf("COGNITO_USER_POOL_ID is required when AUTH_DEV_MODE is disabled")
		}
		if c.Cognito.AppClientID == "" {
			return fmt.Errorf("COGNITO_APP_CLIENT_ID is required when AUTH_DEV_MODE is disabled")
		}
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("invalid NOTIFY_QUEUE_SIZE %d: must be positive", c.NotifyQueueSize)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid REDIS_DB %d: must not be negative", c.Redis.DB)
	}
	return nil
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(d.SSLMode)),
	}
	return u.String()
}

type CognitoConfig struct {
	Region          string `yaml:"region"`
	UserPoolID      string `yaml:"user_pool_id"`
	AppClientID     string `yaml:"app_client_id"`
	AppClientSecret string `yaml:"app_client_secret"`
}

// RedisConfig is optional. With an empty Addr notifications stay in-process.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

func defaults() Config {
	return Config{
		ServerPort:      "8080",
		AppEnv:          "local",
		LogLevel:        "info",
		NotifyQueueSize: 256,
		DB: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "board",
			Password: "board",
			Name:     "project_board",
			SSLMode:  "disable",
		},
		Cognito: CognitoConfig{
			Region: "ap-northeast-1",
		},
		Redis: RedisConfig{
			ChannelPrefix: "project-board:",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.ServerPort = envOrDefault("SERVER_PORT", cfg.ServerPort)
	cfg.AppEnv = envOrDefault("APP_ENV", cfg.AppEnv)
	cfg.AuthDevMode = envBool("AUTH_DEV_MODE", cfg.AuthDevMode)
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.DB.Host = envOrDefault("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = envOrDefault("DB_PORT", cfg.DB.Port)
	cfg.DB.User = envOrDefault("DB_USER", cfg.DB.User)
	cfg.DB.Password = envOrDefault("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envOrDefault("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envOrDefault("DB_SSLMODE", cfg.DB.SSLMode)

	cfg.Cognito.Region = envOrDefault("COGNITO_REGION", cfg.Cognito.Region)
	cfg.Cognito.UserPoolID = envOrDefault("COGNITO_USER_POOL_ID", cfg.Cognito.UserPoolID)
	cfg.Cognito.AppClientID = envOrDefault("COGNITO_APP_CLIENT_ID", cfg.Cognito.AppClientID)
	cfg.Cognito.AppClientSecret = envOrDefault("COGNITO_APP_CLIENT_SECRET", cfg.Cognito.AppClientSecret)

	cfg.Redis.Addr = envOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.ChannelPrefix = envOrDefault("REDIS_CHANNEL_PREFIX", cfg.Redis.ChannelPrefix)

	var errs []error
	var err error
	if cfg.Redis.DB, err = envInt("REDIS_DB", cfg.Redis.DB); err != nil {
		errs = append(errs, err)
	}
	if cfg.NotifyQueueSize, err = envInt("NOTIFY_QUEUE_SIZE", cfg.NotifyQueueSize); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true")
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
