// Package config loads process configuration from the environment, with an
// optional .env file and an optional YAML overlay for deployments that ship
// a config file instead of environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`

	Debug        bool   `env:"LYANNA_DEBUG,default=false" yaml:"debug"`
	CDNDomain    string `env:"LYANNA_CDN_DOMAIN" yaml:"cdn_domain"`
	UploadFolder string `env:"LYANNA_UPLOAD_FOLDER,default=static/upload" yaml:"upload_folder"`
}

type ServerConfig struct {
	Host string `env:"LYANNA_HOST,default=0.0.0.0" yaml:"host"`
	Port int    `env:"LYANNA_PORT,default=8000" yaml:"port"`
}

type DatabaseConfig struct {
	DSN             string `env:"LYANNA_DB_DSN,default=postgres://localhost/lyanna?sslmode=disable" yaml:"dsn"`
	MaxOpenConns    int    `env:"LYANNA_DB_MAX_OPEN_CONNS,default=20" yaml:"max_open_conns"`
	MaxIdleConns    int    `env:"LYANNA_DB_MAX_IDLE_CONNS,default=5" yaml:"max_idle_conns"`
	ConnMaxLifetime int    `env:"LYANNA_DB_CONN_MAX_LIFETIME,default=300" yaml:"conn_max_lifetime"` // seconds
}

type CacheConfig struct {
	Addr string `env:"LYANNA_MEMCACHED_ADDR,default=localhost:11211" yaml:"addr"`
}

type RedisConfig struct {
	URL         string `env:"LYANNA_REDIS_URL,default=redis://localhost:6379/0" yaml:"url"`
	PoolMinSize int    `env:"LYANNA_REDIS_POOL_MIN,default=5" yaml:"pool_min_size"`
	PoolMaxSize int    `env:"LYANNA_REDIS_POOL_MAX,default=20" yaml:"pool_max_size"`
}

type AuthConfig struct {
	JWTSecret       string        `env:"LYANNA_JWT_SECRET,default=lyanna" yaml:"jwt_secret"`
	ExpirationDelta time.Duration `env:"LYANNA_JWT_EXPIRATION,default=720h" yaml:"expiration_delta"`
}

type LoggingConfig struct {
	Level  string `env:"LYANNA_LOG_LEVEL,default=info" yaml:"level"`
	Format string `env:"LYANNA_LOG_FORMAT,default=json" yaml:"format"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present. If LYANNA_CONFIG names a YAML file,
// its values override the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if path := os.Getenv("LYANNA_CONFIG"); path != "" {
		if err := cfg.applyYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Redis.PoolMinSize <= 0 || c.Redis.PoolMaxSize < c.Redis.PoolMinSize {
		return fmt.Errorf("redis pool sizes invalid: min=%d max=%d", c.Redis.PoolMinSize, c.Redis.PoolMaxSize)
	}
	if c.Auth.ExpirationDelta <= 0 {
		return fmt.Errorf("jwt expiration must be positive")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
