// Package config loads redmine-client settings from a file and REDMINE_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/redmine-client/pkg/client"
	"github.com/Sternrassler/redmine-client/pkg/logging"
	"github.com/Sternrassler/redmine-client/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// REDMINE_SERVER_API_KEY for server.api_key.
const EnvPrefix = "REDMINE"

// Config is the complete configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        logging.Config   `mapstructure:"log"`
}

// ServerConfig describes the Redmine installation.
type ServerConfig struct {
	URL        string        `mapstructure:"url" validate:"required,url"`
	APIKey     string        `mapstructure:"api_key"`
	SwitchUser string        `mapstructure:"switch_user"`
	Format     string        `mapstructure:"format" validate:"oneof=json xml"`
	UserAgent  string        `mapstructure:"user_agent" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// PaginationConfig controls collection fetches.
type PaginationConfig struct {
	PageSize       int           `mapstructure:"page_size" validate:"min=1,max=100"`
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"min=1"`
	PageTimeout    time.Duration `mapstructure:"page_timeout" validate:"gte=0"`
}

// RedisConfig enables the response cache when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// Option customises Load.
type Option func(v *viper.Viper) error

// WithFlags binds command line flags to config keys, e.g.
// {"server.url": "url"}. A flag set on the command line wins over the
// environment and the file.
func WithFlags(flags *pflag.FlagSet, bindings map[string]string) Option {
	return func(v *viper.Viper) error {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				return fmt.Errorf("unknown flag %q for %s", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
		return nil
	}
}

// Load reads the config file at path, applies environment and flag
// overrides and validates the result. An empty path loads defaults and
// overrides only.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	clientDefaults := client.DefaultConfig("", "")
	pagingDefaults := pagination.DefaultConfig()
	logDefaults := logging.DefaultConfig()

	v.SetDefault("server.url", "")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.switch_user", "")
	v.SetDefault("server.format", clientDefaults.Format)
	v.SetDefault("server.user_agent", clientDefaults.UserAgent)
	v.SetDefault("server.timeout", clientDefaults.Timeout)

	v.SetDefault("pagination.page_size", pagingDefaults.PageSize)
	v.SetDefault("pagination.max_concurrency", pagingDefaults.MaxConcurrency)
	v.SetDefault("pagination.page_timeout", pagingDefaults.Timeout)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", string(logDefaults.Level))
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.service", "")
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	return nil
}

// ClientConfig projects the server section onto a client configuration.
// redisClient may be nil to disable caching.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	return client.Config{
		BaseURL:    c.Server.URL,
		APIKey:     c.Server.APIKey,
		SwitchUser: c.Server.SwitchUser,
		UserAgent:  c.Server.UserAgent,
		Format:     c.Server.Format,
		Timeout:    c.Server.Timeout,
		Redis:      redisClient,
	}
}

// PaginationConfig projects the pagination section.
func (c *Config) PaginationConfig() pagination.Config {
	return pagination.Config{
		PageSize:       c.Pagination.PageSize,
		MaxConcurrency: c.Pagination.MaxConcurrency,
		Timeout:        c.Pagination.PageTimeout,
	}
}

// RedisOptions returns connection options, or nil when caching is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if c.Redis.Addr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}
