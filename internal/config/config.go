package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	AMQP      *AMQPConfig      `mapstructure:"amqp"`
	Worker    *WorkerConfig    `mapstructure:"worker"`
	Allocator *AllocatorConfig `mapstructure:"allocator"`
	Artifacts *ArtifactsConfig `mapstructure:"artifacts"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type WorkerConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Queue       string `mapstructure:"queue"`
}

// AllocatorConfig carries the tunables of the allocation engine. Zero values are
// replaced with defaults in ApplyDefaults so a sparse config file stays valid.
type AllocatorConfig struct {
	ChunkSize    int           `mapstructure:"chunk_size"`
	ChunkRetries int           `mapstructure:"chunk_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	LockTries    int           `mapstructure:"lock_tries"`
	LockBackoff  time.Duration `mapstructure:"lock_backoff"`
}

type ArtifactsConfig struct {
	Dir      string `mapstructure:"dir"`
	ShareURL string `mapstructure:"share_url"`
}

func (c *AllocatorConfig) ApplyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 500
	}
	if c.ChunkRetries <= 0 {
		c.ChunkRetries = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Second
	}
	if c.LockTries <= 0 {
		c.LockTries = 3
	}
	if c.LockBackoff <= 0 {
		c.LockBackoff = 2 * time.Second
	}
}

func Load(configFile string) (*AppConfig, error) {
	viper.SetConfigFile(configFile)
	viper.SetEnvPrefix("RIFA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper.ReadInConfig -> %w", err)
	}

	config := &AppConfig{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal -> %w", err)
	}

	if config.Allocator == nil {
		config.Allocator = &AllocatorConfig{}
	}
	config.Allocator.ApplyDefaults()

	viper.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("config file changed", zap.String("file", e.Name))
		if err := viper.Unmarshal(config); err != nil {
			zap.L().Error("failed to reload config", zap.Error(err))
		}
	})
	viper.WatchConfig()

	return config, nil
}
