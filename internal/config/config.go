package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config represents the root configuration structure for the application
type Config struct {
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Counter CounterConfig `mapstructure:"counter"`
	Stream  StreamConfig  `mapstructure:"stream"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// RedisConfig holds the network settings of the server to talk to
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// CounterConfig drives the INCR loop
type CounterConfig struct {
	Key      string        `mapstructure:"key"`
	Interval time.Duration `mapstructure:"interval"`
	Limit    int           `mapstructure:"limit"` // stop after this many increments; 0 runs forever
}

// StreamConfig drives the XREAD consumer
type StreamConfig struct {
	Key        string        `mapstructure:"key"`
	StartID    string        `mapstructure:"start_id"`    // $ for new entries only, 0 for the whole stream
	Block      time.Duration `mapstructure:"block"`       // XREAD BLOCK per poll
	Count      int           `mapstructure:"count"`       // 0 means no COUNT
	CursorFile string        `mapstructure:"cursor_file"` // empty disables persistence
}

// PubSubConfig lists the channels the listener subscribes to
type PubSubConfig struct {
	Channels []string `mapstructure:"channels"`
}

// RetryConfig shapes the exponential backoff used between reconnects
type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"` // 0 retries forever
}

// MetricsConfig enables the prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOONWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Redis
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.dial_timeout", "5s")

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Counter
	v.SetDefault("counter.key", "counter")
	v.SetDefault("counter.interval", "1s")
	v.SetDefault("counter.limit", 0)

	// Stream
	v.SetDefault("stream.key", "mystream")
	v.SetDefault("stream.start_id", "$")
	v.SetDefault("stream.block", "5s")
	v.SetDefault("stream.count", 0)
	v.SetDefault("stream.cursor_file", "")

	// PubSub
	v.SetDefault("pubsub.channels", []string{"notify"})

	// Retry
	v.SetDefault("retry.initial_interval", "100ms")
	v.SetDefault("retry.max_interval", "10s")
	v.SetDefault("retry.max_elapsed", "0s")

	// Metrics
	v.SetDefault("metrics.addr", "")
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var err error

	if c.Redis.Host == "" {
		err = multierr.Append(err, errors.New("redis.host must not be empty"))
	}
	if p, perr := strconv.Atoi(c.Redis.Port); perr != nil || p < 1 || p > 65535 {
		err = multierr.Append(err, fmt.Errorf("redis.port %q is not a valid port", c.Redis.Port))
	}
	if c.Redis.DialTimeout < 0 {
		err = multierr.Append(err, errors.New("redis.dial_timeout must not be negative"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	if c.Counter.Key == "" {
		err = multierr.Append(err, errors.New("counter.key must not be empty"))
	}
	if c.Counter.Interval < 0 {
		err = multierr.Append(err, errors.New("counter.interval must not be negative"))
	}
	if c.Counter.Limit < 0 {
		err = multierr.Append(err, errors.New("counter.limit must not be negative"))
	}
	if c.Stream.Key == "" {
		err = multierr.Append(err, errors.New("stream.key must not be empty"))
	}
	if c.Stream.Block < 0 {
		err = multierr.Append(err, errors.New("stream.block must not be negative"))
	}
	if c.Stream.Count < 0 {
		err = multierr.Append(err, errors.New("stream.count must not be negative"))
	}
	if len(c.PubSub.Channels) == 0 {
		err = multierr.Append(err, errors.New("pubsub.channels must list at least one channel"))
	}
	if c.Retry.InitialInterval <= 0 || c.Retry.MaxInterval < c.Retry.InitialInterval {
		err = multierr.Append(err, errors.New("retry intervals must satisfy 0 < initial_interval <= max_interval"))
	}

	return err
}

// Backoff builds the reconnect policy described by Retry
func (c *Config) Backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Retry.InitialInterval
	b.MaxInterval = c.Retry.MaxInterval
	b.MaxElapsedTime = c.Retry.MaxElapsed
	b.Reset()
	return b
}
