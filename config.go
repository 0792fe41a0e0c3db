package fbplus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Source SourceConfig `mapstructure:"source"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// SourceConfig describes the forum being read.
type SourceConfig struct {
	Origin   string `mapstructure:"origin"`
	Encoding string `mapstructure:"encoding"`
	Timezone string `mapstructure:"timezone"`
}

// HTTPConfig controls outgoing requests to the forum.
type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// CacheConfig controls how long fetched pages are reused.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Structured bool   `mapstructure:"structured"`
}

// SetDefaults registers the default value of every configuration key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.origin", DefaultOrigin)
	v.SetDefault("source.encoding", "iso-8859-1")
	v.SetDefault("source.timezone", "Europe/Stockholm")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.requests_per_second", 1)
	v.SetDefault("http.burst", 5)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("cache.ttl", DefaultCacheTTL.String())
	v.SetDefault("server.addr", "127.0.0.1:3000")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.structured", false)
}

// LoadConfig reads configuration from v's config file, if one is found, and
// FBPLUS_* environment variables on top of the defaults.
func LoadConfig(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("fbplus")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}

// NewClientFromConfig builds a rate limited Client with a fresh cache.
func NewClientFromConfig(config *Config) (*Client, error) {
	enc, err := LookupEncoding(config.Source.Encoding)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(config.Source.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unable to load time zone: %w", err)
	}
	doer, err := NewLimitedHTTPClient(HTTPOptions{
		Timeout:           config.HTTP.Timeout,
		RequestsPerSecond: config.HTTP.RequestsPerSecond,
		Burst:             config.HTTP.Burst,
		UserAgent:         config.HTTP.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	ttl := config.Cache.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return NewClient(doer, NewThreadCache(ttl, time.Now), ClientOptions{
		Origin:   config.Source.Origin,
		Encoding: enc,
		Location: loc,
	}), nil
}

// NewLogger builds a text or JSON logger writing to w.
func NewLogger(config LogConfig, w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", config.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.Structured {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}
