package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	DefaultBindAddress = "127.0.0.1"
	DefaultPort        = 9000
	DefaultLogLevel    = "info"
	DefaultGreeting    = "Test message"
	DefaultHistorySize = 256
	DefaultHistoryTTL  = 10 * time.Minute
)

type Config struct {
	BindAddress string `yaml:"bind-address" json:"bind_address" validate:"required,ip"`
	Port        int    `yaml:"port" json:"port" validate:"min=1,max=65535"`
	LogLevel    string `yaml:"log-level" json:"log_level" validate:"oneof=debug info warn error"`

	// Greeting is sent once after the handshake. Empty disables it.
	Greeting string `yaml:"greeting" json:"greeting"`

	APIServer       string `yaml:"api-server" json:"api_server" validate:"omitempty,hostname_port"`
	APIServerSecret string `yaml:"api-server-secret" json:"-"`

	History HistoryConfig `yaml:"history" json:"history"`
}

// HistoryConfig bounds the list of recently closed sessions kept for the API.
type HistoryConfig struct {
	Size int           `yaml:"size" json:"size" validate:"min=1"`
	TTL  time.Duration `yaml:"ttl" json:"ttl" validate:"min=0"`
}

// SetDefaults registers the default value of every key on the global viper.
func SetDefaults() {
	viper.SetDefault("bind-address", DefaultBindAddress)
	viper.SetDefault("port", DefaultPort)
	viper.SetDefault("log-level", DefaultLogLevel)
	viper.SetDefault("greeting", DefaultGreeting)
	viper.SetDefault("api-server", "")
	viper.SetDefault("api-server-secret", "")
	viper.SetDefault("history.size", DefaultHistorySize)
	viper.SetDefault("history.ttl", DefaultHistoryTTL)
}

// BuildConfigFromViper decodes the merged flag, env, file and default values
// held by the global viper and validates the result.
func BuildConfigFromViper() (*Config, error) {
	var cfg Config
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	})
	if err != nil {
		return nil, fmt.Errorf("viper.Unmarshal: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.BindAddress = strings.TrimSpace(cfg.BindAddress)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ListenAddr is the host:port the echo server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("Log Level", c.LogLevel),
		slog.String("Listen Address", c.ListenAddr()),
		slog.String("Greeting", c.Greeting),
		slog.String("API Server", c.APIServer),
		slog.Bool("API Secret", c.APIServerSecret != ""),
		slog.Int("History Size", c.History.Size),
		slog.Duration("History TTL", c.History.TTL),
	)
}
