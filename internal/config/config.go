package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Game      GameConfig      `mapstructure:"game"`
	Transport TransportConfig `mapstructure:"transport"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	Env            string   `mapstructure:"env"` // "development" or "production"
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GameConfig holds game-related configuration
type GameConfig struct {
	DefaultRoundSeconds int           `mapstructure:"default_round_seconds"`
	MinRoundSeconds     int           `mapstructure:"min_round_seconds"`
	MaxRoundSeconds     int           `mapstructure:"max_round_seconds"`
	MaxNameLength       int           `mapstructure:"max_name_length"`
	MaxTypedLength      int           `mapstructure:"max_typed_length"`
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	RoomIdleTTL         time.Duration `mapstructure:"room_idle_ttl"`
	JanitorSchedule     string        `mapstructure:"janitor_schedule"`
	ParagraphsFile      string        `mapstructure:"paragraphs_file"`
}

// TransportConfig holds websocket-related configuration
type TransportConfig struct {
	TypingRate  float64 `mapstructure:"typing_rate"`  // player-typed messages per second
	TypingBurst int     `mapstructure:"typing_burst"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

var defaults = map[string]interface{}{
	"server.port":            "8000",
	"server.host":            "0.0.0.0",
	"server.env":             "development",
	"server.allowed_origins": []string{"*"},

	"game.default_round_seconds": 60,
	"game.min_round_seconds":     5,
	"game.max_round_seconds":     300,
	"game.max_name_length":       32,
	"game.max_typed_length":      4096,
	"game.tick_interval":         time.Second,
	"game.room_idle_ttl":         30 * time.Minute,
	"game.janitor_schedule":      "@every 5m",
	"game.paragraphs_file":       "",

	"transport.typing_rate":  20.0,
	"transport.typing_burst": 40,

	"logging.level":  "info",
	"logging.format": "text",
}

// Load reads configuration from an optional config.yaml in dir, then from
// environment variables (SERVER_PORT, GAME_MAX_ROUND_SECONDS, ...).
func Load(dir string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// PORT is the conventional variable on most hosts
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SERVER_PORT") == "" {
		cfg.Server.Port = port
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
