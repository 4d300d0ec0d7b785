package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/roundsync/go/internal/notifier"
	"github.com/mcdev12/roundsync/go/internal/session"
)

const (
	RolePlayer = "player"
	RoleHost   = "host"
)

type Config struct {
	Role string `yaml:"role"`

	RoomAPI struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"room_api"`

	Entry struct {
		RoomCode   string `yaml:"room_code"`
		Nickname   string `yaml:"nickname"`
		CreateRoom bool   `yaml:"create_room"`
	} `yaml:"entry"`

	Store struct {
		Driver string `yaml:"driver"` // memory, file or sql
		Path   string `yaml:"path"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`

	Notifier struct {
		Kind      string                   `yaml:"kind"` // websocket, nats, pg or none
		WebSocket notifier.WebSocketConfig `yaml:"websocket"`
		NATS      notifier.NATSConfig      `yaml:"nats"`
		Postgres  notifier.PGConfig        `yaml:"postgres"`
	} `yaml:"notifier"`

	Session session.Config `yaml:"session"`

	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	cfg := &Config{Role: RolePlayer, LogLevel: "info"}
	cfg.RoomAPI.BaseURL = "http://0.0.0.0:8000"
	cfg.Store.Driver = "file"
	cfg.Store.Path = ".roundsync/store.json"
	cfg.Notifier.Kind = "websocket"
	cfg.Notifier.WebSocket = notifier.DefaultWebSocketConfig()
	cfg.Notifier.NATS = notifier.DefaultNATSConfig()
	cfg.Notifier.Postgres = notifier.DefaultPGConfig()
	cfg.Session = session.DefaultConfig()
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(config)
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(c *Config) {
	c.Role = getEnv("ROUNDSYNC_ROLE", c.Role)
	c.RoomAPI.BaseURL = getEnv("ROOM_API_URL", c.RoomAPI.BaseURL)
	c.Entry.RoomCode = getEnv("ROUNDSYNC_ROOM_CODE", c.Entry.RoomCode)
	c.Entry.Nickname = getEnv("ROUNDSYNC_NICKNAME", c.Entry.Nickname)
	c.Entry.CreateRoom = getEnvAsBool("ROUNDSYNC_CREATE_ROOM", c.Entry.CreateRoom)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.Path = getEnv("STORE_PATH", c.Store.Path)
	c.Store.DSN = getEnv("STORE_DSN", c.Store.DSN)
	c.Notifier.Kind = getEnv("NOTIFIER_KIND", c.Notifier.Kind)
	c.Notifier.WebSocket.BaseURL = getEnv("WS_BASE_URL", c.Notifier.WebSocket.BaseURL)
	c.Notifier.WebSocket.MaxReconnectAttempts = getEnvAsInt("WS_MAX_RECONNECT_ATTEMPTS", c.Notifier.WebSocket.MaxReconnectAttempts)
	c.Notifier.NATS.URL = getEnv("NATS_URL", c.Notifier.NATS.URL)
	c.Notifier.Postgres.DSN = getEnv("NOTIFY_DSN", c.Notifier.Postgres.DSN)
	c.Session.Sync.ActiveDelay = getEnvAsDuration("POLL_ACTIVE_DELAY", c.Session.Sync.ActiveDelay)
	c.Session.Sync.IdleDelay = getEnvAsDuration("POLL_IDLE_DELAY", c.Session.Sync.IdleDelay)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) validate() error {
	switch c.Role {
	case RolePlayer, RoleHost:
	default:
		return fmt.Errorf("unknown role %q, want %s or %s", c.Role, RolePlayer, RoleHost)
	}
	switch c.Store.Driver {
	case "memory", "file", "sql":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Notifier.Kind {
	case "websocket", "nats", "pg", "none", "":
	default:
		return fmt.Errorf("unknown notifier kind %q", c.Notifier.Kind)
	}
	if c.RoomAPI.BaseURL == "" {
		return errors.New("room_api.base_url is required")
	}
	return nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
