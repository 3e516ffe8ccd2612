package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/studyroom/go/internal/dbconfig"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/mcdev12/studyroom/go/internal/timer/repository"
	"gopkg.in/yaml.v3"
)

// Transport kinds for server-pushed timer events.
const (
	TransportStomp = "stomp"
	TransportNATS  = "nats"
	TransportNone  = "none"
)

type Config struct {
	Backend struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"backend"`

	Username string   `yaml:"username"`
	Rooms    []string `yaml:"rooms"`

	Transport struct {
		Kind          string        `yaml:"kind"`
		StompURL      string        `yaml:"stomp_url"`
		NATSURL       string        `yaml:"nats_url"`
		Stream        string        `yaml:"stream"`
		ReconnectWait time.Duration `yaml:"reconnect_wait"`
	} `yaml:"transport"`

	Timer struct {
		TickInterval time.Duration `yaml:"tick_interval"`
		StaleAfter   time.Duration `yaml:"stale_after"`
	} `yaml:"timer"`

	Shell struct {
		Port string `yaml:"port"`
	} `yaml:"shell"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Storage dbconfig.StorageConfig `yaml:"-"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Backend.BaseURL = "http://localhost:8080"
	cfg.Transport.Kind = TransportStomp
	cfg.Transport.StompURL = "ws://localhost:8080/ws"
	cfg.Transport.NATSURL = "nats://localhost:4222"
	cfg.Transport.Stream = "STUDYROOM_EVENTS"
	cfg.Transport.ReconnectWait = 2 * time.Second
	cfg.Timer.TickInterval = timer.DefaultTickInterval
	cfg.Timer.StaleAfter = repository.DefaultStaleAfter
	cfg.Shell.Port = "7070"
	cfg.Log.Level = "info"
	cfg.Log.Pretty = true
	return cfg
}

// loadConfig layers defaults, the YAML file at path (when given) and the
// environment, in that order.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Backend.BaseURL = getEnv("STUDYROOM_API_URL", cfg.Backend.BaseURL)
	cfg.Backend.Token = getEnv("STUDYROOM_TOKEN", cfg.Backend.Token)
	cfg.Username = getEnv("STUDYROOM_USERNAME", cfg.Username)
	if rooms := getEnv("STUDYROOM_ROOMS", ""); rooms != "" {
		cfg.Rooms = splitList(rooms)
	}

	cfg.Transport.Kind = getEnv("STUDYROOM_TRANSPORT", cfg.Transport.Kind)
	cfg.Transport.StompURL = getEnv("STUDYROOM_STOMP_URL", cfg.Transport.StompURL)
	cfg.Transport.NATSURL = getEnv("NATS_URL", cfg.Transport.NATSURL)
	cfg.Transport.Stream = getEnv("NATS_STREAM", cfg.Transport.Stream)
	cfg.Transport.ReconnectWait = getEnvAsDuration("STUDYROOM_RECONNECT_WAIT", cfg.Transport.ReconnectWait)

	cfg.Timer.TickInterval = getEnvAsDuration("STUDYROOM_TICK_INTERVAL", cfg.Timer.TickInterval)
	cfg.Timer.StaleAfter = getEnvAsDuration("STUDYROOM_STALE_AFTER", cfg.Timer.StaleAfter)

	cfg.Shell.Port = getEnv("PORT", cfg.Shell.Port)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvAsBool("LOG_PRETTY", cfg.Log.Pretty)

	cfg.Storage = dbconfig.NewStorageConfigFromEnv()
}

func (c *Config) validate() error {
	switch c.Transport.Kind {
	case TransportStomp, TransportNATS, TransportNone:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport.Kind)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
