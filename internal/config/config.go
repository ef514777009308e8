// Package config loads process settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	BusInProcess      = "inprocess"
	BusRedis          = "redis"
	BusKafka          = "kafka"
	BusGoChannel      = "gochannel"
	BusWatermillKafka = "watermill-kafka"
)

type Config struct {
	LogMode             string        `yaml:"log_mode"`
	HTTPAddr            string        `yaml:"http_addr"`
	CORSOrigins         []string      `yaml:"cors_origins"`
	Store               string        `yaml:"store"`
	DatabaseURL         string        `yaml:"database_url"`
	Bus                 string        `yaml:"bus"`
	RedisAddr           string        `yaml:"redis_addr"`
	KafkaBrokers        []string      `yaml:"kafka_brokers"`
	KafkaGroupID        string        `yaml:"kafka_group_id"`
	EventChannelPrefix  string        `yaml:"event_channel_prefix"`
	HandlerConcurrency  int           `yaml:"handler_concurrency"`
	CartTTL             time.Duration `yaml:"-"`
	OutboxRelayInterval time.Duration `yaml:"-"`
	InboxTTL            time.Duration `yaml:"-"`

	CartTTLHours     int    `yaml:"cart_ttl_hours"`
	OutboxRelayEvery string `yaml:"outbox_relay_interval"`
	InboxTTLHours    int    `yaml:"inbox_ttl_hours"`
}

func defaults() Config {
	return Config{
		LogMode:            "development",
		HTTPAddr:           ":8080",
		Store:              StoreMemory,
		Bus:                BusInProcess,
		RedisAddr:          "localhost:6379",
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaGroupID:       "webshop",
		EventChannelPrefix: "domain-events",
		HandlerConcurrency: 4,
		CartTTLHours:       24 * 7,
		InboxTTLHours:      24,
	}
}

// Load reads CONFIG_FILE when set, then lets environment variables override it.
func Load(log *logger.Logger) (*Config, error) {
	cfg := defaults()

	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.LogMode = getEnv("LOG_MODE", cfg.LogMode, log)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr, log)
	cfg.CORSOrigins = splitCSV(getEnv("CORS_ORIGINS", strings.Join(cfg.CORSOrigins, ","), log))
	cfg.Store = strings.ToLower(getEnv("STORE", cfg.Store, log))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL, log)
	cfg.Bus = strings.ToLower(getEnv("BUS", cfg.Bus, log))
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr, log)
	cfg.KafkaBrokers = splitCSV(getEnv("KAFKA_BROKERS", strings.Join(cfg.KafkaBrokers, ","), log))
	cfg.KafkaGroupID = getEnv("KAFKA_GROUP_ID", cfg.KafkaGroupID, log)
	cfg.EventChannelPrefix = getEnv("EVENT_CHANNEL_PREFIX", cfg.EventChannelPrefix, log)
	cfg.HandlerConcurrency = getEnvAsInt("HANDLER_CONCURRENCY", cfg.HandlerConcurrency, log)
	cfg.CartTTLHours = getEnvAsInt("CART_TTL_HOURS", cfg.CartTTLHours, log)
	cfg.OutboxRelayEvery = getEnv("OUTBOX_RELAY_INTERVAL", cfg.OutboxRelayEvery, log)
	cfg.InboxTTLHours = getEnvAsInt("INBOX_TTL_HOURS", cfg.InboxTTLHours, log)

	cfg.CartTTL = time.Duration(cfg.CartTTLHours) * time.Hour
	cfg.InboxTTL = time.Duration(cfg.InboxTTLHours) * time.Hour
	if cfg.OutboxRelayEvery != "" {
		d, err := time.ParseDuration(cfg.OutboxRelayEvery)
		if err != nil {
			return nil, fmt.Errorf("invalid OUTBOX_RELAY_INTERVAL %q: %w", cfg.OutboxRelayEvery, err)
		}
		cfg.OutboxRelayInterval = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	switch c.Bus {
	case BusInProcess, BusGoChannel, BusRedis:
	case BusKafka, BusWatermillKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when BUS=%s", c.Bus)
		}
	default:
		return fmt.Errorf("unknown BUS %q", c.Bus)
	}
	if c.HandlerConcurrency < 1 {
		return fmt.Errorf("HANDLER_CONCURRENCY must be positive, got %d", c.HandlerConcurrency)
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL_HOURS must be positive, got %d", c.CartTTLHours)
	}
	return nil
}

func getEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("Environment variable found, using environment", "environment", val)
	}
	return val
}

func getEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable could not be parsed as int, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
