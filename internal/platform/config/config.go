package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	StorageDriver      string
	IdempotencyTTL     time.Duration
	OutboxBatchSize    int
	OutboxPollInterval time.Duration
	TieBreak           string
	EnableOutboxRelay  bool
}

// fileConfig mirrors the optional TOML file named by CONFIG_FILE.
type fileConfig struct {
	ServiceName        string   `toml:"service_name"`
	HTTPPort           string   `toml:"http_port"`
	PostgresDSN        string   `toml:"postgres_dsn"`
	KafkaBrokers       []string `toml:"kafka_brokers"`
	StorageDriver      string   `toml:"storage_driver"`
	IdempotencyTTL     string   `toml:"idempotency_ttl"`
	OutboxBatchSize    int      `toml:"outbox_batch_size"`
	OutboxPollInterval string   `toml:"outbox_poll_interval"`
	TieBreak           string   `toml:"tie_break"`
	EnableOutboxRelay  bool     `toml:"enable_outbox_relay"`
}

func Default() Config {
	return Config{
		ServiceName:        "wrightstv",
		HTTPPort:           "8080",
		KafkaBrokers:       []string{"localhost:9092"},
		StorageDriver:      StorageMemory,
		IdempotencyTTL:     7 * 24 * time.Hour,
		OutboxBatchSize:    100,
		OutboxPollInterval: 2 * time.Second,
		TieBreak:           "fewer_units_first",
		EnableOutboxRelay:  true,
	}
}

// Load builds the process config from defaults, then CONFIG_FILE when set,
// then environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	if meta.IsDefined("service_name") {
		cfg.ServiceName = strings.TrimSpace(raw.ServiceName)
	}
	if meta.IsDefined("http_port") {
		cfg.HTTPPort = strings.TrimSpace(raw.HTTPPort)
	}
	if meta.IsDefined("postgres_dsn") {
		cfg.PostgresDSN = strings.TrimSpace(raw.PostgresDSN)
	}
	if meta.IsDefined("kafka_brokers") {
		cfg.KafkaBrokers = normalizeBrokers(raw.KafkaBrokers)
	}
	if meta.IsDefined("storage_driver") {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(raw.StorageDriver))
	}
	if meta.IsDefined("idempotency_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdempotencyTTL))
		if err != nil {
			return fmt.Errorf("parse idempotency_ttl: %w", err)
		}
		cfg.IdempotencyTTL = d
	}
	if meta.IsDefined("outbox_batch_size") {
		cfg.OutboxBatchSize = raw.OutboxBatchSize
	}
	if meta.IsDefined("outbox_poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.OutboxPollInterval))
		if err != nil {
			return fmt.Errorf("parse outbox_poll_interval: %w", err)
		}
		cfg.OutboxPollInterval = d
	}
	if meta.IsDefined("tie_break") {
		cfg.TieBreak = strings.TrimSpace(raw.TieBreak)
	}
	if meta.IsDefined("enable_outbox_relay") {
		cfg.EnableOutboxRelay = raw.EnableOutboxRelay
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if value := strings.TrimSpace(os.Getenv("SERVICE_NAME")); value != "" {
		cfg.ServiceName = value
	}
	if value := strings.TrimSpace(os.Getenv("HTTP_PORT")); value != "" {
		cfg.HTTPPort = value
	}
	if value := strings.TrimSpace(os.Getenv("POSTGRES_DSN")); value != "" {
		cfg.PostgresDSN = value
	}
	if brokers := normalizeBrokers(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")); len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}
	if value := strings.TrimSpace(os.Getenv("STORAGE_DRIVER")); value != "" {
		cfg.StorageDriver = strings.ToLower(value)
	}
	if value := strings.TrimSpace(os.Getenv("IDEMPOTENCY_TTL")); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse IDEMPOTENCY_TTL: %w", err)
		}
		cfg.IdempotencyTTL = d
	}
	if value := strings.TrimSpace(os.Getenv("OUTBOX_BATCH_SIZE")); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse OUTBOX_BATCH_SIZE: %w", err)
		}
		cfg.OutboxBatchSize = n
	}
	if value := strings.TrimSpace(os.Getenv("OUTBOX_POLL_INTERVAL")); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse OUTBOX_POLL_INTERVAL: %w", err)
		}
		cfg.OutboxPollInterval = d
	}
	if value := strings.TrimSpace(os.Getenv("STV_TIE_BREAK")); value != "" {
		cfg.TieBreak = value
	}
	cfg.EnableOutboxRelay = envBool("ENABLE_OUTBOX_RELAY", cfg.EnableOutboxRelay)
	return nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("idempotency ttl must be positive, got %s", c.IdempotencyTTL)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be positive, got %s", c.OutboxPollInterval)
	}
	return nil
}

func normalizeBrokers(values []string) []string {
	var brokers []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	return brokers
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
