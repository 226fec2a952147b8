// Package config loads ledger client configuration from YAML, .env files and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/hiero_client/pkg/logger"
)

// Config is the full client configuration. Slice-valued environment
// variables are semicolon separated.
type Config struct {
	Network NetworkConfig        `yaml:"network"`
	Payer   PayerConfig          `yaml:"payer"`
	Retry   RetryConfig          `yaml:"retry"`
	Stream  StreamConfig         `yaml:"stream"`
	Logging logger.LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig        `yaml:"metrics"`
	Audit   AuditConfig          `yaml:"audit"`
}

// NetworkConfig names the endpoints and submission limits.
type NetworkConfig struct {
	Gateways            []string      `yaml:"gateways" env:"LEDGER_GATEWAYS"`
	Mirror              string        `yaml:"mirror" env:"LEDGER_MIRROR"`
	FeeLimit            uint64        `yaml:"fee_limit" env:"LEDGER_FEE_LIMIT"`
	Memo                string        `yaml:"memo" env:"LEDGER_MEMO"`
	RequestTimeout      time.Duration `yaml:"request_timeout" env:"LEDGER_REQUEST_TIMEOUT"`
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval" env:"LEDGER_RECEIPT_POLL_INTERVAL"`
	ReceiptTimeout      time.Duration `yaml:"receipt_timeout" env:"LEDGER_RECEIPT_TIMEOUT"`
	ValidDuration       time.Duration `yaml:"valid_duration" env:"LEDGER_VALID_DURATION"`
	ThrottleRPS         float64       `yaml:"throttle_rps" env:"LEDGER_THROTTLE_RPS"`
	ThrottleBurst       int           `yaml:"throttle_burst" env:"LEDGER_THROTTLE_BURST"`
	AdminURL            string        `yaml:"admin_url" env:"LEDGER_ADMIN_URL"`
}

// PayerConfig identifies the paying account and its signing key. The key is
// either a hex private key or derived from Seed and SeedLabel.
type PayerConfig struct {
	Account    string `yaml:"account" env:"LEDGER_PAYER_ACCOUNT"`
	KeyType    string `yaml:"key_type" env:"LEDGER_PAYER_KEY_TYPE"`
	PrivateKey string `yaml:"private_key" env:"LEDGER_PAYER_KEY"`
	Seed       string `yaml:"seed" env:"LEDGER_PAYER_SEED"`
	SeedLabel  string `yaml:"seed_label" env:"LEDGER_PAYER_SEED_LABEL"`
}

// RetryConfig mirrors the submit retry policy.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" env:"LEDGER_RETRY_MAX_ATTEMPTS"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" env:"LEDGER_RETRY_INITIAL_BACKOFF"`
	MaxBackoff        time.Duration `yaml:"max_backoff" env:"LEDGER_RETRY_MAX_BACKOFF"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" env:"LEDGER_RETRY_MULTIPLIER"`
	Jitter            float64       `yaml:"jitter" env:"LEDGER_RETRY_JITTER"`
}

// StreamConfig configures topic subscriptions.
type StreamConfig struct {
	QueueSize    int           `yaml:"queue_size" env:"LEDGER_STREAM_QUEUE_SIZE"`
	WriteRetries int           `yaml:"write_retries" env:"LEDGER_STREAM_WRITE_RETRIES"`
	RoomTimeout  time.Duration `yaml:"room_timeout" env:"LEDGER_STREAM_ROOM_TIMEOUT"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" env:"LEDGER_METRICS_ENABLED"`
	Namespace  string `yaml:"namespace" env:"LEDGER_METRICS_NAMESPACE"`
	ListenAddr string `yaml:"listen_addr" env:"LEDGER_METRICS_ADDR"`
}

// AuditConfig configures the request audit sink.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled" env:"LEDGER_AUDIT_ENABLED"`
	DSN       string `yaml:"dsn" env:"LEDGER_AUDIT_DSN"`
	QueueSize int    `yaml:"queue_size" env:"LEDGER_AUDIT_QUEUE_SIZE"`
}

// Default returns a configuration matching the engine defaults.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			FeeLimit:            200_000_000,
			RequestTimeout:      2 * time.Minute,
			ReceiptPollInterval: 2 * time.Second,
			ReceiptTimeout:      2 * time.Minute,
			ValidDuration:       120 * time.Second,
		},
		Payer: PayerConfig{KeyType: "ed25519"},
		Retry: RetryConfig{
			MaxAttempts:       5,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            0.1,
		},
		Stream: StreamConfig{
			QueueSize:    256,
			WriteRetries: 1,
			RoomTimeout:  30 * time.Second,
		},
		Logging: logger.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Metrics: MetricsConfig{Namespace: "ledger", ListenAddr: ":9090"},
		Audit:   AuditConfig{QueueSize: 1024},
	}
}

// Load builds a Config from defaults, an optional .env file in the working
// directory, the YAML file at path (skipped when path is empty) and finally the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. Missing endpoints and payer are reported by
// the client when they are first needed, not here.
func (c Config) Validate() error {
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be >= 0")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be within [0, 1]")
	}
	if c.Stream.QueueSize < 0 {
		return fmt.Errorf("stream.queue_size must be >= 0")
	}
	if c.Stream.WriteRetries < 0 {
		return fmt.Errorf("stream.write_retries must be >= 0")
	}
	switch strings.ToLower(c.Payer.KeyType) {
	case "", "ed25519", "ecdsa", "ecdsa-secp256r1":
	default:
		return fmt.Errorf("payer.key_type %q is not supported", c.Payer.KeyType)
	}
	if c.Payer.PrivateKey != "" && c.Payer.Seed != "" {
		return fmt.Errorf("payer.private_key and payer.seed are mutually exclusive")
	}
	if c.Audit.Enabled && c.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn is required when audit is enabled")
	}
	return nil
}
