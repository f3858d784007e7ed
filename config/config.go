package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// NATS configuration
	NATSServers string `envconfig:"NATS_SERVERS" default:"nats://nats:4222"`

	// Redis configuration (presence snapshot store, optional)
	RedisAddr string `envconfig:"REDIS_ADDR"`

	// Room configuration
	RoomCodeLength    int           `envconfig:"ROOM_CODE_LENGTH" default:"6"`
	RoomCodeAttempts  int           `envconfig:"ROOM_CODE_ATTEMPTS" default:"5"`
	MoveTimeout       time.Duration `envconfig:"MOVE_TIMEOUT" default:"15s"`
	DisconnectGrace   time.Duration `envconfig:"DISCONNECT_GRACE" default:"30s"`
	RoomRetentionAge  time.Duration `envconfig:"ROOM_RETENTION_AGE" default:"168h"`
	RetentionSchedule string        `envconfig:"RETENTION_SCHEDULE" default:"17 * * * *"`

	// Economy configuration
	MinStake       int64   `envconfig:"MIN_STAKE" default:"1"`
	MaxStake       int64   `envconfig:"MAX_STAKE" default:"1000000"`
	CommissionRate float64 `envconfig:"COMMISSION_RATE" default:"0.05"`
	PrizeSplitRaw  string  `envconfig:"PRIZE_SPLIT" default:"70,20,10"`
	PrizeSplit     []int64 `envconfig:"-"`
	GemSupplyCap   int64   `envconfig:"GEM_SUPPLY_CAP" default:"100000000"`

	// Observability
	OTelEnabled              bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelServiceName          string `envconfig:"OTEL_SERVICE_NAME" default:"parlor"`
	OTelExporterType         string `envconfig:"OTEL_EXPORTER_TYPE" default:"none"`
	OTelOTLPEndpoint         string `envconfig:"OTEL_OTLP_ENDPOINT" default:"localhost:4317"`
	OTelExportIntervalMillis int    `envconfig:"OTEL_EXPORT_INTERVAL_MILLIS" default:"60000"`

	// Environment: "development", "production" or "test"
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load reads environment variables into a Config
func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	split, err := parsePrizeSplit(cfg.PrizeSplitRaw)
	if err != nil {
		return nil, fmt.Errorf("PRIZE_SPLIT parse: %w", err)
	}
	cfg.PrizeSplit = split

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	if c.Environment != "test" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.RoomCodeLength < 4 {
		return fmt.Errorf("ROOM_CODE_LENGTH must be at least 4")
	}
	if c.RoomCodeAttempts <= 0 {
		return fmt.Errorf("ROOM_CODE_ATTEMPTS must be positive")
	}
	if c.MinStake <= 0 || c.MaxStake < c.MinStake {
		return fmt.Errorf("invalid MIN_STAKE/MAX_STAKE")
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("COMMISSION_RATE must be in [0, 1)")
	}
	if c.GemSupplyCap <= 0 {
		return fmt.Errorf("GEM_SUPPLY_CAP must be positive")
	}
	var total int64
	for _, share := range c.PrizeSplit {
		if share <= 0 {
			return fmt.Errorf("prize split shares must be positive")
		}
		total += share
	}
	if total != 100 {
		return fmt.Errorf("prize split must sum to 100, got %d", total)
	}
	return nil
}

func parsePrizeSplit(raw string) ([]int64, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		var v int64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &v); err != nil {
			return nil, fmt.Errorf("bad share %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		RoomCodeLength:   6,
		RoomCodeAttempts: 5,
		MoveTimeout:      15 * time.Second,
		DisconnectGrace:  30 * time.Second,
		RoomRetentionAge: 168 * time.Hour,
		MinStake:         1,
		MaxStake:         1000000,
		CommissionRate:   0.05,
		PrizeSplit:       []int64{70, 20, 10},
		GemSupplyCap:     100000000,
	}
}
