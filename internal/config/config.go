package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/anomaly"
	"github.com/septivank/greenmove-rewards/internal/reward"
)

// Store backends.
const (
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
)

// DefaultProgramID is the address the program derives its accounts under.
const DefaultProgramID = "CYgCc27FKtjZBwkDjeZ6VfyiifvbdBv9e9Q8Zn872jAK"

// Config holds all application configuration
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"greenmove-rewards"`
	ServicePort int    `env:"SERVICE_PORT" envDefault:"8081"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ProgramID   string `env:"PROGRAM_ID" envDefault:"CYgCc27FKtjZBwkDjeZ6VfyiifvbdBv9e9Q8Zn872jAK"`

	Store      StoreConfig
	Database   DatabaseConfig
	RabbitMQ   RabbitMQConfig
	Validation ValidationConfig
	Anomaly    AnomalyConfig
	Reward     RewardConfig
}

// StoreConfig selects where ledger accounts live
type StoreConfig struct {
	Backend     string `env:"STORE_BACKEND" envDefault:"leveldb"`
	LevelDBPath string `env:"LEVELDB_PATH" envDefault:"data/ledger"`
	SyncWrites  bool   `env:"LEVELDB_SYNC" envDefault:"true"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL                string `env:"RABBITMQ_URL,required,notEmpty"`
	IngestExchange     string `env:"RABBITMQ_INGEST_EXCHANGE" envDefault:"greenmove.ingest.exchange"`
	IngestQueue        string `env:"RABBITMQ_INGEST_QUEUE" envDefault:"greenmove.ingest.queue"`
	IngestRoutingKey   string `env:"RABBITMQ_INGEST_ROUTING_KEY" envDefault:"instruction.submitted"`
	WorkerExchange     string `env:"RABBITMQ_WORKER_EXCHANGE" envDefault:"greenmove.worker.events.exchange"`
	WorkerRoutingKey   string `env:"RABBITMQ_WORKER_ROUTING_KEY" envDefault:"instruction.applied"`
	RejectedRoutingKey string `env:"RABBITMQ_REJECTED_ROUTING_KEY" envDefault:"instruction.rejected"`
	DLQQueue           string `env:"RABBITMQ_DLQ_QUEUE" envDefault:"greenmove.ingest.dlq"`
	PrefetchCount      int    `env:"RABBITMQ_PREFETCH" envDefault:"10"`
}

// ValidationConfig holds validation settings
type ValidationConfig struct {
	TimestampToleranceMinutes int `env:"VALIDATION_TIMESTAMP_TOLERANCE_MINUTES" envDefault:"10080"`
}

// AnomalyConfig holds anomaly detection settings. The spike guard is off
// unless ANOMALY_SPIKE_THRESHOLD_PCT is set; 300 rejects readings above
// three times the meter's recent mean.
type AnomalyConfig struct {
	SpikeThresholdPct         uint64 `env:"ANOMALY_SPIKE_THRESHOLD_PCT" envDefault:"0"`
	MinDataPointsForDetection int    `env:"ANOMALY_MIN_DATA_POINTS" envDefault:"3"`
}

// RewardConfig holds the per-category point schedules and baselines
type RewardConfig struct {
	WaterTiers     string `env:"REWARD_WATER_TIERS" envDefault:"1600:100,1100:50,600:25,100:10"`
	EnergyTiers    string `env:"REWARD_ENERGY_TIERS" envDefault:"1600:100,1100:50,600:25,100:10"`
	WaterBaseline  uint64 `env:"REWARD_WATER_BASELINE" envDefault:"120"`
	EnergyBaseline uint64 `env:"REWARD_ENERGY_BASELINE" envDefault:"80"`
	BaselineWindow int    `env:"REWARD_BASELINE_WINDOW" envDefault:"6"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements env tags cannot express.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendLevelDB:
		if c.Store.LevelDBPath == "" {
			return errors.New("LEVELDB_PATH is required for the leveldb store backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres store backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Reward.BaselineWindow < 0 {
		return fmt.Errorf("REWARD_BASELINE_WINDOW must not be negative, got %d", c.Reward.BaselineWindow)
	}
	if _, err := c.ProgramAddress(); err != nil {
		return err
	}
	if _, err := c.RewardEngine(); err != nil {
		return err
	}
	return nil
}

// ProgramAddress parses PROGRAM_ID.
func (c *Config) ProgramAddress() (address.Address, error) {
	a, err := address.Parse(c.ProgramID)
	if err != nil {
		return address.Address{}, fmt.Errorf("PROGRAM_ID: %w", err)
	}
	return a, nil
}

// RewardEngine builds the engine from the reward settings.
func (c *Config) RewardEngine() (*reward.Engine, error) {
	water, err := reward.ParseSchedule(c.Reward.WaterTiers)
	if err != nil {
		return nil, fmt.Errorf("REWARD_WATER_TIERS: %w", err)
	}
	energy, err := reward.ParseSchedule(c.Reward.EnergyTiers)
	if err != nil {
		return nil, fmt.Errorf("REWARD_ENERGY_TIERS: %w", err)
	}
	return reward.NewEngine(
		reward.Policy{Schedule: water, DefaultBaseline: c.Reward.WaterBaseline, BaselineWindow: c.Reward.BaselineWindow},
		reward.Policy{Schedule: energy, DefaultBaseline: c.Reward.EnergyBaseline, BaselineWindow: c.Reward.BaselineWindow},
	), nil
}

// AnomalyDetector builds the spike guard. A zero threshold disables it.
func (c *Config) AnomalyDetector() *anomaly.Detector {
	return anomaly.NewDetector(c.Anomaly.SpikeThresholdPct, c.Anomaly.MinDataPointsForDetection)
}
