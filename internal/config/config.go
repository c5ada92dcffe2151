package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMM"

// Pool store backends.
const (
	StoreMemory   = "memory"
	StorePebble   = "pebble"
	StorePostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ProgramID         string
	In                string
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	LedgerState       string
	Store             string
	PebblePath        string
	PGDSN             string
	BatchSize         uint64
	CacheSize         int
	MaxRetries        int
	RetryBackoff      time.Duration
	StopOnError       bool
	MetricsFile       string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("program-id", DefaultProgramID)
		v.SetDefault("out", "./data/operations.jsonl")
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("checkpoint-enabled", true)
		v.SetDefault("ledger-state", "./data/ledger.json")
		v.SetDefault("store", StorePebble)
		v.SetDefault("pebble-path", "./data/pools")
		v.SetDefault("batch-size", uint64(100))
		v.SetDefault("cache-size", 1024)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ProgramID:         v.GetString("program-id"),
		In:                v.GetString("in"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		LedgerState:       v.GetString("ledger-state"),
		Store:             strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PebblePath:        v.GetString("pebble-path"),
		PGDSN:             v.GetString("pg-dsn"),
		BatchSize:         v.GetUint64("batch-size"),
		CacheSize:         v.GetInt("cache-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		StopOnError:       v.GetBool("stop-on-error"),
		MetricsFile:       v.GetString("metrics-file"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks combinations that cannot run.
func (c Config) Validate() error {
	if c.In == "" {
		return fmt.Errorf("input script is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch size must be > 0")
	}
	switch c.Store {
	case StoreMemory:
		// pools created before a checkpoint would be gone on resume
		if c.CheckpointEnabled {
			return fmt.Errorf("checkpointing requires a durable store, got %q", c.Store)
		}
	case StorePebble:
		if c.PebblePath == "" {
			return fmt.Errorf("pebble path is required")
		}
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required")
		}
	default:
		return fmt.Errorf("unknown store: %s", c.Store)
	}
	if c.CheckpointEnabled && c.LedgerState == "" {
		return fmt.Errorf("checkpointing requires ledger-state")
	}
	return nil
}

// DefaultProgramID identifies the engine when no program id is configured.
const DefaultProgramID = "0x4a4d4d0000000000000000000000000000000000000000000000000000000001"

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
