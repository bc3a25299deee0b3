package seed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/talkdb/talkdb/internal/config"
)

type Config struct {
	DatabaseURL   string
	Hospitals     int
	Doctors       int
	Patients      int
	Seed          int64
	ExportParquet bool
	DatasetPrefix string
}

// DefaultConfig seeds the database the API serves and exports datasets under
// the prefix the API attaches from.
func DefaultConfig(service config.Config) Config {
	cfg := Config{
		DatabaseURL:   service.Database.URL,
		Hospitals:     10,
		Doctors:       60,
		Patients:      500,
		Seed:          1,
		DatasetPrefix: service.Datasets.Prefix,
	}
	if cfg.DatasetPrefix == "" {
		cfg.DatasetPrefix = "datasets"
	}
	return cfg
}

// LoadConfig applies TALKDB_SEED_* overrides on top of DefaultConfig.
func LoadConfig(service config.Config, lookup config.LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}
	cfg := DefaultConfig(service)

	if raw, ok := lookup("TALKDB_SEED_DATABASE_URL"); ok && strings.TrimSpace(raw) != "" {
		cfg.DatabaseURL = strings.TrimSpace(raw)
	}
	if raw, ok := lookup("TALKDB_SEED_DATASET_PREFIX"); ok && strings.TrimSpace(raw) != "" {
		cfg.DatasetPrefix = strings.Trim(strings.TrimSpace(raw), "/")
	}

	counts := []struct {
		key string
		dst *int
		min int
	}{
		{key: "TALKDB_SEED_HOSPITALS", dst: &cfg.Hospitals, min: 1},
		{key: "TALKDB_SEED_DOCTORS", dst: &cfg.Doctors, min: 1},
		{key: "TALKDB_SEED_PATIENTS", dst: &cfg.Patients, min: 0},
	}
	for _, count := range counts {
		raw, ok := lookup(count.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", count.key, err)
		}
		if value < count.min {
			return Config{}, fmt.Errorf("%s must be >= %d", count.key, count.min)
		}
		*count.dst = value
	}

	if raw, ok := lookup("TALKDB_SEED_SEED"); ok && strings.TrimSpace(raw) != "" {
		value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TALKDB_SEED_SEED: %w", err)
		}
		cfg.Seed = value
	}
	if raw, ok := lookup("TALKDB_SEED_EXPORT_PARQUET"); ok && strings.TrimSpace(raw) != "" {
		value, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("invalid TALKDB_SEED_EXPORT_PARQUET: %w", err)
		}
		cfg.ExportParquet = value
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("TALKDB_SEED_DATABASE_URL or TALKDB_DATABASE_URL is required")
	}
	return cfg, nil
}
