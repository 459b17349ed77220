// Package config loads sift settings from viper and expands configured paths.
package config

import (
	"fmt"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/dedupe"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyDatabasePath           = "database.path"
	KeyLoggingLevel           = "logging.level"
	KeyLoggingFormat          = "logging.format"
	KeyNearDuplicateThreshold = "dedupe.near_duplicate_threshold"
	KeySimilarThreshold       = "similar.threshold"
	KeyCategorizeWorkers      = "categorize.workers"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/sift/sift.db"

// Settings is the validated configuration.
type Settings struct {
	DatabasePath           string
	LogLevel               string
	LogFormat              string
	NearDuplicateThreshold float64 // 0 disables near-duplicate detection
	SimilarThreshold       float64
	Workers                int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyLoggingLevel, "info")
	v.SetDefault(KeyLoggingFormat, "console")
	v.SetDefault(KeyNearDuplicateThreshold, 0.0)
	v.SetDefault(KeySimilarThreshold, dedupe.DefaultSimilarThreshold)
	v.SetDefault(KeyCategorizeWorkers, 1)
}

// Load reads Settings from v, applying defaults and validating ranges.
func Load(v *viper.Viper) (Settings, error) {
	SetDefaults(v)

	s := Settings{
		DatabasePath:           ExpandPath(v.GetString(KeyDatabasePath)),
		LogLevel:               v.GetString(KeyLoggingLevel),
		LogFormat:              v.GetString(KeyLoggingFormat),
		NearDuplicateThreshold: v.GetFloat64(KeyNearDuplicateThreshold),
		SimilarThreshold:       v.GetFloat64(KeySimilarThreshold),
		Workers:                v.GetInt(KeyCategorizeWorkers),
	}

	if s.DatabasePath == "" {
		return s, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if err := checkUnit(KeyNearDuplicateThreshold, s.NearDuplicateThreshold); err != nil {
		return s, err
	}
	if err := checkUnit(KeySimilarThreshold, s.SimilarThreshold); err != nil {
		return s, err
	}
	if s.Workers < 1 {
		return s, fmt.Errorf("%w: %s must be at least 1, got %d", common.ErrInvalidConfig, KeyCategorizeWorkers, s.Workers)
	}
	if _, err := common.ParseLevel(s.LogLevel); err != nil {
		return s, err
	}

	return s, nil
}

func checkUnit(key string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be within [0, 1], got %v", common.ErrInvalidConfig, key, v)
	}
	return nil
}
