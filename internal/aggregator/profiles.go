package aggregator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SensorProfile is static metadata for sensors whose name contains Match.
type SensorProfile struct {
	Match   string `yaml:"match"`
	Cores   int    `yaml:"cores"`
	Storage bool   `yaml:"storage"`
}

// ProfileTable is an ordered lookup table; the first matching entry wins and
// Fallback applies when nothing matches.
type ProfileTable struct {
	Profiles []SensorProfile `yaml:"profiles"`
	Fallback SensorProfile   `yaml:"fallback"`
}

// DefaultProfiles mirrors configs/sensors/default.yaml.
func DefaultProfiles() *ProfileTable {
	return &ProfileTable{
		Profiles: []SensorProfile{
			{Match: "Package", Cores: 8},
			{Match: "IA", Cores: 4},
			{Match: "GT", Cores: 4},
			{Match: "HDD", Cores: 0, Storage: true},
		},
		Fallback: SensorProfile{Cores: 1},
	}
}

// LoadProfiles reads a profile table from path. A missing file yields the
// built-in table.
func LoadProfiles(path string, logger *slog.Logger) (*ProfileTable, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return DefaultProfiles(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("sensor profile file missing, using built-in table", slog.String("path", path))
			return DefaultProfiles(), nil
		}
		return nil, fmt.Errorf("read sensor profiles: %w", err)
	}

	table := ProfileTable{Fallback: SensorProfile{Cores: 1}}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse sensor profiles: %w", err)
	}
	for i, p := range table.Profiles {
		if strings.TrimSpace(p.Match) == "" {
			return nil, fmt.Errorf("sensor profile %d: match is required", i)
		}
	}
	return &table, nil
}

// Lookup returns the profile for a sensor name. Matching is a case-sensitive
// substring test so that "IA" does not match "Media".
func (t *ProfileTable) Lookup(name string) SensorProfile {
	if t == nil {
		return DefaultProfiles().Lookup(name)
	}
	for _, p := range t.Profiles {
		if strings.Contains(name, p.Match) {
			return p
		}
	}
	return t.Fallback
}
