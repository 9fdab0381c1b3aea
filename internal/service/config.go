package service

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kareemzeiad-ops/kero-feeder/internal/advisory"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

const (
	ConfigAdvisoryModel      = "advisory_model"
	ConfigAdvisoryDebounceMS = "advisory_debounce_ms"
	ConfigOthersShare        = "others_share"
	ConfigBulkDefault        = "bulk_default"
)

var configValidators = map[string]func(string) error{
	ConfigAdvisoryModel: func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("model name is required")
		}
		return nil
	},
	ConfigAdvisoryDebounceMS: func(v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return fmt.Errorf("debounce must be a positive number of milliseconds")
		}
		return nil
	},
	ConfigOthersShare: func(v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("others share must be within (0, 1]")
		}
		return nil
	},
	ConfigBulkDefault: func(v string) error {
		if normalizeName(v) == "" {
			return fmt.Errorf("bulk default ingredient is required")
		}
		return nil
	},
}

// ConfigKeys lists the keys SetConfig accepts.
func ConfigKeys() []string {
	return []string{ConfigAdvisoryModel, ConfigAdvisoryDebounceMS, ConfigOthersShare, ConfigBulkDefault}
}

func SetConfig(db *sql.DB, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return fmt.Errorf("config key is required")
	}
	validate, ok := configValidators[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(ConfigKeys(), ", "))
	}
	if err := validate(value); err != nil {
		return fmt.Errorf("config %q: %w", key, err)
	}
	_, err := db.Exec(`
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

func GetConfig(db *sql.DB, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, fmt.Errorf("config key is required")
	}
	var value string
	err := db.QueryRow(`SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %q: %w", key, err)
	}
	return value, true, nil
}

func ListConfig(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", err)
	}
	return out, nil
}

// Settings are the stored tunables with defaults filled in.
type Settings struct {
	AdvisoryModel string
	Debounce      time.Duration
	Rules         ration.AllocationRules
}

func DefaultSettings() Settings {
	return Settings{
		AdvisoryModel: advisory.DefaultModel,
		Debounce:      advisory.DefaultDebounce,
		Rules:         ration.DefaultRules(),
	}
}

// LoadSettings overlays app_config values on the defaults.
func LoadSettings(db *sql.DB) (Settings, error) {
	s := DefaultSettings()
	cfg, err := ListConfig(db)
	if err != nil {
		return s, err
	}
	if v, ok := cfg[ConfigAdvisoryModel]; ok && strings.TrimSpace(v) != "" {
		s.AdvisoryModel = strings.TrimSpace(v)
	}
	if v, ok := cfg[ConfigAdvisoryDebounceMS]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.Debounce = time.Duration(n) * time.Millisecond
		}
	}
	if v, ok := cfg[ConfigOthersShare]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			s.Rules.OthersShare = f
		}
	}
	if v, ok := cfg[ConfigBulkDefault]; ok && normalizeName(v) != "" {
		s.Rules.BulkDefault = normalizeName(v)
	}
	return s, nil
}
