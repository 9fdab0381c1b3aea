package kero

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kareemzeiad-ops/kero-feeder/internal/app"
	"github.com/kareemzeiad-ops/kero-feeder/internal/db"
	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
)

const (
	envAPIKey   = "GEMINI_API_KEY"
	envModel    = "GEMINI_MODEL"
	envAddr     = "KERO_ADDR"
	envDebounce = "KERO_ADVISORY_DEBOUNCE_MS"
)

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		return err
	}
	return run(sqldb)
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	return app.DefaultDBPath()
}

// loadEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func loadEnv() {
	_ = godotenv.Load()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// resolveAPIKey applies flag > env. The key is never stored in app_config.
func resolveAPIKey(flagValue string) string {
	return firstNonEmpty(flagValue, os.Getenv(envAPIKey))
}

// resolveSettings applies flag > env > app_config > default on top of the
// stored settings.
func resolveSettings(sqldb *sql.DB, modelFlag string, debounceFlag time.Duration) (service.Settings, error) {
	s, err := service.LoadSettings(sqldb)
	if err != nil {
		return s, err
	}
	s.AdvisoryModel = firstNonEmpty(modelFlag, os.Getenv(envModel), s.AdvisoryModel)
	switch {
	case debounceFlag > 0:
		s.Debounce = debounceFlag
	case strings.TrimSpace(os.Getenv(envDebounce)) != "":
		ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envDebounce)))
		if err != nil || ms <= 0 {
			return s, fmt.Errorf("invalid %s %q", envDebounce, os.Getenv(envDebounce))
		}
		s.Debounce = time.Duration(ms) * time.Millisecond
	}
	return s, nil
}

func parseFloatArg(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return v, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json output: %w", err)
	}
	fmt.Fprintln(w, string(b))
	return nil
}
