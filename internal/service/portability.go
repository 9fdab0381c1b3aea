package service

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

const datasetFileVersion = 1

// DatasetFile is the portable form of the reference store.
type DatasetFile struct {
	Version        int `json:"version" yaml:"version"`
	ration.Dataset `yaml:",inline"`
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts an explicit format or falls back to the file extension.
func ParseFormat(raw, path string) (Format, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return FormatYAML, nil
		default:
			return FormatJSON, nil
		}
	}
	switch raw {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use json or yaml)", raw)
	}
}

func EncodeDatasetFile(f *DatasetFile, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("marshal dataset yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("flush dataset yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		b, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal dataset json: %w", err)
		}
		return append(b, '\n'), nil
	}
}

func DecodeDatasetFile(raw []byte, format Format) (*DatasetFile, error) {
	var f DatasetFile
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse dataset yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse dataset json: %w", err)
		}
	}
	if f.Version > datasetFileVersion {
		return nil, fmt.Errorf("dataset file version %d is newer than supported version %d", f.Version, datasetFileVersion)
	}
	return &f, nil
}

func ExportDataset(db *sql.DB) (*DatasetFile, error) {
	data, err := LoadDataset(db)
	if err != nil {
		return nil, fmt.Errorf("export dataset: %w", err)
	}
	return &DatasetFile{Version: datasetFileVersion, Dataset: *data}, nil
}

type ImportMode string

const (
	ImportModeFail    ImportMode = "fail"
	ImportModeSkip    ImportMode = "skip"
	ImportModeMerge   ImportMode = "merge"
	ImportModeReplace ImportMode = "replace"
)

type ImportOptions struct {
	Mode   ImportMode
	DryRun bool
}

type ImportReport struct {
	Inserted  int      `json:"inserted"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Conflicts int      `json:"conflicts"`
	Warnings  []string `json:"warnings,omitempty"`
}

func normalizeImportMode(mode ImportMode) ImportMode {
	switch mode {
	case ImportModeFail, ImportModeSkip, ImportModeMerge, ImportModeReplace:
		return mode
	default:
		return ImportModeFail
	}
}

// ImportDataset loads a dataset file in a single transaction. Existing rows
// with the same name are handled per mode: fail aborts, skip keeps the
// stored row, merge overwrites it, replace clears the store first. DryRun
// computes the report and rolls back.
func ImportDataset(db *sql.DB, f *DatasetFile, opts ImportOptions) (ImportReport, error) {
	report := ImportReport{}
	mode := normalizeImportMode(opts.Mode)
	if f == nil {
		return report, fmt.Errorf("import dataset: empty payload")
	}

	tx, err := db.Begin()
	if err != nil {
		return report, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if mode == ImportModeReplace {
		for _, table := range []string{"additives", "ingredients", "purposes", "animal_types"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return report, fmt.Errorf("clear %s: %w", table, err)
			}
		}
	}

	// resolve reports whether a row with name exists and decides what to do.
	resolve := func(kind, table, name string) (exists bool, write bool, err error) {
		var n int
		if err := tx.QueryRow(`SELECT COUNT(1) FROM `+table+` WHERE name = ?`, name).Scan(&n); err != nil {
			return false, false, fmt.Errorf("find %s %q: %w", kind, name, err)
		}
		if n == 0 {
			return false, true, nil
		}
		switch mode {
		case ImportModeFail:
			report.Conflicts++
			return true, false, fmt.Errorf("import conflict for %s %q", kind, name)
		case ImportModeSkip:
			report.Skipped++
			return true, false, nil
		default:
			return true, true, nil
		}
	}
	count := func(exists bool) {
		if exists {
			report.Updated++
		} else {
			report.Inserted++
		}
	}

	for i, ing := range f.Ingredients {
		name := normalizeName(ing.Name)
		if name == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("ingredient #%d has no name", i+1))
			report.Skipped++
			continue
		}
		if err := validateIngredientInput(IngredientInput{Name: name, Protein: ing.Protein, TDN: ing.TDN, Fiber: ing.Fiber, Fat: ing.Fat, CapPct: ing.CapPct}); err != nil {
			return report, fmt.Errorf("import ingredient %q: %w", name, err)
		}
		exists, write, err := resolve("ingredient", "ingredients", name)
		if err != nil {
			return report, err
		}
		if !write {
			continue
		}
		if _, err := tx.Exec(`
INSERT INTO ingredients(name, protein, tdn, fiber, fat, cap_pct, position)
VALUES(?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM ingredients))
ON CONFLICT(name) DO UPDATE SET protein=excluded.protein, tdn=excluded.tdn, fiber=excluded.fiber, fat=excluded.fat, cap_pct=excluded.cap_pct, updated_at=CURRENT_TIMESTAMP
`, name, ing.Protein, ing.TDN, ing.Fiber, ing.Fat, ing.CapPct); err != nil {
			return report, fmt.Errorf("import ingredient %q: %w", name, err)
		}
		count(exists)
	}

	for _, a := range f.Additives {
		name := normalizeName(a.Name)
		if name == "" {
			report.Skipped++
			continue
		}
		if err := validateNonNegativeFloat("dose", a.Dose); err != nil {
			return report, fmt.Errorf("import additive %q: %w", name, err)
		}
		var known int
		if err := tx.QueryRow(`SELECT COUNT(1) FROM ingredients WHERE name = ?`, name).Scan(&known); err != nil {
			return report, fmt.Errorf("find ingredient %q: %w", name, err)
		}
		if known == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("additive %q has no catalog ingredient", name))
		}
		exists, write, err := resolve("additive", "additives", name)
		if err != nil {
			return report, err
		}
		if !write {
			continue
		}
		if _, err := tx.Exec(`
INSERT INTO additives(name, dose, position)
VALUES(?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM additives))
ON CONFLICT(name) DO UPDATE SET dose=excluded.dose, updated_at=CURRENT_TIMESTAMP
`, name, a.Dose); err != nil {
			return report, fmt.Errorf("import additive %q: %w", name, err)
		}
		count(exists)
	}

	for _, p := range f.Purposes {
		name := normalizeName(p.Name)
		if name == "" {
			report.Skipped++
			continue
		}
		if p.ProteinTarget <= 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("purpose %q has a non-positive protein target", name))
		}
		exists, write, err := resolve("purpose", "purposes", name)
		if err != nil {
			return report, err
		}
		if !write {
			continue
		}
		if _, err := tx.Exec(`
INSERT INTO purposes(name, protein_target, position)
VALUES(?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM purposes))
ON CONFLICT(name) DO UPDATE SET protein_target=excluded.protein_target, updated_at=CURRENT_TIMESTAMP
`, name, p.ProteinTarget); err != nil {
			return report, fmt.Errorf("import purpose %q: %w", name, err)
		}
		count(exists)
	}

	for _, animal := range f.AnimalTypes {
		name := normalizeName(animal)
		if name == "" {
			report.Skipped++
			continue
		}
		var n int
		if err := tx.QueryRow(`SELECT COUNT(1) FROM animal_types WHERE name = ?`, name).Scan(&n); err != nil {
			return report, fmt.Errorf("find animal type %q: %w", name, err)
		}
		if n > 0 {
			report.Skipped++
			continue
		}
		if _, err := tx.Exec(`INSERT INTO animal_types(name, position) VALUES(?, (SELECT COALESCE(MAX(position), 0) + 1 FROM animal_types))`, name); err != nil {
			return report, fmt.Errorf("import animal type %q: %w", name, err)
		}
		report.Inserted++
	}

	if opts.DryRun {
		return report, nil
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit import tx: %w", err)
	}
	return report, nil
}
