package service

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

type BackupInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

type DoctorIssue struct {
	Check   string `json:"check"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

type DoctorReport struct {
	Ingredients int           `json:"ingredients"`
	Additives   int           `json:"additives"`
	Purposes    int           `json:"purposes"`
	AnimalTypes int           `json:"animal_types"`
	Issues      []DoctorIssue `json:"issues"`
}

func (r DoctorReport) OK() bool {
	return len(r.Issues) == 0
}

// RunDoctor checks the reference store for data a formulation cannot use.
// bulkDefault is the filler ingredient the allocation rules rely on.
func RunDoctor(db *sql.DB, bulkDefault string) (DoctorReport, error) {
	report := DoctorReport{Issues: make([]DoctorIssue, 0)}
	data, err := LoadDataset(db)
	if err != nil {
		return report, fmt.Errorf("doctor load dataset: %w", err)
	}
	report.Ingredients = len(data.Ingredients)
	report.Additives = len(data.Additives)
	report.Purposes = len(data.Purposes)
	report.AnimalTypes = len(data.AnimalTypes)

	add := func(check, subject, detail string) {
		report.Issues = append(report.Issues, DoctorIssue{Check: check, Subject: subject, Detail: detail})
	}

	for _, ing := range data.Ingredients {
		if ing.CapPct < 0 || ing.CapPct > 100 {
			add("cap_range", ing.Name, fmt.Sprintf("cap %.2f%% is outside 0-100", ing.CapPct))
		}
		for _, n := range []struct {
			name  string
			value float64
		}{{"protein", ing.Protein}, {"tdn", ing.TDN}, {"fiber", ing.Fiber}, {"fat", ing.Fat}} {
			if n.value < 0 {
				add("negative_nutrient", ing.Name, fmt.Sprintf("%s is %.2f", n.name, n.value))
			}
		}
	}

	var doseTotal float64
	for _, a := range data.Additives {
		doseTotal += a.Dose
		if _, ok := data.Ingredient(a.Name); !ok {
			add("additive_unknown", a.Name, "additive has no catalog ingredient")
		}
	}
	if doseTotal > ration.BatchSize {
		add("additive_total", "additives", fmt.Sprintf("doses sum to %.1f, more than a %.0f batch", doseTotal, ration.BatchSize))
	}

	bulkDefault = normalizeName(bulkDefault)
	if bulkDefault != "" {
		if _, ok := data.Ingredient(bulkDefault); !ok {
			add("bulk_default_missing", bulkDefault, "allocation filler is not in the catalog")
		}
	}

	for _, p := range data.Purposes {
		if p.ProteinTarget <= 0 {
			add("purpose_target", p.Name, fmt.Sprintf("protein target %.2f must be positive", p.ProteinTarget))
		}
	}
	if !data.HasPurpose(ration.PurposeDairy) {
		add("dairy_purpose_missing", ration.PurposeDairy, "daily concentrate for milk yield needs this purpose")
	}
	if len(data.AnimalTypes) == 0 {
		add("animal_types_empty", "animal_types", "no animal type can be selected")
	}
	return report, nil
}

func CreateBackup(dbPath, outPath string) (BackupInfo, error) {
	if strings.TrimSpace(dbPath) == "" {
		return BackupInfo{}, fmt.Errorf("db path is required")
	}
	if strings.TrimSpace(outPath) == "" {
		return BackupInfo{}, fmt.Errorf("backup output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("create backup directory: %w", err)
	}
	if err := copyFile(dbPath, outPath); err != nil {
		return BackupInfo{}, err
	}
	checksum, err := fileSHA256(outPath)
	if err != nil {
		return BackupInfo{}, err
	}
	if err := os.WriteFile(outPath+".sha256", []byte(checksum+"\n"), 0o644); err != nil {
		return BackupInfo{}, fmt.Errorf("write checksum file: %w", err)
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("stat backup: %w", err)
	}
	return BackupInfo{Path: outPath, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size()}, nil
}

// RestoreBackup copies a backup over dbPath after checking its sidecar
// checksum, when one exists.
func RestoreBackup(backupPath, dbPath string, force bool) error {
	if strings.TrimSpace(backupPath) == "" || strings.TrimSpace(dbPath) == "" {
		return fmt.Errorf("backup path and db path are required")
	}
	if !force {
		if _, err := os.Stat(dbPath); err == nil {
			return fmt.Errorf("target db already exists; use --force to overwrite")
		}
	}
	if expected, err := os.ReadFile(backupPath + ".sha256"); err == nil {
		actual, err := fileSHA256(backupPath)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(expected)) != actual {
			return fmt.Errorf("backup checksum mismatch")
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return copyFile(backupPath, dbPath)
}

// ListBackups returns backups in dir, newest first.
func ListBackups(dir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]BackupInfo, 0)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".db") {
			continue
		}
		full := filepath.Join(dir, f.Name())
		st, err := os.Stat(full)
		if err != nil {
			continue
		}
		checksum := ""
		if b, err := os.ReadFile(full + ".sha256"); err == nil {
			checksum = strings.TrimSpace(string(b))
		}
		out = append(out, BackupInfo{Path: full, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync destination file: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
