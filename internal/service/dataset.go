package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/kareemzeiad-ops/kero-feeder/internal/model"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

var ErrNotFound = errors.New("not found")

type IngredientInput struct {
	Name    string
	Protein float64
	TDN     float64
	Fiber   float64
	Fat     float64
	CapPct  float64
}

func validateIngredientInput(in IngredientInput) error {
	if normalizeName(in.Name) == "" {
		return fmt.Errorf("ingredient name is required")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"protein", in.Protein},
		{"tdn", in.TDN},
		{"fiber", in.Fiber},
		{"fat", in.Fat},
	} {
		if err := validatePercent(f.name, f.value); err != nil {
			return err
		}
	}
	return validatePercent("cap", in.CapPct)
}

// UpsertIngredient inserts a catalog entry or updates the nutrients of an
// existing one. New entries go to the end of the catalog.
func UpsertIngredient(db *sql.DB, in IngredientInput) (bool, error) {
	if err := validateIngredientInput(in); err != nil {
		return false, err
	}
	name := normalizeName(in.Name)
	res, err := db.Exec(`
UPDATE ingredients SET protein = ?, tdn = ?, fiber = ?, fat = ?, cap_pct = ?, updated_at = CURRENT_TIMESTAMP
WHERE name = ?
`, in.Protein, in.TDN, in.Fiber, in.Fat, in.CapPct, name)
	if err != nil {
		return false, fmt.Errorf("update ingredient %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	if _, err := db.Exec(`
INSERT INTO ingredients(name, protein, tdn, fiber, fat, cap_pct, position)
VALUES(?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM ingredients))
`, name, in.Protein, in.TDN, in.Fiber, in.Fat, in.CapPct); err != nil {
		return false, fmt.Errorf("insert ingredient %q: %w", name, err)
	}
	return true, nil
}

// DeleteIngredient removes a catalog entry and its additive dose, if any.
func DeleteIngredient(db *sql.DB, name string) error {
	name = normalizeName(name)
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete ingredient tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM ingredients WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete ingredient %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ingredient %q: %w", name, ErrNotFound)
	}
	if _, err := tx.Exec(`DELETE FROM additives WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete additive %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete ingredient: %w", err)
	}
	return nil
}

func ListIngredients(db *sql.DB) ([]model.IngredientRecord, error) {
	rows, err := db.Query(`
SELECT i.id, i.name, i.protein, i.tdn, i.fiber, i.fat, i.cap_pct, i.position, a.name IS NOT NULL, i.created_at, i.updated_at
FROM ingredients i
LEFT JOIN additives a ON a.name = i.name
ORDER BY i.position ASC, i.id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()
	items := make([]model.IngredientRecord, 0)
	for rows.Next() {
		var it model.IngredientRecord
		if err := rows.Scan(&it.ID, &it.Name, &it.Protein, &it.TDN, &it.Fiber, &it.Fat, &it.CapPct, &it.Position, &it.Additive, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}
	return items, nil
}

// SetAdditive gives a catalog ingredient a fixed dose per batch.
func SetAdditive(db *sql.DB, name string, dose float64) error {
	name = normalizeName(name)
	if err := validateNonNegativeFloat("dose", dose); err != nil {
		return err
	}
	if dose > ration.BatchSize {
		return fmt.Errorf("dose must be <= %.0f", ration.BatchSize)
	}
	var exists int
	if err := db.QueryRow(`SELECT COUNT(1) FROM ingredients WHERE name = ?`, name).Scan(&exists); err != nil {
		return fmt.Errorf("lookup ingredient %q: %w", name, err)
	}
	if exists == 0 {
		return fmt.Errorf("ingredient %q: %w", name, ErrNotFound)
	}
	if _, err := db.Exec(`
INSERT INTO additives(name, dose, position)
VALUES(?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM additives))
ON CONFLICT(name) DO UPDATE SET dose = excluded.dose, updated_at = CURRENT_TIMESTAMP
`, name, dose); err != nil {
		return fmt.Errorf("set additive %q: %w", name, err)
	}
	return nil
}

// RemoveAdditive turns an additive back into a plain ingredient.
func RemoveAdditive(db *sql.DB, name string) error {
	name = normalizeName(name)
	res, err := db.Exec(`DELETE FROM additives WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("remove additive %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("additive %q: %w", name, ErrNotFound)
	}
	return nil
}

func ListAdditives(db *sql.DB) ([]model.AdditiveRecord, error) {
	rows, err := db.Query(`SELECT name, dose, position, updated_at FROM additives ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list additives: %w", err)
	}
	defer rows.Close()
	items := make([]model.AdditiveRecord, 0)
	for rows.Next() {
		var it model.AdditiveRecord
		if err := rows.Scan(&it.Name, &it.Dose, &it.Position, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan additive: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate additives: %w", err)
	}
	return items, nil
}

// SetPurpose creates or updates a production purpose and its protein target.
func SetPurpose(db *sql.DB, name string, proteinTarget float64) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("purpose name is required")
	}
	if proteinTarget <= 0 || proteinTarget > 100 {
		return fmt.Errorf("protein target must be within (0, 100]")
	}
	if _, err := db.Exec(`
INSERT INTO purposes(name, protein_target, position)
VALUES(?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM purposes))
ON CONFLICT(name) DO UPDATE SET protein_target = excluded.protein_target, updated_at = CURRENT_TIMESTAMP
`, name, proteinTarget); err != nil {
		return fmt.Errorf("set purpose %q: %w", name, err)
	}
	return nil
}

func ListPurposes(db *sql.DB) ([]model.PurposeRecord, error) {
	rows, err := db.Query(`SELECT name, protein_target, position, updated_at FROM purposes ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list purposes: %w", err)
	}
	defer rows.Close()
	items := make([]model.PurposeRecord, 0)
	for rows.Next() {
		var it model.PurposeRecord
		if err := rows.Scan(&it.Name, &it.ProteinTarget, &it.Position, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan purpose: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purposes: %w", err)
	}
	return items, nil
}

func ListAnimalTypes(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM animal_types ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list animal types: %w", err)
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan animal type: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate animal types: %w", err)
	}
	return out, nil
}

// LoadDataset reads the reference store into the form sessions formulate
// against.
func LoadDataset(db *sql.DB) (*ration.Dataset, error) {
	ings, err := ListIngredients(db)
	if err != nil {
		return nil, err
	}
	adds, err := ListAdditives(db)
	if err != nil {
		return nil, err
	}
	purposes, err := ListPurposes(db)
	if err != nil {
		return nil, err
	}
	animals, err := ListAnimalTypes(db)
	if err != nil {
		return nil, err
	}

	data := &ration.Dataset{
		Ingredients: make([]ration.Ingredient, 0, len(ings)),
		Additives:   make([]ration.Additive, 0, len(adds)),
		Purposes:    make([]ration.Purpose, 0, len(purposes)),
		AnimalTypes: animals,
	}
	for _, it := range ings {
		data.Ingredients = append(data.Ingredients, ration.Ingredient{
			Name: it.Name, Protein: it.Protein, TDN: it.TDN, Fiber: it.Fiber, Fat: it.Fat, CapPct: it.CapPct,
		})
	}
	for _, a := range adds {
		data.Additives = append(data.Additives, ration.Additive{Name: a.Name, Dose: a.Dose})
	}
	for _, p := range purposes {
		data.Purposes = append(data.Purposes, ration.Purpose{Name: p.Name, ProteinTarget: p.ProteinTarget})
	}
	return data, nil
}
