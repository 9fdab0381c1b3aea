package model

import "time"

// IngredientRecord is a catalog row of the reference store.
type IngredientRecord struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Protein   float64   `json:"protein"`
	TDN       float64   `json:"tdn"`
	Fiber     float64   `json:"fiber"`
	Fat       float64   `json:"fat"`
	CapPct    float64   `json:"cap_pct"`
	Position  int       `json:"position"`
	Additive  bool      `json:"additive"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AdditiveRecord struct {
	Name      string    `json:"name"`
	Dose      float64   `json:"dose"`
	Position  int       `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PurposeRecord struct {
	Name          string    `json:"name"`
	ProteinTarget float64   `json:"protein_target"`
	Position      int       `json:"position"`
	UpdatedAt     time.Time `json:"updated_at"`
}
