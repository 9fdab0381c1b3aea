package ration

import "sort"

type AnimalContext struct {
	Animal   string  `json:"animal"`
	Purpose  string  `json:"purpose"`
	WeightKg float64 `json:"weight_kg"`
	MilkKg   float64 `json:"milk_kg,omitempty"`
}

type Profile struct {
	Protein          float64  `json:"protein"`
	TDN              float64  `json:"tdn"`
	Fiber            float64  `json:"fiber"`
	Fat              float64  `json:"fat"`
	DailyConcentrate float64  `json:"daily_concentrate_kg"`
	Total            float64  `json:"total"`
	Unknown          []string `json:"unknown,omitempty"`
}

// Aggregate blends nutrient percentages by mass fraction of the batch.
// Amounts are divided by BatchSize, not by the distribution's own total, so
// a short batch yields proportionally lower percentages. Names missing from
// the catalog contribute nothing and are listed in Profile.Unknown.
func Aggregate(d Distribution, cat Catalog, ac AnimalContext) Profile {
	p := Profile{
		DailyConcentrate: DailyConcentrate(ac),
		Total:            d.Total(),
	}
	for _, name := range d.Names() {
		ing, ok := cat.Lookup(name)
		if !ok {
			p.Unknown = append(p.Unknown, name)
			continue
		}
		ratio := d[name] / BatchSize
		p.Protein += ing.Protein * ratio
		p.TDN += ing.TDN * ratio
		p.Fiber += ing.Fiber * ratio
		p.Fat += ing.Fat * ratio
	}
	sort.Strings(p.Unknown)
	return p
}

// DailyConcentrate is the concentrate intake per head per day in kg.
func DailyConcentrate(ac AnimalContext) float64 {
	if ac.Purpose == PurposeDairy {
		return ac.WeightKg*0.01 + ac.MilkKg*0.5
	}
	return ac.WeightKg * 0.02
}
