package ration

import (
	"fmt"
	"math"
)

const (
	BatchTolerance   = 1.0
	ProteinTolerance = 0.5
	ChangeTolerance  = 0.1
)

const (
	WarnBatchTotal         = "batch_total"
	WarnProteinBelowTarget = "protein_below_target"
	WarnUnknownIngredient  = "unknown_ingredient"
)

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func BatchComplete(d Distribution) bool {
	return math.Abs(d.Total()-BatchSize) < BatchTolerance
}

// Assess reports the non-blocking problems of a formulated ration.
func Assess(d Distribution, p Profile, data *Dataset, purpose string) []Warning {
	out := make([]Warning, 0)
	if d == nil {
		return out
	}
	if !BatchComplete(d) {
		out = append(out, Warning{
			Code:    WarnBatchTotal,
			Message: fmt.Sprintf("batch totals %.1f, expected %.0f", p.Total, BatchSize),
		})
	}
	if target, ok := data.ProteinTarget(purpose); ok && p.Protein < target-ProteinTolerance {
		out = append(out, Warning{
			Code:    WarnProteinBelowTarget,
			Message: fmt.Sprintf("protein %.1f%% is below the %.0f%% target for %s", p.Protein, target, purpose),
		})
	}
	for _, name := range p.Unknown {
		out = append(out, Warning{
			Code:    WarnUnknownIngredient,
			Message: fmt.Sprintf("%s is not in the catalog and adds no nutrients", name),
		})
	}
	return out
}

type Change struct {
	Name      string  `json:"name"`
	Current   float64 `json:"current"`
	Suggested float64 `json:"suggested"`
	Changed   bool    `json:"changed"`
	Added     bool    `json:"added,omitempty"`
	Dropped   bool    `json:"dropped,omitempty"`
}

// Compare lines the current distribution up against a suggested one.
func Compare(current, suggested Distribution) []Change {
	out := make([]Change, 0, len(current)+len(suggested))
	for _, name := range current.Names() {
		c := Change{Name: name, Current: current[name]}
		if s, ok := suggested[name]; ok {
			c.Suggested = s
			c.Changed = math.Abs(s-c.Current) > ChangeTolerance
		} else {
			c.Dropped = true
			c.Changed = true
		}
		out = append(out, c)
	}
	for _, name := range suggested.Names() {
		if current.Has(name) {
			continue
		}
		out = append(out, Change{Name: name, Suggested: suggested[name], Changed: true, Added: true})
	}
	return out
}

// Available lists catalog ingredients that are not yet part of d.
func Available(cat Catalog, d Distribution) []Ingredient {
	out := make([]Ingredient, 0)
	for _, ing := range cat.Ingredients() {
		if !d.Has(ing.Name) {
			out = append(out, ing)
		}
	}
	return out
}
