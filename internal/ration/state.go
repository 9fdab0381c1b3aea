package ration

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidCustomIngredient = errors.New("custom ingredient needs a name and a numeric protein value")

// State is one formulation session's selection, distribution and custom
// ingredients. Every edit returns a new State and leaves the receiver
// untouched. Distribution stays nil until Allocate runs.
type State struct {
	Selection    []string     `json:"selection"`
	Distribution Distribution `json:"distribution"`
	Custom       []Ingredient `json:"custom,omitempty"`
}

type CustomInput struct {
	Name    string `json:"name"`
	Protein string `json:"protein"`
	TDN     string `json:"tdn"`
	Fiber   string `json:"fiber"`
	Fat     string `json:"fat"`
}

func (s State) Catalog(data *Dataset) Catalog {
	return NewCatalog(data, s.Custom...)
}

func (s State) Allocated() bool {
	return s.Distribution != nil
}

func (s State) clone() State {
	return State{
		Selection:    append([]string(nil), s.Selection...),
		Distribution: s.Distribution.Clone(),
		Custom:       append([]Ingredient(nil), s.Custom...),
	}
}

// Select adds a name to the selection while choosing ingredients.
func (s State) Select(name string) State {
	name = strings.TrimSpace(name)
	if name == "" || contains(s.Selection, name) {
		return s
	}
	next := s.clone()
	next.Selection = append(next.Selection, name)
	return next
}

// Deselect drops a name from the selection without touching the distribution.
func (s State) Deselect(name string) State {
	if !contains(s.Selection, name) {
		return s
	}
	next := s.clone()
	next.Selection = without(next.Selection, name)
	return next
}

// Allocate builds the initial distribution the first time it is called
// with a non-empty selection. Later calls return s unchanged.
func (s State) Allocate(data *Dataset, rules AllocationRules) State {
	if s.Allocated() || len(s.Selection) == 0 {
		return s
	}
	next := s.clone()
	next.Distribution = Allocate(next.Selection, next.Catalog(data), rules)
	return next
}

// SetWeight overwrites the amount of an ingredient already in the
// distribution. Input that does not parse as a finite, non-negative number
// is ignored and s is returned as is.
func (s State) SetWeight(name, raw string) State {
	if !s.Distribution.Has(name) {
		return s
	}
	v, ok := ParseAmount(raw)
	if !ok {
		return s
	}
	next := s.clone()
	next.Distribution[name] = v
	return next
}

// Remove drops name from both the distribution and the selection.
func (s State) Remove(name string) State {
	if !s.Distribution.Has(name) && !contains(s.Selection, name) {
		return s
	}
	next := s.clone()
	delete(next.Distribution, name)
	next.Selection = without(next.Selection, name)
	return next
}

// AddAtZero puts a new ingredient into an allocated distribution at zero mass.
func (s State) AddAtZero(name string) State {
	name = strings.TrimSpace(name)
	if name == "" || !s.Allocated() || s.Distribution.Has(name) {
		return s
	}
	next := s.clone()
	next.Distribution[name] = 0
	if !contains(next.Selection, name) {
		next.Selection = append(next.Selection, name)
	}
	return next
}

// DefineCustom registers a session-only ingredient with a 100% cap, selects
// it, and inserts it at zero mass when a distribution exists. Nutrients
// other than protein fall back to zero when they don't parse.
func (s State) DefineCustom(in CustomInput) (State, error) {
	name := strings.TrimSpace(in.Name)
	protein, ok := parseNumber(in.Protein)
	if name == "" || !ok {
		return s, ErrInvalidCustomIngredient
	}
	ing := Ingredient{
		Name:    name,
		Protein: protein,
		TDN:     numberOrZero(in.TDN),
		Fiber:   numberOrZero(in.Fiber),
		Fat:     numberOrZero(in.Fat),
		CapPct:  100,
		Custom:  true,
	}
	next := s.clone()
	next.Custom = append(next.Custom, ing)
	if !contains(next.Selection, name) {
		next.Selection = append(next.Selection, name)
	}
	if next.Allocated() {
		next.Distribution[name] = 0
	}
	return next, nil
}

// MergeSuggested replaces the whole distribution with weights. Names in
// added are unioned into the selection first; ingredients the suggestion
// leaves out disappear from the distribution.
func (s State) MergeSuggested(weights Distribution, added []string) State {
	next := s.clone()
	for _, name := range added {
		name = strings.TrimSpace(name)
		if name == "" || contains(next.Selection, name) {
			continue
		}
		next.Selection = append(next.Selection, name)
	}
	next.Distribution = weights.Clone()
	if next.Distribution == nil {
		next.Distribution = Distribution{}
	}
	return next
}

// ParseAmount accepts finite numbers >= 0. Anything else is rejected and
// the caller keeps its previous value.
func ParseAmount(raw string) (float64, bool) {
	v, ok := parseNumber(raw)
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func numberOrZero(raw string) float64 {
	v, ok := parseNumber(raw)
	if !ok {
		return 0
	}
	return v
}

func without(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
