package ration

// AllocationRules holds the constants of the initial allocation heuristic.
type AllocationRules struct {
	// BulkDefault absorbs leftover mass and is added when nothing else can.
	BulkDefault string
	// OthersShare is the fraction of post-additive space split evenly across
	// the non-filler ingredients.
	OthersShare float64
	// DefaultCapMass caps ingredients the catalog doesn't know.
	DefaultCapMass float64
}

func DefaultRules() AllocationRules {
	return AllocationRules{
		BulkDefault:    "ذرة صفراء",
		OthersShare:    0.4,
		DefaultCapMass: 200,
	}
}

// Allocate distributes one batch across the selection. Additives receive
// their fixed dose, every other non-filler ingredient an even slice of
// OthersShare clamped to its cap, and the filler whatever remains. The
// caller's selection is never modified. An empty selection yields nil.
func Allocate(selection []string, cat Catalog, rules AllocationRules) Distribution {
	if len(selection) == 0 {
		return nil
	}
	working := workingSet(selection, cat, rules.BulkDefault)

	out := Distribution{}
	remaining := BatchSize
	for _, a := range cat.Dataset().Additives {
		if !contains(working, a.Name) {
			continue
		}
		out[a.Name] = a.Dose
		remaining -= a.Dose
	}

	primary := make([]string, 0, len(working))
	for _, name := range working {
		if !cat.IsAdditive(name) {
			primary = append(primary, name)
		}
	}
	if len(primary) == 0 {
		return out
	}

	filler := primary[0]
	if contains(primary, rules.BulkDefault) {
		filler = rules.BulkDefault
	}
	others := make([]string, 0, len(primary)-1)
	for _, name := range primary {
		if name != filler {
			others = append(others, name)
		}
	}

	var share float64
	if len(others) > 0 {
		share = remaining * rules.OthersShare / float64(len(others))
	}
	for _, name := range others {
		limit := rules.DefaultCapMass
		if ing, ok := cat.Lookup(name); ok {
			limit = ing.CapMass()
		}
		w := share
		if w > limit {
			w = limit
		}
		out[name] = w
		remaining -= w
	}
	if remaining < 0 {
		remaining = 0
	}
	out[filler] = remaining
	return out
}

// workingSet dedupes the selection and prepends the bulk default when
// neither it nor any additive was chosen.
func workingSet(selection []string, cat Catalog, bulk string) []string {
	working := make([]string, 0, len(selection)+1)
	hasBulk, hasAdditive := false, false
	for _, name := range selection {
		if contains(working, name) {
			continue
		}
		working = append(working, name)
		if name == bulk {
			hasBulk = true
		}
		if cat.IsAdditive(name) {
			hasAdditive = true
		}
	}
	if !hasBulk && !hasAdditive && bulk != "" {
		working = append([]string{bulk}, working...)
	}
	return working
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
