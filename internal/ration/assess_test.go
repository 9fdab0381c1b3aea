package ration_test

import (
	"testing"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

func warningCodes(ws []ration.Warning) map[string]bool {
	out := map[string]bool{}
	for _, w := range ws {
		out[w.Code] = true
	}
	return out
}

func TestAssessWarnings(t *testing.T) {
	t.Parallel()

	data := ration.Builtin()
	cat := ration.NewCatalog(data)

	balanced := ration.Distribution{"ذرة صفراء": 740, "كسب صويا": 250, "ملح طعام": 10}
	p := ration.Aggregate(balanced, cat, ration.AnimalContext{Purpose: "ثيران"})
	if ws := ration.Assess(balanced, p, data, "ثيران"); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %+v", ws)
	}

	short := ration.Distribution{"ذرة صفراء": 900, "مجهول": 50}
	p = ration.Aggregate(short, cat, ration.AnimalContext{Purpose: "حلاب"})
	codes := warningCodes(ration.Assess(short, p, data, "حلاب"))
	for _, want := range []string{ration.WarnBatchTotal, ration.WarnProteinBelowTarget, ration.WarnUnknownIngredient} {
		if !codes[want] {
			t.Fatalf("expected warning %s, got %v", want, codes)
		}
	}

	if ws := ration.Assess(nil, ration.Profile{}, data, "حلاب"); len(ws) != 0 {
		t.Fatalf("expected no warnings before allocation, got %+v", ws)
	}
}

func TestAssessBatchTolerance(t *testing.T) {
	t.Parallel()

	if !ration.BatchComplete(ration.Distribution{"a": 999.5}) {
		t.Fatalf("999.5 is within tolerance")
	}
	if ration.BatchComplete(ration.Distribution{"a": 999}) {
		t.Fatalf("999 is outside tolerance")
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	current := ration.Distribution{"a": 100, "b": 200, "c": 300}
	suggested := ration.Distribution{"a": 100.05, "b": 250, "d": 50}

	byName := map[string]ration.Change{}
	for _, c := range ration.Compare(current, suggested) {
		byName[c.Name] = c
	}
	if byName["a"].Changed {
		t.Fatalf("a moved less than the tolerance")
	}
	if !byName["b"].Changed || byName["b"].Suggested != 250 {
		t.Fatalf("expected b changed to 250, got %+v", byName["b"])
	}
	if !byName["c"].Dropped {
		t.Fatalf("expected c dropped, got %+v", byName["c"])
	}
	if !byName["d"].Added || byName["d"].Suggested != 50 {
		t.Fatalf("expected d added, got %+v", byName["d"])
	}
}

func TestAvailableAndCategories(t *testing.T) {
	t.Parallel()

	cat := ration.NewCatalog(ration.Builtin(), ration.Ingredient{Name: "برسيم", Protein: 17, CapPct: 100, Custom: true})
	avail := ration.Available(cat, ration.Distribution{"ذرة صفراء": 1000})
	if len(avail) != len(cat.Ingredients())-1 {
		t.Fatalf("expected every ingredient but corn, got %d", len(avail))
	}
	if avail[len(avail)-1].Name != "برسيم" {
		t.Fatalf("expected custom ingredient listed last")
	}

	groups := cat.Categories()
	if len(groups[ration.CategoryAdditive]) != 5 {
		t.Fatalf("expected 5 additives, got %d", len(groups[ration.CategoryAdditive]))
	}
	inGroup := func(c ration.Category, name string) bool {
		for _, ing := range groups[c] {
			if ing.Name == name {
				return true
			}
		}
		return false
	}
	if !inGroup(ration.CategoryEnergy, "ذرة صفراء") {
		t.Fatalf("corn should be an energy source")
	}
	if !inGroup(ration.CategoryProtein, "كسب عباد") || !inGroup(ration.CategoryFiber, "كسب عباد") {
		t.Fatalf("sunflower meal belongs to both protein and fiber groups")
	}
	if inGroup(ration.CategoryFiber, "برسيم") {
		t.Fatalf("custom ingredients are not grouped")
	}
}
