package ration_test

import (
	"math"
	"testing"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateBlendsByBatchFraction(t *testing.T) {
	t.Parallel()

	d := ration.Distribution{"ذرة صفراء": 740, "كسب صويا": 250, "ملح طعام": 10}
	p := ration.Aggregate(d, builtinCatalog(), ration.AnimalContext{Purpose: "تسمين", WeightKg: 400})

	wantProtein := 8.0*0.74 + 46.0*0.25
	wantTDN := 82.6*0.74 + 68.1*0.25
	if !almostEqual(p.Protein, wantProtein) {
		t.Fatalf("expected protein %v, got %v", wantProtein, p.Protein)
	}
	if !almostEqual(p.TDN, wantTDN) {
		t.Fatalf("expected tdn %v, got %v", wantTDN, p.TDN)
	}
	if !almostEqual(p.Fiber, 2.2*0.74+5.2*0.25) || !almostEqual(p.Fat, 7.0*0.74+1.7*0.25) {
		t.Fatalf("unexpected fiber/fat: %+v", p)
	}
	if !almostEqual(p.Total, 1000) {
		t.Fatalf("expected total 1000, got %v", p.Total)
	}
	if len(p.Unknown) != 0 {
		t.Fatalf("expected no unknown names, got %v", p.Unknown)
	}
}

func TestAggregateSkipsUnknownIngredients(t *testing.T) {
	t.Parallel()

	d := ration.Distribution{"ذرة صفراء": 500, "مجهول": 500}
	p := ration.Aggregate(d, builtinCatalog(), ration.AnimalContext{})

	if !almostEqual(p.Protein, 4) {
		t.Fatalf("expected unknown ingredient to contribute zero protein, got %v", p.Protein)
	}
	if len(p.Unknown) != 1 || p.Unknown[0] != "مجهول" {
		t.Fatalf("expected unknown ingredient reported, got %v", p.Unknown)
	}
}

func TestAggregateScalesLinearlyWithMass(t *testing.T) {
	t.Parallel()

	// Percentages are relative to the 1000-unit batch, not the distribution
	// total, so doubling a half batch doubles every nutrient.
	half := ration.Distribution{"ذرة صفراء": 300, "كسب صويا": 200}
	full := ration.Distribution{"ذرة صفراء": 600, "كسب صويا": 400}
	cat := builtinCatalog()

	ph := ration.Aggregate(half, cat, ration.AnimalContext{})
	pf := ration.Aggregate(full, cat, ration.AnimalContext{})
	if !almostEqual(pf.Protein, 2*ph.Protein) || !almostEqual(pf.TDN, 2*ph.TDN) {
		t.Fatalf("expected doubled profile, half=%+v full=%+v", ph, pf)
	}

	// A batch that already totals 1000 is unchanged by renormalising to 1000.
	renorm := ration.Distribution{}
	for k, v := range full {
		renorm[k] = v * ration.BatchSize / full.Total()
	}
	pr := ration.Aggregate(renorm, cat, ration.AnimalContext{})
	if !almostEqual(pr.Protein, pf.Protein) {
		t.Fatalf("expected renormalised full batch to keep protein %v, got %v", pf.Protein, pr.Protein)
	}
}

func TestAggregateEmptyDistribution(t *testing.T) {
	t.Parallel()

	p := ration.Aggregate(nil, builtinCatalog(), ration.AnimalContext{Purpose: "تسمين", WeightKg: 300})
	if p.Protein != 0 || p.TDN != 0 || p.Total != 0 {
		t.Fatalf("expected zero profile, got %+v", p)
	}
	if !almostEqual(p.DailyConcentrate, 6) {
		t.Fatalf("expected daily concentrate 6, got %v", p.DailyConcentrate)
	}
}

func TestDailyConcentrate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ac   ration.AnimalContext
		want float64
	}{
		{name: "dairy", ac: ration.AnimalContext{Purpose: "حلاب", WeightKg: 400, MilkKg: 20}, want: 14},
		{name: "dairy without milk", ac: ration.AnimalContext{Purpose: "حلاب", WeightKg: 500}, want: 5},
		{name: "fattening", ac: ration.AnimalContext{Purpose: "تسمين", WeightKg: 400, MilkKg: 20}, want: 8},
		{name: "bulls", ac: ration.AnimalContext{Purpose: "ثيران", WeightKg: 650}, want: 13},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ration.DailyConcentrate(tc.ac); !almostEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
