package ration_test

import (
	"math"
	"testing"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

const eps = 1e-9

func builtinCatalog() ration.Catalog {
	return ration.NewCatalog(ration.Builtin())
}

func TestAllocateCornSoySalt(t *testing.T) {
	t.Parallel()

	d := ration.Allocate([]string{"ذرة صفراء", "كسب صويا", "ملح طعام"}, builtinCatalog(), ration.DefaultRules())

	if d["ملح طعام"] != 10 {
		t.Fatalf("expected salt dose 10, got %v", d["ملح طعام"])
	}
	if d["كسب صويا"] != 250 {
		t.Fatalf("expected soybean meal clamped to 250, got %v", d["كسب صويا"])
	}
	if math.Abs(d["ذرة صفراء"]-740) > eps {
		t.Fatalf("expected corn to absorb 740, got %v", d["ذرة صفراء"])
	}
	if math.Abs(d.Total()-1000) > eps {
		t.Fatalf("expected full batch, got %v", d.Total())
	}
}

func TestAllocateEmptySelectionReturnsNil(t *testing.T) {
	t.Parallel()

	if d := ration.Allocate(nil, builtinCatalog(), ration.DefaultRules()); d != nil {
		t.Fatalf("expected nil distribution, got %v", d)
	}
}

func TestAllocatePrependsBulkDefaultWithoutMutatingSelection(t *testing.T) {
	t.Parallel()

	selection := []string{"كسب صويا", "نخالة قمح"}
	d := ration.Allocate(selection, builtinCatalog(), ration.DefaultRules())

	if len(selection) != 2 || selection[0] != "كسب صويا" {
		t.Fatalf("selection was modified: %v", selection)
	}
	if !d.Has("ذرة صفراء") {
		t.Fatalf("expected corn to be added as filler, got %v", d)
	}
	// 1000*0.4/2 = 200 each, both caps are 250.
	if d["كسب صويا"] != 200 || d["نخالة قمح"] != 200 {
		t.Fatalf("unexpected shares: %v", d)
	}
	if math.Abs(d["ذرة صفراء"]-600) > eps {
		t.Fatalf("expected corn 600, got %v", d["ذرة صفراء"])
	}
}

func TestAllocateWithAdditiveUsesFirstNameAsFiller(t *testing.T) {
	t.Parallel()

	d := ration.Allocate([]string{"نخالة قمح", "كسب صويا", "بريمكس"}, builtinCatalog(), ration.DefaultRules())

	if d.Has("ذرة صفراء") {
		t.Fatalf("corn must not be added when an additive is selected: %v", d)
	}
	if d["بريمكس"] != 3 {
		t.Fatalf("expected premix 3, got %v", d["بريمكس"])
	}
	// others: soybean meal alone, 997*0.4 = 398.8 clamped to 250.
	if d["كسب صويا"] != 250 {
		t.Fatalf("expected soybean meal 250, got %v", d["كسب صويا"])
	}
	if math.Abs(d["نخالة قمح"]-747) > eps {
		t.Fatalf("expected wheat bran filler 747, got %v", d["نخالة قمح"])
	}
}

func TestAllocateOnlyAdditives(t *testing.T) {
	t.Parallel()

	d := ration.Allocate([]string{"ملح طعام", "حجر جيري"}, builtinCatalog(), ration.DefaultRules())
	if len(d) != 2 || d["ملح طعام"] != 10 || d["حجر جيري"] != 15 {
		t.Fatalf("expected only additive doses, got %v", d)
	}
}

func TestAllocateRespectsCapsAndBatch(t *testing.T) {
	t.Parallel()

	cat := builtinCatalog()
	selections := [][]string{
		{"ذرة صفراء"},
		{"كسب حبة بركة", "كسب كتان"},
		{"ذرة صفراء", "كسب صويا", "جلوتين", "كسب عباد", "كسب قطن", "كسب كانولا", "كسب سمسم"},
		{"تفل بنجر", "ملح طعام", "بريمكس", "بيكربونات صوديوم", "مضاد سموم", "حجر جيري", "كسب صويا"},
		{"مجهول", "كسب صويا"},
	}
	for _, sel := range selections {
		d := ration.Allocate(sel, cat, ration.DefaultRules())
		if d.Total() > 1000+eps {
			t.Fatalf("selection %v overfills batch: %v", sel, d.Total())
		}
		for name, w := range d {
			if w < 0 {
				t.Fatalf("negative amount for %s: %v", name, w)
			}
			if dose, ok := cat.Dataset().AdditiveDose(name); ok {
				if w != dose {
					t.Fatalf("additive %s expected dose %v, got %v", name, dose, w)
				}
				continue
			}
			ing, ok := cat.Lookup(name)
			limit := 1000.0
			if ok && name != "ذرة صفراء" && name != sel[0] {
				limit = ing.CapMass()
			}
			if w > limit+eps {
				t.Fatalf("%s exceeds cap %v: %v", name, limit, w)
			}
		}
	}
}

func TestAllocateUnknownIngredientUsesDefaultCap(t *testing.T) {
	t.Parallel()

	rules := ration.DefaultRules()
	rules.OthersShare = 0.9
	d := ration.Allocate([]string{"ذرة صفراء", "مجهول"}, builtinCatalog(), rules)
	if d["مجهول"] != 200 {
		t.Fatalf("expected default cap 200, got %v", d["مجهول"])
	}
}

func TestAllocateCustomIngredientCap(t *testing.T) {
	t.Parallel()

	cat := ration.NewCatalog(ration.Builtin(), ration.Ingredient{Name: "برسيم", Protein: 17, CapPct: 100, Custom: true})
	d := ration.Allocate([]string{"ذرة صفراء", "برسيم"}, cat, ration.DefaultRules())
	if d["برسيم"] != 400 {
		t.Fatalf("expected custom ingredient to take the full 40%% share, got %v", d["برسيم"])
	}
}
