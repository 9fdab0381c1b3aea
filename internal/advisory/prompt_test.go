package advisory

import (
	"strings"
	"testing"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

func TestNewRequestSnapshots(t *testing.T) {
	t.Parallel()

	cat := ration.NewCatalog(ration.Builtin())
	d := ration.Distribution{"ذرة صفراء": 1000}
	req := NewRequest(ration.AnimalContext{Animal: "جاموس", Purpose: "تسمين", WeightKg: 300, MilkKg: 12}, d, cat)

	d["ذرة صفراء"] = 1
	if req.Distribution["ذرة صفراء"] != 1000 {
		t.Fatalf("request must own its distribution copy")
	}
	if req.MilkKg != 0 {
		t.Fatalf("milk only applies to dairy, got %v", req.MilkKg)
	}
	if req.ProteinTarget != 15 {
		t.Fatalf("expected fattening target 15, got %v", req.ProteinTarget)
	}
	if len(req.Ingredients) != len(cat.Names()) {
		t.Fatalf("expected full ingredient list")
	}
}

func TestBuildPromptMentionsContext(t *testing.T) {
	t.Parallel()

	p := BuildPrompt(sampleRequest())
	for _, want := range []string{"بقر", "حلاب", "450", "20.0", "740.0", "1000", "18%"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}
