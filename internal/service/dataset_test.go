package service_test

import (
	"errors"
	"testing"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
)

func TestLoadDatasetMatchesBuiltin(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	defer db.Close()

	data, err := service.LoadDataset(db)
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	builtin := ration.Builtin()
	if len(data.Ingredients) != len(builtin.Ingredients) {
		t.Fatalf("expected %d ingredients, got %d", len(builtin.Ingredients), len(data.Ingredients))
	}
	for i, ing := range builtin.Ingredients {
		if data.Ingredients[i] != ing {
			t.Fatalf("ingredient %d: expected %+v, got %+v", i, ing, data.Ingredients[i])
		}
	}
	if dose, ok := data.AdditiveDose("حجر جيري"); !ok || dose != 15 {
		t.Fatalf("expected limestone dose 15, got %v %v", dose, ok)
	}
	if target, ok := data.ProteinTarget("عجول صغيرة"); !ok || target != 20 {
		t.Fatalf("expected calves target 20, got %v", target)
	}
	if !data.HasAnimalType("جاموس") {
		t.Fatalf("expected buffalo animal type")
	}
}

func TestUpsertAndDeleteIngredient(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	defer db.Close()

	created, err := service.UpsertIngredient(db, service.IngredientInput{Name: "  سيلاج  ذرة ", Protein: 8, TDN: 68, Fiber: 25, Fat: 3, CapPct: 40})
	if err != nil || !created {
		t.Fatalf("insert ingredient: created=%v err=%v", created, err)
	}
	created, err = service.UpsertIngredient(db, service.IngredientInput{Name: "سيلاج ذرة", Protein: 9, TDN: 68, Fiber: 25, Fat: 3, CapPct: 40})
	if err != nil || created {
		t.Fatalf("update ingredient: created=%v err=%v", created, err)
	}
	items, err := service.ListIngredients(db)
	if err != nil {
		t.Fatalf("list ingredients: %v", err)
	}
	last := items[len(items)-1]
	if last.Name != "سيلاج ذرة" || last.Protein != 9 {
		t.Fatalf("expected updated silage last, got %+v", last)
	}

	if _, err := service.UpsertIngredient(db, service.IngredientInput{Name: "x", CapPct: 120}); err == nil {
		t.Fatalf("expected cap validation error")
	}
	if _, err := service.UpsertIngredient(db, service.IngredientInput{Name: "", CapPct: 10}); err == nil {
		t.Fatalf("expected name validation error")
	}

	if err := service.DeleteIngredient(db, "ملح طعام"); err != nil {
		t.Fatalf("delete ingredient: %v", err)
	}
	adds, err := service.ListAdditives(db)
	if err != nil {
		t.Fatalf("list additives: %v", err)
	}
	for _, a := range adds {
		if a.Name == "ملح طعام" {
			t.Fatalf("deleting an ingredient must drop its additive dose")
		}
	}
	if err := service.DeleteIngredient(db, "ملح طعام"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdditivesAndPurposes(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	defer db.Close()

	if err := service.SetAdditive(db, "بريمكس", 4); err != nil {
		t.Fatalf("set additive: %v", err)
	}
	if err := service.SetAdditive(db, "مجهول", 4); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := service.SetAdditive(db, "بريمكس", -1); err == nil {
		t.Fatalf("expected dose validation error")
	}
	if err := service.RemoveAdditive(db, "مضاد سموم"); err != nil {
		t.Fatalf("remove additive: %v", err)
	}

	if err := service.SetPurpose(db, "حلاب", 17); err != nil {
		t.Fatalf("set purpose: %v", err)
	}
	if err := service.SetPurpose(db, "تربية", 14); err != nil {
		t.Fatalf("add purpose: %v", err)
	}
	if err := service.SetPurpose(db, "تربية", 0); err == nil {
		t.Fatalf("expected target validation error")
	}

	data, err := service.LoadDataset(db)
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	if dose, _ := data.AdditiveDose("بريمكس"); dose != 4 {
		t.Fatalf("expected premix dose 4, got %v", dose)
	}
	if _, ok := data.AdditiveDose("مضاد سموم"); ok {
		t.Fatalf("expected toxin binder to be a plain ingredient")
	}
	if _, ok := data.Ingredient("مضاد سموم"); !ok {
		t.Fatalf("removing an additive must keep the ingredient")
	}
	if target, _ := data.ProteinTarget("حلاب"); target != 17 {
		t.Fatalf("expected dairy target 17, got %v", target)
	}
	if data.Purposes[len(data.Purposes)-1].Name != "تربية" {
		t.Fatalf("expected new purpose last, got %+v", data.Purposes)
	}

	items, err := service.ListIngredients(db)
	if err != nil {
		t.Fatalf("list ingredients: %v", err)
	}
	flags := map[string]bool{}
	for _, it := range items {
		flags[it.Name] = it.Additive
	}
	if !flags["بريمكس"] || flags["مضاد سموم"] || flags["ذرة صفراء"] {
		t.Fatalf("unexpected additive flags: %v", flags)
	}
}
