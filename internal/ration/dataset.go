package ration

import "strings"

// BatchSize is the notional batch every ration amount is expressed against.
const BatchSize = 1000.0

const (
	PurposeDairy  = "حلاب"
	AnimalCattle  = "بقر"
	AnimalBuffalo = "جاموس"
)

type Ingredient struct {
	Name    string  `json:"name" yaml:"name"`
	Protein float64 `json:"protein" yaml:"protein"`
	TDN     float64 `json:"tdn" yaml:"tdn"`
	Fiber   float64 `json:"fiber" yaml:"fiber"`
	Fat     float64 `json:"fat" yaml:"fat"`
	CapPct  float64 `json:"cap_pct" yaml:"cap_pct"`
	Custom  bool    `json:"custom,omitempty" yaml:"-"`
}

// CapMass converts the usage cap into mass-units of a batch.
func (i Ingredient) CapMass() float64 {
	return i.CapPct * BatchSize / 100
}

type Additive struct {
	Name string  `json:"name" yaml:"name"`
	Dose float64 `json:"dose" yaml:"dose"`
}

type Purpose struct {
	Name          string  `json:"name" yaml:"name"`
	ProteinTarget float64 `json:"protein_target" yaml:"protein_target"`
}

// Dataset is the read-only reference data a session formulates against.
type Dataset struct {
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
	Additives   []Additive   `json:"additives" yaml:"additives"`
	Purposes    []Purpose    `json:"purposes" yaml:"purposes"`
	AnimalTypes []string     `json:"animal_types" yaml:"animal_types"`
}

func (d *Dataset) Ingredient(name string) (Ingredient, bool) {
	for _, ing := range d.Ingredients {
		if ing.Name == name {
			return ing, true
		}
	}
	return Ingredient{}, false
}

func (d *Dataset) AdditiveDose(name string) (float64, bool) {
	for _, a := range d.Additives {
		if a.Name == name {
			return a.Dose, true
		}
	}
	return 0, false
}

func (d *Dataset) ProteinTarget(purpose string) (float64, bool) {
	for _, p := range d.Purposes {
		if p.Name == purpose {
			return p.ProteinTarget, true
		}
	}
	return 0, false
}

func (d *Dataset) HasAnimalType(animal string) bool {
	animal = strings.TrimSpace(animal)
	for _, a := range d.AnimalTypes {
		if a == animal {
			return true
		}
	}
	return false
}

func (d *Dataset) HasPurpose(purpose string) bool {
	_, ok := d.ProteinTarget(purpose)
	return ok
}

// Builtin returns a fresh copy of the compiled-in reference dataset.
func Builtin() *Dataset {
	return &Dataset{
		Ingredients: []Ingredient{
			{Name: "ذرة صفراء", Protein: 8.0, TDN: 82.6, Fiber: 2.2, Fat: 7.0, CapPct: 60},
			{Name: "تفل بنجر", Protein: 7.0, TDN: 66.0, Fiber: 17.5, Fat: 0.5, CapPct: 30},
			{Name: "جلوتوفيد", Protein: 18.0, TDN: 80.0, Fiber: 8.0, Fat: 3.0, CapPct: 25},
			{Name: "كسب صويا", Protein: 46.0, TDN: 68.1, Fiber: 5.2, Fat: 1.7, CapPct: 25},
			{Name: "جلوتين", Protein: 60.0, TDN: 83.0, Fiber: 2.0, Fat: 2.0, CapPct: 15},
			{Name: "كسب عباد", Protein: 33.5, TDN: 60.0, Fiber: 18.5, Fat: 3.2, CapPct: 20},
			{Name: "كسب قطن", Protein: 31.5, TDN: 64.0, Fiber: 10.0, Fat: 3.2, CapPct: 20},
			{Name: "كسب كانولا", Protein: 33.0, TDN: 60.0, Fiber: 12.5, Fat: 3.5, CapPct: 15},
			{Name: "كسب سمسم", Protein: 26.5, TDN: 85.0, Fiber: 8.5, Fat: 6.0, CapPct: 15},
			{Name: "نخالة قمح", Protein: 13.0, TDN: 58.4, Fiber: 10.0, Fat: 3.0, CapPct: 25},
			{Name: "كسب حبة بركة", Protein: 31.5, TDN: 75.0, Fiber: 7.0, Fat: 10.0, CapPct: 5},
			{Name: "كسب كتان", Protein: 31.5, TDN: 65.0, Fiber: 10.5, Fat: 4.7, CapPct: 5},
			{Name: "ملح طعام", CapPct: 1},
			{Name: "بريمكس", CapPct: 0.3},
			{Name: "بيكربونات صوديوم", CapPct: 1},
			{Name: "مضاد سموم", CapPct: 0.2},
			{Name: "حجر جيري", CapPct: 2},
		},
		Additives: []Additive{
			{Name: "ملح طعام", Dose: 10},
			{Name: "بريمكس", Dose: 3},
			{Name: "بيكربونات صوديوم", Dose: 7},
			{Name: "مضاد سموم", Dose: 1},
			{Name: "حجر جيري", Dose: 15},
		},
		Purposes: []Purpose{
			{Name: "تسمين", ProteinTarget: 15},
			{Name: "حلاب", ProteinTarget: 18},
			{Name: "عجول صغيرة", ProteinTarget: 20},
			{Name: "ثيران", ProteinTarget: 13},
		},
		AnimalTypes: []string{AnimalCattle, AnimalBuffalo},
	}
}
