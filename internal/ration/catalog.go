package ration

type Category string

const (
	CategoryEnergy   Category = "energy"
	CategoryProtein  Category = "protein"
	CategoryFiber    Category = "fiber"
	CategoryAdditive Category = "additive"
)

// Catalog joins the reference dataset with the custom ingredients defined
// during one session. Reference entries win on name collisions.
type Catalog struct {
	data   *Dataset
	custom []Ingredient
}

func NewCatalog(data *Dataset, custom ...Ingredient) Catalog {
	if data == nil {
		data = &Dataset{}
	}
	return Catalog{data: data, custom: custom}
}

func (c Catalog) Dataset() *Dataset {
	return c.data
}

func (c Catalog) Lookup(name string) (Ingredient, bool) {
	if ing, ok := c.data.Ingredient(name); ok {
		return ing, true
	}
	for _, ing := range c.custom {
		if ing.Name == name {
			return ing, true
		}
	}
	return Ingredient{}, false
}

func (c Catalog) IsAdditive(name string) bool {
	_, ok := c.data.AdditiveDose(name)
	return ok
}

// Ingredients lists reference entries first, then custom ones in definition order.
func (c Catalog) Ingredients() []Ingredient {
	out := make([]Ingredient, 0, len(c.data.Ingredients)+len(c.custom))
	out = append(out, c.data.Ingredients...)
	out = append(out, c.custom...)
	return out
}

func (c Catalog) Names() []string {
	all := c.Ingredients()
	names := make([]string, 0, len(all))
	for _, ing := range all {
		names = append(names, ing.Name)
	}
	return names
}

// Categories groups reference ingredients the way the selection screen
// presents them. Groups may overlap: a high-fiber protein meal shows up in
// both the protein and fiber groups.
func (c Catalog) Categories() map[Category][]Ingredient {
	out := map[Category][]Ingredient{
		CategoryEnergy:   {},
		CategoryProtein:  {},
		CategoryFiber:    {},
		CategoryAdditive: {},
	}
	for _, ing := range c.data.Ingredients {
		if c.IsAdditive(ing.Name) {
			out[CategoryAdditive] = append(out[CategoryAdditive], ing)
			continue
		}
		for _, cat := range Classify(ing) {
			out[cat] = append(out[cat], ing)
		}
	}
	return out
}

// Classify returns every non-additive group an ingredient belongs to.
func Classify(ing Ingredient) []Category {
	cats := make([]Category, 0, 2)
	if ing.TDN > 70 && ing.Protein < 15 {
		cats = append(cats, CategoryEnergy)
	}
	if ing.Protein >= 20 {
		cats = append(cats, CategoryProtein)
	}
	if (ing.Protein < 20 && ing.TDN <= 70) || ing.Fiber > 10 {
		cats = append(cats, CategoryFiber)
	}
	return cats
}
