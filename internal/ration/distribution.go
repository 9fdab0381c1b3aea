package ration

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Distribution maps ingredient names to mass-units per batch.
type Distribution map[string]float64

// Total sums amounts with decimal arithmetic.
func (d Distribution) Total() float64 {
	sum := decimal.Zero
	for _, v := range d {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.InexactFloat64()
}

func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (d Distribution) Has(name string) bool {
	_, ok := d[name]
	return ok
}

func (d Distribution) Names() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Key is a canonical rendering of the content, equal for equal maps.
func (d Distribution) Key() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, name := range d.Names() {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(d[name], 'g', -1, 64))
		b.WriteByte(';')
	}
	return b.String()
}

func (d Distribution) Equal(other Distribution) bool {
	if (d == nil) != (other == nil) || len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Rounded returns a copy with every amount rounded to the given decimal places.
func (d Distribution) Rounded(places int32) Distribution {
	if d == nil {
		return nil
	}
	out := make(Distribution, len(d))
	for k, v := range d {
		out[k] = Round(v, places)
	}
	return out
}

func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
