package service

import (
	"fmt"
	"math"
	"strings"
)

func validateNonNegativeFloat(name string, value float64) error {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s must be a finite number >= 0", name)
	}
	return nil
}

func validatePercent(name string, value float64) error {
	if err := validateNonNegativeFloat(name, value); err != nil {
		return err
	}
	if value > 100 {
		return fmt.Errorf("%s must be <= 100", name)
	}
	return nil
}

// normalizeName trims and collapses inner whitespace. Arabic names have no
// case, so nothing is lowered.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
