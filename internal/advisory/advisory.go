package advisory

import (
	"context"
	"errors"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

var (
	ErrMissingCredential = errors.New("advisory credential is not configured")
	ErrInvalidCredential = errors.New("advisory credential was rejected")
	ErrMalformedResponse = errors.New("advisory response is malformed")
)

// Advisor reviews a ration and may propose a replacement distribution.
type Advisor interface {
	Advise(ctx context.Context, req Request) (Suggestion, error)
}

type Request struct {
	Animal        string              `json:"animal"`
	Purpose       string              `json:"purpose"`
	WeightKg      float64             `json:"weight_kg"`
	MilkKg        float64             `json:"milk_kg,omitempty"`
	ProteinTarget float64             `json:"protein_target,omitempty"`
	Distribution  ration.Distribution `json:"distribution"`
	Profile       ration.Profile      `json:"profile"`
	Ingredients   []string            `json:"ingredients"`
}

type Suggestion struct {
	Commentary       string              `json:"commentary"`
	IsBalanced       bool                `json:"is_balanced"`
	SuggestedWeights ration.Distribution `json:"suggested_weights"`
	ExpectedProtein  float64             `json:"expected_protein"`
	AddedIngredients []string            `json:"added_ingredients,omitempty"`
}

// NewRequest snapshots everything the advisor needs. The distribution is
// copied so later edits don't leak into an in-flight call.
func NewRequest(ac ration.AnimalContext, d ration.Distribution, cat ration.Catalog) Request {
	req := Request{
		Animal:       ac.Animal,
		Purpose:      ac.Purpose,
		WeightKg:     ac.WeightKg,
		Distribution: d.Clone(),
		Profile:      ration.Aggregate(d, cat, ac),
		Ingredients:  cat.Names(),
	}
	if ac.Purpose == ration.PurposeDairy {
		req.MilkKg = ac.MilkKg
	}
	if target, ok := cat.Dataset().ProteinTarget(ac.Purpose); ok {
		req.ProteinTarget = target
	}
	return req
}
