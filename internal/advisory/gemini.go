package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-3-pro-preview"
)

// GeminiClient asks the Gemini generateContent endpoint for a structured
// JSON review of a ration.
type GeminiClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func (c *GeminiClient) Advise(ctx context.Context, req Request) (Suggestion, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" || apiKey == "PLACEHOLDER_API_KEY" {
		return Suggestion{}, ErrMissingCredential
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = DefaultModel
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: BuildPrompt(req)}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.3,
			ResponseMimeType: "application/json",
			ResponseSchema:   adviceSchema,
		},
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("marshal gemini payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Suggestion{}, fmt.Errorf("create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Suggestion{}, fmt.Errorf("execute gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Suggestion{}, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
			strings.Contains(string(body), "API key") {
			return Suggestion{}, fmt.Errorf("%w: status %d", ErrInvalidCredential, resp.StatusCode)
		}
		return Suggestion{}, fmt.Errorf("gemini request failed with status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Suggestion{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Suggestion{}, fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	return ParseAdvice(parsed.Candidates[0].Content.Parts[0].Text)
}

// ParseAdvice decodes the model's JSON answer. The suggested list is taken
// verbatim, except that a negative or non-finite weight rejects the whole
// answer.
func ParseAdvice(text string) (Suggestion, error) {
	var a adviceJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &a); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if a.SuggestedWeightsList == nil {
		return Suggestion{}, fmt.Errorf("%w: missing suggestedWeightsList", ErrMalformedResponse)
	}
	weights := make(ration.Distribution, len(a.SuggestedWeightsList))
	for _, item := range a.SuggestedWeightsList {
		name := strings.TrimSpace(item.IngredientName)
		if name == "" {
			return Suggestion{}, fmt.Errorf("%w: unnamed ingredient", ErrMalformedResponse)
		}
		if item.Weight < 0 || math.IsNaN(item.Weight) || math.IsInf(item.Weight, 0) {
			return Suggestion{}, fmt.Errorf("%w: invalid weight %v for %s", ErrMalformedResponse, item.Weight, name)
		}
		weights[name] = item.Weight
	}
	return Suggestion{
		Commentary:       a.Commentary,
		IsBalanced:       a.IsBalanced,
		SuggestedWeights: weights,
		ExpectedProtein:  a.ExpectedProtein,
		AddedIngredients: a.AddedIngredients,
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type adviceJSON struct {
	Commentary           string `json:"commentary"`
	IsBalanced           bool   `json:"isBalanced"`
	SuggestedWeightsList []struct {
		IngredientName string  `json:"ingredientName"`
		Weight         float64 `json:"weight"`
	} `json:"suggestedWeightsList"`
	ExpectedProtein  float64  `json:"expectedProtein"`
	AddedIngredients []string `json:"addedIngredients"`
}

var adviceSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"commentary": map[string]any{"type": "STRING"},
		"isBalanced": map[string]any{"type": "BOOLEAN"},
		"suggestedWeightsList": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"ingredientName": map[string]any{"type": "STRING"},
					"weight":         map[string]any{"type": "NUMBER"},
				},
				"required": []string{"ingredientName", "weight"},
			},
		},
		"expectedProtein": map[string]any{"type": "NUMBER"},
		"addedIngredients": map[string]any{
			"type":  "ARRAY",
			"items": map[string]any{"type": "STRING"},
		},
	},
	"required": []string{"commentary", "isBalanced", "suggestedWeightsList", "expectedProtein"},
}
