// Copyright 2025 The NutriServe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package nutrition provides a client for the Nutritionix natural-language
// nutrients API.
//
// The client degrades gracefully: when credentials are missing (401) or the
// API is unreachable, it serves deterministic mock data so the rest of the
// pipeline keeps working. Other API failures surface as error-status
// results, never as Go errors; the only error the client returns is context
// cancellation.
package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/nutriserve/nutriserve/pkg/httpclient"
)

const (
	// StatusSuccess marks a result carrying food data.
	StatusSuccess = "success"

	// StatusError marks a result carrying only a message.
	StatusError = "error"

	defaultBaseURL = "https://trackapi.nutritionix.com/v2"
	defaultTimeout = 5 * time.Second

	// queryTimezone is sent with every natural-language query.
	queryTimezone = "US/Eastern"

	mockDataNote  = "Using mock data for demonstration. Please ensure valid Nutritionix API credentials for real data."
	estimatedNote = "Using estimated values for demonstration."
)

// Config configures the Nutritionix client.
type Config struct {
	AppID   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Food is one analyzed food item, values rounded to one decimal.
type Food struct {
	FoodName          string  `json:"food_name"`
	ServingQty        float64 `json:"serving_qty"`
	ServingUnit       string  `json:"serving_unit"`
	Calories          float64 `json:"calories"`
	TotalFat          float64 `json:"total_fat"`
	SaturatedFat      float64 `json:"saturated_fat"`
	Cholesterol       float64 `json:"cholesterol"`
	Sodium            float64 `json:"sodium"`
	TotalCarbohydrate float64 `json:"total_carbohydrate"`
	DietaryFiber      float64 `json:"dietary_fiber"`
	Sugars            float64 `json:"sugars"`
	Protein           float64 `json:"protein"`
	Potassium         float64 `json:"potassium"`
}

// Result is the outcome of a nutrition query.
type Result struct {
	Status          string `json:"status"`
	Query           string `json:"query,omitempty"`
	Message         string `json:"message,omitempty"`
	Foods           []Food `json:"foods,omitempty"`
	TotalFoodsFound int    `json:"total_foods_found,omitempty"`
	Note            string `json:"note,omitempty"`
}

// IsSuccess reports whether the result carries food data.
func (r *Result) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}

// Client queries the Nutritionix natural-language nutrients endpoint.
type Client struct {
	appID   string
	apiKey  string
	baseURL string
	http    *httpclient.Client
}

// New creates a Client. Extra httpclient options are applied after the
// defaults, so callers (and tests) can override retry behavior.
func New(cfg Config, opts ...httpclient.Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	options := append([]httpclient.Option{
		httpclient.WithTimeout(timeout),
		httpclient.WithMaxRetries(2),
		httpclient.WithHeaderParser(httpclient.ParseStandardRateLimitHeaders),
	}, opts...)

	return &Client{
		appID:   cfg.AppID,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(options...),
	}
}

// Analyze resolves a natural-language food query to nutrition data.
//
// An empty query yields an error-status result. A 401 response or an
// unreachable API yields mock data. Any other non-200 status yields an
// error-status result. The returned error is non-nil only when ctx is
// cancelled.
func (c *Client) Analyze(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return &Result{
			Status:  StatusError,
			Message: "Please provide a food item to analyze",
		}, nil
	}

	payload, err := json.Marshal(map[string]string{
		"query":    query,
		"timezone": queryTimezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/natural/nutrients", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("x-app-id", c.appID)
	req.Header.Set("x-app-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.http.Do(req)
	if resp == nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("Nutritionix unreachable, serving mock data", "error", doErr)
		return c.mockResult(query), nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var api apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
			slog.Debug("Nutritionix response unreadable, serving mock data", "error", err)
			return c.mockResult(query), nil
		}
		return formatResponse(&api, query), nil

	case http.StatusUnauthorized:
		slog.Debug("Nutritionix credentials rejected, serving mock data")
		return c.mockResult(query), nil

	default:
		return &Result{
			Status:  StatusError,
			Message: fmt.Sprintf("API request failed: %d", resp.StatusCode),
		}, nil
	}
}

// apiResponse mirrors the Nutritionix natural/nutrients response.
type apiResponse struct {
	Foods []apiFood `json:"foods"`
}

type apiFood struct {
	FoodName          string  `json:"food_name"`
	ServingQty        float64 `json:"serving_qty"`
	ServingUnit       string  `json:"serving_unit"`
	Calories          float64 `json:"nf_calories"`
	TotalFat          float64 `json:"nf_total_fat"`
	SaturatedFat      float64 `json:"nf_saturated_fat"`
	Cholesterol       float64 `json:"nf_cholesterol"`
	Sodium            float64 `json:"nf_sodium"`
	TotalCarbohydrate float64 `json:"nf_total_carbohydrate"`
	DietaryFiber      float64 `json:"nf_dietary_fiber"`
	Sugars            float64 `json:"nf_sugars"`
	Protein           float64 `json:"nf_protein"`
	Potassium         float64 `json:"nf_potassium"`
}

func formatResponse(api *apiResponse, query string) *Result {
	if len(api.Foods) == 0 {
		return &Result{
			Status:  StatusError,
			Message: "No nutrition information found",
			Query:   query,
		}
	}

	foods := make([]Food, 0, len(api.Foods))
	for _, f := range api.Foods {
		foods = append(foods, formatFood(f))
	}

	return &Result{
		Status:          StatusSuccess,
		Query:           query,
		Foods:           foods,
		TotalFoodsFound: len(foods),
	}
}

func formatFood(f apiFood) Food {
	name := f.FoodName
	if name == "" {
		name = "Unknown"
	}
	qty := f.ServingQty
	if qty == 0 {
		qty = 1
	}
	unit := f.ServingUnit
	if unit == "" {
		unit = "serving"
	}

	return Food{
		FoodName:          name,
		ServingQty:        qty,
		ServingUnit:       unit,
		Calories:          round1(f.Calories),
		TotalFat:          round1(f.TotalFat),
		SaturatedFat:      round1(f.SaturatedFat),
		Cholesterol:       round1(f.Cholesterol),
		Sodium:            round1(f.Sodium),
		TotalCarbohydrate: round1(f.TotalCarbohydrate),
		DietaryFiber:      round1(f.DietaryFiber),
		Sugars:            round1(f.Sugars),
		Protein:           round1(f.Protein),
		Potassium:         round1(f.Potassium),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
