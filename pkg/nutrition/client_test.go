package nutrition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nutriserve/nutriserve/pkg/httpclient"
)

func noRetry() httpclient.Option {
	return httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy {
		return httpclient.NoRetry
	})
}

func TestClient_Analyze_EmptyQuery(t *testing.T) {
	client := New(Config{})

	result, err := client.Analyze(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
	if result.Status != StatusError {
		t.Errorf("status = %s, want error", result.Status)
	}
	if result.Message != "Please provide a food item to analyze" {
		t.Errorf("message = %q, want the empty-query prompt", result.Message)
	}
}

func TestClient_Analyze_Success(t *testing.T) {
	var gotAppID, gotAppKey, gotContentType string
	var gotPayload map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/natural/nutrients" {
			http.NotFound(w, r)
			return
		}
		gotAppID = r.Header.Get("x-app-id")
		gotAppKey = r.Header.Get("x-app-key")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"foods": [{
				"food_name": "Banana, raw",
				"serving_qty": 1,
				"serving_unit": "medium",
				"nf_calories": 105.02,
				"nf_total_fat": 0.389,
				"nf_saturated_fat": 0.132,
				"nf_cholesterol": 0,
				"nf_sodium": 1.18,
				"nf_total_carbohydrate": 26.95,
				"nf_dietary_fiber": 3.07,
				"nf_sugars": 14.43,
				"nf_protein": 1.29,
				"nf_potassium": 422.44
			}]
		}`))
	}))
	defer server.Close()

	client := New(Config{
		AppID:   "test-app-id",
		APIKey:  "test-api-key",
		BaseURL: server.URL,
	})

	result, err := client.Analyze(context.Background(), "1 banana")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}

	if gotAppID != "test-app-id" {
		t.Errorf("x-app-id = %s, want test-app-id", gotAppID)
	}
	if gotAppKey != "test-api-key" {
		t.Errorf("x-app-key = %s, want test-api-key", gotAppKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", gotContentType)
	}
	if gotPayload["query"] != "1 banana" {
		t.Errorf("payload query = %s, want '1 banana'", gotPayload["query"])
	}
	if gotPayload["timezone"] != "US/Eastern" {
		t.Errorf("payload timezone = %s, want US/Eastern", gotPayload["timezone"])
	}

	if !result.IsSuccess() {
		t.Fatalf("status = %s, want success", result.Status)
	}
	if result.Query != "1 banana" {
		t.Errorf("query = %s, want '1 banana'", result.Query)
	}
	if result.TotalFoodsFound != 1 || len(result.Foods) != 1 {
		t.Fatalf("expected exactly one food, got %d", len(result.Foods))
	}
	if result.Note != "" {
		t.Errorf("live API result should carry no note, got %q", result.Note)
	}

	food := result.Foods[0]
	if food.FoodName != "Banana, raw" {
		t.Errorf("food_name = %s, want 'Banana, raw'", food.FoodName)
	}
	// Values rounded to one decimal
	if food.Calories != 105.0 {
		t.Errorf("calories = %v, want 105.0", food.Calories)
	}
	if food.TotalFat != 0.4 {
		t.Errorf("total_fat = %v, want 0.4", food.TotalFat)
	}
	if food.Potassium != 422.4 {
		t.Errorf("potassium = %v, want 422.4", food.Potassium)
	}
}

func TestClient_Analyze_NoFoodsFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"foods": []}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	result, err := client.Analyze(context.Background(), "nothing edible")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
	if result.Status != StatusError {
		t.Errorf("status = %s, want error", result.Status)
	}
	if result.Message != "No nutrition information found" {
		t.Errorf("message = %q, want 'No nutrition information found'", result.Message)
	}
	if result.Query != "nothing edible" {
		t.Errorf("query = %s, want original query", result.Query)
	}
}

func TestClient_Analyze_UnauthorizedServesMockData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	result, err := client.Analyze(context.Background(), "one apple")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
	if !result.IsSuccess() {
		t.Fatalf("status = %s, want success from mock data", result.Status)
	}
	if len(result.Foods) != 1 || result.Foods[0].FoodName != "Apple, raw" {
		t.Errorf("expected mock apple, got %+v", result.Foods)
	}
	if result.Foods[0].Calories != 95 {
		t.Errorf("mock apple calories = %v, want 95", result.Foods[0].Calories)
	}
	if !strings.Contains(result.Note, "mock data") {
		t.Errorf("note = %q, want mock data note", result.Note)
	}
}

func TestClient_Analyze_ServerErrorReturnsErrorResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, noRetry())

	result, err := client.Analyze(context.Background(), "apple")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
	if result.Status != StatusError {
		t.Errorf("status = %s, want error", result.Status)
	}
	if result.Message != "API request failed: 500" {
		t.Errorf("message = %q, want 'API request failed: 500'", result.Message)
	}
}

func TestClient_Analyze_UnreachableServesMockData(t *testing.T) {
	// Port 1 is never listening
	client := New(Config{BaseURL: "http://127.0.0.1:1"}, noRetry())

	result, err := client.Analyze(context.Background(), "mystery stew")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
	if !result.IsSuccess() {
		t.Fatalf("status = %s, want success from mock data", result.Status)
	}

	food := result.Foods[0]
	if !strings.HasPrefix(food.FoodName, "Generic food item:") {
		t.Errorf("food_name = %s, want generic fallback", food.FoodName)
	}
	if food.Calories != 100 {
		t.Errorf("generic calories = %v, want 100", food.Calories)
	}
	if result.Note != "Using estimated values for demonstration." {
		t.Errorf("note = %q, want estimated values note", result.Note)
	}
}

func TestClient_Analyze_ContextCancelled(t *testing.T) {
	client := New(Config{BaseURL: "http://127.0.0.1:1"}, noRetry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Analyze(ctx, "apple")
	if err == nil {
		t.Fatal("Analyze() error = nil, want context error")
	}
}

func TestClient_MockKeywordMatching(t *testing.T) {
	client := New(Config{})

	tests := []struct {
		query    string
		wantFood string
	}{
		{"one apple", "Apple, raw"},
		{"1 cup rice", "Rice, white, cooked"},
		{"grilled CHICKEN breast", "Chicken breast, grilled"},
		{"chicken and rice", "Rice, white, cooked"}, // first keyword in order wins
		{"banana split", "Generic food item: banana split"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result := client.mockResult(tt.query)
			if !result.IsSuccess() {
				t.Fatalf("status = %s, want success", result.Status)
			}
			if result.Foods[0].FoodName != tt.wantFood {
				t.Errorf("food = %s, want %s", result.Foods[0].FoodName, tt.wantFood)
			}
			if result.TotalFoodsFound != 1 {
				t.Errorf("total_foods_found = %d, want 1", result.TotalFoodsFound)
			}
		})
	}
}

func TestClient_Analyze_RetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"foods": [{"food_name": "Oatmeal", "serving_qty": 1, "serving_unit": "cup", "nf_calories": 154}]}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Timeout: 10 * time.Second})

	result, err := client.Analyze(context.Background(), "oatmeal")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
	if attempts != 2 {
		t.Errorf("expected retry after 429, got %d attempts", attempts)
	}
	if !result.IsSuccess() || result.Foods[0].FoodName != "Oatmeal" {
		t.Errorf("expected live result after retry, got %+v", result)
	}
}
