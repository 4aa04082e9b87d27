package nutritiontool_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/httpclient"
	"github.com/nutriserve/nutriserve/pkg/nutrition"
	"github.com/nutriserve/nutriserve/pkg/tool/nutritiontool"
)

type mockContext struct{}

func (m *mockContext) FunctionCallID() string       { return "test-call" }
func (m *mockContext) Actions() *agent.EventActions { return nil }
func (m *mockContext) SearchMemory(ctx context.Context, query string) (*agent.MemorySearchResponse, error) {
	return nil, nil
}
func (m *mockContext) Artifacts() agent.Artifacts         { return nil }
func (m *mockContext) State() agent.State                 { return nil }
func (m *mockContext) InvocationID() string               { return "test-inv" }
func (m *mockContext) AgentName() string                  { return "nutrition" }
func (m *mockContext) UserContent() *agent.Content        { return nil }
func (m *mockContext) ReadonlyState() agent.ReadonlyState { return nil }
func (m *mockContext) UserID() string                     { return "test-user" }
func (m *mockContext) AppName() string                    { return "nutriserve" }
func (m *mockContext) SessionID() string                  { return "test-session" }
func (m *mockContext) Branch() string                     { return "" }
func (m *mockContext) Deadline() (time.Time, bool)        { return time.Time{}, false }
func (m *mockContext) Done() <-chan struct{}              { return nil }
func (m *mockContext) Err() error                         { return nil }
func (m *mockContext) Value(key any) any                  { return nil }

// offlineToolset builds a toolset whose client cannot reach the API, so
// every analysis deterministically serves the built-in mock data.
func offlineToolset() *nutritiontool.Toolset {
	client := nutrition.New(
		nutrition.Config{BaseURL: "http://127.0.0.1:1"},
		httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy { return httpclient.NoRetry }),
	)
	return nutritiontool.New(client)
}

func TestToolset_Tools(t *testing.T) {
	tools, err := offlineToolset().Tools()
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	if len(tools) != 3 {
		t.Fatalf("Tools() returned %d tools, want 3", len(tools))
	}

	wantNames := []string{"analyze_nutrition", "calculate_meal_totals", "get_nutrition_recommendations"}
	for i, want := range wantNames {
		if tools[i].Name() != want {
			t.Errorf("tool %d = %s, want %s", i, tools[i].Name(), want)
		}
		if tools[i].Schema() == nil {
			t.Errorf("tool %s has no schema", want)
		}
	}
}

func TestAnalyzeTool_MockFallback(t *testing.T) {
	analyze, err := offlineToolset().AnalyzeTool()
	if err != nil {
		t.Fatalf("AnalyzeTool() error = %v", err)
	}

	result, err := analyze.Call(&mockContext{}, map[string]any{"food_description": "one apple"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["status"] != "success" {
		t.Fatalf("status = %v, want success", result["status"])
	}

	foods, ok := result["foods"].([]map[string]any)
	if !ok || len(foods) != 1 {
		t.Fatalf("foods = %v, want one entry", result["foods"])
	}
	if foods[0]["food_name"] != "Apple, raw" {
		t.Errorf("food_name = %v, want 'Apple, raw'", foods[0]["food_name"])
	}

	macros, ok := foods[0]["macronutrients"].(map[string]any)
	if !ok {
		t.Fatalf("macronutrients missing: %v", foods[0])
	}
	if macros["protein"] != 0.5 || macros["total_carbohydrates"] != 25.0 || macros["total_fat"] != 0.3 {
		t.Errorf("macronutrients = %v", macros)
	}

	totals, ok := result["meal_totals"].(map[string]any)
	if !ok {
		t.Fatalf("meal_totals missing: %v", result)
	}
	if totals["calories"] != 95.0 {
		t.Errorf("total calories = %v, want 95", totals["calories"])
	}

	note, _ := result["note"].(string)
	if !strings.Contains(note, "mock data") {
		t.Errorf("note = %q, want mock data note", note)
	}
}

func TestAnalyzeTool_LiveAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"foods": [
			{"food_name": "Egg", "serving_qty": 2, "serving_unit": "large", "nf_calories": 143, "nf_protein": 12.6, "nf_total_carbohydrate": 0.7, "nf_total_fat": 9.5},
			{"food_name": "Toast", "serving_qty": 1, "serving_unit": "slice", "nf_calories": 75, "nf_protein": 3.6, "nf_total_carbohydrate": 12.9, "nf_total_fat": 1.1}
		]}`))
	}))
	defer server.Close()

	toolset := nutritiontool.New(nutrition.New(nutrition.Config{BaseURL: server.URL}))
	analyze, err := toolset.AnalyzeTool()
	if err != nil {
		t.Fatalf("AnalyzeTool() error = %v", err)
	}

	result, err := analyze.Call(&mockContext{}, map[string]any{"food_description": "2 eggs and toast"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["status"] != "success" {
		t.Fatalf("status = %v, want success", result["status"])
	}
	if result["total_foods_found"] != 2 {
		t.Errorf("total_foods_found = %v, want 2", result["total_foods_found"])
	}

	totals := result["meal_totals"].(map[string]any)
	if totals["calories"] != 218.0 {
		t.Errorf("total calories = %v, want 218", totals["calories"])
	}
	if totals["protein"] != 16.2 {
		t.Errorf("total protein = %v, want 16.2", totals["protein"])
	}
	if _, hasNote := result["note"]; hasNote {
		t.Error("live result should carry no note")
	}
}

func TestAnalyzeTool_EmptyDescription(t *testing.T) {
	analyze, err := offlineToolset().AnalyzeTool()
	if err != nil {
		t.Fatalf("AnalyzeTool() error = %v", err)
	}

	result, err := analyze.Call(&mockContext{}, map[string]any{"food_description": ""})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["status"] != "error" {
		t.Errorf("status = %v, want error", result["status"])
	}
	if result["message"] != "Please provide a food item to analyze" {
		t.Errorf("message = %v", result["message"])
	}
}

func TestMealTotalsTool(t *testing.T) {
	totalsTool, err := offlineToolset().MealTotalsTool()
	if err != nil {
		t.Fatalf("MealTotalsTool() error = %v", err)
	}

	result, err := totalsTool.Call(&mockContext{}, map[string]any{
		"food_items": []any{"one apple", "1 cup rice"},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["status"] != "success" {
		t.Fatalf("status = %v, want success", result["status"])
	}
	if result["items_analyzed"] != 2 {
		t.Errorf("items_analyzed = %v, want 2", result["items_analyzed"])
	}

	items, ok := result["items"].([]map[string]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %v, want two entries", result["items"])
	}
	if items[0]["food_item"] != "one apple" || items[0]["status"] != "success" {
		t.Errorf("first item = %v", items[0])
	}

	// apple (95 cal, 0.5 protein, 25 carbs, 0.3 fat) + rice (205, 4.3, 45, 0.4)
	totals := result["meal_totals"].(map[string]any)
	if totals["calories"] != 300.0 {
		t.Errorf("calories = %v, want 300", totals["calories"])
	}
	if totals["protein"] != 4.8 {
		t.Errorf("protein = %v, want 4.8", totals["protein"])
	}
	if totals["total_carbohydrates"] != 70.0 {
		t.Errorf("carbs = %v, want 70", totals["total_carbohydrates"])
	}
	if totals["total_fat"] != 0.7 {
		t.Errorf("fat = %v, want 0.7", totals["total_fat"])
	}
}

func TestMealTotalsTool_EmptyItems(t *testing.T) {
	totalsTool, err := offlineToolset().MealTotalsTool()
	if err != nil {
		t.Fatalf("MealTotalsTool() error = %v", err)
	}

	result, err := totalsTool.Call(&mockContext{}, map[string]any{"food_items": []any{}})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["status"] != "error" {
		t.Errorf("status = %v, want error", result["status"])
	}
}

func TestRecommendationsTool_WeightLoss(t *testing.T) {
	recommend, err := offlineToolset().RecommendationsTool()
	if err != nil {
		t.Fatalf("RecommendationsTool() error = %v", err)
	}

	result, err := recommend.Call(&mockContext{}, map[string]any{
		"current_intake": map[string]any{"calories": 1200.0, "protein": 20.0},
		"goal":           "weight loss",
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["status"] != "success" {
		t.Fatalf("status = %v, want success", result["status"])
	}
	if result["goal"] != "weight loss" {
		t.Errorf("goal = %v, want weight loss", result["goal"])
	}

	targets := result["daily_targets"].(map[string]float64)
	if targets["calories"] != 1500 {
		t.Errorf("calorie target = %v, want 1500 (2000 - 500)", targets["calories"])
	}

	status := result["intake_status"].(map[string]any)
	if status["calories"] != "below target" || status["protein"] != "below target" {
		t.Errorf("intake status = %v", status)
	}

	recs := result["recommendations"].([]string)
	if !containsSubstring(recs, "300 calories remaining") {
		t.Errorf("recommendations missing remaining calories: %v", recs)
	}
	if !containsSubstring(recs, "chicken breast") {
		t.Errorf("recommendations missing default protein suggestion: %v", recs)
	}
}

func TestRecommendationsTool_MuscleGain(t *testing.T) {
	recommend, err := offlineToolset().RecommendationsTool()
	if err != nil {
		t.Fatalf("RecommendationsTool() error = %v", err)
	}

	result, err := recommend.Call(&mockContext{}, map[string]any{
		"current_intake": map[string]any{"calories": 2400.0},
		"goal":           "muscle gain",
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	targets := result["daily_targets"].(map[string]float64)
	if targets["calories"] != 2300 {
		t.Errorf("calorie target = %v, want 2300 (2000 + 300)", targets["calories"])
	}
	if targets["protein"] != 75 {
		t.Errorf("protein target = %v, want 75 (50 * 1.5)", targets["protein"])
	}

	// 2400/2300 is within the 10% band
	status := result["intake_status"].(map[string]any)
	if status["calories"] != "on track" {
		t.Errorf("calorie status = %v, want on track", status["calories"])
	}

	recs := result["recommendations"].([]string)
	if !containsSubstring(recs, "Spread protein") {
		t.Errorf("recommendations missing muscle gain advice: %v", recs)
	}
}

func TestRecommendationsTool_DietaryRestrictions(t *testing.T) {
	recommend, err := offlineToolset().RecommendationsTool()
	if err != nil {
		t.Fatalf("RecommendationsTool() error = %v", err)
	}

	tests := []struct {
		name         string
		restrictions []any
		wantHint     string
	}{
		{"vegetarian", []any{"vegetarian"}, "Greek yogurt"},
		{"vegan", []any{"vegan"}, "tempeh"},
		{"vegan wins over later entries", []any{"vegan", "gluten-free"}, "tempeh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := recommend.Call(&mockContext{}, map[string]any{
				"current_intake":       map[string]any{"protein": 10.0},
				"dietary_restrictions": tt.restrictions,
			})
			if err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			recs := result["recommendations"].([]string)
			if !containsSubstring(recs, tt.wantHint) {
				t.Errorf("recommendations = %v, want hint %q", recs, tt.wantHint)
			}
		})
	}
}

func TestRecommendationsTool_OnTrack(t *testing.T) {
	recommend, err := offlineToolset().RecommendationsTool()
	if err != nil {
		t.Fatalf("RecommendationsTool() error = %v", err)
	}

	result, err := recommend.Call(&mockContext{}, map[string]any{
		"current_intake": map[string]any{
			"calories":            2000.0,
			"protein":             50.0,
			"total_carbohydrates": 275.0,
			"total_fat":           78.0,
			"sodium":              2300.0,
		},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["goal"] != "maintenance" {
		t.Errorf("goal = %v, want maintenance", result["goal"])
	}

	recs := result["recommendations"].([]string)
	if len(recs) != 1 || !strings.Contains(recs[0], "on track") {
		t.Errorf("recommendations = %v, want single on-track message", recs)
	}
}

func TestRecommendationsTool_EmptyIntake(t *testing.T) {
	recommend, err := offlineToolset().RecommendationsTool()
	if err != nil {
		t.Fatalf("RecommendationsTool() error = %v", err)
	}

	result, err := recommend.Call(&mockContext{}, map[string]any{
		"current_intake": map[string]any{},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["status"] != "error" {
		t.Errorf("status = %v, want error", result["status"])
	}
}

func containsSubstring(recs []string, substr string) bool {
	for _, r := range recs {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}
