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

// Package nutritiontool provides the nutrition analysis tools the LLM agent
// can invoke: per-food analysis, meal totals, and intake recommendations.
//
// All three tools are backed by the Nutritionix client and inherit its
// graceful degradation: when the API is unavailable the tools keep working
// on mock data, so the agent never loses its core capability mid-session.
package nutritiontool

import (
	"fmt"
	"math"
	"strings"

	"github.com/nutriserve/nutriserve/pkg/nutrition"
	"github.com/nutriserve/nutriserve/pkg/tool"
	"github.com/nutriserve/nutriserve/pkg/tool/functiontool"
)

// Toolset builds the nutrition tools backed by a shared Nutritionix client.
type Toolset struct {
	client *nutrition.Client
}

// New creates a Toolset.
func New(client *nutrition.Client) *Toolset {
	return &Toolset{client: client}
}

// Tools returns all nutrition tools in registration order.
func (t *Toolset) Tools() ([]tool.CallableTool, error) {
	analyze, err := t.AnalyzeTool()
	if err != nil {
		return nil, err
	}
	totals, err := t.MealTotalsTool()
	if err != nil {
		return nil, err
	}
	recommend, err := t.RecommendationsTool()
	if err != nil {
		return nil, err
	}
	return []tool.CallableTool{analyze, totals, recommend}, nil
}

// AnalyzeArgs defines the parameters for analyze_nutrition.
type AnalyzeArgs struct {
	FoodDescription string `json:"food_description" jsonschema:"required,description=Natural language description of the food or meal to analyze (e.g. '1 medium apple' or 'grilled chicken breast with 1 cup rice')"`
}

// MealTotalsArgs defines the parameters for calculate_meal_totals.
type MealTotalsArgs struct {
	FoodItems []string `json:"food_items" jsonschema:"required,description=List of food items that make up the meal (e.g. ['2 scrambled eggs' '1 slice whole wheat toast']),minItems=1"`
}

// RecommendationsArgs defines the parameters for get_nutrition_recommendations.
type RecommendationsArgs struct {
	CurrentIntake       map[string]float64 `json:"current_intake" jsonschema:"required,description=Intake so far today with keys calories protein total_carbohydrates total_fat and sodium"`
	Goal                string             `json:"goal,omitempty" jsonschema:"description=Nutrition goal such as 'weight loss' or 'muscle gain' (defaults to maintenance)"`
	DietaryRestrictions []string           `json:"dietary_restrictions,omitempty" jsonschema:"description=Dietary restrictions to honor such as 'vegetarian' or 'vegan'"`
}

// AnalyzeTool creates the analyze_nutrition tool.
func (t *Toolset) AnalyzeTool() (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "analyze_nutrition",
			Description: "Analyze the nutritional content of a food or meal description. Returns per-food calories, serving info, and macronutrients plus totals for the whole query.",
		},
		func(ctx tool.Context, args AnalyzeArgs) (map[string]any, error) {
			return t.analyze(ctx, args.FoodDescription)
		},
	)
}

// MealTotalsTool creates the calculate_meal_totals tool.
func (t *Toolset) MealTotalsTool() (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "calculate_meal_totals",
			Description: "Calculate combined nutrition totals for a meal made of multiple food items. Analyzes each item and sums calories, protein, carbohydrates, and fat.",
		},
		func(ctx tool.Context, args MealTotalsArgs) (map[string]any, error) {
			return t.mealTotals(ctx, args.FoodItems)
		},
	)
}

// RecommendationsTool creates the get_nutrition_recommendations tool.
func (t *Toolset) RecommendationsTool() (tool.CallableTool, error) {
	return functiontool.New(
		functiontool.Config{
			Name:        "get_nutrition_recommendations",
			Description: "Compare current daily intake against goal-adjusted targets and return personalized recommendations. Honors dietary restrictions such as vegetarian or vegan.",
		},
		func(ctx tool.Context, args RecommendationsArgs) (map[string]any, error) {
			return t.recommend(args)
		},
	)
}

func (t *Toolset) analyze(ctx tool.Context, foodDescription string) (map[string]any, error) {
	result, err := t.client.Analyze(ctx, foodDescription)
	if err != nil {
		return nil, err
	}
	if !result.IsSuccess() {
		return errorResult(result), nil
	}

	foods := make([]map[string]any, 0, len(result.Foods))
	totals := mealTotals{}
	for _, f := range result.Foods {
		foods = append(foods, foodBreakdown(f))
		totals.add(f)
	}

	out := map[string]any{
		"status":            nutrition.StatusSuccess,
		"query":             result.Query,
		"foods":             foods,
		"meal_totals":       totals.toMap(),
		"total_foods_found": result.TotalFoodsFound,
	}
	if result.Note != "" {
		out["note"] = result.Note
	}
	return out, nil
}

func (t *Toolset) mealTotals(ctx tool.Context, foodItems []string) (map[string]any, error) {
	if len(foodItems) == 0 {
		return map[string]any{
			"status":  nutrition.StatusError,
			"message": "Please provide food items to calculate meal totals",
		}, nil
	}

	totals := mealTotals{}
	items := make([]map[string]any, 0, len(foodItems))
	analyzed := 0
	var note string

	for _, item := range foodItems {
		result, err := t.client.Analyze(ctx, item)
		if err != nil {
			return nil, err
		}
		if !result.IsSuccess() {
			items = append(items, map[string]any{
				"food_item": item,
				"status":    nutrition.StatusError,
				"message":   result.Message,
			})
			continue
		}

		analyzed++
		foods := make([]map[string]any, 0, len(result.Foods))
		for _, f := range result.Foods {
			foods = append(foods, foodBreakdown(f))
			totals.add(f)
		}
		items = append(items, map[string]any{
			"food_item": item,
			"status":    nutrition.StatusSuccess,
			"foods":     foods,
		})
		if note == "" && result.Note != "" {
			note = result.Note
		}
	}

	if analyzed == 0 {
		return map[string]any{
			"status":  nutrition.StatusError,
			"message": "No nutrition information found",
			"items":   items,
		}, nil
	}

	out := map[string]any{
		"status":         nutrition.StatusSuccess,
		"meal_totals":    totals.toMap(),
		"items":          items,
		"items_analyzed": analyzed,
	}
	if note != "" {
		out["note"] = note
	}
	return out, nil
}

// Daily reference values. Calories and protein shift with the stated goal,
// the rest are the standard adult daily values.
const (
	baseCalories = 2000.0
	baseProtein  = 50.0
	baseCarbs    = 275.0
	baseFat      = 78.0
	baseSodium   = 2300.0

	weightLossCalorieCut = 500.0
	muscleGainCalorieAdd = 300.0
	muscleGainProteinMul = 1.5
)

func (t *Toolset) recommend(args RecommendationsArgs) (map[string]any, error) {
	if len(args.CurrentIntake) == 0 {
		return map[string]any{
			"status":  nutrition.StatusError,
			"message": "Please provide your current intake (calories, protein, total_carbohydrates, total_fat, sodium) to get recommendations",
		}, nil
	}

	goal := strings.ToLower(strings.TrimSpace(args.Goal))
	targets := map[string]float64{
		"calories":            baseCalories,
		"protein":             baseProtein,
		"total_carbohydrates": baseCarbs,
		"total_fat":           baseFat,
		"sodium":              baseSodium,
	}

	goalLabel := "maintenance"
	switch {
	case strings.Contains(goal, "loss"):
		goalLabel = "weight loss"
		targets["calories"] -= weightLossCalorieCut
	case strings.Contains(goal, "muscle") || strings.Contains(goal, "gain"):
		goalLabel = "muscle gain"
		targets["calories"] += muscleGainCalorieAdd
		targets["protein"] = round1(targets["protein"] * muscleGainProteinMul)
	}

	intakeStatus := map[string]any{}
	for _, nutrient := range []string{"calories", "protein", "total_carbohydrates", "total_fat", "sodium"} {
		current, ok := args.CurrentIntake[nutrient]
		if !ok {
			continue
		}
		intakeStatus[nutrient] = compareToTarget(current, targets[nutrient])
	}

	recs := t.buildRecommendations(args.CurrentIntake, targets, goalLabel, args.DietaryRestrictions)

	return map[string]any{
		"status":          nutrition.StatusSuccess,
		"goal":            goalLabel,
		"daily_targets":   targets,
		"intake_status":   intakeStatus,
		"recommendations": recs,
	}, nil
}

func (t *Toolset) buildRecommendations(intake, targets map[string]float64, goal string, restrictions []string) []string {
	var recs []string

	if calories, ok := intake["calories"]; ok {
		switch compareToTarget(calories, targets["calories"]) {
		case "below target":
			recs = append(recs, fmt.Sprintf("You have %.0f calories remaining today. A balanced meal or snack can help you reach your target.", targets["calories"]-calories))
		case "above target":
			recs = append(recs, fmt.Sprintf("You are %.0f calories over your daily target. Consider lighter options for your next meal.", calories-targets["calories"]))
		}
	}

	if protein, ok := intake["protein"]; ok && compareToTarget(protein, targets["protein"]) == "below target" {
		recs = append(recs, proteinSuggestion(restrictions))
	}
	if sodium, ok := intake["sodium"]; ok && compareToTarget(sodium, targets["sodium"]) == "above target" {
		recs = append(recs, "Sodium intake is above the recommended limit. Choose fresh foods over processed options.")
	}
	if fat, ok := intake["total_fat"]; ok && compareToTarget(fat, targets["total_fat"]) == "above target" {
		recs = append(recs, "Fat intake is above target. Favor grilled, baked, or steamed preparations.")
	}
	if goal == "muscle gain" {
		recs = append(recs, "Spread protein intake across meals to support muscle recovery and growth.")
	}

	if len(recs) == 0 {
		recs = append(recs, "You are on track with your nutrition goals. Keep up the good work!")
	}
	return recs
}

func proteinSuggestion(restrictions []string) string {
	for _, r := range restrictions {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "vegan":
			return "Add plant-based protein such as lentils, tofu, tempeh, or quinoa to close your protein gap."
		case "vegetarian":
			return "Add protein such as Greek yogurt, eggs, lentils, or tofu to close your protein gap."
		}
	}
	return "Add lean protein such as chicken breast, fish, eggs, or Greek yogurt to close your protein gap."
}

// compareToTarget buckets intake against a target with a 10% band.
func compareToTarget(current, target float64) string {
	if target <= 0 {
		return "on track"
	}
	ratio := current / target
	switch {
	case ratio < 0.9:
		return "below target"
	case ratio <= 1.1:
		return "on track"
	default:
		return "above target"
	}
}

func errorResult(r *nutrition.Result) map[string]any {
	out := map[string]any{
		"status":  nutrition.StatusError,
		"message": r.Message,
	}
	if r.Query != "" {
		out["query"] = r.Query
	}
	return out
}

func foodBreakdown(f nutrition.Food) map[string]any {
	return map[string]any{
		"food_name":    f.FoodName,
		"serving_qty":  f.ServingQty,
		"serving_unit": f.ServingUnit,
		"calories":     f.Calories,
		"macronutrients": map[string]any{
			"protein":             f.Protein,
			"total_carbohydrates": f.TotalCarbohydrate,
			"total_fat":           f.TotalFat,
		},
	}
}

type mealTotals struct {
	calories float64
	protein  float64
	carbs    float64
	fat      float64
}

func (m *mealTotals) add(f nutrition.Food) {
	m.calories += f.Calories
	m.protein += f.Protein
	m.carbs += f.TotalCarbohydrate
	m.fat += f.TotalFat
}

func (m *mealTotals) toMap() map[string]any {
	return map[string]any{
		"calories":            round1(m.calories),
		"protein":             round1(m.protein),
		"total_carbohydrates": round1(m.carbs),
		"total_fat":           round1(m.fat),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
