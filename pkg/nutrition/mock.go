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

package nutrition

import (
	"fmt"
	"strings"
)

// mockFoods holds well-known reference foods served when the live API is
// unavailable. Ordered so overlapping queries match deterministically.
var mockFoods = []struct {
	keyword string
	food    Food
}{
	{
		keyword: "apple",
		food: Food{
			FoodName: "Apple, raw", ServingQty: 1, ServingUnit: "medium",
			Calories: 95, TotalFat: 0.3, SaturatedFat: 0.1,
			Cholesterol: 0, Sodium: 2, TotalCarbohydrate: 25,
			DietaryFiber: 4, Sugars: 19, Protein: 0.5, Potassium: 195,
		},
	},
	{
		keyword: "rice",
		food: Food{
			FoodName: "Rice, white, cooked", ServingQty: 1, ServingUnit: "cup",
			Calories: 205, TotalFat: 0.4, SaturatedFat: 0.1,
			Cholesterol: 0, Sodium: 2, TotalCarbohydrate: 45,
			DietaryFiber: 0.6, Sugars: 0.1, Protein: 4.3, Potassium: 55,
		},
	},
	{
		keyword: "chicken",
		food: Food{
			FoodName: "Chicken breast, grilled", ServingQty: 100, ServingUnit: "g",
			Calories: 165, TotalFat: 3.6, SaturatedFat: 1.0,
			Cholesterol: 85, Sodium: 74, TotalCarbohydrate: 0,
			DietaryFiber: 0, Sugars: 0, Protein: 31, Potassium: 256,
		},
	},
}

// mockResult serves deterministic data for a query: a reference food when
// the query mentions one, generic estimates otherwise.
func (c *Client) mockResult(query string) *Result {
	queryLower := strings.ToLower(query)
	for _, m := range mockFoods {
		if strings.Contains(queryLower, m.keyword) {
			return &Result{
				Status:          StatusSuccess,
				Query:           query,
				Foods:           []Food{m.food},
				TotalFoodsFound: 1,
				Note:            mockDataNote,
			}
		}
	}

	return &Result{
		Status: StatusSuccess,
		Query:  query,
		Foods: []Food{{
			FoodName:          fmt.Sprintf("Generic food item: %s", query),
			ServingQty:        1,
			ServingUnit:       "serving",
			Calories:          100,
			TotalFat:          2.0,
			SaturatedFat:      0.5,
			Cholesterol:       0,
			Sodium:            50,
			TotalCarbohydrate: 20,
			DietaryFiber:      2,
			Sugars:            5,
			Protein:           3,
			Potassium:         100,
		}},
		TotalFoodsFound: 1,
		Note:            estimatedNote,
	}
}
