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

package config

import (
	"fmt"
	"os"
	"time"
)

// NutritionConfig configures the Nutritionix natural-language API client.
//
// Credentials are optional: without them the client serves deterministic
// mock data, so the server works out of the box.
type NutritionConfig struct {
	// AppID is the Nutritionix application id (x-app-id header).
	// Defaults to NUTRITIONIX_APP_ID, then to the demo id.
	AppID string `yaml:"app_id,omitempty" json:"app_id,omitempty" jsonschema:"title=App ID,description=Nutritionix application id"`

	// APIKey is the Nutritionix API key (x-app-key header).
	// Defaults to NUTRITIONIX_API_KEY.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=Nutritionix API key (use ${ENV_VAR})"`

	// BaseURL of the Nutritionix API.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=Nutritionix API base URL"`

	// Timeout for API requests, accepting Go duration strings ("5s").
	// Default: 5s.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout (e.g. 5s)"`
}

// SetDefaults applies nutrition client defaults. NUTRITIONIX_APP_ID and
// NUTRITIONIX_API_KEY are resolved here, once, at config load.
func (c *NutritionConfig) SetDefaults() {
	if c.AppID == "" {
		c.AppID = os.Getenv("NUTRITIONIX_APP_ID")
	}
	if c.AppID == "" {
		c.AppID = "039db79f"
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv("NUTRITIONIX_API_KEY")
	}

	if c.BaseURL == "" {
		c.BaseURL = "https://trackapi.nutritionix.com/v2"
	}

	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

// Validate checks the nutrition configuration.
func (c *NutritionConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}
