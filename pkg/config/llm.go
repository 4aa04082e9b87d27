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
)

// LLMProvider identifies the language model provider.
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig configures the language model.
type LLMConfig struct {
	// Provider type. Only "gemini" is supported.
	Provider LLMProvider `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"title=Provider,description=LLM provider,enum=gemini,default=gemini"`

	// Model name. Defaults to the GEMINI_MODEL environment variable,
	// then to gemini-2.0-flash-001.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model identifier"`

	// APIKey for authentication. Supports ${VAR} expansion; defaults to
	// GEMINI_API_KEY, then GOOGLE_API_KEY.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=API key (use ${ENV_VAR})"`

	// Temperature for generation.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,description=Sampling temperature,minimum=0,maximum=2,default=0.7"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"title=Max Tokens,description=Maximum tokens to generate,minimum=1,default=4096"`

	// MaxToolIterations bounds the reasoning loop. Default: 5.
	MaxToolIterations int `yaml:"max_tool_iterations,omitempty" json:"max_tool_iterations,omitempty" jsonschema:"title=Max Tool Iterations,description=Reasoning loop bound,minimum=1,default=5"`
}

// SetDefaults applies LLM defaults. GEMINI_MODEL, GEMINI_API_KEY and
// GOOGLE_API_KEY are resolved here, once, at config load.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = LLMProviderGemini
	}

	if c.Model == "" {
		c.Model = os.Getenv("GEMINI_MODEL")
	}
	if c.Model == "" {
		c.Model = "gemini-2.0-flash-001"
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	if c.Temperature == nil {
		c.Temperature = Float64Ptr(0.7)
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.MaxToolIterations == 0 {
		c.MaxToolIterations = 5
	}
}

// Validate checks the LLM configuration. A missing API key is not an
// error here: the serve command degrades gracefully and the validate
// command should not require live credentials.
func (c *LLMConfig) Validate() error {
	if c.Provider != LLMProviderGemini {
		return fmt.Errorf("unsupported provider %q (valid: gemini)", c.Provider)
	}

	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.MaxToolIterations < 0 {
		return fmt.Errorf("max_tool_iterations must be non-negative")
	}

	return nil
}
