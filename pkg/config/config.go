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

// Package config defines the NutriServe configuration model.
//
// Configuration is loaded from YAML, environment variables are expanded
// (${VAR} and ${VAR:-default} syntax), defaults are applied, and the result
// is validated. All environment lookups happen once, at load time; the rest
// of the codebase reads config structs only.
package config

import (
	"fmt"
	"sort"
)

// Config is the root configuration.
type Config struct {
	// Name identifies this deployment.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Deployment name"`

	// Description is a human-readable summary.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description,description=Deployment description"`

	// Server configures the HTTP/A2A server.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty" jsonschema:"title=Server,description=HTTP server settings"`

	// LLM configures the language model backing the nutrition agent.
	LLM LLMConfig `yaml:"llm,omitempty" json:"llm,omitempty" jsonschema:"title=LLM,description=Language model settings"`

	// Nutrition configures the Nutritionix data client.
	Nutrition NutritionConfig `yaml:"nutrition,omitempty" json:"nutrition,omitempty" jsonschema:"title=Nutrition,description=Nutritionix API settings"`

	// Logger configures structured logging.
	Logger *LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger,description=Logging settings"`

	// Agents maps agent names to their configuration. When empty, the two
	// built-in agents (nutrition, template) are seeded.
	Agents map[string]*AgentConfig `yaml:"agents,omitempty" json:"agents,omitempty" jsonschema:"title=Agents,description=Hosted agents keyed by name"`
}

// SetDefaults applies default values to the whole tree.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "nutriserve"
	}

	if len(c.Agents) == 0 {
		c.Agents = DefaultAgents()
	}
	for name, agent := range c.Agents {
		if agent != nil {
			agent.SetDefaults(name)
		}
	}

	c.Server.SetDefaults()
	if c.Server.DefaultAgent == "" {
		if _, ok := c.Agents["nutrition"]; ok {
			c.Server.DefaultAgent = "nutrition"
		}
	}

	c.LLM.SetDefaults()
	c.Nutrition.SetDefaults()

	if c.Logger == nil {
		c.Logger = &LoggerConfig{}
	}
	c.Logger.SetDefaults()
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	if err := c.Nutrition.Validate(); err != nil {
		return fmt.Errorf("nutrition: %w", err)
	}

	if c.Logger != nil {
		if err := c.Logger.Validate(); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be configured")
	}
	for name, agent := range c.Agents {
		if agent == nil {
			return fmt.Errorf("agent %q: configuration is empty", name)
		}
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
	}

	if c.Server.DefaultAgent != "" {
		if _, ok := c.Agents[c.Server.DefaultAgent]; !ok {
			return fmt.Errorf("server.default_agent %q is not a configured agent", c.Server.DefaultAgent)
		}
	}

	return nil
}

// ListAgents returns the configured agent names, sorted.
func (c *Config) ListAgents() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAgent looks up an agent by name.
func (c *Config) GetAgent(name string) (*AgentConfig, bool) {
	agent, ok := c.Agents[name]
	return agent, ok
}

// DefaultAgent returns the default agent's name, falling back to the first
// configured agent when unset.
func (c *Config) DefaultAgent() string {
	if c.Server.DefaultAgent != "" {
		return c.Server.DefaultAgent
	}
	names := c.ListAgents()
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int { return &i }

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(f float64) *float64 { return &f }

// BoolValue dereferences p, returning def when p is nil.
func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
