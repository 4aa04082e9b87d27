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

import "fmt"

// AgentType selects the executor behind an agent.
type AgentType string

const (
	// AgentTypeLLM routes requests through the LLM reasoning loop.
	AgentTypeLLM AgentType = "llm"

	// AgentTypeEcho handles structured JSON requests without a model.
	AgentTypeEcho AgentType = "echo"
)

// AgentConfig configures a hosted agent and its published card.
type AgentConfig struct {
	// Name is the display name used in the agent card.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Agent Name,description=Display name published in the agent card"`

	// Description describes what the agent does.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description,description=Human-readable description"`

	// Type selects the executor: "llm" (default) or "echo".
	Type AgentType `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"title=Agent Type,description=Executor type,enum=llm,enum=echo,default=llm"`

	// Version published in the agent card.
	Version string `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Card version"`

	// Instruction is the system prompt for LLM agents.
	Instruction string `yaml:"instruction,omitempty" json:"instruction,omitempty" jsonschema:"title=Instruction,description=System prompt for LLM agents"`

	// Skills describes agent capabilities for A2A discovery.
	Skills []SkillConfig `yaml:"skills,omitempty" json:"skills,omitempty" jsonschema:"title=Skills,description=Capabilities for A2A discovery"`

	// InputModes are supported input MIME types.
	InputModes []string `yaml:"input_modes,omitempty" json:"input_modes,omitempty" jsonschema:"title=Input Modes,description=Supported input MIME types"`

	// OutputModes are supported output MIME types.
	OutputModes []string `yaml:"output_modes,omitempty" json:"output_modes,omitempty" jsonschema:"title=Output Modes,description=Supported output MIME types"`

	// Streaming enables token-by-token streaming for LLM agents.
	Streaming *bool `yaml:"streaming,omitempty" json:"streaming,omitempty" jsonschema:"title=Streaming,description=Token-by-token streaming,default=true"`

	// Provider identifies the organization behind the agent.
	Provider *AgentProviderConfig `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"title=Provider,description=Organization behind the agent"`
}

// SkillConfig describes one skill in the agent card.
type SkillConfig struct {
	// ID is a unique identifier for the skill.
	ID string `yaml:"id,omitempty" json:"id,omitempty" jsonschema:"title=Skill ID"`

	// Name is the display name.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Skill Name"`

	// Description explains what the skill does.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Skill Description"`

	// Tags for categorization.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty" jsonschema:"title=Tags"`

	// Examples of prompts this skill handles.
	Examples []string `yaml:"examples,omitempty" json:"examples,omitempty" jsonschema:"title=Examples"`
}

// AgentProviderConfig identifies the card's provider organization.
type AgentProviderConfig struct {
	Organization string `yaml:"organization,omitempty" json:"organization,omitempty" jsonschema:"title=Organization"`
	URL          string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"title=URL"`
}

// SetDefaults applies agent defaults. The map key is used as the fallback
// display name.
func (c *AgentConfig) SetDefaults(key string) {
	if c.Name == "" {
		c.Name = key
	}

	if c.Type == "" {
		c.Type = AgentTypeLLM
	}

	if c.Version == "" {
		c.Version = "1.0.0"
	}

	if c.Description == "" {
		c.Description = "A helpful AI agent: " + c.Name
	}

	if len(c.InputModes) == 0 {
		c.InputModes = []string{"text/plain"}
	}
	if len(c.OutputModes) == 0 {
		c.OutputModes = []string{"text/plain"}
	}

	if len(c.Skills) == 0 {
		c.Skills = []SkillConfig{{
			ID:          key,
			Name:        c.Name,
			Description: c.Description,
			Tags:        []string{"general", "assistant"},
		}}
	}

	if c.Streaming == nil {
		c.Streaming = BoolPtr(true)
	}
}

// Validate checks the agent configuration.
func (c *AgentConfig) Validate() error {
	switch c.Type {
	case AgentTypeLLM, AgentTypeEcho:
	default:
		return fmt.Errorf("invalid type %q (valid: llm, echo)", c.Type)
	}

	for i, skill := range c.Skills {
		if skill.ID == "" {
			return fmt.Errorf("skill %d: id is required", i)
		}
	}

	return nil
}

// IsStreaming reports whether streaming is enabled for this agent.
func (c *AgentConfig) IsStreaming() bool {
	return BoolValue(c.Streaming, true)
}

// nutritionInstruction is the system prompt of the built-in nutrition agent.
const nutritionInstruction = `You are a specialized AI nutrition assistant with access to comprehensive food and nutrition data. Your role is to help users understand their nutritional intake, make informed food choices, and achieve their health goals.

CORE CAPABILITIES:
1. Analyze nutritional content of individual foods and complete meals
2. Calculate daily nutrition totals and compare against recommended values
3. Provide personalized nutrition recommendations
4. Answer questions about nutrition, health, and dietary choices
5. Help with meal planning and food substitutions

INTERACTION PRINCIPLES:
- Always be helpful, accurate, and supportive
- Use the nutrition analysis tools to provide precise data when discussing specific foods
- Consider the user's dietary restrictions, goals, and preferences
- Provide context and explanations, not just raw numbers
- Suggest practical, actionable advice

DECISION PROCESS:
1. If the user asks about specific foods or meals, use the analyze_nutrition or calculate_meal_totals tools
2. If they want recommendations, use get_nutrition_recommendations after analyzing their current intake
3. For general nutrition questions, provide evidence-based information
4. Always explain the nutritional significance of the data you provide

RESPONSE STYLE:
- Be conversational and engaging
- Break down complex nutritional information into understandable terms
- Use specific numbers from your analysis tools when relevant
- Provide actionable next steps or suggestions
- Ask clarifying questions if needed to give better advice

IMPORTANT: Always use the available tools when analyzing specific foods or calculating nutritional values. Don't estimate or guess nutritional information when you have tools available to provide accurate data.`

// DefaultAgents returns the two built-in agents: the LLM-powered nutrition
// assistant and the echo template agent.
func DefaultAgents() map[string]*AgentConfig {
	jsonAndText := []string{"application/json", "text/plain"}

	return map[string]*AgentConfig{
		"nutrition": {
			Name:        "AI Nutrition Assistant",
			Description: "Intelligent nutrition analysis and meal planning assistant powered by advanced AI. Get personalized nutrition insights, meal analysis, and dietary recommendations.",
			Type:        AgentTypeLLM,
			Version:     "2.0.0",
			Instruction: nutritionInstruction,
			InputModes:  jsonAndText,
			OutputModes: jsonAndText,
			Streaming:   BoolPtr(true),
			Provider: &AgentProviderConfig{
				Organization: "AI Nutrition Solutions",
				URL:          "https://www.nutritionix.com",
			},
			Skills: []SkillConfig{
				{
					ID:          "intelligent_nutrition_analysis",
					Name:        "Intelligent Nutrition Analysis",
					Description: "AI-powered analysis of foods and meals with personalized insights and recommendations",
					Tags:        []string{"nutrition", "AI", "health", "analysis", "personalized", "smart"},
					Examples: []string{
						"Analyze the nutrition in my breakfast: scrambled eggs, toast, and orange juice",
						"What are the health benefits of eating salmon twice a week?",
						"I'm trying to lose weight - is this meal good for me?",
						"Calculate the total nutrition for my lunch: chicken salad sandwich and apple",
						"What foods should I eat to get more protein in my diet?",
						"Compare the nutrition between brown rice and quinoa",
						"I'm diabetic - help me plan a low-carb dinner",
						"What are the nutritional differences between grass-fed and regular beef?",
					},
				},
				{
					ID:          "meal_planning_assistant",
					Name:        "AI Meal Planning",
					Description: "Intelligent meal planning with dietary restrictions, preferences, and health goals",
					Tags:        []string{"meal-planning", "dietary-restrictions", "health-goals", "AI"},
					Examples: []string{
						"Help me plan a high-protein meal for post-workout",
						"Suggest a heart-healthy dinner with less than 500 calories",
						"I'm vegetarian and need more iron - what should I eat?",
						"Plan a diabetic-friendly breakfast with good fiber content",
					},
				},
				{
					ID:          "nutrition_education",
					Name:        "Nutrition Education & Guidance",
					Description: "Educational content about nutrition science, health recommendations, and dietary guidance",
					Tags:        []string{"education", "health", "science", "guidance"},
					Examples: []string{
						"Explain the role of antioxidants in my diet",
						"What's the difference between good and bad cholesterol?",
						"How much water should I drink per day?",
						"What are the signs of vitamin D deficiency?",
					},
				},
			},
		},
		"template": {
			Name:        "TemplateAgent",
			Description: "A2A agent template for building custom agents",
			Type:        AgentTypeEcho,
			Version:     "1.0.0",
			InputModes:  jsonAndText,
			OutputModes: jsonAndText,
			Streaming:   BoolPtr(true),
			Provider: &AgentProviderConfig{
				Organization: "Your Organization",
				URL:          "https://www.healthuniverse.com",
			},
			Skills: []SkillConfig{
				{
					ID:          "process_request",
					Name:        "Process Request",
					Description: "Process incoming requests and return processed responses",
					Tags:        []string{"template", "processing", "a2a"},
					Examples:    []string{"Process user input", "Handle data requests"},
				},
			},
		},
	}
}
