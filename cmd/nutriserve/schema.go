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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/nutriserve/nutriserve/pkg/config"
)

// SchemaCmd generates JSON Schema from the config structs.
// Output is written to stdout so it can be redirected (e.g. in a Makefile
// or for editor integration).
type SchemaCmd struct {
	// Compact enables compact JSON output (no indentation)
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

// Run executes the schema generation command.
func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		// Disallow additional properties for strict validation
		AllowAdditionalProperties: false,
		// Inline all definitions (no $ref) so form generators can
		// consume the schema directly
		DoNotReference: true,
	}

	schema := reflector.Reflect(&config.Config{})

	schema.ID = "https://nutriserve.dev/schemas/config.json"
	schema.Title = "NutriServe Configuration Schema"
	schema.Description = "Complete configuration schema for the NutriServe A2A server"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	schema.Examples = []interface{}{
		map[string]interface{}{
			"name": "nutriserve",
			"llm": map[string]interface{}{
				"provider": "gemini",
				"model":    "gemini-2.0-flash",
				"api_key":  "${GEMINI_API_KEY}",
			},
			"agents": map[string]interface{}{
				"nutrition": map[string]interface{}{
					"type":        "llm",
					"instruction": "You are a nutrition assistant. Use the nutrition tools to answer questions about food.",
				},
				"template": map[string]interface{}{
					"type": "echo",
				},
			},
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	return nil
}
