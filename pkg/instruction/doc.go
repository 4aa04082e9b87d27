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

// Package instruction provides instruction templating for agents.
//
// Agent instructions can contain dynamic placeholders that are resolved
// at runtime from session state and artifacts.
//
// # Placeholder Syntax
//
// Placeholders use curly braces and support several forms:
//
//	{variable}           - Session state variable
//	{app:variable}       - App-scoped state (shared across all users/sessions)
//	{user:variable}      - User-scoped state (shared across sessions for a user)
//	{temp:variable}      - Temporary state (discarded after invocation)
//	{artifact.filename}  - Artifact text content
//	{variable?}          - Optional (empty string if not found, no error)
//
// # Usage
//
//	template := "Hello {user_name}, your daily target is {user:calorie_target} kcal."
//	resolved, err := instruction.InjectState(ctx, template)
//	if err != nil {
//	    return err
//	}
//
// # Integration with LLM Agents
//
// The llmagent package resolves instruction templates before each LLM call:
//
//	agent, _ := llmagent.New(llmagent.Config{
//	    Name: "nutrition_assistant",
//	    Instruction: `
//	        You are helping {user_name?} with nutrition questions.
//
//	        Dietary preferences:
//	        {artifact.dietary_preferences?}
//	    `,
//	})
//
// # Error Handling
//
// Required placeholders (without ?) return an error if not found.
// Optional placeholders (with ?) return an empty string if not found.
// Invalid placeholder names (not valid identifiers) are left as-is.
package instruction
