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

// Package agent defines the core agent interfaces and types for NutriServe.
//
// # Agent Interface
//
// The Agent interface is the fundamental abstraction for all agents:
//
//	type Agent interface {
//	    Name() string
//	    Description() string
//	    Run(InvocationContext) iter.Seq2[*Event, error]
//	    SubAgents() []Agent
//	}
//
// # Context Hierarchy
//
// The package provides a three-tier context hierarchy:
//
//   - InvocationContext: Full access during agent execution
//   - ReadonlyContext: Read-only access for tools and callbacks
//   - CallbackContext: State modification for callbacks
//
// # Creating Agents
//
// Use the provided constructors to create agents:
//
//	agent, err := agent.New(agent.Config{
//	    Name:        "template",
//	    Description: "Processes messages with a fixed template",
//	    Run:         myRunFunc,
//	})
//
// For LLM-based agents, use the llmagent subpackage:
//
//	agent, err := llmagent.New(llmagent.Config{
//	    Name:        "nutrition_assistant",
//	    Model:       myModel,
//	    Instruction: "You are a helpful nutrition assistant.",
//	})
package agent
