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

// Package nutriserve is an A2A-native agent server for nutrition analysis.
//
// NutriServe hosts two agents behind a single HTTP server speaking the
// A2A (Agent-to-Agent) protocol:
//
//   - TemplateAgent: a minimal, LLM-free request processor that serves as
//     the skeleton for building custom agents. It parses structured JSON
//     task requests and returns processed results.
//   - AI Nutrition Assistant: an LLM-powered conversational agent backed by
//     Google Gemini, with tools for nutrition analysis, meal totals, and
//     dietary recommendations. Food data comes from the Nutritionix API
//     with a deterministic offline fallback.
//
// # Quick Start
//
// Install the server:
//
//	go install github.com/nutriserve/nutriserve/cmd/nutriserve@latest
//
// Start it with defaults (Gemini key from GEMINI_API_KEY or a .env file):
//
//	nutriserve serve
//
// Or with a configuration file:
//
//	nutriserve serve --config nutriserve.yaml
//
// Agent cards are published at /.well-known/agent-card.json and under
// /agents/{name}/.well-known/agent-card.json; A2A JSON-RPC traffic is
// served at / (default agent) and /agents/{name}/.
//
// # Using as Go Library
//
// Import specific packages:
//
//	import (
//	    "github.com/nutriserve/nutriserve/pkg/agent"
//	    "github.com/nutriserve/nutriserve/pkg/runner"
//	    "github.com/nutriserve/nutriserve/pkg/server"
//	)
//
// # Architecture
//
// All communication uses the A2A protocol via the official a2a-go SDK:
//
//	Client → JSON-RPC handler → executor → runner → agent → model + tools
//
// Sessions, memory, and artifacts are kept in process; the server carries
// no durable state.
//
// # License
//
// Apache-2.0 - See LICENSE for details.
package nutriserve
