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

package observability

import "time"

// Span attribute keys.
const (
	AttrAgentName        = "agent.name"
	AttrToolName         = "tool.name"
	AttrLLMModel         = "llm.model"
	AttrErrorType        = "error.type"
	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.path"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response.size"
)

// Span names.
const (
	SpanHTTPRequest   = "http.request"
	SpanAgentCall     = "agent.call"
	SpanToolExecution = "agent.tool_execution"
)

// Defaults.
const (
	DefaultServiceName   = "nutriserve"
	DefaultOTLPEndpoint  = "localhost:4317"
	DefaultMetricsPath   = "/metrics"
	DefaultSamplingRate  = 1.0
	DefaultExportTimeout = 10 * time.Second
)
