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

import (
	"net/http"
	"time"
)

// Recorder records application metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// Agent metrics
	RecordAgentCall(agentName string, duration time.Duration)
	RecordAgentError(agentName, errorType string)

	// LLM metrics
	RecordLLMCall(model string, duration time.Duration)
	RecordLLMTokens(model string, inputTokens, outputTokens int)
	RecordLLMError(model, errorType string)

	// Tool metrics
	RecordToolCall(toolName string, duration time.Duration)
	RecordToolError(toolName, errorType string)

	// HTTP metrics
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64)
}

// NoopMetrics is a Recorder that discards all measurements. It is returned
// by Manager.Metrics when metrics are disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordAgentCall(_ string, _ time.Duration) {}

func (NoopMetrics) RecordAgentError(_, _ string) {}

func (NoopMetrics) RecordLLMCall(_ string, _ time.Duration) {}

func (NoopMetrics) RecordLLMTokens(_ string, _, _ int) {}

func (NoopMetrics) RecordLLMError(_, _ string) {}

func (NoopMetrics) RecordToolCall(_ string, _ time.Duration) {}

func (NoopMetrics) RecordToolError(_, _ string) {}

func (NoopMetrics) RecordHTTPRequest(_, _ string, _ int, _ time.Duration, _, _ int64) {}

// Handler returns an HTTP handler that reports metrics as unavailable.
func (NoopMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
	})
}

var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = NoopMetrics{}
)
