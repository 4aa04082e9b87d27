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
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records measurements through OpenTelemetry instruments backed by
// a Prometheus exporter. A nil *Metrics is safe to use and records nothing.
type Metrics struct {
	agentDuration metric.Float64Histogram
	agentCalls    metric.Int64Counter
	agentErrors   metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrors       metric.Int64Counter

	toolDuration metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolErrors   metric.Int64Counter

	httpDuration     metric.Float64Histogram
	httpRequests     metric.Int64Counter
	httpRequestSize  metric.Float64Histogram
	httpResponseSize metric.Float64Histogram
}

// newMetrics creates the instrument set and the HTTP handler that serves
// the Prometheus exposition format. Each call uses its own registry.
func newMetrics(cfg MetricsConfig) (*Metrics, http.Handler, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(cfg.Namespace)
	ns := cfg.Namespace

	m := &Metrics{}

	m.agentDuration, err = meter.Float64Histogram(
		ns+"_agent_call_duration_seconds",
		metric.WithDescription("Duration of agent calls in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create agent duration histogram: %w", err)
	}

	m.agentCalls, err = meter.Int64Counter(
		ns+"_agent_calls_total",
		metric.WithDescription("Total number of agent calls"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create agent calls counter: %w", err)
	}

	m.agentErrors, err = meter.Int64Counter(
		ns+"_agent_errors_total",
		metric.WithDescription("Total number of agent errors"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create agent errors counter: %w", err)
	}

	m.llmDuration, err = meter.Float64Histogram(
		ns+"_llm_request_duration_seconds",
		metric.WithDescription("Duration of LLM requests in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	m.llmInputTokens, err = meter.Int64Counter(
		ns+"_llm_tokens_input_total",
		metric.WithDescription("Total number of input tokens sent to LLMs"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	m.llmOutputTokens, err = meter.Int64Counter(
		ns+"_llm_tokens_output_total",
		metric.WithDescription("Total number of output tokens received from LLMs"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	m.llmErrors, err = meter.Int64Counter(
		ns+"_llm_errors_total",
		metric.WithDescription("Total number of LLM errors"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		ns+"_tool_execution_duration_seconds",
		metric.WithDescription("Duration of tool executions in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	m.toolCalls, err = meter.Int64Counter(
		ns+"_tool_calls_total",
		metric.WithDescription("Total number of tool calls"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	m.toolErrors, err = meter.Int64Counter(
		ns+"_tool_errors_total",
		metric.WithDescription("Total number of tool errors"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	m.httpDuration, err = meter.Float64Histogram(
		ns+"_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	m.httpRequests, err = meter.Int64Counter(
		ns+"_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	m.httpRequestSize, err = meter.Float64Histogram(
		ns+"_http_request_size_bytes",
		metric.WithDescription("Size of HTTP request bodies in bytes"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http request size histogram: %w", err)
	}

	m.httpResponseSize, err = meter.Float64Histogram(
		ns+"_http_response_size_bytes",
		metric.WithDescription("Size of HTTP response bodies in bytes"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http response size histogram: %w", err)
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

// RecordAgentCall records a completed agent call.
func (m *Metrics) RecordAgentCall(agentName string, duration time.Duration) {
	if m == nil || m.agentDuration == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("agent", agentName))
	m.agentDuration.Record(ctx, duration.Seconds(), attrs)
	m.agentCalls.Add(ctx, 1, attrs)
}

// RecordAgentError records a failed agent call.
func (m *Metrics) RecordAgentError(agentName, errorType string) {
	if m == nil || m.agentErrors == nil {
		return
	}
	m.agentErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("agent", agentName),
		attribute.String("error_type", errorType),
	))
}

// RecordLLMCall records a completed LLM request.
func (m *Metrics) RecordLLMCall(model string, duration time.Duration) {
	if m == nil || m.llmDuration == nil {
		return
	}
	m.llmDuration.Record(context.Background(), duration.Seconds(),
		metric.WithAttributes(attribute.String("model", model)))
}

// RecordLLMTokens records token usage for an LLM request.
func (m *Metrics) RecordLLMTokens(model string, inputTokens, outputTokens int) {
	if m == nil || m.llmInputTokens == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)
}

// RecordLLMError records a failed LLM request.
func (m *Metrics) RecordLLMError(model, errorType string) {
	if m == nil || m.llmErrors == nil {
		return
	}
	m.llmErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("error_type", errorType),
	))
}

// RecordToolCall records a completed tool execution.
func (m *Metrics) RecordToolCall(toolName string, duration time.Duration) {
	if m == nil || m.toolDuration == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("tool", toolName))
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	m.toolCalls.Add(ctx, 1, attrs)
}

// RecordToolError records a failed tool execution.
func (m *Metrics) RecordToolError(toolName, errorType string) {
	if m == nil || m.toolErrors == nil {
		return
	}
	m.toolErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.String("error_type", errorType),
	))
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	if m == nil || m.httpDuration == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpRequestSize.Record(ctx, float64(requestSize), attrs)
	m.httpResponseSize.Record(ctx, float64(responseSize), attrs)
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", statusCode),
	))
}
