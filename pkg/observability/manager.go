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
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the tracing and metrics subsystems. The zero value is a
// no-op manager whose tracers record nothing and whose metrics endpoint
// reports unavailable.
type Manager struct {
	config         Config
	tracerProvider trace.TracerProvider
	metrics        *Metrics
	metricsHandler http.Handler
	mu             sync.RWMutex
}

// NewManager creates a manager from the config. Call Initialize before use.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// NoopManager returns a manager with everything disabled.
func NoopManager() *Manager {
	return &Manager{}
}

// Initialize starts the configured subsystems.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	provider, err := newTracerProvider(ctx, m.config.Tracing)
	if err != nil {
		return err
	}
	m.tracerProvider = provider

	if m.config.Metrics.Enabled {
		metrics, handler, err := newMetrics(m.config.Metrics)
		if err != nil {
			return err
		}
		m.metrics = metrics
		m.metricsHandler = handler
	}

	return nil
}

// Tracer returns a named tracer. Before Initialize, or when tracing is
// disabled, the tracer is a no-op.
func (m *Manager) Tracer(name string) trace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// Metrics returns the metrics recorder. When metrics are disabled it
// returns NoopMetrics.
func (m *Manager) Metrics() Recorder {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.metrics == nil {
		return NoopMetrics{}
	}
	return m.metrics
}

// MetricsHandler returns the handler for the metrics endpoint.
func (m *Manager) MetricsHandler() http.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.metricsHandler == nil {
		return NoopMetrics{}.Handler()
	}
	return m.metricsHandler
}

// MetricsEnabled reports whether metrics collection is on.
func (m *Manager) MetricsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics != nil
}

// MetricsPath returns the configured metrics endpoint path.
func (m *Manager) MetricsPath() string {
	if m.config.Metrics.Path == "" {
		return DefaultMetricsPath
	}
	return m.config.Metrics.Path
}

// Shutdown flushes and stops the tracer provider.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if shutdown, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		return shutdown.Shutdown(ctx)
	}
	return nil
}
