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

// Package server hosts the configured agents behind a single HTTP server
// speaking the A2A protocol.
//
// Per-agent JSON-RPC handlers and agent card handlers come from the
// official a2a-go SDK; this package supplies the executors that bridge
// A2A tasks to the agent runtime, the route layout, and the middleware
// chain (observability, logging, CORS, optional JWT auth).
//
// Routes:
//
//	POST /                                        → default agent JSON-RPC
//	GET  /                                        → default agent card
//	GET  /health                                  → health status
//	GET  /.well-known/agent-card.json             → default agent card
//	GET  /agents                                  → agent directory
//	POST /agents/{name}                           → agent JSON-RPC
//	GET  /agents/{name}                           → agent card
//	GET  /agents/{name}/.well-known/agent-card.json → agent card
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"golang.org/x/sync/errgroup"

	nutriserve "github.com/nutriserve/nutriserve"
	"github.com/nutriserve/nutriserve/pkg/auth"
	"github.com/nutriserve/nutriserve/pkg/config"
	"github.com/nutriserve/nutriserve/pkg/observability"
)

// HTTPServer serves all configured agents over HTTP.
type HTTPServer struct {
	serverCfg *config.ServerConfig
	appCfg    *config.Config

	server *http.Server

	// TaskStore for task storage (nil = a2a-go's in-memory store).
	taskStore a2asrv.TaskStore

	// JWT validator; nil disables authentication.
	authValidator auth.TokenValidator

	// Tracing and metrics. Defaults to a no-op manager.
	obs *observability.Manager

	// Per-agent handlers from a2a-go, plus the built cards.
	agentJSONRPCHandlers map[string]http.Handler
	agentCardHandlers    map[string]http.Handler
	agentCards           map[string]*a2a.AgentCard

	mu sync.RWMutex
}

// HTTPServerOption configures the HTTP server.
type HTTPServerOption func(*HTTPServer)

// WithTaskStore sets the task store. If not set, a2a-go uses its internal
// in-memory store.
func WithTaskStore(store a2asrv.TaskStore) HTTPServerOption {
	return func(s *HTTPServer) {
		s.taskStore = store
	}
}

// WithAuthValidator enables JWT authentication on A2A endpoints.
func WithAuthValidator(validator auth.TokenValidator) HTTPServerOption {
	return func(s *HTTPServer) {
		s.authValidator = validator
	}
}

// WithObservability sets the observability manager for tracing and metrics.
func WithObservability(obs *observability.Manager) HTTPServerOption {
	return func(s *HTTPServer) {
		s.obs = obs
	}
}

// NewHTTPServer creates an HTTP server from config. executors maps agent
// name to its executor; agents without an executor are skipped.
func NewHTTPServer(appCfg *config.Config, executors map[string]a2asrv.AgentExecutor, opts ...HTTPServerOption) *HTTPServer {
	serverCfg := &appCfg.Server
	if serverCfg.Host == "" || serverCfg.Port == 0 {
		serverCfg.SetDefaults()
	}

	s := &HTTPServer{
		serverCfg:            serverCfg,
		appCfg:               appCfg,
		obs:                  observability.NoopManager(),
		agentJSONRPCHandlers: make(map[string]http.Handler),
		agentCardHandlers:    make(map[string]http.Handler),
		agentCards:           make(map[string]*a2a.AgentCard),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.buildAgentHandlers(executors)

	return s
}

// buildAgentHandlers creates a2a-go native handlers for each configured
// agent. The default agent is advertised at the server's base URL; the
// rest under /agents/{name}.
func (s *HTTPServer) buildAgentHandlers(executors map[string]a2asrv.AgentExecutor) {
	baseURL := strings.TrimSuffix(s.serverCfg.BaseURL, "/")
	defaultAgent := s.appCfg.DefaultAgent()

	for name, agentCfg := range s.appCfg.Agents {
		agentURL := baseURL + "/agents/" + name
		if name == defaultAgent {
			agentURL = baseURL + "/"
		}

		card := s.buildAgentCard(name, agentCfg, agentURL)
		s.agentCards[name] = card

		executor, ok := executors[name]
		if !ok {
			slog.Warn("No executor for agent, skipping", "agent", name)
			continue
		}

		var handlerOpts []a2asrv.RequestHandlerOption
		if s.taskStore != nil {
			handlerOpts = append(handlerOpts, a2asrv.WithTaskStore(s.taskStore))
		}

		requestHandler := a2asrv.NewHandler(executor, handlerOpts...)

		s.agentJSONRPCHandlers[name] = a2asrv.NewJSONRPCHandler(requestHandler)
		s.agentCardHandlers[name] = a2asrv.NewStaticAgentCardHandler(card)
	}
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.serverCfg.Address(),
		Handler:      s.buildHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // long enough for SSE streams
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("HTTP server starting", "address", s.serverCfg.Address())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// buildHandler assembles the middleware chain around the routes.
// Order, outermost first: observability → logging → CORS → auth.
// CORS runs before auth so OPTIONS preflights never require a token.
func (s *HTTPServer) buildHandler() http.Handler {
	var handler http.Handler = s.setupRoutes()

	if s.authValidator != nil {
		excludedPaths := s.authExcludedPaths()
		handler = auth.MiddlewareWithExclusions(s.authValidator, excludedPaths)(handler)
		slog.Info("Authentication enabled", "excluded_paths", excludedPaths)
	}

	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = observability.HTTPMiddleware(s.obs)(handler)

	return handler
}

// authExcludedPaths returns the paths that never require authentication.
// Card discovery stays open so A2A clients can find the agents.
func (s *HTTPServer) authExcludedPaths() []string {
	var excluded []string
	if s.serverCfg.Auth != nil && len(s.serverCfg.Auth.ExcludedPaths) > 0 {
		excluded = append(excluded, s.serverCfg.Auth.ExcludedPaths...)
	} else {
		excluded = append(excluded, "/health", "/agents")
	}

	excluded = append(excluded, a2asrv.WellKnownAgentCardPath)
	for name := range s.appCfg.Agents {
		excluded = append(excluded, "/agents/"+name+a2asrv.WellKnownAgentCardPath)
	}

	if s.obs.MetricsEnabled() {
		excluded = append(excluded, s.obs.MetricsPath())
	}

	return excluded
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

// Address returns the host:port the server binds to.
func (s *HTTPServer) Address() string {
	return s.serverCfg.Address()
}

// UpdateExecutors atomically swaps configuration and agent executors,
// used by the config watcher for hot reload.
func (s *HTTPServer) UpdateExecutors(cfg *config.Config, executors map[string]a2asrv.AgentExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appCfg = cfg
	s.serverCfg = &cfg.Server

	s.agentJSONRPCHandlers = make(map[string]http.Handler)
	s.agentCardHandlers = make(map[string]http.Handler)
	s.agentCards = make(map[string]*a2a.AgentCard)
	s.buildAgentHandlers(executors)

	slog.Debug("Executors and config updated", "count", len(executors))
}

// setupRoutes configures the HTTP routes.
func (s *HTTPServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Default agent at the root, matching single-agent deployments.
	mux.HandleFunc("/", s.handleRoot)

	mux.HandleFunc("/health", s.handleHealth)

	if s.obs.MetricsEnabled() {
		metricsPath := s.obs.MetricsPath()
		mux.Handle(metricsPath, s.obs.MetricsHandler())
		slog.Info("Metrics endpoint enabled", "path", metricsPath)
	}

	// A2A spec section 5.3: server-level well-known card is the default
	// agent's card.
	mux.HandleFunc(a2asrv.WellKnownAgentCardPath, s.handleDefaultAgentCard)

	mux.HandleFunc("/agents", s.handleDiscovery)
	mux.HandleFunc("/agents/", s.handleAgentRoutes)

	return mux
}

// handleRoot serves the default agent: POST for JSON-RPC, GET for its card.
func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	name := s.appCfg.DefaultAgent()
	jsonRPCHandler := s.agentJSONRPCHandlers[name]
	cardHandler := s.agentCardHandlers[name]
	s.mu.RUnlock()

	if jsonRPCHandler == nil || cardHandler == nil {
		http.Error(w, "No agents configured", http.StatusNotFound)
		return
	}

	switch {
	case r.Method == http.MethodPost:
		jsonRPCHandler.ServeHTTP(w, r)
	case r.Method == http.MethodGet || r.Method == http.MethodOptions:
		cardHandler.ServeHTTP(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth returns server health status.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	agentCount := len(s.agentJSONRPCHandlers)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"agents":  agentCount,
		"version": nutriserve.Version,
	})
}

// handleDefaultAgentCard serves the default agent's card at the
// server-level well-known path.
func (s *HTTPServer) handleDefaultAgentCard(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	handler := s.agentCardHandlers[s.appCfg.DefaultAgent()]
	s.mu.RUnlock()

	if handler == nil {
		http.Error(w, "No agents configured", http.StatusNotFound)
		return
	}
	handler.ServeHTTP(w, r)
}

// agentDirectoryEntry is one row in the /agents directory.
type agentDirectoryEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	CardURL     string `json:"card_url"`
}

// handleDiscovery returns the directory of hosted agents.
func (s *HTTPServer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.agentCards))
	for name := range s.agentCards {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]agentDirectoryEntry, 0, len(names))
	for _, name := range names {
		card := s.agentCards[name]
		entries = append(entries, agentDirectoryEntry{
			Name:        name,
			Description: card.Description,
			URL:         card.URL,
			CardURL:     strings.TrimSuffix(card.URL, "/") + a2asrv.WellKnownAgentCardPath,
		})
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"agents": entries,
		"total":  len(entries),
	})
}

// handleAgentRoutes routes /agents/{name}[/...] to a2a-go native handlers.
func (s *HTTPServer) handleAgentRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/agents/")
	if path == "" {
		s.handleDiscovery(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	agentName := parts[0]
	subPath := ""
	if len(parts) > 1 {
		subPath = "/" + parts[1]
	}

	s.mu.RLock()
	jsonRPCHandler, ok := s.agentJSONRPCHandlers[agentName]
	cardHandler := s.agentCardHandlers[agentName]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "Agent not found: "+agentName, http.StatusNotFound)
		return
	}

	switch {
	case subPath == "" || subPath == "/":
		if r.Method == http.MethodPost {
			jsonRPCHandler.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodGet || r.Method == http.MethodOptions {
			cardHandler.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

	case subPath == a2asrv.WellKnownAgentCardPath:
		cardHandler.ServeHTTP(w, r)

	default:
		http.NotFound(w, r)
	}
}

// corsMiddleware adds CORS headers and answers preflight requests.
// A nil CORS config falls back to permissive development defaults.
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	methods := "GET, POST, OPTIONS"
	headers := "Content-Type, Authorization"
	origins := []string{"*"}

	if cors := s.serverCfg.CORS; cors != nil {
		if len(cors.AllowedMethods) > 0 {
			methods = strings.Join(cors.AllowedMethods, ", ")
		}
		if len(cors.AllowedHeaders) > 0 {
			headers = strings.Join(cors.AllowedHeaders, ", ")
		}
		origins = cors.AllowedOrigins
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow := allowOriginValue(origins, r.Header.Get("Origin")); allow != "" {
			w.Header().Set("Access-Control-Allow-Origin", allow)
		}
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", headers)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOriginValue picks the Access-Control-Allow-Origin header value for
// a request: the request origin when it is in the allowed list (or the
// list contains "*"), a bare "*" for origin-less requests under a
// wildcard policy, and "" when the origin is not allowed.
func allowOriginValue(allowed []string, origin string) string {
	for _, a := range allowed {
		switch {
		case a == "*" && origin == "":
			return "*"
		case a == "*" || a == origin:
			return origin
		}
	}
	return ""
}

// loggingMiddleware logs requests. The ResponseWriter is not wrapped here
// so http.Flusher keeps working for SSE.
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
