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

// Package runtime assembles executors from configuration.
//
// A Runtime owns everything an agent needs at run time: the shared LLM,
// the in-memory session/artifact/memory services, and one
// a2asrv.AgentExecutor per configured agent. The serve command builds a
// Runtime per config load and hands Executors() to the HTTP server; on a
// config reload it builds a fresh Runtime and swaps.
package runtime

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2asrv"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/agent/llmagent"
	"github.com/nutriserve/nutriserve/pkg/artifact"
	"github.com/nutriserve/nutriserve/pkg/config"
	"github.com/nutriserve/nutriserve/pkg/memory"
	"github.com/nutriserve/nutriserve/pkg/model"
	"github.com/nutriserve/nutriserve/pkg/model/gemini"
	"github.com/nutriserve/nutriserve/pkg/nutrition"
	"github.com/nutriserve/nutriserve/pkg/observability"
	"github.com/nutriserve/nutriserve/pkg/runner"
	"github.com/nutriserve/nutriserve/pkg/server"
	"github.com/nutriserve/nutriserve/pkg/session"
	"github.com/nutriserve/nutriserve/pkg/tool"
	"github.com/nutriserve/nutriserve/pkg/tool/nutritiontool"
)

// LLMFactory builds the language model for LLM agents. Overridable for
// testing and for embedding with a custom model.
type LLMFactory func(cfg *config.LLMConfig) (model.LLM, error)

// Runtime holds the assembled agents and their supporting services.
type Runtime struct {
	cfg *config.Config

	// llm is shared across all LLM agents and closed with the runtime.
	llm        model.LLM
	llmFactory LLMFactory

	sessions  session.Service
	artifacts artifact.Service
	memories  memory.Service
	obs       *observability.Manager

	agents    map[string]agent.Agent
	executors map[string]a2asrv.AgentExecutor
}

// Option configures a Runtime before assembly.
type Option func(*Runtime)

// WithSessionService sets a custom session service. Defaults to the
// in-memory service.
func WithSessionService(s session.Service) Option {
	return func(r *Runtime) {
		r.sessions = s
	}
}

// WithLLMFactory overrides how the language model is built.
func WithLLMFactory(f LLMFactory) Option {
	return func(r *Runtime) {
		r.llmFactory = f
	}
}

// WithObservability sets the observability manager. Tool metrics are
// recorded through it.
func WithObservability(obs *observability.Manager) Option {
	return func(r *Runtime) {
		r.obs = obs
	}
}

// New assembles a Runtime from config. Agents that fail to initialize
// (typically the LLM agent without credentials) are skipped with a
// warning so the remaining agents still serve; New fails only when no
// agent could be built.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	r := &Runtime{
		cfg:        cfg,
		llmFactory: defaultLLMFactory,
		sessions:   session.InMemoryService(),
		artifacts:  artifact.InMemoryService(),
		memories:   memory.NewKeywordService(),
		obs:        observability.NoopManager(),
		agents:     make(map[string]agent.Agent),
		executors:  make(map[string]a2asrv.AgentExecutor),
	}
	for _, opt := range opts {
		opt(r)
	}

	var failures []string
	for _, name := range cfg.ListAgents() {
		agentCfg := cfg.Agents[name]

		executor, err := r.buildExecutor(name, agentCfg)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			slog.Warn("Agent failed to initialize, skipping", "agent", name, "error", err)
			continue
		}
		r.executors[name] = executor
	}

	if len(r.executors) == 0 {
		_ = r.Close()
		if len(failures) > 0 {
			return nil, fmt.Errorf("no agents could be initialized (attempted %d): %s",
				len(cfg.Agents), strings.Join(failures, "; "))
		}
		return nil, fmt.Errorf("no agents configured")
	}

	if len(failures) > 0 {
		slog.Warn("Some agents failed to initialize",
			"failed", len(failures), "total", len(cfg.Agents))
	}

	return r, nil
}

// buildExecutor creates the executor for one configured agent.
func (r *Runtime) buildExecutor(name string, agentCfg *config.AgentConfig) (a2asrv.AgentExecutor, error) {
	switch agentCfg.Type {
	case config.AgentTypeEcho:
		return server.NewEchoExecutor(), nil

	case config.AgentTypeLLM:
		ag, err := r.buildLLMAgent(name, agentCfg)
		if err != nil {
			return nil, err
		}
		r.agents[name] = ag

		runnerCfg, err := r.RunnerConfig(name)
		if err != nil {
			return nil, err
		}

		streamingMode := agent.StreamingModeNone
		if agentCfg.IsStreaming() {
			streamingMode = agent.StreamingModeSSE
		}

		return server.NewExecutor(server.ExecutorConfig{
			RunnerConfig: *runnerCfg,
			RunConfig:    agent.RunConfig{StreamingMode: streamingMode},
		}), nil

	default:
		return nil, fmt.Errorf("unknown agent type %q", agentCfg.Type)
	}
}

// buildLLMAgent creates an LLM agent with the nutrition toolset.
func (r *Runtime) buildLLMAgent(name string, agentCfg *config.AgentConfig) (agent.Agent, error) {
	llm, err := r.model()
	if err != nil {
		return nil, err
	}

	toolset := nutritiontool.New(nutrition.New(nutrition.Config{
		AppID:   r.cfg.Nutrition.AppID,
		APIKey:  r.cfg.Nutrition.APIKey,
		BaseURL: r.cfg.Nutrition.BaseURL,
		Timeout: r.cfg.Nutrition.Timeout,
	}))
	callables, err := toolset.Tools()
	if err != nil {
		return nil, fmt.Errorf("building nutrition tools: %w", err)
	}
	tools := make([]tool.Tool, len(callables))
	for i, ct := range callables {
		tools[i] = ct
	}

	maxTokens := r.cfg.LLM.MaxTokens
	return llmagent.New(llmagent.Config{
		Name:              name,
		Description:       agentCfg.Description,
		Model:             llm,
		Instruction:       agentCfg.Instruction,
		Tools:             tools,
		EnableStreaming:   agentCfg.IsStreaming(),
		MaxToolIterations: r.cfg.LLM.MaxToolIterations,
		GenerateConfig: &model.GenerateConfig{
			Temperature: r.cfg.LLM.Temperature,
			MaxTokens:   &maxTokens,
		},
		MetricsRecorder: r.obs.Metrics(),
	})
}

// model returns the shared LLM, building it on first use.
func (r *Runtime) model() (model.LLM, error) {
	if r.llm != nil {
		return r.llm, nil
	}

	llm, err := r.llmFactory(&r.cfg.LLM)
	if err != nil {
		return nil, err
	}
	r.llm = llm
	return llm, nil
}

// defaultLLMFactory builds the model from the provider named in config.
func defaultLLMFactory(cfg *config.LLMConfig) (model.LLM, error) {
	switch cfg.Provider {
	case config.LLMProviderGemini, "":
		var temperature float64
		if cfg.Temperature != nil {
			temperature = *cfg.Temperature
		}
		return gemini.New(gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

// Executors returns the executor for each successfully built agent,
// keyed by agent name.
func (r *Runtime) Executors() map[string]a2asrv.AgentExecutor {
	return r.executors
}

// GetAgent returns an LLM agent by name. Echo agents have no agent
// representation and are not found here.
func (r *Runtime) GetAgent(name string) (agent.Agent, bool) {
	ag, ok := r.agents[name]
	return ag, ok
}

// RunnerConfig returns a runner configuration for the named LLM agent,
// wired to the runtime's services. Used for embedding the agent outside
// the HTTP server.
func (r *Runtime) RunnerConfig(agentName string) (*runner.Config, error) {
	ag, ok := r.agents[agentName]
	if !ok {
		return nil, fmt.Errorf("no LLM agent named %q", agentName)
	}

	return &runner.Config{
		AppName:         r.cfg.Name,
		Agent:           ag,
		SessionService:  r.sessions,
		ArtifactService: r.artifacts,
		MemoryService:   r.memories,
	}, nil
}

// SessionService returns the session service shared by all agents.
func (r *Runtime) SessionService() session.Service {
	return r.sessions
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// Close releases the runtime's resources.
func (r *Runtime) Close() error {
	if r.llm == nil {
		return nil
	}

	if err := r.llm.Close(); err != nil {
		return fmt.Errorf("closing model: %w", err)
	}
	return nil
}
