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

// Package llmagent provides an LLM-based agent implementation.
//
// LLM agents use language models to generate responses and can invoke tools
// to perform actions. They support:
//   - Instruction-based behavior control
//   - Tool/function calling
//   - Callbacks for customization
//
// # Usage
//
//	agent, err := llmagent.New(llmagent.Config{
//	    Name:        "nutrition_assistant",
//	    Model:       myModel,
//	    Instruction: "You are a helpful nutrition assistant.",
//	    Tools:       nutritiontool.New(client).Tools(),
//	})
package llmagent

import (
	"fmt"
	"iter"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/instruction"
	"github.com/nutriserve/nutriserve/pkg/model"
	"github.com/nutriserve/nutriserve/pkg/observability"
	"github.com/nutriserve/nutriserve/pkg/tool"
)

// defaultMaxToolIterations bounds the reasoning loop when the model keeps
// requesting tools without producing a final answer.
const defaultMaxToolIterations = 5

// Config contains the configuration for an LLM agent.
type Config struct {
	// Name must be unique within the agent tree.
	Name string

	// Description helps LLMs decide when to delegate to this agent.
	Description string

	// Model is the LLM to use for generation.
	Model model.LLM

	// Instruction guides the agent's behavior.
	// Supports template placeholders like {variable} resolved from state.
	Instruction string

	// InstructionProvider allows dynamic instruction generation.
	// Takes precedence over Instruction if set.
	InstructionProvider InstructionProvider

	// EnableStreaming enables token-by-token streaming from the LLM.
	// When false (default), responses are returned as complete chunks.
	EnableStreaming bool

	// GenerateConfig contains LLM generation settings.
	GenerateConfig *model.GenerateConfig

	// Tools available to the agent.
	Tools []tool.Tool

	// SubAgents can receive delegated tasks.
	SubAgents []agent.Agent

	// MaxToolIterations bounds the tool-calling loop. Default: 5.
	MaxToolIterations int

	// IncludeContents controls conversation history inclusion.
	IncludeContents IncludeContents

	// OutputKey saves agent output to session state under this key.
	OutputKey string

	// BeforeAgentCallbacks run before the agent starts.
	BeforeAgentCallbacks []agent.BeforeAgentCallback

	// AfterAgentCallbacks run after the agent completes.
	AfterAgentCallbacks []agent.AfterAgentCallback

	// BeforeModelCallbacks run before each LLM call.
	BeforeModelCallbacks []BeforeModelCallback

	// AfterModelCallbacks run after each LLM call.
	AfterModelCallbacks []AfterModelCallback

	// BeforeToolCallbacks run before each tool execution.
	BeforeToolCallbacks []BeforeToolCallback

	// AfterToolCallbacks run after each tool execution.
	AfterToolCallbacks []AfterToolCallback

	// RequestProcessors are custom processors added to the request pipeline.
	// These run AFTER the default processors.
	RequestProcessors []RequestProcessor

	// ResponseProcessors are custom processors added to the response pipeline.
	// These run AFTER the default processors.
	ResponseProcessors []ResponseProcessor

	// Pipeline allows complete customization of the processor pipeline.
	// If set, RequestProcessors and ResponseProcessors are ignored.
	Pipeline *Pipeline

	// MetricsRecorder records tool execution metrics.
	// If nil, metrics are not recorded (no-op).
	MetricsRecorder observability.Recorder
}

// InstructionProvider generates instructions dynamically.
type InstructionProvider func(ctx agent.ReadonlyContext) (string, error)

// BeforeModelCallback runs before an LLM call.
// Return non-nil Response to skip the actual LLM call.
type BeforeModelCallback func(ctx agent.CallbackContext, req *model.Request) (*model.Response, error)

// AfterModelCallback runs after an LLM call.
// Return non-nil Response to replace the LLM response.
type AfterModelCallback func(ctx agent.CallbackContext, resp *model.Response, err error) (*model.Response, error)

// BeforeToolCallback runs before tool execution.
// Return non-nil result to skip actual tool execution.
type BeforeToolCallback func(ctx tool.Context, t tool.Tool, args map[string]any) (map[string]any, error)

// AfterToolCallback runs after tool execution.
// Return non-nil result to replace the tool result.
type AfterToolCallback func(ctx tool.Context, t tool.Tool, args, result map[string]any, err error) (map[string]any, error)

// IncludeContents controls conversation history handling.
type IncludeContents string

const (
	// IncludeContentsDefault includes relevant conversation history.
	IncludeContentsDefault IncludeContents = "default"

	// IncludeContentsNone only uses the current turn.
	IncludeContentsNone IncludeContents = "none"
)

// llmAgent implements agent.Agent with LLM capabilities.
type llmAgent struct {
	agent.Agent // Embedded base agent

	model               model.LLM
	instruction         string
	instructionProvider InstructionProvider
	enableStreaming     bool
	generateConfig      *model.GenerateConfig
	tools               []tool.Tool
	maxToolIterations   int
	includeContents     IncludeContents
	outputKey           string

	beforeModelCallbacks []BeforeModelCallback
	afterModelCallbacks  []AfterModelCallback
	beforeToolCallbacks  []BeforeToolCallback
	afterToolCallbacks   []AfterToolCallback

	pipeline        *Pipeline
	metricsRecorder observability.Recorder
}

// New creates a new LLM-based agent.
func New(cfg Config) (agent.Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is required")
	}

	a := &llmAgent{
		model:                cfg.Model,
		instruction:          cfg.Instruction,
		instructionProvider:  cfg.InstructionProvider,
		enableStreaming:      cfg.EnableStreaming,
		generateConfig:       cfg.GenerateConfig,
		tools:                cfg.Tools,
		maxToolIterations:    cfg.MaxToolIterations,
		includeContents:      cfg.IncludeContents,
		outputKey:            cfg.OutputKey,
		beforeModelCallbacks: cfg.BeforeModelCallbacks,
		afterModelCallbacks:  cfg.AfterModelCallbacks,
		beforeToolCallbacks:  cfg.BeforeToolCallbacks,
		afterToolCallbacks:   cfg.AfterToolCallbacks,
		pipeline:             buildPipeline(cfg),
		metricsRecorder:      cfg.MetricsRecorder,
	}
	if a.maxToolIterations <= 0 {
		a.maxToolIterations = defaultMaxToolIterations
	}

	baseAgent, err := agent.New(agent.Config{
		Name:                 cfg.Name,
		Description:          cfg.Description,
		SubAgents:            cfg.SubAgents,
		BeforeAgentCallbacks: cfg.BeforeAgentCallbacks,
		Run:                  a.run,
		AfterAgentCallbacks:  cfg.AfterAgentCallbacks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create base agent: %w", err)
	}

	a.Agent = baseAgent
	return a, nil
}

// buildPipeline returns the configured pipeline, or the default one with
// any custom processors appended after the defaults.
func buildPipeline(cfg Config) *Pipeline {
	if cfg.Pipeline != nil {
		return cfg.Pipeline
	}
	pipeline := NewPipeline()
	for _, p := range cfg.RequestProcessors {
		pipeline.AddRequestProcessor(p)
	}
	for _, p := range cfg.ResponseProcessors {
		pipeline.AddResponseProcessor(p)
	}
	return pipeline
}

func (a *llmAgent) run(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return NewFlow(a).Run(ctx)
}

// resolveInstruction returns the agent's system instruction for this call.
func (a *llmAgent) resolveInstruction(ctx agent.ReadonlyContext) (string, error) {
	if a.instructionProvider != nil {
		inst, err := a.instructionProvider(ctx)
		if err != nil {
			return "", fmt.Errorf("instruction provider: %w", err)
		}
		return inst, nil
	}
	if a.instruction == "" {
		return "", nil
	}
	resolved, err := instruction.InjectState(ctx, a.instruction)
	if err != nil {
		return "", fmt.Errorf("instruction template: %w", err)
	}
	return resolved, nil
}

// buildMessages constructs the message history for the LLM from session
// events, skipping partial chunks and events outside the current branch.
// The session is the source of truth: the runner appends the user message
// before the agent runs, so the current turn is already in the history.
func (a *llmAgent) buildMessages(ctx agent.InvocationContext) []*a2a.Message {
	session := ctx.Session()
	if session == nil {
		return nil
	}

	branch := ctx.Branch()
	var events []*agent.Event
	for event := range session.Events().All() {
		if event.Message == nil || event.Partial {
			continue
		}
		if !eventBelongsToBranch(branch, event.Branch) {
			continue
		}
		events = append(events, event)
	}

	// In "none" mode history is cut at the latest user message.
	if a.includeContents == IncludeContentsNone {
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Author == agent.AuthorUser {
				events = events[i:]
				break
			}
		}
	}

	messages := make([]*a2a.Message, 0, len(events))
	for _, event := range events {
		messages = append(messages, event.Message)
	}
	return messages
}

// eventBelongsToBranch reports whether an event authored on eventBranch
// is visible to an invocation running on invocationBranch: same branch,
// root-level events, or events from an ancestor on the dotted path.
func eventBelongsToBranch(invocationBranch, eventBranch string) bool {
	if invocationBranch == "" || eventBranch == "" || eventBranch == invocationBranch {
		return true
	}
	// The dot delimiter keeps agent_1 from matching agent_10.
	rest, ok := strings.CutPrefix(invocationBranch, eventBranch)
	return ok && rest[0] == '.'
}

func (a *llmAgent) collectToolDefinitions() []tool.Definition {
	defs := make([]tool.Definition, len(a.tools))
	for i, t := range a.tools {
		defs[i] = tool.ToDefinition(t)
	}
	return defs
}

func (a *llmAgent) findTool(name string) tool.Tool {
	for _, t := range a.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}
