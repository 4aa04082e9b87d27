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

package agent

import (
	"fmt"
	"iter"
)

// Agent is the fundamental abstraction for all agents.
// Agents produce events by running within an invocation context.
type Agent interface {
	// Name returns the agent's unique name within the agent tree.
	Name() string

	// Description explains what the agent does.
	Description() string

	// Run executes the agent, yielding events until the turn completes.
	Run(ctx InvocationContext) iter.Seq2[*Event, error]

	// SubAgents returns child agents that can receive delegated work.
	SubAgents() []Agent
}

// RunFunc is the execution function for an agent.
type RunFunc func(ctx InvocationContext) iter.Seq2[*Event, error]

// BeforeAgentCallback runs before the agent's Run function.
// Return non-nil Content to skip the run and respond with that content.
type BeforeAgentCallback func(ctx CallbackContext) (*Content, error)

// AfterAgentCallback runs after the agent's Run function completes.
// Return non-nil Content to append an additional response event.
type AfterAgentCallback func(ctx CallbackContext) (*Content, error)

// Config contains the configuration for creating a base agent.
type Config struct {
	// Name must be unique within the agent tree.
	Name string

	// Description helps LLMs decide when to delegate to this agent.
	Description string

	// SubAgents can receive delegated tasks.
	SubAgents []Agent

	// Run is the agent's execution function.
	Run RunFunc

	// BeforeAgentCallbacks run before the agent starts.
	BeforeAgentCallbacks []BeforeAgentCallback

	// AfterAgentCallbacks run after the agent completes.
	AfterAgentCallbacks []AfterAgentCallback
}

// New creates a base agent from the given configuration.
func New(cfg Config) (Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Run == nil {
		return nil, fmt.Errorf("agent run function is required")
	}

	return &baseAgent{
		name:            cfg.Name,
		description:     cfg.Description,
		subAgents:       cfg.SubAgents,
		run:             cfg.Run,
		beforeCallbacks: cfg.BeforeAgentCallbacks,
		afterCallbacks:  cfg.AfterAgentCallbacks,
	}, nil
}

// baseAgent implements Agent by delegating to a RunFunc.
type baseAgent struct {
	name            string
	description     string
	subAgents       []Agent
	run             RunFunc
	beforeCallbacks []BeforeAgentCallback
	afterCallbacks  []AfterAgentCallback
}

func (a *baseAgent) Name() string        { return a.name }
func (a *baseAgent) Description() string { return a.description }
func (a *baseAgent) SubAgents() []Agent  { return a.subAgents }

func (a *baseAgent) Run(ctx InvocationContext) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		event, err := a.runBeforeCallbacks(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		if event != nil {
			if !yield(event, nil) {
				return
			}
		}
		if ctx.Ended() {
			return
		}

		for event, err := range a.run(ctx) {
			if !yield(event, err) || err != nil {
				return
			}
		}

		event, err = a.runAfterCallbacks(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		if event != nil {
			yield(event, nil)
		}
	}
}

// runBeforeCallbacks runs before-agent callbacks.
// A callback returning content short-circuits the run: the content becomes
// the agent's response and the invocation ends.
func (a *baseAgent) runBeforeCallbacks(ctx InvocationContext) (*Event, error) {
	if len(a.beforeCallbacks) == 0 {
		return nil, nil
	}

	cbCtx := newCallbackContext(ctx)
	for _, cb := range a.beforeCallbacks {
		content, err := cb(cbCtx)
		if err != nil {
			return nil, fmt.Errorf("before-agent callback failed: %w", err)
		}
		if content != nil {
			// Callback provided the response, skip the agent run.
			ctx.EndInvocation()
			return a.callbackEvent(ctx, cbCtx, content), nil
		}
	}

	// State changes without content still need an event to carry the delta.
	if len(cbCtx.actions.StateDelta) > 0 {
		return a.callbackEvent(ctx, cbCtx, nil), nil
	}
	return nil, nil
}

func (a *baseAgent) runAfterCallbacks(ctx InvocationContext) (*Event, error) {
	if len(a.afterCallbacks) == 0 {
		return nil, nil
	}

	cbCtx := newCallbackContext(ctx)
	for _, cb := range a.afterCallbacks {
		content, err := cb(cbCtx)
		if err != nil {
			return nil, fmt.Errorf("after-agent callback failed: %w", err)
		}
		if content != nil {
			return a.callbackEvent(ctx, cbCtx, content), nil
		}
	}

	if len(cbCtx.actions.StateDelta) > 0 {
		return a.callbackEvent(ctx, cbCtx, nil), nil
	}
	return nil, nil
}

func (a *baseAgent) callbackEvent(ctx InvocationContext, cbCtx *callbackContext, content *Content) *Event {
	event := NewEvent(ctx.InvocationID())
	event.Author = a.name
	event.Branch = ctx.Branch()
	event.Actions = *cbCtx.actions
	if content != nil {
		event.Message = content.ToMessage()
	}
	return event
}

// FindAgent searches the tree rooted at root for an agent by name.
func FindAgent(root Agent, name string) Agent {
	if root == nil {
		return nil
	}
	if root.Name() == name {
		return root
	}
	for _, sub := range root.SubAgents() {
		if found := FindAgent(sub, name); found != nil {
			return found
		}
	}
	return nil
}

// ListAgents returns all agents in the tree rooted at root.
func ListAgents(root Agent) []Agent {
	if root == nil {
		return nil
	}
	agents := []Agent{root}
	for _, sub := range root.SubAgents() {
		agents = append(agents, ListAgents(sub)...)
	}
	return agents
}

var _ Agent = (*baseAgent)(nil)
