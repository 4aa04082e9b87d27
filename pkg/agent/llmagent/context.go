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

package llmagent

import (
	"context"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/tool"
)

// toolContext implements tool.Context for tool executions within a flow.
// Each tool call gets its own context carrying the function call ID and an
// isolated actions accumulator that the flow merges after the call returns.
type toolContext struct {
	agent.CallbackContext

	functionCallID string
	actions        *agent.EventActions
	invCtx         agent.InvocationContext
}

func newToolContext(invCtx agent.InvocationContext, functionCallID string) *toolContext {
	return &toolContext{
		CallbackContext: newCallbackContextAdapter(invCtx),
		functionCallID:  functionCallID,
		actions: &agent.EventActions{
			StateDelta: make(map[string]any),
		},
		invCtx: invCtx,
	}
}

func (tc *toolContext) FunctionCallID() string {
	return tc.functionCallID
}

func (tc *toolContext) Actions() *agent.EventActions {
	return tc.actions
}

func (tc *toolContext) SearchMemory(ctx context.Context, query string) (*agent.MemorySearchResponse, error) {
	memory := tc.invCtx.Memory()
	if memory == nil {
		return &agent.MemorySearchResponse{}, nil
	}
	return memory.Search(ctx, query)
}

var _ tool.Context = (*toolContext)(nil)

// callbackContextAdapter adapts an InvocationContext to the narrower
// CallbackContext interface for model and tool callbacks.
type callbackContextAdapter struct {
	context.Context

	invCtx agent.InvocationContext
}

func newCallbackContextAdapter(invCtx agent.InvocationContext) agent.CallbackContext {
	return &callbackContextAdapter{
		Context: invCtx,
		invCtx:  invCtx,
	}
}

func (c *callbackContextAdapter) InvocationID() string {
	return c.invCtx.InvocationID()
}

func (c *callbackContextAdapter) AgentName() string {
	return c.invCtx.AgentName()
}

func (c *callbackContextAdapter) UserContent() *agent.Content {
	return c.invCtx.UserContent()
}

func (c *callbackContextAdapter) ReadonlyState() agent.ReadonlyState {
	return c.invCtx.ReadonlyState()
}

func (c *callbackContextAdapter) UserID() string {
	if session := c.invCtx.Session(); session != nil {
		return session.UserID()
	}
	return ""
}

func (c *callbackContextAdapter) AppName() string {
	if session := c.invCtx.Session(); session != nil {
		return session.AppName()
	}
	return ""
}

func (c *callbackContextAdapter) SessionID() string {
	if session := c.invCtx.Session(); session != nil {
		return session.ID()
	}
	return ""
}

func (c *callbackContextAdapter) Branch() string {
	return c.invCtx.Branch()
}

func (c *callbackContextAdapter) Artifacts() agent.Artifacts {
	return c.invCtx.Artifacts()
}

func (c *callbackContextAdapter) State() agent.State {
	return c.invCtx.State()
}

var _ agent.CallbackContext = (*callbackContextAdapter)(nil)
