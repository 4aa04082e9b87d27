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
	"context"
	"iter"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
)

// InvocationContext carries everything an agent needs for one invocation:
// the session, the user content, the supporting services and the run
// configuration. One invocation spans a single user message up to the
// final response, which may take several model calls and tool executions.
//
// It embeds CallbackContext (and through it ReadonlyContext), so it can be
// handed to any code that only needs the narrower view.
type InvocationContext interface {
	CallbackContext

	// Agent returns the agent being invoked.
	Agent() Agent

	// Session returns the conversation session.
	Session() Session

	// Memory exposes search over past sessions.
	Memory() Memory

	// RunConfig returns the per-invocation run settings.
	RunConfig() *RunConfig

	// EndInvocation requests that no further steps run.
	EndInvocation()

	// Ended reports whether EndInvocation was called.
	Ended() bool
}

// ReadonlyContext is the view handed to tools and instruction providers:
// identifiers and inputs, with no way to mutate session state.
type ReadonlyContext interface {
	context.Context

	// InvocationID identifies this invocation.
	InvocationID() string

	// AgentName is the name of the agent currently running.
	AgentName() string

	// UserContent is the user message that started the invocation.
	UserContent() *Content

	// ReadonlyState is a read-only view of session state.
	ReadonlyState() ReadonlyState

	// UserID identifies the requesting user.
	UserID() string

	// AppName is the hosting application's name.
	AppName() string

	// SessionID identifies the session.
	SessionID() string

	// Branch is the agent hierarchy path, empty for a root agent.
	Branch() string
}

// CallbackContext extends ReadonlyContext with mutable state and artifact
// access. Model and tool callbacks receive this view.
type CallbackContext interface {
	ReadonlyContext

	// Artifacts returns session-scoped artifact storage.
	Artifacts() Artifacts

	// State returns mutable session state.
	State() State
}

// Session is the slice of a conversation session the agent layer needs.
// Declared here so this package does not depend on the session package.
type Session interface {
	ID() string
	AppName() string
	UserID() string
	State() State
	Events() Events
}

// State is mutable key-value session state.
type State interface {
	Get(key string) (any, error)
	Set(key string, value any) error
	Delete(key string) error
	All() iter.Seq2[string, any]
}

// ReadonlyState is the read-only subset of State.
type ReadonlyState interface {
	Get(key string) (any, error)
	All() iter.Seq2[string, any]
}

// TempClearable is implemented by state stores that can drop their
// "temp:" keys. The runner clears temp state after each invocation.
type TempClearable interface {
	ClearTempKeys()
}

// Events is the session's event history.
type Events interface {
	All() iter.Seq[*Event]
	Len() int
	At(i int) *Event
}

// Artifacts stores named, versioned parts scoped to the session.
type Artifacts interface {
	Save(ctx context.Context, name string, part a2a.Part) (*ArtifactSaveResponse, error)
	List(ctx context.Context) (*ArtifactListResponse, error)
	Load(ctx context.Context, name string) (*ArtifactLoadResponse, error)
	LoadVersion(ctx context.Context, name string, version int) (*ArtifactLoadResponse, error)
}

// ArtifactSaveResponse reports the version assigned to a saved artifact.
type ArtifactSaveResponse struct {
	Name    string
	Version int64
}

// ArtifactListResponse lists the session's artifacts.
type ArtifactListResponse struct {
	Artifacts []ArtifactInfo
}

// ArtifactInfo names an artifact and its latest version.
type ArtifactInfo struct {
	Name    string
	Version int64
}

// ArtifactLoadResponse carries one loaded artifact version.
type ArtifactLoadResponse struct {
	Name    string
	Version int64
	Part    a2a.Part
}

// Memory searches conversation history across sessions.
type Memory interface {
	AddSession(ctx context.Context, session Session) error
	Search(ctx context.Context, query string) (*MemorySearchResponse, error)
}

// MemorySearchResponse holds ranked memory search results.
type MemorySearchResponse struct {
	Results []MemoryResult
}

// MemoryResult is one memory hit.
type MemoryResult struct {
	Content  string
	Score    float64
	Metadata map[string]any
}

// RunConfig holds per-invocation run settings.
type RunConfig struct {
	// StreamingMode selects whether partial events are produced.
	StreamingMode StreamingMode
}

// StreamingMode selects event streaming behavior.
type StreamingMode string

const (
	StreamingModeNone StreamingMode = "none"
	StreamingModeSSE  StreamingMode = "sse"
)

// InvocationContextParams collects the inputs for NewInvocationContext.
type InvocationContextParams struct {
	Artifacts   Artifacts
	Memory      Memory
	Session     Session
	Agent       Agent
	Branch      string
	UserContent *Content
	RunConfig   *RunConfig
}

// NewInvocationContext builds an InvocationContext with a fresh
// invocation id.
func NewInvocationContext(ctx context.Context, params InvocationContextParams) InvocationContext {
	return &invocationContext{
		Context:      ctx,
		agent:        params.Agent,
		session:      params.Session,
		artifacts:    params.Artifacts,
		memory:       params.Memory,
		invocationID: uuid.NewString(),
		branch:       params.Branch,
		userContent:  params.UserContent,
		runConfig:    params.RunConfig,
	}
}

type invocationContext struct {
	context.Context

	agent        Agent
	session      Session
	artifacts    Artifacts
	memory       Memory
	invocationID string
	branch       string
	userContent  *Content
	runConfig    *RunConfig
	ended        bool
}

func (c *invocationContext) Agent() Agent          { return c.agent }
func (c *invocationContext) Session() Session      { return c.session }
func (c *invocationContext) Artifacts() Artifacts  { return c.artifacts }
func (c *invocationContext) Memory() Memory        { return c.memory }
func (c *invocationContext) InvocationID() string  { return c.invocationID }
func (c *invocationContext) Branch() string        { return c.branch }
func (c *invocationContext) UserContent() *Content { return c.userContent }
func (c *invocationContext) RunConfig() *RunConfig { return c.runConfig }
func (c *invocationContext) EndInvocation()        { c.ended = true }
func (c *invocationContext) Ended() bool           { return c.ended }

func (c *invocationContext) AgentName() string {
	if c.agent == nil {
		return ""
	}
	return c.agent.Name()
}

// The session may be nil in tests and for sessionless invocations; every
// session-derived accessor guards for that.

func (c *invocationContext) ReadonlyState() ReadonlyState {
	if c.session == nil {
		return nil
	}
	return c.session.State()
}

func (c *invocationContext) State() State {
	if c.session == nil {
		return nil
	}
	return c.session.State()
}

func (c *invocationContext) UserID() string {
	if c.session == nil {
		return ""
	}
	return c.session.UserID()
}

func (c *invocationContext) AppName() string {
	if c.session == nil {
		return ""
	}
	return c.session.AppName()
}

func (c *invocationContext) SessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

// callbackContext is the CallbackContext handed to agent-level callbacks.
// State writes are mirrored into its actions so the resulting event
// carries the delta.
type callbackContext struct {
	context.Context
	invCtx  InvocationContext
	actions *EventActions
}

func newCallbackContext(invCtx InvocationContext) *callbackContext {
	return &callbackContext{
		Context: invCtx,
		invCtx:  invCtx,
		actions: &EventActions{StateDelta: make(map[string]any)},
	}
}

func (c *callbackContext) InvocationID() string  { return c.invCtx.InvocationID() }
func (c *callbackContext) AgentName() string     { return c.invCtx.Agent().Name() }
func (c *callbackContext) UserContent() *Content { return c.invCtx.UserContent() }
func (c *callbackContext) Branch() string        { return c.invCtx.Branch() }
func (c *callbackContext) Artifacts() Artifacts  { return c.invCtx.Artifacts() }
func (c *callbackContext) UserID() string        { return c.invCtx.UserID() }
func (c *callbackContext) AppName() string       { return c.invCtx.AppName() }
func (c *callbackContext) SessionID() string     { return c.invCtx.SessionID() }

func (c *callbackContext) ReadonlyState() ReadonlyState {
	return c.invCtx.ReadonlyState()
}

func (c *callbackContext) State() State {
	return &trackedState{
		actions: c.actions,
		state:   c.invCtx.Session().State(),
	}
}

// trackedState records every mutation in the pending event actions while
// applying it to the underlying session state.
type trackedState struct {
	actions *EventActions
	state   State
}

func (s *trackedState) Get(key string) (any, error) {
	if val, ok := s.actions.StateDelta[key]; ok {
		return val, nil
	}
	return s.state.Get(key)
}

func (s *trackedState) Set(key string, val any) error {
	s.actions.StateDelta[key] = val
	return s.state.Set(key, val)
}

func (s *trackedState) Delete(key string) error {
	// nil in the delta means delete on replay.
	s.actions.StateDelta[key] = nil
	return s.state.Delete(key)
}

func (s *trackedState) All() iter.Seq2[string, any] {
	return s.state.All()
}

var (
	_ InvocationContext = (*invocationContext)(nil)
	_ CallbackContext   = (*callbackContext)(nil)
	_ State             = (*trackedState)(nil)
)
