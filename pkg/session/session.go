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

// Package session manages conversation sessions.
//
// A session is the running record of one conversation between a user and an
// agent: an event history plus a key-value state store. The A2A executors map
// task identity onto session identity (task id for new tasks, context id for
// continuations), so every turn of a nutrition conversation lands in the same
// session and the agent sees its own history.
//
// State keys are scoped by prefix:
//   - "app:" shared across all users and sessions
//   - "user:" shared across one user's sessions
//   - "temp:" discarded after each invocation
//   - no prefix: session-local
package session

import (
	"context"
	"errors"
	"time"

	"github.com/nutriserve/nutriserve/pkg/agent"
)

// Session is a conversation between a user and an agent.
// It satisfies agent.Session.
type Session interface {
	// ID returns the unique session identifier.
	ID() string

	// AppName returns the owning application name.
	AppName() string

	// UserID returns the user identifier.
	UserID() string

	// State returns the session state store.
	State() agent.State

	// Events returns the session event history.
	Events() agent.Events

	// LastUpdateTime returns when the session last changed.
	LastUpdateTime() time.Time
}

// Service manages session lifecycle. It is the source of truth for
// conversation history; the memory index is derived from it.
type Service interface {
	// Get retrieves an existing session.
	Get(ctx context.Context, req *GetRequest) (*GetResponse, error)

	// Create creates a new session.
	Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error)

	// AppendEvent adds an event to the session history and applies the
	// event's state delta.
	AppendEvent(ctx context.Context, session Session, event *agent.Event) error

	// List returns all sessions for an app/user pair.
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)

	// Delete removes a session.
	Delete(ctx context.Context, req *DeleteRequest) error
}

// GetRequest identifies the session to retrieve.
type GetRequest struct {
	AppName   string
	UserID    string
	SessionID string
}

// GetResponse contains the retrieved session.
type GetResponse struct {
	Session Session
}

// CreateRequest contains parameters for creating a session.
type CreateRequest struct {
	AppName string
	UserID  string

	// SessionID is optional; a uuid is generated when empty.
	SessionID string

	// State seeds the initial session state.
	State map[string]any
}

// CreateResponse contains the created session.
type CreateResponse struct {
	Session Session
}

// ListRequest scopes a listing to an app/user pair.
type ListRequest struct {
	AppName string
	UserID  string
}

// ListResponse contains the matching sessions.
type ListResponse struct {
	Sessions []Session
}

// DeleteRequest identifies the session to delete.
type DeleteRequest struct {
	AppName   string
	UserID    string
	SessionID string
}

// State key prefixes.
const (
	// KeyPrefixApp scopes state to the application.
	KeyPrefixApp = "app:"

	// KeyPrefixUser scopes state to the user.
	KeyPrefixUser = "user:"

	// KeyPrefixTemp marks state discarded after each invocation.
	KeyPrefixTemp = "temp:"
)

// ErrStateKeyNotExist is returned when a state key doesn't exist.
var ErrStateKeyNotExist = errors.New("state key does not exist")

// ErrSessionNotFound is returned when a session doesn't exist.
var ErrSessionNotFound = errors.New("session not found")
