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
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
)

// AuthorUser marks events carrying user input. Agent-authored events use
// the agent's name as author.
const AuthorUser = "user"

// Event is one step of an agent conversation: a user message, a model
// response (possibly partial), or a batch of tool results. Agents yield
// events from Run; the server translates them to A2A task events and the
// runner persists the non-partial ones.
type Event struct {
	// ID uniquely identifies the event.
	ID string

	// Timestamp records creation time.
	Timestamp time.Time

	// InvocationID ties the event to the invocation that produced it.
	InvocationID string

	// Branch is the producing agent's hierarchy path
	// ("parent.child" for nested agents).
	Branch string

	// Author is the producing agent's name, or AuthorUser.
	Author string

	// Message holds the event's content as a2a parts.
	Message *a2a.Message

	// Actions carries the session side effects to apply on persist.
	Actions EventActions

	// LongRunningToolIDs lists tool calls that complete out of band.
	LongRunningToolIDs []string

	// Partial marks streaming display chunks that are not persisted.
	Partial bool

	// TurnComplete marks the closing event of a model turn.
	TurnComplete bool

	// ErrorCode and ErrorMessage surface provider failures.
	ErrorCode    string
	ErrorMessage string

	// ToolCalls requested in this event.
	ToolCalls []ToolCallState

	// ToolResults produced in this event.
	ToolResults []ToolResultState
}

// ToolCallState records one requested tool invocation.
type ToolCallState struct {
	// ID matches the model's tool_use id.
	ID string `json:"id"`

	// Name of the tool.
	Name string `json:"name"`

	// Args passed to the tool.
	Args map[string]any `json:"args"`

	// Status is "pending" or "working".
	Status string `json:"status"`
}

// ToolResultState records one tool execution outcome.
type ToolResultState struct {
	// ToolCallID links back to the originating ToolCallState.
	ToolCallID string `json:"tool_call_id"`

	// Content is the tool output, or the error text.
	Content string `json:"content"`

	// Status is "success" or "failed".
	Status string `json:"status"`

	// IsError is set when Content is an error message.
	IsError bool `json:"is_error,omitempty"`
}

// EventActions are the session side effects an event carries.
type EventActions struct {
	// StateDelta holds state changes; a nil value deletes the key.
	StateDelta map[string]any

	// ArtifactDelta maps artifact names to their new versions.
	ArtifactDelta map[string]int64

	// SkipSummarization makes a tool-result event final without a
	// closing model call.
	SkipSummarization bool
}

// NewEvent creates an event with a fresh ID, the current time, and an
// empty state delta ready for writes.
func NewEvent(invocationID string) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		InvocationID: invocationID,
		Actions:      EventActions{StateDelta: make(map[string]any)},
	}
}

// IsFinalResponse reports whether the event closes the agent's answer.
// Partial chunks and events with pending tool calls or unprocessed tool
// results are not final; skip-summarization and long-running tool events
// are final by definition.
func (e *Event) IsFinalResponse() bool {
	if e.Actions.SkipSummarization || len(e.LongRunningToolIDs) > 0 {
		return true
	}
	if e.Partial {
		return false
	}
	return !e.HasToolCalls() && !e.HasToolResults()
}

// HasToolCalls reports whether the event requests tool executions,
// either in the typed field or as tool_use data parts.
func (e *Event) HasToolCalls() bool {
	return len(e.ToolCalls) > 0 || hasPartOfType(e.Message, "tool_use")
}

// HasToolResults reports whether the event carries tool outputs.
func (e *Event) HasToolResults() bool {
	return len(e.ToolResults) > 0 || hasPartOfType(e.Message, "tool_result")
}

func hasPartOfType(msg *a2a.Message, partType string) bool {
	if msg == nil {
		return false
	}
	for _, part := range msg.Parts {
		dp, ok := part.(a2a.DataPart)
		if !ok {
			continue
		}
		if kind, _ := dp.Data["type"].(string); kind == partType {
			return true
		}
	}
	return false
}

// TextContent concatenates the message's text parts.
func (e *Event) TextContent() string {
	if e.Message == nil {
		return ""
	}
	return textOfParts(e.Message.Parts)
}

// Content pairs a2a parts with a role, for building messages.
type Content struct {
	Parts []a2a.Part
	Role  a2a.MessageRole
}

// NewTextContent builds content holding a single text part.
func NewTextContent(text string, role a2a.MessageRole) *Content {
	return &Content{
		Parts: []a2a.Part{a2a.TextPart{Text: text}},
		Role:  role,
	}
}

// ToMessage converts the content to an a2a message, nil for nil content.
func (c *Content) ToMessage() *a2a.Message {
	if c == nil {
		return nil
	}
	return a2a.NewMessage(c.Role, c.Parts...)
}

// Text concatenates the content's text parts.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	return textOfParts(c.Parts)
}

func textOfParts(parts []a2a.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if tp, ok := part.(a2a.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}
