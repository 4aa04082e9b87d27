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

// Package model defines the language-model contract the agents run on.
//
// One GenerateContent method serves both modes: with stream=false it
// yields a single final Response, with stream=true it yields Partial
// chunks for display followed by the aggregated final Response that gets
// persisted to the session. StreamingAggregator builds that final
// Response from the chunks.
package model

import (
	"context"
	"iter"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/tool"
)

// LLM generates content from conversation history.
type LLM interface {
	// Name reports the model identifier, e.g. "gemini-2.0-flash-001".
	Name() string

	// GenerateContent runs one model call. The sequence ends after the
	// final (non-partial) response or the first error.
	GenerateContent(ctx context.Context, req *Request, stream bool) iter.Seq2[*Response, error]

	// Close releases the provider client.
	Close() error
}

// Request is the input to one model call.
type Request struct {
	// Messages holds the conversation so far, oldest first.
	Messages []*a2a.Message

	// Tools the model may call this turn.
	Tools []tool.Definition

	// Config tunes generation; nil means provider defaults.
	Config *GenerateConfig

	// SystemInstruction is sent as the system prompt.
	SystemInstruction string
}

// GenerateConfig tunes text generation. Nil pointer fields fall back to
// the provider's defaults.
type GenerateConfig struct {
	// Temperature sets sampling randomness (0-2).
	Temperature *float64

	// MaxTokens caps the response length.
	MaxTokens *int

	// TopP sets nucleus sampling.
	TopP *float64

	// TopK sets top-k sampling.
	TopK *int

	// StopSequences stop generation when emitted.
	StopSequences []string
}

// Clone returns a deep copy. The request pipeline mutates the config per
// call, so the agent's copy must not be shared.
func (c *GenerateConfig) Clone() *GenerateConfig {
	if c == nil {
		return nil
	}

	clone := GenerateConfig{
		Temperature: clonePtr(c.Temperature),
		MaxTokens:   clonePtr(c.MaxTokens),
		TopP:        clonePtr(c.TopP),
		TopK:        clonePtr(c.TopK),
	}
	if c.StopSequences != nil {
		clone.StopSequences = append([]string(nil), c.StopSequences...)
	}
	return &clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Response is one unit of model output. In streaming mode Partial
// responses carry display deltas; the closing response with
// Partial=false is the aggregate that goes into the session.
type Response struct {
	// Content is the generated parts.
	Content *Content

	// Partial marks a streaming delta as opposed to the final aggregate.
	Partial bool

	// TurnComplete is set once the model finished its turn.
	TurnComplete bool

	// ToolCalls the model wants executed before it can continue.
	ToolCalls []tool.ToolCall

	// Usage reports token counts when the provider supplies them.
	Usage *Usage

	// FinishReason says why generation stopped.
	FinishReason FinishReason

	// ErrorCode and ErrorMessage carry provider-level failures that the
	// flow should surface instead of text.
	ErrorCode    string
	ErrorMessage string
}

// Content pairs generated parts with the role they speak as.
type Content struct {
	// Parts contains the content parts (text, data, files).
	Parts []a2a.Part

	// Role identifies the sender (agent/user).
	Role a2a.MessageRole
}

// Usage holds token accounting for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FinishReason says why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonContent   FinishReason = "content_filter"
	FinishReasonError     FinishReason = "error"
)

// TextContent concatenates the response's text parts.
func (r *Response) TextContent() string {
	if r == nil || r.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range r.Content.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// HasToolCalls reports whether the model requested tool executions.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// ToMessage converts the response content to an a2a message, nil when
// there is no content.
func (r *Response) ToMessage() *a2a.Message {
	if r == nil || r.Content == nil {
		return nil
	}
	return a2a.NewMessage(r.Content.Role, r.Content.Parts...)
}
