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

// Package memory provides search indexes over session history.
//
// The session service is the source of truth for conversation data; a
// memory service is a search index built on top of it. The runner indexes
// each session after a turn completes, and agents query the index through
// the scoped adapter exposed as agent.Memory.
package memory

import (
	"context"
	"time"

	"github.com/nutriserve/nutriserve/pkg/agent"
)

// SearchRequest represents a request for memory search.
type SearchRequest struct {
	// Query is the search query (natural language or keywords).
	Query string

	// UserID scopes the search to a specific user's memories.
	UserID string

	// AppName scopes the search to a specific application.
	AppName string
}

// SearchResponse represents the response from a memory search.
type SearchResponse struct {
	// Results contains the matching memory entries.
	Results []SearchResult
}

// SearchResult represents a single memory search result.
type SearchResult struct {
	// SessionID identifies which session this memory came from.
	SessionID string

	// EventID identifies the specific event within the session.
	EventID string

	// Content is the text content of the memory.
	Content string

	// Author identifies who created this content (agent name or "user").
	Author string

	// Timestamp indicates when this memory was created.
	Timestamp time.Time

	// Score represents the relevance score (higher is better).
	// For keyword search this is the number of matching words.
	Score float64

	// Metadata contains additional context about the memory.
	Metadata map[string]any
}

// Entry represents a memory entry stored in an index.
type Entry struct {
	SessionID string
	EventID   string
	AppName   string
	UserID    string
	Author    string
	Content   string
	Timestamp time.Time
	Words     map[string]struct{} // Pre-computed word index for keyword search
	Metadata  map[string]any
}

// Service provides search over session data.
//
// Index is called after each turn; the session data is already persisted
// by the session service, so indexing only builds the search structures.
// Implementations must be idempotent: indexing the same session twice
// produces the same result.
type Service interface {
	// Index adds session events to the search index.
	Index(ctx context.Context, sess agent.Session) error

	// Search performs similarity search scoped to (app_name, user_id).
	// Results are ordered by relevance score, highest first.
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
}
