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

package memory

import (
	"context"

	"github.com/nutriserve/nutriserve/pkg/agent"
)

// Adapter wraps a Service to implement agent.Memory.
//
// The adapter is scoped to a specific user/app context, so Search
// automatically scopes queries without callers providing user/app
// info on every call. It is typically created per invocation.
type Adapter struct {
	svc     Service
	appName string
	userID  string
}

// NewAdapter creates an agent.Memory adapter for the given Service.
func NewAdapter(svc Service, appName, userID string) *Adapter {
	return &Adapter{
		svc:     svc,
		appName: appName,
		userID:  userID,
	}
}

// AddSession is a no-op for the adapter.
//
// Indexing is handled by the runner calling Service.Index after each
// turn; the adapter only exposes search capabilities to agents.
func (a *Adapter) AddSession(ctx context.Context, session agent.Session) error {
	return nil
}

// Search returns memory entries relevant to the given query.
//
// The search is automatically scoped to the adapter's appName and userID.
func (a *Adapter) Search(ctx context.Context, query string) (*agent.MemorySearchResponse, error) {
	if a.svc == nil {
		return &agent.MemorySearchResponse{}, nil
	}

	resp, err := a.svc.Search(ctx, &SearchRequest{
		Query:   query,
		AppName: a.appName,
		UserID:  a.userID,
	})
	if err != nil {
		return nil, err
	}

	results := make([]agent.MemoryResult, len(resp.Results))
	for i, r := range resp.Results {
		metadata := r.Metadata
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata["session_id"] = r.SessionID
		metadata["event_id"] = r.EventID
		metadata["author"] = r.Author
		metadata["timestamp"] = r.Timestamp

		results[i] = agent.MemoryResult{
			Content:  r.Content,
			Score:    r.Score,
			Metadata: metadata,
		}
	}

	return &agent.MemorySearchResponse{Results: results}, nil
}

// NilMemory returns a no-op memory implementation.
//
// Use this when memory is not configured to avoid nil checks.
func NilMemory() agent.Memory {
	return nilMemory{}
}

type nilMemory struct{}

func (nilMemory) AddSession(context.Context, agent.Session) error {
	return nil
}

func (nilMemory) Search(context.Context, string) (*agent.MemorySearchResponse, error) {
	return &agent.MemorySearchResponse{}, nil
}

// Compile-time interface checks
var (
	_ agent.Memory = (*Adapter)(nil)
	_ agent.Memory = nilMemory{}
)
