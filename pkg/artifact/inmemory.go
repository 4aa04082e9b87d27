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

package artifact

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
)

// InMemoryService returns a Service backed by in-process maps.
// Suitable for single-instance deployments; contents are lost on restart.
func InMemoryService() Service {
	return &inMemoryService{
		store: make(map[artifactKey][]a2a.Part),
	}
}

type artifactKey struct {
	appName   string
	userID    string
	sessionID string
	name      string
}

type inMemoryService struct {
	mu    sync.RWMutex
	store map[artifactKey][]a2a.Part
}

func (s *inMemoryService) Save(ctx context.Context, req *SaveRequest) (*SaveResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("artifact name is required")
	}

	key := artifactKey{
		appName:   req.AppName,
		userID:    req.UserID,
		sessionID: req.SessionID,
		name:      req.Name,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[key] = append(s.store[key], req.Part)
	return &SaveResponse{Version: int64(len(s.store[key]) - 1)}, nil
}

func (s *inMemoryService) Load(ctx context.Context, req *LoadRequest) (*LoadResponse, error) {
	key := artifactKey{
		appName:   req.AppName,
		userID:    req.UserID,
		sessionID: req.SessionID,
		name:      req.Name,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, ok := s.store[key]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("artifact %q: %w", req.Name, ErrArtifactNotFound)
	}

	version := len(versions) - 1
	if req.Version != nil {
		version = *req.Version
		if version < 0 || version >= len(versions) {
			return nil, fmt.Errorf("artifact %q version %d: %w", req.Name, version, ErrArtifactNotFound)
		}
	}

	return &LoadResponse{
		Name:    req.Name,
		Version: int64(version),
		Part:    versions[version],
	}, nil
}

func (s *inMemoryService) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []Info
	for key, versions := range s.store {
		if key.appName != req.AppName || key.userID != req.UserID || key.sessionID != req.SessionID {
			continue
		}
		if len(versions) == 0 {
			continue
		}
		infos = append(infos, Info{
			Name:    key.name,
			Version: int64(len(versions) - 1),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return &ListResponse{Artifacts: infos}, nil
}

// Ensure inMemoryService implements Service.
var _ Service = (*inMemoryService)(nil)
