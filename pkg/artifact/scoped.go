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

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/agent"
)

// Scoped wraps a Service as an agent.Artifacts bound to one session.
//
// The adapter fills in app/user/session identifiers so agents and tools
// address artifacts by name only. It is typically created per invocation.
func Scoped(svc Service, appName, userID, sessionID string) agent.Artifacts {
	return &scopedArtifacts{
		svc:       svc,
		appName:   appName,
		userID:    userID,
		sessionID: sessionID,
	}
}

type scopedArtifacts struct {
	svc       Service
	appName   string
	userID    string
	sessionID string
}

func (s *scopedArtifacts) Save(ctx context.Context, name string, part a2a.Part) (*agent.ArtifactSaveResponse, error) {
	resp, err := s.svc.Save(ctx, &SaveRequest{
		AppName:   s.appName,
		UserID:    s.userID,
		SessionID: s.sessionID,
		Name:      name,
		Part:      part,
	})
	if err != nil {
		return nil, err
	}
	return &agent.ArtifactSaveResponse{Name: name, Version: resp.Version}, nil
}

func (s *scopedArtifacts) List(ctx context.Context) (*agent.ArtifactListResponse, error) {
	resp, err := s.svc.List(ctx, &ListRequest{
		AppName:   s.appName,
		UserID:    s.userID,
		SessionID: s.sessionID,
	})
	if err != nil {
		return nil, err
	}

	infos := make([]agent.ArtifactInfo, len(resp.Artifacts))
	for i, info := range resp.Artifacts {
		infos[i] = agent.ArtifactInfo{Name: info.Name, Version: info.Version}
	}
	return &agent.ArtifactListResponse{Artifacts: infos}, nil
}

func (s *scopedArtifacts) Load(ctx context.Context, name string) (*agent.ArtifactLoadResponse, error) {
	return s.load(ctx, name, nil)
}

func (s *scopedArtifacts) LoadVersion(ctx context.Context, name string, version int) (*agent.ArtifactLoadResponse, error) {
	return s.load(ctx, name, &version)
}

func (s *scopedArtifacts) load(ctx context.Context, name string, version *int) (*agent.ArtifactLoadResponse, error) {
	resp, err := s.svc.Load(ctx, &LoadRequest{
		AppName:   s.appName,
		UserID:    s.userID,
		SessionID: s.sessionID,
		Name:      name,
		Version:   version,
	})
	if err != nil {
		return nil, err
	}
	return &agent.ArtifactLoadResponse{
		Name:    resp.Name,
		Version: resp.Version,
		Part:    resp.Part,
	}, nil
}

// Ensure scopedArtifacts implements agent.Artifacts.
var _ agent.Artifacts = (*scopedArtifacts)(nil)
