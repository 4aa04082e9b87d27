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

// Package artifact provides versioned storage for named artifact parts.
//
// Artifacts are scoped to (app_name, user_id, session_id) and versioned:
// each save of the same name appends a new version. Agents access
// artifacts through the scoped adapter exposed as agent.Artifacts.
package artifact

import (
	"context"
	"errors"

	"github.com/a2aproject/a2a-go/a2a"
)

// ErrArtifactNotFound is returned when the requested artifact or
// artifact version does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// SaveRequest stores a new version of a named artifact.
type SaveRequest struct {
	AppName   string
	UserID    string
	SessionID string

	// Name identifies the artifact within the session.
	Name string

	// Part is the content to store.
	Part a2a.Part
}

// SaveResponse reports the version assigned to the saved part.
type SaveResponse struct {
	// Version is the zero-based version number of the stored part.
	Version int64
}

// LoadRequest fetches an artifact part.
type LoadRequest struct {
	AppName   string
	UserID    string
	SessionID string
	Name      string

	// Version selects a specific version. Nil loads the latest.
	Version *int
}

// LoadResponse carries the loaded artifact part.
type LoadResponse struct {
	Name    string
	Version int64
	Part    a2a.Part
}

// ListRequest lists artifacts stored for a session.
type ListRequest struct {
	AppName   string
	UserID    string
	SessionID string
}

// ListResponse lists artifact names with their latest versions.
type ListResponse struct {
	Artifacts []Info
}

// Info describes a stored artifact.
type Info struct {
	Name    string
	Version int64
}

// Service defines the interface for artifact storage.
type Service interface {
	// Save stores a new version of the named artifact and returns
	// the assigned version number.
	Save(ctx context.Context, req *SaveRequest) (*SaveResponse, error)

	// Load fetches the latest version of the named artifact, or the
	// version selected by req.Version.
	Load(ctx context.Context, req *LoadRequest) (*LoadResponse, error)

	// List returns the artifacts stored for a session, sorted by name.
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
}
