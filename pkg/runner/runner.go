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

// Package runner ties agents to sessions. A Runner resolves the session
// for each incoming turn, picks the agent that should continue the
// conversation, streams the agent's events to the caller while
// persisting the durable ones, and refreshes the memory index when the
// turn ends.
package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/artifact"
	"github.com/nutriserve/nutriserve/pkg/memory"
	"github.com/nutriserve/nutriserve/pkg/session"
)

// Config collects a Runner's dependencies.
type Config struct {
	// AppName namespaces sessions, artifacts and memory entries.
	AppName string

	// Agent is the root of the agent tree.
	Agent agent.Agent

	// SessionService is the source of truth for conversation history.
	SessionService session.Service

	// ArtifactService stores named artifacts; optional.
	ArtifactService artifact.Service

	// MemoryService is a search index over past sessions, reindexed
	// after each turn; optional.
	MemoryService memory.Service
}

// Runner executes agent turns inside sessions.
type Runner struct {
	appName         string
	rootAgent       agent.Agent
	sessionService  session.Service
	artifactService artifact.Service
	memoryService   memory.Service
	parents         ParentMap
}

// New validates the config and builds the agent parent map.
func New(cfg Config) (*Runner, error) {
	if cfg.Agent == nil {
		return nil, fmt.Errorf("root agent is required")
	}
	if cfg.SessionService == nil {
		return nil, fmt.Errorf("session service is required")
	}

	parents, err := BuildParentMap(cfg.Agent)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent tree: %w", err)
	}

	return &Runner{
		appName:         cfg.AppName,
		rootAgent:       cfg.Agent,
		sessionService:  cfg.SessionService,
		artifactService: cfg.ArtifactService,
		memoryService:   cfg.MemoryService,
		parents:         parents,
	}, nil
}

// Run executes one turn: append the user content to the session, run the
// selected agent, and yield its events. Non-partial events are persisted
// as they pass through. When the sequence ends the session's temp state
// is cleared and the memory index refreshed.
func (r *Runner) Run(ctx context.Context, userID, sessionID string, content *agent.Content, cfg agent.RunConfig) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		sess, err := r.getOrCreateSession(ctx, userID, sessionID)
		if err != nil {
			yield(nil, err)
			return
		}

		agentToRun := r.findAgentToRun(sess)

		// Deferred in reverse order: index first sees the full turn,
		// temp keys go last.
		defer r.clearTempState(sess)
		defer r.indexSession(ctx, sess)

		invCtx := agent.NewInvocationContext(ctx, agent.InvocationContextParams{
			Agent:       agentToRun,
			Session:     sess,
			Artifacts:   r.scopedArtifacts(sess),
			Memory:      r.scopedMemory(userID),
			UserContent: content,
			RunConfig:   &cfg,
		})

		if err := r.appendUserMessage(ctx, sess, content, invCtx.InvocationID()); err != nil {
			yield(nil, err)
			return
		}

		for event, err := range agentToRun.Run(invCtx) {
			if err != nil {
				if !yield(event, err) {
					return
				}
				continue
			}

			if !event.Partial {
				if err := r.sessionService.AppendEvent(ctx, sess, event); err != nil {
					yield(nil, fmt.Errorf("failed to persist event: %w", err))
					return
				}
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// scopedMemory binds the memory service to this app and user. A nil
// service yields the nil memory so agents need no guard.
func (r *Runner) scopedMemory(userID string) agent.Memory {
	if r.memoryService == nil {
		return memory.NilMemory()
	}
	return memory.NewAdapter(r.memoryService, r.appName, userID)
}

// scopedArtifacts binds the artifact service to the session, nil when
// no service is configured.
func (r *Runner) scopedArtifacts(sess session.Session) agent.Artifacts {
	if r.artifactService == nil {
		return nil
	}
	return artifact.Scoped(r.artifactService, r.appName, sess.UserID(), sess.ID())
}

// indexSession refreshes the memory index after a turn. The session
// itself is already persisted, so an index failure only degrades recall.
func (r *Runner) indexSession(ctx context.Context, sess session.Session) {
	if r.memoryService == nil {
		return
	}
	if err := r.memoryService.Index(ctx, sess); err != nil {
		slog.Warn("Failed to index session",
			"session_id", sess.ID(),
			"error", err)
	}
}

// clearTempState drops the session's temp: keys at end of turn.
func (r *Runner) clearTempState(sess session.Session) {
	if clearable, ok := sess.State().(agent.TempClearable); ok {
		clearable.ClearTempKeys()
	}
}

func (r *Runner) getOrCreateSession(ctx context.Context, userID, sessionID string) (session.Session, error) {
	resp, err := r.sessionService.Get(ctx, &session.GetRequest{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	switch {
	case err == nil:
		return resp.Session, nil
	case !errors.Is(err, session.ErrSessionNotFound):
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	createResp, err := r.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
		State:     make(map[string]any),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return createResp.Session, nil
}

func (r *Runner) appendUserMessage(ctx context.Context, sess session.Session, content *agent.Content, invocationID string) error {
	if content == nil {
		return nil
	}

	event := agent.NewEvent(invocationID)
	event.Author = agent.AuthorUser
	event.Message = content.ToMessage()
	return r.sessionService.AppendEvent(ctx, sess, event)
}

// findAgentToRun continues the conversation with the agent that last
// spoke, provided nothing on its parent chain blocks the transfer.
// Fresh sessions (and histories full of unknown authors) fall back to
// the root agent.
func (r *Runner) findAgentToRun(sess session.Session) agent.Agent {
	events := sess.Events()
	for i := events.Len() - 1; i >= 0; i-- {
		event := events.At(i)
		if event == nil || event.Author == agent.AuthorUser {
			continue
		}

		candidate := agent.FindAgent(r.rootAgent, event.Author)
		if candidate == nil {
			slog.Debug("Event from unknown agent",
				"agent", event.Author,
				"event_id", event.ID)
			continue
		}
		if r.isTransferableAcrossTree(candidate) {
			return candidate
		}
	}
	return r.rootAgent
}

// TransferRestrictable lets an agent opt out of cross-tree transfers.
type TransferRestrictable interface {
	DisallowTransferToParent() bool
	DisallowTransferToPeers() bool
}

// isTransferableAcrossTree walks up the parent chain; any ancestor that
// disallows transfer to its parent pins the conversation at the root.
func (r *Runner) isTransferableAcrossTree(ag agent.Agent) bool {
	for current := ag; current != nil; current = r.parents[current.Name()] {
		restrictable, ok := current.(TransferRestrictable)
		if ok && restrictable.DisallowTransferToParent() {
			slog.Debug("Transfer blocked by DisallowTransferToParent",
				"agent", current.Name())
			return false
		}
	}
	return true
}

// ParentMap maps each agent name to its parent agent (nil for the root).
type ParentMap map[string]agent.Agent

// BuildParentMap indexes the agent tree by name, rejecting duplicate
// names since they would make parent lookups ambiguous.
func BuildParentMap(root agent.Agent) (ParentMap, error) {
	parents := make(ParentMap)
	if err := addParents(root, nil, parents); err != nil {
		return nil, err
	}
	return parents, nil
}

func addParents(ag, parent agent.Agent, parents ParentMap) error {
	if ag == nil {
		return nil
	}
	if _, exists := parents[ag.Name()]; exists {
		return fmt.Errorf("duplicate agent name in tree: %s", ag.Name())
	}
	parents[ag.Name()] = parent

	for _, sub := range ag.SubAgents() {
		if err := addParents(sub, ag, parents); err != nil {
			return err
		}
	}
	return nil
}

// FindAgent looks an agent up by name in the tree.
func (r *Runner) FindAgent(name string) agent.Agent {
	return agent.FindAgent(r.rootAgent, name)
}

// ListAgents returns every agent in the tree.
func (r *Runner) ListAgents() []agent.Agent {
	return agent.ListAgents(r.rootAgent)
}

// RootAgent returns the tree's root.
func (r *Runner) RootAgent() agent.Agent {
	return r.rootAgent
}

// AppName returns the application name sessions are namespaced under.
func (r *Runner) AppName() string {
	return r.appName
}
