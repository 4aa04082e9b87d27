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

package runner

import (
	"context"
	"iter"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/artifact"
	"github.com/nutriserve/nutriserve/pkg/memory"
	"github.com/nutriserve/nutriserve/pkg/session"
)

// replyAgent answers every invocation with a single final text event.
func replyAgent(t *testing.T, name, reply string) agent.Agent {
	t.Helper()

	ag, err := agent.New(agent.Config{
		Name:        name,
		Description: "test agent",
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {
				ev := agent.NewEvent(ctx.InvocationID())
				ev.Author = name
				ev.Message = agent.NewTextContent(reply, a2a.MessageRoleAgent).ToMessage()
				yield(ev, nil)
			}
		},
	})
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}
	return ag
}

func newTestRunner(t *testing.T, ag agent.Agent) (*Runner, session.Service) {
	t.Helper()

	sessions := session.InMemoryService()
	r, err := New(Config{
		AppName:         "nutriserve",
		Agent:           ag,
		SessionService:  sessions,
		ArtifactService: artifact.InMemoryService(),
		MemoryService:   memory.NewKeywordService(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r, sessions
}

func collectEvents(t *testing.T, seq iter.Seq2[*agent.Event, error]) []*agent.Event {
	t.Helper()

	var events []*agent.Event
	for ev, err := range seq {
		if err != nil {
			t.Fatalf("Run() yielded error = %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{SessionService: session.InMemoryService()}); err == nil {
		t.Error("New() without agent should fail")
	}
	if _, err := New(Config{Agent: replyAgent(t, "a", "hi")}); err == nil {
		t.Error("New() without session service should fail")
	}
}

func TestRunner_Run_PersistsUserAndAgentEvents(t *testing.T) {
	ag := replyAgent(t, "nutrition", "Eat more vegetables.")
	r, sessions := newTestRunner(t, ag)

	content := agent.NewTextContent("What should I eat?", a2a.MessageRoleUser)
	events := collectEvents(t, r.Run(context.Background(), "alice", "s1", content, agent.RunConfig{}))

	if len(events) != 1 {
		t.Fatalf("Run() yielded %d events, want 1", len(events))
	}
	if got := events[0].TextContent(); got != "Eat more vegetables." {
		t.Errorf("event text = %q", got)
	}

	// Session records the user message followed by the agent reply.
	resp, err := sessions.Get(context.Background(), &session.GetRequest{
		AppName: "nutriserve", UserID: "alice", SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	stored := resp.Session.Events()
	if stored.Len() != 2 {
		t.Fatalf("session has %d events, want 2", stored.Len())
	}
	if stored.At(0).Author != agent.AuthorUser {
		t.Errorf("first event author = %q, want user", stored.At(0).Author)
	}
	if stored.At(1).Author != "nutrition" {
		t.Errorf("second event author = %q, want nutrition", stored.At(1).Author)
	}
}

func TestRunner_Run_CreatesSessionOnDemand(t *testing.T) {
	ag := replyAgent(t, "nutrition", "ok")
	r, sessions := newTestRunner(t, ag)

	content := agent.NewTextContent("hello", a2a.MessageRoleUser)
	collectEvents(t, r.Run(context.Background(), "bob", "fresh", content, agent.RunConfig{}))

	if _, err := sessions.Get(context.Background(), &session.GetRequest{
		AppName: "nutriserve", UserID: "bob", SessionID: "fresh",
	}); err != nil {
		t.Errorf("session should exist after Run, Get() error = %v", err)
	}
}

func TestRunner_Run_SkipsPartialPersistence(t *testing.T) {
	ag, err := agent.New(agent.Config{
		Name: "streamer",
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {
				partial := agent.NewEvent(ctx.InvocationID())
				partial.Author = "streamer"
				partial.Partial = true
				partial.Message = agent.NewTextContent("Eat", a2a.MessageRoleAgent).ToMessage()
				if !yield(partial, nil) {
					return
				}

				final := agent.NewEvent(ctx.InvocationID())
				final.Author = "streamer"
				final.Message = agent.NewTextContent("Eat well.", a2a.MessageRoleAgent).ToMessage()
				yield(final, nil)
			}
		},
	})
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}
	r, sessions := newTestRunner(t, ag)

	content := agent.NewTextContent("advice?", a2a.MessageRoleUser)
	events := collectEvents(t, r.Run(context.Background(), "u", "s", content, agent.RunConfig{StreamingMode: agent.StreamingModeSSE}))

	if len(events) != 2 {
		t.Fatalf("Run() yielded %d events, want 2", len(events))
	}

	resp, err := sessions.Get(context.Background(), &session.GetRequest{AppName: "nutriserve", UserID: "u", SessionID: "s"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// User message plus the final event only; the partial is not persisted.
	if got := resp.Session.Events().Len(); got != 2 {
		t.Errorf("session has %d events, want 2", got)
	}
}

func TestRunner_Run_IndexesSessionForMemory(t *testing.T) {
	ag := replyAgent(t, "nutrition", "Spinach is rich in iron.")
	idx := memory.NewKeywordService()

	r, err := New(Config{
		AppName:        "nutriserve",
		Agent:          ag,
		SessionService: session.InMemoryService(),
		MemoryService:  idx,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	content := agent.NewTextContent("Tell me about spinach", a2a.MessageRoleUser)
	collectEvents(t, r.Run(context.Background(), "alice", "s1", content, agent.RunConfig{}))

	resp, err := idx.Search(context.Background(), &memory.SearchRequest{
		Query: "spinach iron", AppName: "nutriserve", UserID: "alice",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) == 0 {
		t.Error("session should be searchable after the turn completes")
	}
}

func TestRunner_Run_ClearsTempState(t *testing.T) {
	ag, err := agent.New(agent.Config{
		Name: "stateful",
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {
				ev := agent.NewEvent(ctx.InvocationID())
				ev.Author = "stateful"
				ev.Actions.StateDelta["temp:scratch"] = "x"
				ev.Actions.StateDelta["note"] = "kept"
				ev.Message = agent.NewTextContent("done", a2a.MessageRoleAgent).ToMessage()
				yield(ev, nil)
			}
		},
	})
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}
	r, sessions := newTestRunner(t, ag)

	content := agent.NewTextContent("go", a2a.MessageRoleUser)
	collectEvents(t, r.Run(context.Background(), "u", "s", content, agent.RunConfig{}))

	resp, err := sessions.Get(context.Background(), &session.GetRequest{AppName: "nutriserve", UserID: "u", SessionID: "s"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	state := resp.Session.State()
	if _, err := state.Get("temp:scratch"); err == nil {
		t.Error("temp: keys should be cleared after the invocation")
	}
	if val, err := state.Get("note"); err != nil || val != "kept" {
		t.Errorf("state[note] = %v, %v; want kept", val, err)
	}
}

func TestRunner_FindAgentToRun_ContinuesWithLastAgent(t *testing.T) {
	child := replyAgent(t, "meal_planner", "Here is a plan.")
	root, err := agent.New(agent.Config{
		Name:      "nutrition",
		SubAgents: []agent.Agent{child},
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {
				ev := agent.NewEvent(ctx.InvocationID())
				ev.Author = "nutrition"
				ev.Message = agent.NewTextContent("root reply", a2a.MessageRoleAgent).ToMessage()
				yield(ev, nil)
			}
		},
	})
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}
	r, sessions := newTestRunner(t, root)

	// Seed history where the child answered last.
	created, err := sessions.Create(context.Background(), &session.CreateRequest{
		AppName: "nutriserve", UserID: "u", SessionID: "s",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ev := agent.NewEvent("inv0")
	ev.Author = "meal_planner"
	ev.Message = agent.NewTextContent("previous", a2a.MessageRoleAgent).ToMessage()
	if err := sessions.AppendEvent(context.Background(), created.Session, ev); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	got := r.findAgentToRun(created.Session)
	if got.Name() != "meal_planner" {
		t.Errorf("findAgentToRun() = %q, want meal_planner", got.Name())
	}
}

func TestRunner_FindAgentToRun_DefaultsToRoot(t *testing.T) {
	root := replyAgent(t, "nutrition", "hi")
	r, sessions := newTestRunner(t, root)

	created, err := sessions.Create(context.Background(), &session.CreateRequest{
		AppName: "nutriserve", UserID: "u", SessionID: "s",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if got := r.findAgentToRun(created.Session); got.Name() != "nutrition" {
		t.Errorf("findAgentToRun() on empty session = %q, want root", got.Name())
	}
}

func TestBuildParentMap_DetectsDuplicateNames(t *testing.T) {
	child := replyAgent(t, "dup", "a")
	root, err := agent.New(agent.Config{
		Name:      "dup",
		SubAgents: []agent.Agent{child},
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {}
		},
	})
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}

	if _, err := BuildParentMap(root); err == nil {
		t.Error("BuildParentMap() with duplicate names should fail")
	}
}

func TestRunner_TreeHelpers(t *testing.T) {
	child := replyAgent(t, "meal_planner", "plan")
	root, err := agent.New(agent.Config{
		Name:      "nutrition",
		SubAgents: []agent.Agent{child},
		Run: func(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
			return func(yield func(*agent.Event, error) bool) {}
		},
	})
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}
	r, _ := newTestRunner(t, root)

	if r.AppName() != "nutriserve" {
		t.Errorf("AppName() = %q", r.AppName())
	}
	if r.RootAgent().Name() != "nutrition" {
		t.Errorf("RootAgent() = %q", r.RootAgent().Name())
	}
	if got := r.FindAgent("meal_planner"); got == nil || got.Name() != "meal_planner" {
		t.Error("FindAgent(meal_planner) should return the child")
	}
	if got := len(r.ListAgents()); got != 2 {
		t.Errorf("ListAgents() returned %d agents, want 2", got)
	}
}
