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
	"testing"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/session"
)

func newSessionWithText(t *testing.T, svc session.Service, appName, userID, sessID string, texts ...string) agent.Session {
	t.Helper()

	resp, err := svc.Create(context.Background(), &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, text := range texts {
		ev := agent.NewEvent("inv1")
		ev.Author = "nutrition"
		ev.Message = agent.NewTextContent(text, a2a.MessageRoleAgent).ToMessage()
		if err := svc.AppendEvent(context.Background(), resp.Session, ev); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
	}

	return resp.Session
}

func TestKeywordService_IndexAndSearch(t *testing.T) {
	sessions := session.InMemoryService()
	idx := NewKeywordService()
	ctx := context.Background()

	sess := newSessionWithText(t, sessions, "app", "alice", "s1",
		"Apples contain about 95 calories and plenty of fiber.",
		"Bananas are rich in potassium.")

	if err := idx.Index(ctx, sess); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	resp, err := idx.Search(ctx, &SearchRequest{Query: "apples calories", AppName: "app", UserID: "alice"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(resp.Results))
	}
	top := resp.Results[0]
	if top.Score != 2 {
		t.Errorf("top score = %v, want 2", top.Score)
	}
	if top.SessionID != "s1" || top.Author != "nutrition" {
		t.Errorf("top result = %+v, want session s1 authored by nutrition", top)
	}
}

func TestKeywordService_Search_RanksByScore(t *testing.T) {
	sessions := session.InMemoryService()
	idx := NewKeywordService()
	ctx := context.Background()

	sess := newSessionWithText(t, sessions, "app", "alice", "s1",
		"Chicken breast is high in protein.",
		"Chicken soup with protein rich lentils and more protein talk.")

	if err := idx.Index(ctx, sess); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	resp, err := idx.Search(ctx, &SearchRequest{Query: "chicken protein lentils", AppName: "app", UserID: "alice"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Score < resp.Results[1].Score {
		t.Errorf("results not sorted by score: %v then %v", resp.Results[0].Score, resp.Results[1].Score)
	}
}

func TestKeywordService_Search_ScopedToUser(t *testing.T) {
	sessions := session.InMemoryService()
	idx := NewKeywordService()
	ctx := context.Background()

	aliceSess := newSessionWithText(t, sessions, "app", "alice", "s1", "Oatmeal breakfast with berries.")
	bobSess := newSessionWithText(t, sessions, "app", "bob", "s2", "Oatmeal dinner experiment.")

	if err := idx.Index(ctx, aliceSess); err != nil {
		t.Fatalf("Index(alice) error = %v", err)
	}
	if err := idx.Index(ctx, bobSess); err != nil {
		t.Fatalf("Index(bob) error = %v", err)
	}

	resp, err := idx.Search(ctx, &SearchRequest{Query: "oatmeal", AppName: "app", UserID: "alice"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(resp.Results))
	}
	if resp.Results[0].SessionID != "s1" {
		t.Errorf("result session = %q, want s1", resp.Results[0].SessionID)
	}
}

func TestKeywordService_Index_Idempotent(t *testing.T) {
	sessions := session.InMemoryService()
	idx := NewKeywordService()
	ctx := context.Background()

	sess := newSessionWithText(t, sessions, "app", "alice", "s1", "Salmon provides omega fatty acids.")

	for range 3 {
		if err := idx.Index(ctx, sess); err != nil {
			t.Fatalf("Index() error = %v", err)
		}
	}

	resp, err := idx.Search(ctx, &SearchRequest{Query: "salmon", AppName: "app", UserID: "alice"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("Search() after repeated indexing returned %d results, want 1", len(resp.Results))
	}
}

func TestKeywordService_Search_EmptyQuery(t *testing.T) {
	idx := NewKeywordService()

	resp, err := idx.Search(context.Background(), &SearchRequest{AppName: "app", UserID: "u"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("empty query returned %d results, want 0", len(resp.Results))
	}
}

func TestTokenize(t *testing.T) {
	words := tokenize("An Apple a day, keeps (the) doctor away!")

	for _, want := range []string{"apple", "day", "keeps", "the", "doctor", "away"} {
		if _, ok := words[want]; !ok {
			t.Errorf("tokenize() missing %q", want)
		}
	}
	if _, ok := words["an"]; ok {
		t.Error("tokenize() should skip words of length <= 2")
	}
	if _, ok := words["day,"]; ok {
		t.Error("tokenize() should trim punctuation")
	}
}

func TestAdapter_Search(t *testing.T) {
	sessions := session.InMemoryService()
	idx := NewKeywordService()
	ctx := context.Background()

	sess := newSessionWithText(t, sessions, "app", "alice", "s1", "Quinoa is a complete protein source.")
	if err := idx.Index(ctx, sess); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	mem := NewAdapter(idx, "app", "alice")
	resp, err := mem.Search(ctx, "quinoa protein")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Content != "Quinoa is a complete protein source." {
		t.Errorf("content = %q", r.Content)
	}
	if r.Metadata["session_id"] != "s1" || r.Metadata["author"] != "nutrition" {
		t.Errorf("metadata not enriched: %v", r.Metadata)
	}

	// Scoped to a different user: nothing comes back.
	other := NewAdapter(idx, "app", "bob")
	resp, err = other.Search(ctx, "quinoa")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("cross-user search returned %d results, want 0", len(resp.Results))
	}
}

func TestNilMemory(t *testing.T) {
	mem := NilMemory()

	if err := mem.AddSession(context.Background(), nil); err != nil {
		t.Errorf("AddSession() error = %v", err)
	}
	resp, err := mem.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("nil memory returned %d results, want 0", len(resp.Results))
	}
}
