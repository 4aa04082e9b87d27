package agent_test

import (
	"testing"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/agent"
)

func TestNewEvent(t *testing.T) {
	event := agent.NewEvent("inv-123")

	if event.ID == "" {
		t.Error("NewEvent() ID is empty")
	}
	if event.InvocationID != "inv-123" {
		t.Errorf("InvocationID = %q, want %q", event.InvocationID, "inv-123")
	}
	if event.Timestamp.IsZero() {
		t.Error("NewEvent() Timestamp is zero")
	}
	if event.Actions.StateDelta == nil {
		t.Error("NewEvent() StateDelta not initialized")
	}
}

func TestEvent_IsFinalResponse(t *testing.T) {
	tests := []struct {
		name  string
		event func() *agent.Event
		want  bool
	}{
		{
			name: "plain text response",
			event: func() *agent.Event {
				e := agent.NewEvent("inv")
				e.Message = a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "done"})
				return e
			},
			want: true,
		},
		{
			name: "partial event",
			event: func() *agent.Event {
				e := agent.NewEvent("inv")
				e.Partial = true
				return e
			},
			want: false,
		},
		{
			name: "event with tool calls",
			event: func() *agent.Event {
				e := agent.NewEvent("inv")
				e.ToolCalls = []agent.ToolCallState{{ID: "tc-1", Name: "analyze_nutrition"}}
				return e
			},
			want: false,
		},
		{
			name: "event with tool results",
			event: func() *agent.Event {
				e := agent.NewEvent("inv")
				e.ToolResults = []agent.ToolResultState{{ToolCallID: "tc-1", Content: "ok"}}
				return e
			},
			want: false,
		},
		{
			name: "skip summarization overrides tool results",
			event: func() *agent.Event {
				e := agent.NewEvent("inv")
				e.ToolResults = []agent.ToolResultState{{ToolCallID: "tc-1", Content: "ok"}}
				e.Actions.SkipSummarization = true
				return e
			},
			want: true,
		},
		{
			name: "long-running tools are final",
			event: func() *agent.Event {
				e := agent.NewEvent("inv")
				e.LongRunningToolIDs = []string{"tc-1"}
				return e
			},
			want: true,
		},
		{
			name: "tool_use part in message",
			event: func() *agent.Event {
				e := agent.NewEvent("inv")
				e.Message = a2a.NewMessage(a2a.MessageRoleAgent, a2a.DataPart{
					Data: map[string]any{"type": "tool_use", "id": "tc-1"},
				})
				return e
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event().IsFinalResponse(); got != tt.want {
				t.Errorf("IsFinalResponse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_HasToolCalls(t *testing.T) {
	e := agent.NewEvent("inv")
	if e.HasToolCalls() {
		t.Error("HasToolCalls() = true for empty event")
	}

	e.ToolCalls = []agent.ToolCallState{{ID: "tc-1", Name: "analyze_nutrition"}}
	if !e.HasToolCalls() {
		t.Error("HasToolCalls() = false with ToolCalls set")
	}

	// Message part fallback
	e2 := agent.NewEvent("inv")
	e2.Message = a2a.NewMessage(a2a.MessageRoleAgent, a2a.DataPart{
		Data: map[string]any{"type": "tool_use", "id": "tc-2"},
	})
	if !e2.HasToolCalls() {
		t.Error("HasToolCalls() = false with tool_use part in message")
	}
}

func TestEvent_HasToolResults(t *testing.T) {
	e := agent.NewEvent("inv")
	if e.HasToolResults() {
		t.Error("HasToolResults() = true for empty event")
	}

	e.Message = a2a.NewMessage(a2a.MessageRoleUser, a2a.DataPart{
		Data: map[string]any{"type": "tool_result", "tool_call_id": "tc-1"},
	})
	if !e.HasToolResults() {
		t.Error("HasToolResults() = false with tool_result part in message")
	}
}

func TestEvent_TextContent(t *testing.T) {
	e := agent.NewEvent("inv")
	if got := e.TextContent(); got != "" {
		t.Errorf("TextContent() = %q for event without message", got)
	}

	e.Message = a2a.NewMessage(a2a.MessageRoleAgent,
		a2a.TextPart{Text: "Banana has "},
		a2a.DataPart{Data: map[string]any{"type": "tool_use"}},
		a2a.TextPart{Text: "105 calories."},
	)
	want := "Banana has 105 calories."
	if got := e.TextContent(); got != want {
		t.Errorf("TextContent() = %q, want %q", got, want)
	}
}

func TestContent(t *testing.T) {
	content := agent.NewTextContent("hello", a2a.MessageRoleUser)
	if len(content.Parts) != 1 {
		t.Fatalf("NewTextContent() has %d parts, want 1", len(content.Parts))
	}

	content.Parts = append(content.Parts,
		a2a.TextPart{Text: "world"},
		a2a.DataPart{Data: map[string]any{"key": "value"}},
	)
	if len(content.Parts) != 3 {
		t.Errorf("Content has %d parts, want 3", len(content.Parts))
	}

	msg := content.ToMessage()
	if msg == nil {
		t.Fatal("ToMessage() = nil")
	}
	if msg.Role != a2a.MessageRoleUser {
		t.Errorf("Role = %v, want %v", msg.Role, a2a.MessageRoleUser)
	}
	if len(msg.Parts) != 3 {
		t.Errorf("Message has %d parts, want 3", len(msg.Parts))
	}

	var nilContent *agent.Content
	if nilContent.ToMessage() != nil {
		t.Error("nil Content ToMessage() should return nil")
	}
}
