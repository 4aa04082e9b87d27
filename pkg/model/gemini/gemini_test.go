package gemini

import (
	"strings"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"google.golang.org/genai"

	"github.com/nutriserve/nutriserve/pkg/model"
	"github.com/nutriserve/nutriserve/pkg/tool"
)

func testModel() *geminiModel {
	return &geminiModel{
		name:   defaultModel,
		config: Config{Model: defaultModel, Temperature: 0.7, MaxTokens: 4096},
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without API key succeeded, want error")
	}
}

func TestGenerateStableFunctionCallID(t *testing.T) {
	args := map[string]any{"food_description": "1 apple"}

	id1 := generateStableFunctionCallID("analyze_nutrition", args)
	id2 := generateStableFunctionCallID("analyze_nutrition", map[string]any{"food_description": "1 apple"})
	if id1 != id2 {
		t.Errorf("same call produced different IDs: %s vs %s", id1, id2)
	}
	if !strings.HasPrefix(id1, "nutriserve-") {
		t.Errorf("ID = %s, want nutriserve- prefix", id1)
	}

	other := generateStableFunctionCallID("analyze_nutrition", map[string]any{"food_description": "1 banana"})
	if other == id1 {
		t.Error("different args produced the same ID")
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		reason genai.FinishReason
		want   model.FinishReason
	}{
		{genai.FinishReasonStop, model.FinishReasonStop},
		{genai.FinishReasonMaxTokens, model.FinishReasonLength},
		{genai.FinishReasonSafety, model.FinishReasonContent},
		{genai.FinishReason("OTHER"), model.FinishReasonStop},
	}

	for _, tt := range tests {
		if got := mapFinishReason(tt.reason); got != tt.want {
			t.Errorf("mapFinishReason(%v) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}

func TestMessageToContent_Text(t *testing.T) {
	m := testModel()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "how many calories in rice?"})
	content := m.messageToContent(msg)
	if content == nil {
		t.Fatal("messageToContent() = nil")
	}
	if content.Role != "user" {
		t.Errorf("role = %s, want user", content.Role)
	}
	if len(content.Parts) != 1 || content.Parts[0].Text != "how many calories in rice?" {
		t.Errorf("parts = %+v", content.Parts)
	}
}

func TestMessageToContent_AgentRole(t *testing.T) {
	m := testModel()

	msg := a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "about 205 calories"})
	content := m.messageToContent(msg)
	if content.Role != "model" {
		t.Errorf("role = %s, want model", content.Role)
	}
}

func TestMessageToContent_ToolUse(t *testing.T) {
	m := testModel()

	msg := a2a.NewMessage(a2a.MessageRoleAgent, a2a.DataPart{
		Data: map[string]any{
			"type":      "tool_use",
			"id":        "call_1",
			"name":      "analyze_nutrition",
			"arguments": map[string]any{"food_description": "1 apple"},
		},
	})
	content := m.messageToContent(msg)
	if content == nil || len(content.Parts) != 1 {
		t.Fatalf("content = %+v", content)
	}

	fc := content.Parts[0].FunctionCall
	if fc == nil {
		t.Fatal("FunctionCall part missing")
	}
	if fc.ID != "call_1" || fc.Name != "analyze_nutrition" {
		t.Errorf("function call = %+v", fc)
	}
	if fc.Args["food_description"] != "1 apple" {
		t.Errorf("args = %v", fc.Args)
	}
}

func TestMessageToContent_ToolResult(t *testing.T) {
	m := testModel()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.DataPart{
		Data: map[string]any{
			"type":         "tool_result",
			"tool_call_id": "call_1",
			"tool_name":    "analyze_nutrition",
			"content":      `{"status":"success"}`,
		},
	})
	content := m.messageToContent(msg)
	if content == nil || len(content.Parts) != 1 {
		t.Fatalf("content = %+v", content)
	}

	fr := content.Parts[0].FunctionResponse
	if fr == nil {
		t.Fatal("FunctionResponse part missing")
	}
	if fr.ID != "call_1" || fr.Name != "analyze_nutrition" {
		t.Errorf("function response = %+v", fr)
	}
	if fr.Response["result"] != `{"status":"success"}` {
		t.Errorf("response = %v", fr.Response)
	}
}

func TestMessageToContent_EmptyMessage(t *testing.T) {
	m := testModel()

	if m.messageToContent(nil) != nil {
		t.Error("nil message produced content")
	}
	if m.messageToContent(&a2a.Message{Role: a2a.MessageRoleUser}) != nil {
		t.Error("empty message produced content")
	}
}

func TestBuildRequest_SystemInstruction(t *testing.T) {
	m := testModel()

	contents, sys := m.buildRequest(&model.Request{
		SystemInstruction: "You are a nutrition assistant.",
		Messages: []*a2a.Message{
			a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "hi"}),
		},
	})
	if sys == nil || sys.Parts[0].Text != "You are a nutrition assistant." {
		t.Errorf("system instruction = %+v", sys)
	}
	if len(contents) != 1 {
		t.Errorf("contents = %d, want 1", len(contents))
	}
}

func TestBuildConfig_Defaults(t *testing.T) {
	m := testModel()

	config := m.buildConfig(nil, nil, nil)
	if config.Temperature == nil || *config.Temperature != 0.7 {
		t.Errorf("temperature = %v, want model default 0.7", config.Temperature)
	}
	if config.MaxOutputTokens != 4096 {
		t.Errorf("max tokens = %d, want model default 4096", config.MaxOutputTokens)
	}
}

func TestBuildConfig_Overrides(t *testing.T) {
	m := testModel()

	temp := 1.2
	maxTok := 100
	config := m.buildConfig(&model.GenerateConfig{
		Temperature:   &temp,
		MaxTokens:     &maxTok,
		StopSequences: []string{"END"},
	}, nil, nil)

	if *config.Temperature != 1.2 {
		t.Errorf("temperature = %v, want override 1.2", *config.Temperature)
	}
	if config.MaxOutputTokens != 100 {
		t.Errorf("max tokens = %d, want override 100", config.MaxOutputTokens)
	}
	if len(config.StopSequences) != 1 || config.StopSequences[0] != "END" {
		t.Errorf("stop sequences = %v", config.StopSequences)
	}
}

func TestBuildConfig_Tools(t *testing.T) {
	m := testModel()

	config := m.buildConfig(nil, nil, []tool.Definition{
		{
			Name:        "analyze_nutrition",
			Description: "Analyze food",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"food_description": map[string]any{
						"type":        "string",
						"description": "Food to analyze",
					},
				},
				"required": []any{"food_description"},
			},
		},
	})

	if len(config.Tools) != 1 {
		t.Fatalf("tools = %d, want 1", len(config.Tools))
	}
	decl := config.Tools[0].FunctionDeclarations[0]
	if decl.Name != "analyze_nutrition" {
		t.Errorf("declaration name = %s", decl.Name)
	}
	if decl.Parameters == nil || decl.Parameters.Properties["food_description"] == nil {
		t.Fatalf("parameters = %+v", decl.Parameters)
	}
	if len(decl.Parameters.Required) != 1 || decl.Parameters.Required[0] != "food_description" {
		t.Errorf("required = %v", decl.Parameters.Required)
	}
}

func TestToGenaiSchema_Nested(t *testing.T) {
	schema := toGenaiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"goal": map[string]any{
				"type": "string",
				"enum": []any{"weight loss", "muscle gain"},
			},
		},
	})

	if schema.Type != genai.TypeObject {
		t.Errorf("type = %v, want object", schema.Type)
	}
	itemsSchema := schema.Properties["items"]
	if itemsSchema == nil || itemsSchema.Items == nil || itemsSchema.Items.Type != genai.TypeString {
		t.Errorf("array items schema = %+v", itemsSchema)
	}
	goalSchema := schema.Properties["goal"]
	if goalSchema == nil || len(goalSchema.Enum) != 2 {
		t.Errorf("enum schema = %+v", goalSchema)
	}

	if toGenaiSchema(nil) != nil {
		t.Error("nil schema produced non-nil result")
	}
}

func TestParseResponse(t *testing.T) {
	m := testModel()

	genResp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role: "model",
					Parts: []*genai.Part{
						{Text: "An apple has about 95 calories."},
						{FunctionCall: &genai.FunctionCall{
							ID:   "call_1",
							Name: "analyze_nutrition",
							Args: map[string]any{"food_description": "1 apple"},
						}},
					},
				},
				FinishReason: genai.FinishReasonStop,
			},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 8,
			TotalTokenCount:      20,
		},
	}

	resp, err := m.parseResponse(genResp)
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if resp.Partial || !resp.TurnComplete {
		t.Errorf("resp flags = partial=%v turnComplete=%v", resp.Partial, resp.TurnComplete)
	}
	if resp.TextContent() != "An apple has about 95 calories." {
		t.Errorf("text = %q", resp.TextContent())
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "analyze_nutrition" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 20 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Content.Role != a2a.MessageRoleAgent {
		t.Errorf("role = %v, want agent", resp.Content.Role)
	}
}

func TestParseResponse_SkipsThoughtParts(t *testing.T) {
	m := testModel()

	genResp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role: "model",
					Parts: []*genai.Part{
						{Text: "internal reasoning", Thought: true},
						{Text: "visible answer"},
					},
				},
			},
		},
	}

	resp, err := m.parseResponse(genResp)
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if resp.TextContent() != "visible answer" {
		t.Errorf("text = %q, thought part leaked", resp.TextContent())
	}
}

func TestParseResponse_EmptyCandidates(t *testing.T) {
	m := testModel()

	if _, err := m.parseResponse(&genai.GenerateContentResponse{}); err == nil {
		t.Error("parseResponse() with no candidates succeeded, want error")
	}
}
