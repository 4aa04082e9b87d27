package functiontool_test

import (
	"context"
	"testing"
	"time"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/tool"
	"github.com/nutriserve/nutriserve/pkg/tool/functiontool"
)

type mockContext struct{}

func (m *mockContext) FunctionCallID() string       { return "test-call" }
func (m *mockContext) Actions() *agent.EventActions { return nil }
func (m *mockContext) SearchMemory(ctx context.Context, query string) (*agent.MemorySearchResponse, error) {
	return nil, nil
}
func (m *mockContext) Artifacts() agent.Artifacts         { return nil }
func (m *mockContext) State() agent.State                 { return nil }
func (m *mockContext) InvocationID() string               { return "test-inv" }
func (m *mockContext) AgentName() string                  { return "test-agent" }
func (m *mockContext) UserContent() *agent.Content        { return nil }
func (m *mockContext) ReadonlyState() agent.ReadonlyState { return nil }
func (m *mockContext) UserID() string                     { return "test-user" }
func (m *mockContext) AppName() string                    { return "test-app" }
func (m *mockContext) SessionID() string                  { return "test-session" }
func (m *mockContext) Branch() string                     { return "" }
func (m *mockContext) Deadline() (time.Time, bool)        { return time.Time{}, false }
func (m *mockContext) Done() <-chan struct{}              { return nil }
func (m *mockContext) Err() error                         { return nil }
func (m *mockContext) Value(key any) any                  { return nil }

type greetArgs struct {
	Name  string `json:"name" jsonschema:"required,description=Who to greet"`
	Times int    `json:"times,omitempty" jsonschema:"description=How many times"`
}

func newGreetTool(t *testing.T) tool.CallableTool {
	t.Helper()
	greet, err := functiontool.New(
		functiontool.Config{Name: "greet", Description: "Greets someone"},
		func(ctx tool.Context, args greetArgs) (map[string]any, error) {
			times := args.Times
			if times == 0 {
				times = 1
			}
			return map[string]any{"greeting": args.Name, "times": times}, nil
		},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return greet
}

func TestNew_RequiresNameAndDescription(t *testing.T) {
	fn := func(ctx tool.Context, args greetArgs) (map[string]any, error) { return nil, nil }

	if _, err := functiontool.New(functiontool.Config{Description: "d"}, fn); err == nil {
		t.Error("New() without name succeeded, want error")
	}
	if _, err := functiontool.New(functiontool.Config{Name: "n"}, fn); err == nil {
		t.Error("New() without description succeeded, want error")
	}
}

func TestFunctionTool_Metadata(t *testing.T) {
	greet := newGreetTool(t)

	if greet.Name() != "greet" {
		t.Errorf("Name() = %v, want greet", greet.Name())
	}
	if greet.Description() != "Greets someone" {
		t.Errorf("Description() = %v", greet.Description())
	}
	if greet.IsLongRunning() {
		t.Error("IsLongRunning() = true, want false")
	}
}

func TestFunctionTool_Call(t *testing.T) {
	greet := newGreetTool(t)

	result, err := greet.Call(&mockContext{}, map[string]any{"name": "Ada", "times": 2})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["greeting"] != "Ada" {
		t.Errorf("greeting = %v, want Ada", result["greeting"])
	}
	if result["times"] != 2 {
		t.Errorf("times = %v, want 2", result["times"])
	}
}

func TestFunctionTool_CallCoercesJSONNumbers(t *testing.T) {
	greet := newGreetTool(t)

	// LLM arguments arrive with float64 numbers
	result, err := greet.Call(&mockContext{}, map[string]any{"name": "Ada", "times": float64(3)})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result["times"] != 3 {
		t.Errorf("times = %v, want 3", result["times"])
	}
}

func TestFunctionTool_CallInvalidArgs(t *testing.T) {
	greet := newGreetTool(t)

	if _, err := greet.Call(&mockContext{}, map[string]any{"name": "Ada", "times": "lots"}); err == nil {
		t.Error("Call() with mistyped args succeeded, want error")
	}
}

func TestFunctionTool_Schema(t *testing.T) {
	greet := newGreetTool(t)

	schema := greet.Schema()
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", schema)
	}
	if _, ok := props["name"]; !ok {
		t.Error("schema missing 'name' property")
	}
	if _, ok := props["times"]; !ok {
		t.Error("schema missing 'times' property")
	}

	required, ok := schema["required"].([]any)
	if !ok || len(required) != 1 || required[0] != "name" {
		t.Errorf("required = %v, want [name]", schema["required"])
	}

	if _, ok := schema["$schema"]; ok {
		t.Error("schema leaks $schema key")
	}
}

func TestToDefinition(t *testing.T) {
	greet := newGreetTool(t)

	def := tool.ToDefinition(greet)
	if def.Name != "greet" || def.Description != "Greets someone" {
		t.Errorf("definition = %+v", def)
	}
	if def.Parameters == nil {
		t.Error("definition parameters missing")
	}
}
