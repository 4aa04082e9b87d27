package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nutriserve/nutriserve/pkg/config/provider"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nutriserve.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func newFileLoader(t *testing.T, path string, opts ...LoaderOption) *Loader {
	t.Helper()
	p, err := provider.New(provider.ProviderConfig{Type: provider.TypeFile, Path: path})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	loader := NewLoader(p, opts...)
	t.Cleanup(func() { loader.Close() })
	return loader
}

func TestLoader_Load(t *testing.T) {
	path := writeConfigFile(t, `
name: test-deploy
server:
  host: 127.0.0.1
  port: 9001
nutrition:
  timeout: 10s
agents:
  echo:
    type: echo
    name: Echo Agent
`)

	loader := newFileLoader(t, path)

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Name != "test-deploy" {
		t.Errorf("name = %s, want test-deploy", cfg.Name)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Nutrition.Timeout != 10*time.Second {
		t.Errorf("nutrition timeout = %s, want 10s", cfg.Nutrition.Timeout)
	}

	// Defaults applied on top of the file
	agent, ok := cfg.GetAgent("echo")
	if !ok {
		t.Fatal("expected configured echo agent")
	}
	if agent.Type != AgentTypeEcho {
		t.Errorf("agent type = %s, want echo", agent.Type)
	}
	if agent.Version != "1.0.0" {
		t.Errorf("agent version default = %s, want 1.0.0", agent.Version)
	}
	if !agent.IsStreaming() {
		t.Error("agent streaming should default to true")
	}
	if cfg.DefaultAgent() != "echo" {
		t.Errorf("DefaultAgent() = %s, want echo", cfg.DefaultAgent())
	}
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	loader := newFileLoader(t, "/nonexistent/nutriserve.yaml")

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoader_Load_InvalidSyntax(t *testing.T) {
	path := writeConfigFile(t, `
name: "broken
agents:
  - invalid: [unclosed
`)

	loader := newFileLoader(t, path)

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoader_Load_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
server:
  default_agent: missing
agents:
  echo:
    type: echo
`)

	loader := newFileLoader(t, path)

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected validation error for unknown default_agent")
	}
}

func TestLoader_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_NUTRI_KEY", "secret-123")
	os.Unsetenv("TEST_NUTRI_MODEL")

	path := writeConfigFile(t, `
llm:
  api_key: ${TEST_NUTRI_KEY}
  model: ${TEST_NUTRI_MODEL:-fallback-model}
agents:
  echo:
    type: echo
`)

	loader := newFileLoader(t, path)

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.LLM.APIKey != "secret-123" {
		t.Errorf("api_key = %s, want expanded TEST_NUTRI_KEY", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "fallback-model" {
		t.Errorf("model = %s, want :-default fallback", cfg.LLM.Model)
	}
}

func TestLoader_Watch(t *testing.T) {
	path := writeConfigFile(t, `
name: initial
agents:
  echo:
    type: echo
`)

	reloaded := make(chan *Config, 1)
	loader := newFileLoader(t, path, WithOnChange(func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- loader.Watch(ctx)
	}()

	// Give the watcher time to establish
	time.Sleep(200 * time.Millisecond)

	updated := `
name: updated
agents:
  echo:
    type: echo
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Name != "updated" {
			t.Errorf("reloaded name = %s, want updated", cfg.Name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected reload after config change")
	}

	cancel()
	select {
	case <-watchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after context cancellation")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
name: convenience
agents:
  echo:
    type: echo
`)

	cfg, loader, err := LoadConfigFile(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	defer loader.Close()

	if cfg.Name != "convenience" {
		t.Errorf("name = %s, want convenience", cfg.Name)
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	if len(cfg.Agents) != 2 {
		t.Errorf("expected 2 built-in agents, got %d", len(cfg.Agents))
	}
	if cfg.DefaultAgent() != "nutrition" {
		t.Errorf("DefaultAgent() = %s, want nutrition", cfg.DefaultAgent())
	}
}
