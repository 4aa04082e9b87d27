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

package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskRequest(t *testing.T) {
	tests := []struct {
		name string
		text string
		want taskRequest
	}{
		{
			name: "empty message",
			text: "",
			want: taskRequest{TaskType: "process_request", Data: map[string]any{}},
		},
		{
			name: "plain text becomes the message",
			text: "hello world",
			want: taskRequest{TaskType: "process_request", Data: map[string]any{"message": "hello world"}},
		},
		{
			name: "full task envelope",
			text: `{"task_type": "custom", "data": {"k": "v"}}`,
			want: taskRequest{TaskType: "custom", Data: map[string]any{"k": "v"}},
		},
		{
			name: "envelope without data",
			text: `{"task_type": "custom"}`,
			want: taskRequest{TaskType: "custom", Data: map[string]any{}},
		},
		{
			name: "envelope without task_type",
			text: `{"data": {"message": "hi"}}`,
			want: taskRequest{TaskType: "process_request", Data: map[string]any{"message": "hi"}},
		},
		{
			name: "non-string task_type is ignored",
			text: `{"task_type": 123}`,
			want: taskRequest{TaskType: "process_request", Data: map[string]any{}},
		},
		{
			name: "non-object JSON falls back to plain text",
			text: "42",
			want: taskRequest{TaskType: "process_request", Data: map[string]any{"message": "42"}},
		},
		{
			name: "JSON array falls back to plain text",
			text: "[1, 2]",
			want: taskRequest{TaskType: "process_request", Data: map[string]any{"message": "[1, 2]"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTaskRequest(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessRequest(t *testing.T) {
	e := NewEchoExecutor()

	t.Run("with message", func(t *testing.T) {
		got := e.processRequest(map[string]any{"message": "hello"})
		assert.Equal(t, "success", got.Status)
		assert.Equal(t, "Processed: hello", got.ProcessedMessage)
		assert.Equal(t, "TemplateAgent", got.Agent)
		_, err := time.Parse(time.RFC3339, got.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("without message", func(t *testing.T) {
		got := e.processRequest(map[string]any{})
		assert.Equal(t, "Processed: No message provided", got.ProcessedMessage)
	})

	t.Run("non-string message is stringified", func(t *testing.T) {
		got := e.processRequest(map[string]any{"message": 42})
		assert.Equal(t, "Processed: 42", got.ProcessedMessage)
	})
}

func TestHandleTask_UnknownType(t *testing.T) {
	e := NewEchoExecutor()
	got := e.handleTask(taskRequest{TaskType: "bogus", Data: map[string]any{}})
	assert.Equal(t, unknownTaskResult{Error: "Unknown task type: bogus"}, got)
}

func TestEchoExecutor_Cancel(t *testing.T) {
	err := NewEchoExecutor().Cancel(context.Background(), &a2asrv.RequestContext{}, nil)
	require.ErrorIs(t, err, ErrCancelNotSupported)
}

func TestEchoEndToEnd_PlainText(t *testing.T) {
	cfg := echoOnlyConfig(t)
	_, ts := newTestServer(t, cfg, map[string]a2asrv.AgentExecutor{
		"template": NewEchoExecutor(),
	})

	result := sendMessage(t, ts.URL+"/", "hello")
	assert.Equal(t, "completed", taskState(t, result))

	var pr processResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &pr))
	assert.Equal(t, "success", pr.Status)
	assert.Equal(t, "Processed: hello", pr.ProcessedMessage)
	assert.Equal(t, "TemplateAgent", pr.Agent)
	_, err := time.Parse(time.RFC3339, pr.Timestamp)
	assert.NoError(t, err)
}

func TestEchoEndToEnd_TaskEnvelope(t *testing.T) {
	cfg := echoOnlyConfig(t)
	_, ts := newTestServer(t, cfg, map[string]a2asrv.AgentExecutor{
		"template": NewEchoExecutor(),
	})

	envelope := `{"task_type": "process_request", "data": {"message": "from envelope"}}`
	result := sendMessage(t, ts.URL+"/", envelope)

	var pr processResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &pr))
	assert.Equal(t, "Processed: from envelope", pr.ProcessedMessage)
}

func TestEchoEndToEnd_UnknownTaskType(t *testing.T) {
	cfg := echoOnlyConfig(t)
	_, ts := newTestServer(t, cfg, map[string]a2asrv.AgentExecutor{
		"template": NewEchoExecutor(),
	})

	result := sendMessage(t, ts.URL+"/", `{"task_type": "bogus"}`)
	assert.Equal(t, "completed", taskState(t, result))

	var failure unknownTaskResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &failure))
	assert.Equal(t, "Unknown task type: bogus", failure.Error)
}

func TestEchoEndToEnd_AgentRoute(t *testing.T) {
	cfg := fullConfig(t)
	_, ts := newTestServer(t, cfg, map[string]a2asrv.AgentExecutor{
		"template":  NewEchoExecutor(),
		"nutrition": NewEchoExecutor(),
	})

	result := sendMessage(t, ts.URL+"/agents/template", "via subroute")

	var pr processResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &pr))
	assert.Equal(t, "Processed: via subroute", pr.ProcessedMessage)
}

func TestEchoEndToEnd_Streaming(t *testing.T) {
	cfg := echoOnlyConfig(t)
	_, ts := newTestServer(t, cfg, map[string]a2asrv.AgentExecutor{
		"template": NewEchoExecutor(),
	})

	events := streamMessage(t, ts.URL+"/", "stream me")

	var sawWorking, sawResult bool
	for _, ev := range events {
		switch ev["kind"] {
		case "status-update":
			if status, ok := ev["status"].(map[string]any); ok && status["state"] == "working" {
				sawWorking = true
			}
		case "message":
			if partsText(ev["parts"]) != "" {
				sawResult = true
				assert.Contains(t, partsText(ev["parts"]), "Processed: stream me")
			}
		}
	}
	assert.True(t, sawWorking, "stream should report a working state")
	assert.True(t, sawResult, "stream should carry the processed result")

	last := events[len(events)-1]
	assert.Equal(t, "status-update", last["kind"])
	status, ok := last["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", status["state"])
	assert.Equal(t, true, last["final"])
}
