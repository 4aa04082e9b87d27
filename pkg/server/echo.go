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
	"errors"
	"fmt"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
)

// ErrCancelNotSupported is returned by executors that do not support
// task cancellation.
var ErrCancelNotSupported = errors.New("task cancellation is not supported")

const templateAgentName = "TemplateAgent"

// EchoExecutor is a template executor that processes structured requests
// without calling a model. Incoming text is parsed as a JSON task envelope
// {"task_type": ..., "data": {...}}; plain text is treated as a
// process_request carrying the text as the message.
type EchoExecutor struct{}

// NewEchoExecutor creates the template executor.
func NewEchoExecutor() *EchoExecutor {
	return &EchoExecutor{}
}

// taskRequest is the structured request envelope the template understands.
type taskRequest struct {
	TaskType string
	Data     map[string]any
}

// processResult is the fixed-shape reply for process_request tasks.
type processResult struct {
	Status           string `json:"status"`
	ProcessedMessage string `json:"processed_message"`
	Timestamp        string `json:"timestamp"`
	Agent            string `json:"agent"`
}

// unknownTaskResult reports an unrecognized task type.
type unknownTaskResult struct {
	Error string `json:"error"`
}

// Execute implements a2asrv.AgentExecutor.
func (e *EchoExecutor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	if reqCtx.StoredTask == nil {
		submitted := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, submitted); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	working := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)
	if err := queue.Write(ctx, working); err != nil {
		return fmt.Errorf("failed to write working event: %w", err)
	}

	req := parseTaskRequest(firstTextPart(reqCtx.Message))
	result := e.handleTask(req)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return writeFailed(ctx, reqCtx, queue, fmt.Sprintf("Error: %v", err))
	}

	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: string(payload)})
	if err := queue.Write(ctx, msg); err != nil {
		return fmt.Errorf("failed to write result message: %w", err)
	}

	completed := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	completed.Final = true
	if err := queue.Write(ctx, completed); err != nil {
		return fmt.Errorf("failed to write completed event: %w", err)
	}

	return nil
}

// Cancel implements a2asrv.AgentExecutor. The template does not support
// cancellation.
func (e *EchoExecutor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	return ErrCancelNotSupported
}

// parseTaskRequest interprets the message text. Valid JSON objects are
// treated as task envelopes; anything else becomes a process_request with
// the raw text as the message. An empty message behaves as missing data.
func parseTaskRequest(text string) taskRequest {
	req := taskRequest{
		TaskType: "process_request",
		Data:     map[string]any{},
	}
	if text == "" {
		return req
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		req.Data = map[string]any{"message": text}
		return req
	}

	if taskType, ok := parsed["task_type"].(string); ok && taskType != "" {
		req.TaskType = taskType
	}
	if data, ok := parsed["data"].(map[string]any); ok {
		req.Data = data
	}
	return req
}

func (e *EchoExecutor) handleTask(req taskRequest) any {
	switch req.TaskType {
	case "process_request":
		return e.processRequest(req.Data)
	default:
		return unknownTaskResult{Error: fmt.Sprintf("Unknown task type: %s", req.TaskType)}
	}
}

func (e *EchoExecutor) processRequest(data map[string]any) processResult {
	message := "No message provided"
	if raw, ok := data["message"]; ok {
		message = fmt.Sprintf("%v", raw)
	}

	return processResult{
		Status:           "success",
		ProcessedMessage: fmt.Sprintf("Processed: %s", message),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Agent:            templateAgentName,
	}
}

// writeFailed reports an execution failure through the task stream. The
// failure is surfaced to the caller as a failed task, not a transport
// error.
func writeFailed(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, text string) error {
	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: text})
	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	ev.Final = true
	if err := queue.Write(ctx, ev); err != nil {
		return fmt.Errorf("failed to write failed event: %w", err)
	}
	return nil
}

// Ensure EchoExecutor implements a2asrv.AgentExecutor.
var _ a2asrv.AgentExecutor = (*EchoExecutor)(nil)
