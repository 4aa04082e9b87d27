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
	"fmt"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/runner"
)

const (
	// emptyMessagePrompt is returned when the request carries no text.
	emptyMessagePrompt = "Please provide a nutrition-related question or food description to analyze."

	// processingUpdate is streamed for intermediate events without text,
	// such as tool activity.
	processingUpdate = "Analyzing nutrition data..."

	// noAnswerApology is the artifact content when the agent produced no
	// final response.
	noAnswerApology = "I'm sorry, I couldn't process your request. Please try again."

	// artifactNameAnalysis names the artifact carrying the final answer.
	artifactNameAnalysis = "nutrition_analysis"

	// artifactNameError names the artifact carrying the apology.
	artifactNameError = "error_response"

	// defaultUserID is used when the message metadata carries no user_id.
	defaultUserID = "default_user"
)

// ExecutorConfig contains the configuration for the streaming executor.
type ExecutorConfig struct {
	// RunnerConfig is used to create a runner for each execution.
	RunnerConfig runner.Config

	// RunConfig contains runtime configuration for agent execution.
	RunConfig agent.RunConfig
}

// Executor implements a2asrv.AgentExecutor over a runner-driven agent.
//
// Event translation:
//   - New task: TaskStateSubmitted, then TaskStateWorking
//   - Empty message: TaskStateCompleted carrying a prompt for input
//   - Intermediate agent event with text: TaskStateWorking carrying the text
//   - Intermediate agent event without text: TaskStateWorking with a
//     generic processing update
//   - Final response: one nutrition_analysis artifact (LastChunk) followed
//     by TaskStateCompleted with Final=true
//   - No final response: one error_response artifact, then completed
//   - Runner error: TaskStateFailed with Final=true
//
// Every execution ends with exactly one terminal status event.
type Executor struct {
	config ExecutorConfig
}

// NewExecutor creates a streaming executor.
func NewExecutor(config ExecutorConfig) *Executor {
	return &Executor{config: config}
}

// invocationMeta identifies the session an execution binds to.
type invocationMeta struct {
	userID    string
	sessionID string
}

// toInvocationMeta derives session identity from the request context.
// New tasks use the task id as the session id; continuations reuse the
// task's context id, falling back to the task id. The user id comes from
// message metadata.
func toInvocationMeta(reqCtx *a2asrv.RequestContext) invocationMeta {
	var meta invocationMeta

	if reqCtx.StoredTask == nil {
		meta.sessionID = string(reqCtx.TaskID)
	} else {
		meta.sessionID = reqCtx.ContextID
		if meta.sessionID == "" {
			meta.sessionID = string(reqCtx.TaskID)
		}
	}

	if reqCtx.Message != nil && reqCtx.Message.Metadata != nil {
		if uid, ok := reqCtx.Message.Metadata["user_id"].(string); ok {
			meta.userID = uid
		}
	}
	if meta.userID == "" {
		meta.userID = defaultUserID
	}

	return meta
}

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	msg := reqCtx.Message
	if msg == nil {
		return fmt.Errorf("message not provided")
	}

	userText := strings.TrimSpace(messageText(msg))
	if userText == "" {
		return e.promptForInput(ctx, reqCtx, queue)
	}

	r, err := runner.New(e.config.RunnerConfig)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	if reqCtx.StoredTask == nil {
		submitted := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, submitted); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	meta := toInvocationMeta(reqCtx)
	slog.Debug("Executing nutrition request",
		"task_id", string(reqCtx.TaskID),
		"session_id", meta.sessionID,
		"user_id", meta.userID)

	working := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)
	if err := queue.Write(ctx, working); err != nil {
		return fmt.Errorf("failed to write working event: %w", err)
	}

	return e.process(ctx, r, meta, reqCtx, toContent(msg), queue)
}

// Cancel implements a2asrv.AgentExecutor. The runner is context-driven, so
// cancellation propagates through ctx; the task is marked canceled here.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

// promptForInput answers an empty request with a prompt for a nutrition
// question. The prompt rides on the terminal status so clients see it in
// the task snapshot.
func (e *Executor) promptForInput(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	if reqCtx.StoredTask == nil {
		submitted := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)
		if err := queue.Write(ctx, submitted); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	prompt := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: emptyMessagePrompt})
	completed := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, prompt)
	completed.Final = true
	if err := queue.Write(ctx, completed); err != nil {
		return fmt.Errorf("failed to write completed event: %w", err)
	}
	return nil
}

func (e *Executor) process(ctx context.Context, r *runner.Runner, meta invocationMeta, reqCtx *a2asrv.RequestContext, content *agent.Content, queue eventqueue.Queue) error {
	var finalAnswer string

	for event, err := range r.Run(ctx, meta.userID, meta.sessionID, content, e.config.RunConfig) {
		if err != nil {
			slog.Error("Agent run failed",
				"session_id", meta.sessionID,
				"error", err)
			text := fmt.Sprintf("An error occurred while processing your nutrition query: %v", err)
			return writeFailed(ctx, reqCtx, queue, text)
		}
		if event == nil {
			continue
		}

		if event.IsFinalResponse() {
			if text := event.TextContent(); text != "" {
				finalAnswer = text
			}
			continue
		}

		// Intermediate update: stream the text when present, otherwise a
		// generic processing note for tool activity.
		text := event.TextContent()
		if text == "" {
			text = processingUpdate
		}
		statusMsg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: text})
		update := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, statusMsg)
		if err := queue.Write(ctx, update); err != nil {
			return fmt.Errorf("failed to write working update: %w", err)
		}
	}

	artifactName := artifactNameAnalysis
	answer := finalAnswer
	if answer == "" {
		slog.Warn("No final response produced", "session_id", meta.sessionID)
		artifactName = artifactNameError
		answer = noAnswerApology
	}

	artifactEvent := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: answer})
	artifactEvent.Artifact.Name = artifactName
	artifactEvent.LastChunk = true
	if err := queue.Write(ctx, artifactEvent); err != nil {
		return fmt.Errorf("failed to write artifact event: %w", err)
	}

	completed := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	completed.Final = true
	if err := queue.Write(ctx, completed); err != nil {
		return fmt.Errorf("failed to write completed event: %w", err)
	}

	return nil
}

// Ensure Executor implements a2asrv.AgentExecutor.
var _ a2asrv.AgentExecutor = (*Executor)(nil)
