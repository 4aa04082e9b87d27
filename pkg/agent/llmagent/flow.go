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

package llmagent

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/model"
	"github.com/nutriserve/nutriserve/pkg/tool"
)

// clientFunctionCallIDPrefix marks tool call IDs generated client-side when
// the provider omits them.
const clientFunctionCallIDPrefix = "nutriserve-"

// emptyResponseApology replaces empty model output so callers always
// receive usable text.
const emptyResponseApology = "I apologize, but I couldn't generate a proper response. Please try rephrasing your question."

// Flow orchestrates the LLM reasoning loop: build request, call model,
// execute tools, repeat until the model produces a final response.
type Flow struct {
	agent *llmAgent
}

// NewFlow creates a flow for the given agent.
func NewFlow(a *llmAgent) *Flow {
	return &Flow{agent: a}
}

// Run executes the reasoning loop, yielding events as they are produced.
// The loop terminates when a step ends in a final response or the iteration
// limit is reached.
func (f *Flow) Run(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		for iteration := 0; iteration < f.agent.maxToolIterations; iteration++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			var lastEvent *agent.Event
			for event, err := range f.runOneStep(ctx) {
				if err != nil {
					yield(nil, err)
					return
				}
				lastEvent = event
				if !yield(event, nil) {
					return
				}
			}

			if lastEvent == nil || lastEvent.IsFinalResponse() {
				return
			}
			if lastEvent.Partial {
				yield(nil, fmt.Errorf("unexpected partial event at end of step"))
				return
			}
		}

		yield(nil, fmt.Errorf("reasoning loop safety limit exceeded (%d iterations)", f.agent.maxToolIterations))
	}
}

// runOneStep performs one LLM call plus any tool executions it requests.
func (f *Flow) runOneStep(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		req := &model.Request{}
		procCtx := newProcessorContext(ctx, f.agent)

		if err := f.agent.pipeline.ProcessRequest(procCtx, req); err != nil {
			yield(nil, fmt.Errorf("preprocess failed: %w", err))
			return
		}

		if ctx.Ended() {
			return
		}

		resp, ok := f.callLLMWithCallbacks(ctx, req, yield)
		if !ok {
			return
		}
		if resp == nil {
			resp = &model.Response{}
		}

		if err := f.agent.pipeline.ProcessResponse(procCtx, req, resp); err != nil {
			yield(nil, fmt.Errorf("postprocess failed: %w", err))
			return
		}

		// Empty non-error responses get an apology so the caller always
		// receives usable text.
		if resp.ErrorCode == "" && !resp.HasToolCalls() && strings.TrimSpace(resp.TextContent()) == "" {
			resp.Content = &model.Content{
				Parts: []a2a.Part{a2a.TextPart{Text: emptyResponseApology}},
				Role:  a2a.MessageRoleAgent,
			}
		}

		event := f.buildModelResponseEvent(ctx, resp)
		if !yield(event, nil) {
			return
		}

		if !resp.HasToolCalls() {
			return
		}

		// Long-running tools are surfaced on the event but not executed
		// here. Clients poll for their completion out of band.
		longRunning := make(map[string]bool, len(event.LongRunningToolIDs))
		for _, id := range event.LongRunningToolIDs {
			longRunning[id] = true
		}
		executable := make([]tool.ToolCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			if !longRunning[tc.ID] {
				executable = append(executable, tc)
			}
		}
		if len(executable) == 0 {
			return
		}

		yield(f.handleToolCalls(ctx, executable), nil)
	}
}

// callLLMWithCallbacks invokes the model with before/after callbacks applied.
// Partial streaming responses are yielded as events; the aggregated final
// response is returned.
func (f *Flow) callLLMWithCallbacks(ctx agent.InvocationContext, req *model.Request, yield func(*agent.Event, error) bool) (*model.Response, bool) {
	cbCtx := newCallbackContextAdapter(ctx)

	for _, cb := range f.agent.beforeModelCallbacks {
		resp, err := cb(cbCtx, req)
		if err != nil {
			yield(nil, fmt.Errorf("before-model callback failed: %w", err))
			return nil, false
		}
		if resp != nil {
			return resp, true
		}
	}

	var finalResp *model.Response
	for resp, err := range f.agent.model.GenerateContent(ctx, req, f.agent.enableStreaming) {
		for _, cb := range f.agent.afterModelCallbacks {
			newResp, cbErr := cb(cbCtx, resp, err)
			if cbErr != nil {
				yield(nil, fmt.Errorf("after-model callback failed: %w", cbErr))
				return nil, false
			}
			if newResp != nil {
				resp = newResp
				err = nil
			}
		}

		if err != nil {
			yield(nil, fmt.Errorf("LLM generation failed: %w", err))
			return nil, false
		}
		if resp == nil {
			continue
		}

		if resp.Partial {
			if !yield(f.buildPartialEvent(ctx, resp), nil) {
				// Streaming interrupted by the consumer.
				return nil, false
			}
			continue
		}
		finalResp = resp
	}

	return finalResp, true
}

// buildPartialEvent wraps a streaming chunk in an event.
func (f *Flow) buildPartialEvent(ctx agent.InvocationContext, resp *model.Response) *agent.Event {
	event := agent.NewEvent(ctx.InvocationID())
	event.Author = f.agent.Name()
	event.Branch = ctx.Branch()
	event.Partial = true
	if resp.Content != nil && len(resp.Content.Parts) > 0 {
		event.Message = a2a.NewMessage(a2a.MessageRoleAgent, resp.Content.Parts...)
	}
	return event
}

// buildModelResponseEvent converts the final model response into an event,
// recording requested tool calls and the output key state delta.
func (f *Flow) buildModelResponseEvent(ctx agent.InvocationContext, resp *model.Response) *agent.Event {
	populateFunctionCallIDs(resp)

	event := agent.NewEvent(ctx.InvocationID())
	event.Author = f.agent.Name()
	event.Branch = ctx.Branch()
	event.TurnComplete = resp.TurnComplete

	// tool_use parts are rebuilt from resp.ToolCalls below; any the
	// provider embedded in the content would otherwise appear twice and
	// carry unpopulated IDs.
	var parts []a2a.Part
	if resp.Content != nil {
		for _, p := range resp.Content.Parts {
			if isToolUsePart(p) {
				continue
			}
			parts = append(parts, p)
		}
	}

	for _, tc := range resp.ToolCalls {
		event.ToolCalls = append(event.ToolCalls, agent.ToolCallState{
			ID:     tc.ID,
			Name:   tc.Name,
			Args:   tc.Args,
			Status: "working",
		})
		parts = append(parts, a2a.DataPart{Data: map[string]any{
			"type":      "tool_use",
			"id":        tc.ID,
			"name":      tc.Name,
			"arguments": tc.Args,
		}})
		if t := f.agent.findTool(tc.Name); t != nil && t.IsLongRunning() {
			event.LongRunningToolIDs = append(event.LongRunningToolIDs, tc.ID)
		}
	}

	if len(parts) > 0 {
		role := a2a.MessageRoleAgent
		if resp.Content != nil && resp.Content.Role != "" {
			role = resp.Content.Role
		}
		event.Message = a2a.NewMessage(role, parts...)
	}

	if resp.ErrorCode != "" {
		event.ErrorCode = resp.ErrorCode
		event.ErrorMessage = resp.ErrorMessage
	}

	if f.agent.outputKey != "" && !resp.HasToolCalls() {
		if text := resp.TextContent(); text != "" {
			event.Actions.StateDelta[f.agent.outputKey] = text
		}
	}

	return event
}

// handleToolCalls executes the requested tools and merges their results
// into a single event. Tool failures become error results rather than
// aborting the step, so the model can react to them.
func (f *Flow) handleToolCalls(ctx agent.InvocationContext, toolCalls []tool.ToolCall) *agent.Event {
	mergedActions := &agent.EventActions{StateDelta: make(map[string]any)}
	var parts []a2a.Part
	var results []agent.ToolResultState

	for _, tc := range toolCalls {
		var content string
		var isError bool

		t := f.agent.findTool(tc.Name)
		switch {
		case t == nil:
			content = fmt.Sprintf("Error: tool %q not found", tc.Name)
			isError = true
		default:
			callable, ok := t.(tool.CallableTool)
			if !ok {
				content = fmt.Sprintf("Error: tool %q is not callable", tc.Name)
				isError = true
				break
			}
			tcCtx := newToolContext(ctx, tc.ID)
			result, err := f.callToolWithCallbacks(tcCtx, callable, tc.Args)
			if err != nil {
				content = fmt.Sprintf("Error: %v", err)
				isError = true
			} else {
				content = formatToolResult(result)
			}
			mergeEventActions(mergedActions, tcCtx.Actions())
		}

		status := "success"
		if isError {
			status = "failed"
		}
		results = append(results, agent.ToolResultState{
			ToolCallID: tc.ID,
			Content:    content,
			Status:     status,
			IsError:    isError,
		})
		parts = append(parts, a2a.DataPart{Data: map[string]any{
			"type":         "tool_result",
			"tool_call_id": tc.ID,
			"tool_name":    tc.Name,
			"content":      content,
			"is_error":     isError,
		}})
	}

	event := agent.NewEvent(ctx.InvocationID())
	event.Author = f.agent.Name()
	event.Branch = ctx.Branch()
	event.ToolResults = results
	event.Actions = *mergedActions
	// Tool results flow back to the model as user-side content.
	event.Message = a2a.NewMessage(a2a.MessageRoleUser, parts...)
	return event
}

// callToolWithCallbacks executes one tool with before/after callbacks and
// metrics recording.
func (f *Flow) callToolWithCallbacks(tcCtx tool.Context, t tool.CallableTool, args map[string]any) (map[string]any, error) {
	var result map[string]any
	var err error
	var skipped bool

	for _, cb := range f.agent.beforeToolCallbacks {
		cbResult, cbErr := cb(tcCtx, t, args)
		if cbErr != nil {
			return nil, fmt.Errorf("before-tool callback failed: %w", cbErr)
		}
		if cbResult != nil {
			result = cbResult
			skipped = true
			break
		}
	}

	if !skipped {
		start := time.Now()
		result, err = t.Call(tcCtx, args)
		if f.agent.metricsRecorder != nil {
			f.agent.metricsRecorder.RecordToolCall(t.Name(), time.Since(start))
			if err != nil {
				f.agent.metricsRecorder.RecordToolError(t.Name(), "execution_error")
			}
		}
	}

	for _, cb := range f.agent.afterToolCallbacks {
		newResult, cbErr := cb(tcCtx, t, args, result, err)
		if cbErr != nil {
			return nil, fmt.Errorf("after-tool callback failed: %w", cbErr)
		}
		if newResult != nil {
			result = newResult
			err = nil
		}
	}

	return result, err
}

// formatToolResult extracts displayable text from a tool result map.
// Tools conventionally return their output under the "content" key;
// anything else is serialized as JSON for the model.
func formatToolResult(result map[string]any) string {
	if content, ok := result["content"].(string); ok {
		content = strings.TrimSpace(content)
		if content == "" {
			return "(no output)"
		}
		return content
	}
	if len(result) == 0 {
		return "(no output)"
	}
	if data, err := json.Marshal(result); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", result)
}

// isToolUsePart reports whether p is a tool_use data part.
func isToolUsePart(p a2a.Part) bool {
	dp, ok := p.(a2a.DataPart)
	if !ok {
		return false
	}
	kind, _ := dp.Data["type"].(string)
	return kind == "tool_use"
}

// mergeEventActions folds tool-level actions into the step's merged actions.
func mergeEventActions(dst, src *agent.EventActions) {
	if src == nil {
		return
	}
	if src.SkipSummarization {
		dst.SkipSummarization = true
	}
	for k, v := range src.StateDelta {
		dst.StateDelta[k] = v
	}
	for k, v := range src.ArtifactDelta {
		if dst.ArtifactDelta == nil {
			dst.ArtifactDelta = make(map[string]int64)
		}
		dst.ArtifactDelta[k] = v
	}
}

// populateFunctionCallIDs assigns client-side IDs to tool calls that the
// provider returned without one.
func populateFunctionCallIDs(resp *model.Response) {
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].ID == "" {
			resp.ToolCalls[i].ID = clientFunctionCallIDPrefix + uuid.NewString()
		}
	}
}
