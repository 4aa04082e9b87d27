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
	"fmt"
	"log/slog"

	"github.com/nutriserve/nutriserve/pkg/agent"
	"github.com/nutriserve/nutriserve/pkg/model"
	"github.com/nutriserve/nutriserve/pkg/tool"
)

// RequestProcessor mutates an LLM request before it is sent to the model.
// Processors run in order and may populate config, instructions, tools,
// or message history.
type RequestProcessor func(ctx ProcessorContext, req *model.Request) error

// ResponseProcessor inspects or mutates an LLM response after generation.
type ResponseProcessor func(ctx ProcessorContext, req *model.Request, resp *model.Response) error

// ProcessorContext provides processors access to the invocation and the
// agent being run.
type ProcessorContext interface {
	agent.InvocationContext

	// LLMAgent returns the agent whose request is being processed.
	LLMAgent() *llmAgent

	// ToolDefinitions returns the definitions of the agent's tools.
	ToolDefinitions() []tool.Definition
}

type processorContext struct {
	agent.InvocationContext

	agent *llmAgent

	// toolDefs caches definitions so repeated processors don't rebuild them.
	toolDefs []tool.Definition
}

func newProcessorContext(ctx agent.InvocationContext, a *llmAgent) *processorContext {
	return &processorContext{
		InvocationContext: ctx,
		agent:             a,
	}
}

func (pc *processorContext) LLMAgent() *llmAgent {
	return pc.agent
}

func (pc *processorContext) ToolDefinitions() []tool.Definition {
	if pc.toolDefs == nil {
		pc.toolDefs = pc.agent.collectToolDefinitions()
	}
	return pc.toolDefs
}

// Pipeline runs request processors before each LLM call and response
// processors after it.
type Pipeline struct {
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
}

// NewPipeline creates a pipeline with the default processors.
func NewPipeline() *Pipeline {
	return &Pipeline{
		requestProcessors:  DefaultRequestProcessors(),
		responseProcessors: DefaultResponseProcessors(),
	}
}

// NewCustomPipeline creates a pipeline with exactly the given processors.
func NewCustomPipeline(requestProcessors []RequestProcessor, responseProcessors []ResponseProcessor) *Pipeline {
	return &Pipeline{
		requestProcessors:  requestProcessors,
		responseProcessors: responseProcessors,
	}
}

// AddRequestProcessor appends a processor to the request chain.
func (p *Pipeline) AddRequestProcessor(proc RequestProcessor) {
	p.requestProcessors = append(p.requestProcessors, proc)
}

// AddResponseProcessor appends a processor to the response chain.
func (p *Pipeline) AddResponseProcessor(proc ResponseProcessor) {
	p.responseProcessors = append(p.responseProcessors, proc)
}

// ProcessRequest runs all request processors in order.
func (p *Pipeline) ProcessRequest(ctx ProcessorContext, req *model.Request) error {
	for i, proc := range p.requestProcessors {
		if err := proc(ctx, req); err != nil {
			return fmt.Errorf("request processor %d failed: %w", i, err)
		}
	}
	return nil
}

// ProcessResponse runs all response processors in order.
func (p *Pipeline) ProcessResponse(ctx ProcessorContext, req *model.Request, resp *model.Response) error {
	for i, proc := range p.responseProcessors {
		if err := proc(ctx, req, resp); err != nil {
			return fmt.Errorf("response processor %d failed: %w", i, err)
		}
	}
	return nil
}

// DefaultRequestProcessors returns the standard request chain:
// generation config, system instruction, tool definitions, message history.
func DefaultRequestProcessors() []RequestProcessor {
	return []RequestProcessor{
		ConfigRequestProcessor,
		InstructionRequestProcessor,
		ToolsRequestProcessor,
		ContentsRequestProcessor,
	}
}

// DefaultResponseProcessors returns the standard response chain.
func DefaultResponseProcessors() []ResponseProcessor {
	return []ResponseProcessor{
		LoggingResponseProcessor,
	}
}

// ConfigRequestProcessor applies the agent's generation config.
func ConfigRequestProcessor(ctx ProcessorContext, req *model.Request) error {
	a := ctx.LLMAgent()
	if a.generateConfig != nil {
		req.Config = a.generateConfig.Clone()
	}
	return nil
}

// InstructionRequestProcessor resolves the agent's instruction, injecting
// state placeholders, and sets it as the system instruction.
func InstructionRequestProcessor(ctx ProcessorContext, req *model.Request) error {
	inst, err := ctx.LLMAgent().resolveInstruction(ctx)
	if err != nil {
		return err
	}
	req.SystemInstruction = inst
	return nil
}

// ToolsRequestProcessor attaches the agent's tool definitions.
func ToolsRequestProcessor(ctx ProcessorContext, req *model.Request) error {
	req.Tools = ctx.ToolDefinitions()
	return nil
}

// ContentsRequestProcessor builds the message history from session events.
func ContentsRequestProcessor(ctx ProcessorContext, req *model.Request) error {
	req.Messages = ctx.LLMAgent().buildMessages(ctx)
	return nil
}

// LoggingResponseProcessor logs response metadata at debug level.
func LoggingResponseProcessor(ctx ProcessorContext, req *model.Request, resp *model.Response) error {
	slog.Debug("LLM response processed",
		"agent", ctx.AgentName(),
		"finish_reason", resp.FinishReason,
		"has_tool_calls", resp.HasToolCalls(),
		"partial", resp.Partial,
	)
	return nil
}

var _ ProcessorContext = (*processorContext)(nil)
