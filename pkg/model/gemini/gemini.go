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

// Package gemini adapts Google Gemini to the model.LLM interface using
// the official google.golang.org/genai SDK. Streaming responses are fed
// through model.StreamingAggregator so callers get partial deltas plus
// one final aggregate.
package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"google.golang.org/genai"

	"github.com/nutriserve/nutriserve/pkg/model"
	"github.com/nutriserve/nutriserve/pkg/tool"
)

const defaultModel = "gemini-2.0-flash-001"

// Config configures the Gemini adapter. Temperature and MaxTokens act as
// model-level defaults; a per-request GenerateConfig overrides them.
type Config struct {
	// APIKey is the Google AI API key.
	APIKey string

	// Model is the model name (e.g., "gemini-2.0-flash-001").
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0-2).
	Temperature float64

	// TopP controls nucleus sampling.
	TopP float64

	// TopK controls top-k sampling.
	TopK int
}

type geminiModel struct {
	client *genai.Client
	name   string
	config Config
}

// New creates the Gemini model. The background context is deliberate:
// genai only uses it for client setup, and per-call contexts govern the
// actual requests.
func New(cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiModel{
		client: client,
		name:   cfg.Model,
		config: cfg,
	}, nil
}

func (m *geminiModel) Name() string {
	return m.name
}

// GenerateContent implements model.LLM.
func (m *geminiModel) GenerateContent(ctx context.Context, req *model.Request, stream bool) iter.Seq2[*model.Response, error] {
	if stream {
		return m.generateStream(ctx, req)
	}
	return func(yield func(*model.Response, error) bool) {
		yield(m.generate(ctx, req))
	}
}

// Close implements model.LLM. The genai client holds no connection that
// needs tearing down.
func (m *geminiModel) Close() error {
	return nil
}

func (m *geminiModel) generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	contents, sys := m.buildRequest(req)
	genResp, err := m.client.Models.GenerateContent(ctx, m.name, contents, m.buildConfig(req.Config, sys, req.Tools))
	if err != nil {
		return nil, fmt.Errorf("Gemini generation failed: %w", err)
	}
	return m.parseResponse(genResp)
}

func (m *geminiModel) generateStream(ctx context.Context, req *model.Request) iter.Seq2[*model.Response, error] {
	return func(yield func(*model.Response, error) bool) {
		agg := model.NewStreamingAggregator()
		seenCalls := make(map[string]bool)

		contents, sys := m.buildRequest(req)
		config := m.buildConfig(req.Config, sys, req.Tools)

		for genResp, err := range m.client.Models.GenerateContentStream(ctx, m.name, contents, config) {
			if err != nil {
				yield(nil, fmt.Errorf("Gemini streaming error: %w", err))
				return
			}
			for resp, err := range m.processStreamChunk(agg, genResp, seenCalls) {
				if !yield(resp, err) {
					return
				}
			}
		}

		if final := agg.Close(); final != nil {
			yield(final, nil)
		}
	}
}

// generateStableFunctionCallID derives a deterministic ID from the call's
// name and arguments. Gemini repeats function calls with empty IDs across
// streaming chunks; hashing makes the repeats collide so the dedupe map
// drops them.
func generateStableFunctionCallID(name string, args map[string]any) string {
	payload, _ := json.Marshal(map[string]any{"name": name, "args": args})
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("nutriserve-%x", sum[:16])
}

// processStreamChunk feeds one stream chunk into the aggregator, yielding
// whatever partial responses it produces. Thought parts are skipped.
func (m *geminiModel) processStreamChunk(agg *model.StreamingAggregator, genResp *genai.GenerateContentResponse, seenCalls map[string]bool) iter.Seq2[*model.Response, error] {
	return func(yield func(*model.Response, error) bool) {
		if len(genResp.Candidates) == 0 {
			return
		}
		candidate := genResp.Candidates[0]

		if candidate.FinishReason != "" {
			agg.SetFinishReason(mapFinishReason(candidate.FinishReason))
		}
		if genResp.UsageMetadata != nil {
			agg.SetUsage(usageFromMetadata(genResp.UsageMetadata))
		}
		if candidate.Content == nil {
			return
		}

		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				for resp, err := range agg.ProcessTextDelta(part.Text) {
					if !yield(resp, err) {
						return
					}
				}
			}

			fc := part.FunctionCall
			if fc == nil {
				continue
			}
			callID := fc.ID
			if callID == "" {
				callID = generateStableFunctionCallID(fc.Name, fc.Args)
			}
			if seenCalls[callID] {
				continue
			}
			seenCalls[callID] = true

			for resp, err := range agg.ProcessToolCall(tool.ToolCall{ID: callID, Name: fc.Name, Args: fc.Args}) {
				if !yield(resp, err) {
					return
				}
			}
		}
	}
}

// buildRequest translates the request's history into genai contents and
// splits out the system instruction, which genai takes separately.
func (m *geminiModel) buildRequest(req *model.Request) ([]*genai.Content, *genai.Content) {
	var sys *genai.Content
	if req.SystemInstruction != "" {
		sys = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
			Role:  "user",
		}
	}

	var contents []*genai.Content
	for _, msg := range req.Messages {
		if content := m.messageToContent(msg); content != nil {
			contents = append(contents, content)
		}
	}
	return contents, sys
}

// messageToContent converts one a2a message. Messages whose parts all
// fail to translate yield nil and are dropped from the request.
func (m *geminiModel) messageToContent(msg *a2a.Message) *genai.Content {
	if msg == nil {
		return nil
	}

	var parts []*genai.Part
	for _, p := range msg.Parts {
		switch part := p.(type) {
		case a2a.TextPart:
			parts = append(parts, &genai.Part{Text: part.Text})
		case a2a.DataPart:
			if gp := dataPartToGenai(part); gp != nil {
				parts = append(parts, gp)
			}
		case a2a.FilePart:
			if gp := filePartToGenai(part); gp != nil {
				parts = append(parts, gp)
			}
		}
	}
	if len(parts) == 0 {
		return nil
	}

	role := "user"
	if msg.Role == a2a.MessageRoleAgent {
		role = "model"
	}
	return &genai.Content{Parts: parts, Role: role}
}

// dataPartToGenai maps the tool_use / tool_result data-part convention
// onto genai function call/response parts.
func dataPartToGenai(part a2a.DataPart) *genai.Part {
	kind, _ := part.Data["type"].(string)
	switch kind {
	case "tool_use":
		name, ok := part.Data["name"].(string)
		if !ok {
			return nil
		}
		args, _ := part.Data["arguments"].(map[string]any)
		id, _ := part.Data["id"].(string)
		return &genai.Part{FunctionCall: &genai.FunctionCall{
			ID:   id,
			Name: name,
			Args: args,
		}}

	case "tool_result":
		name, _ := part.Data["tool_name"].(string)
		id, _ := part.Data["tool_call_id"].(string)
		if name == "" && id == "" {
			return nil
		}

		// genai wants a map-shaped response; string content gets wrapped.
		var response map[string]any
		if content, ok := part.Data["content"].(string); ok {
			response = map[string]any{"result": content}
		} else if result, ok := part.Data["result"].(map[string]any); ok {
			response = result
		}
		return &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       id,
			Name:     name,
			Response: response,
		}}
	}
	return nil
}

func filePartToGenai(part a2a.FilePart) *genai.Part {
	switch f := part.File.(type) {
	case a2a.FileBytes:
		return &genai.Part{InlineData: &genai.Blob{
			MIMEType: f.MimeType,
			Data:     []byte(f.Bytes),
		}}
	case a2a.FileURI:
		return &genai.Part{FileData: &genai.FileData{
			MIMEType: f.MimeType,
			FileURI:  f.URI,
		}}
	}
	return nil
}

// buildConfig assembles the generation config, layering the per-request
// config over the model-level defaults.
func (m *geminiModel) buildConfig(cfg *model.GenerateConfig, sys *genai.Content, tools []tool.Definition) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{SystemInstruction: sys}

	if cfg != nil {
		if cfg.Temperature != nil {
			config.Temperature = genai.Ptr(float32(*cfg.Temperature))
		}
		if cfg.MaxTokens != nil {
			config.MaxOutputTokens = int32(*cfg.MaxTokens)
		}
		if cfg.TopP != nil {
			config.TopP = genai.Ptr(float32(*cfg.TopP))
		}
		if cfg.TopK != nil {
			config.TopK = genai.Ptr(float32(*cfg.TopK))
		}
		if len(cfg.StopSequences) > 0 {
			config.StopSequences = cfg.StopSequences
		}
	}

	if config.Temperature == nil && m.config.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(m.config.Temperature))
	}
	if config.MaxOutputTokens == 0 && m.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(m.config.MaxTokens)
	}

	for _, t := range tools {
		config.Tools = append(config.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			}},
		})
	}

	return config
}

// toGenaiSchema recursively converts a JSON schema map into the genai
// schema type. Only the subset the tools emit is mapped.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		// JSON schema types are lowercase, the genai enum is uppercase.
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	return s
}

// parseResponse converts a non-streaming genai response. Function calls
// surface both as ToolCalls and as tool_use data parts so the session
// history round-trips through messageToContent.
func (m *geminiModel) parseResponse(genResp *genai.GenerateContentResponse) (*model.Response, error) {
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}
	candidate := genResp.Candidates[0]

	resp := &model.Response{
		TurnComplete: true,
		FinishReason: mapFinishReason(candidate.FinishReason),
	}
	if genResp.UsageMetadata != nil {
		resp.Usage = usageFromMetadata(genResp.UsageMetadata)
	}
	if candidate.Content == nil {
		return resp, nil
	}

	var parts []a2a.Part
	for _, part := range candidate.Content.Parts {
		if part.Text != "" && !part.Thought {
			parts = append(parts, a2a.TextPart{Text: part.Text})
		}
		if fc := part.FunctionCall; fc != nil {
			resp.ToolCalls = append(resp.ToolCalls, tool.ToolCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
			parts = append(parts, a2a.DataPart{Data: map[string]any{
				"type":      "tool_use",
				"id":        fc.ID,
				"name":      fc.Name,
				"arguments": fc.Args,
			}})
		}
	}

	role := a2a.MessageRoleAgent
	if candidate.Content.Role == "user" {
		role = a2a.MessageRoleUser
	}
	resp.Content = &model.Content{Parts: parts, Role: role}
	return resp, nil
}

func usageFromMetadata(md *genai.GenerateContentResponseUsageMetadata) *model.Usage {
	return &model.Usage{
		PromptTokens:     int(md.PromptTokenCount),
		CompletionTokens: int(md.CandidatesTokenCount),
		TotalTokens:      int(md.TotalTokenCount),
	}
}

// mapFinishReason narrows genai finish reasons to the model enum.
func mapFinishReason(reason genai.FinishReason) model.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return model.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return model.FinishReasonLength
	case genai.FinishReasonSafety:
		return model.FinishReasonContent
	default:
		return model.FinishReasonStop
	}
}

var _ model.LLM = (*geminiModel)(nil)
