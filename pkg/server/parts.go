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
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/agent"
)

// toContent converts an A2A message to agent content.
// A2A parts and roles carry over directly.
func toContent(msg *a2a.Message) *agent.Content {
	if msg == nil {
		return nil
	}
	return &agent.Content{
		Parts: msg.Parts,
		Role:  msg.Role,
	}
}

// messageText concatenates the text of every TextPart in the message.
func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case a2a.TextPart:
			sb.WriteString(p.Text)
		case *a2a.TextPart:
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// firstTextPart returns the text of the first TextPart in the message,
// or "" when the message has none.
func firstTextPart(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case a2a.TextPart:
			return p.Text
		case *a2a.TextPart:
			return p.Text
		}
	}
	return ""
}
