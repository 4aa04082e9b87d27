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

package instruction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/nutriserve/nutriserve/pkg/agent"
)

// State key prefixes matching the session package.
const (
	PrefixApp  = "app:"
	PrefixUser = "user:"
	PrefixTemp = "temp:"
)

// placeholderRegex finds {name}, {app:name}, {artifact.file} and the
// optional {name?} forms. It also matches {{escaped}} runs, which
// replaceMatch passes through untouched.
var placeholderRegex = regexp.MustCompile(`{+[^{}]*}+`)

// InjectState renders an instruction template against the invocation's
// session state and artifacts. A placeholder that cannot be resolved is
// an error unless marked optional with a trailing "?"; text that merely
// looks brace-like but is not a valid reference stays literal.
func InjectState(ctx agent.ReadonlyContext, template string) (string, error) {
	if template == "" {
		return "", nil
	}

	var out strings.Builder
	pos := 0
	for _, loc := range placeholderRegex.FindAllStringIndex(template, -1) {
		out.WriteString(template[pos:loc[0]])

		replacement, err := replaceMatch(ctx, template[loc[0]:loc[1]])
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)
		pos = loc[1]
	}
	out.WriteString(template[pos:])
	return out.String(), nil
}

// HasPlaceholders reports whether the template contains placeholders.
func HasPlaceholders(template string) bool {
	return placeholderRegex.MatchString(template)
}

func replaceMatch(ctx agent.ReadonlyContext, match string) (string, error) {
	// {{double braces}} are an escape.
	if strings.HasPrefix(match, "{{") || strings.HasSuffix(match, "}}") {
		return match, nil
	}

	name := strings.TrimSpace(strings.Trim(match, "{}"))
	name, optional := strings.CutSuffix(name, "?")

	if file, ok := strings.CutPrefix(name, "artifact."); ok {
		return resolveArtifact(ctx, file, optional)
	}
	if !isValidStateName(name) {
		return match, nil
	}
	return resolveState(ctx, name, optional)
}

// orEmpty maps a resolution failure to "" for optional placeholders.
func orEmpty(optional bool, err error) (string, error) {
	if optional {
		return "", nil
	}
	return "", err
}

// resolveArtifact substitutes the latest version of a named artifact.
// Artifact access needs a CallbackContext; plain readonly contexts can
// only satisfy optional references.
func resolveArtifact(ctx agent.ReadonlyContext, filename string, optional bool) (string, error) {
	if filename == "" {
		return orEmpty(optional, fmt.Errorf("empty artifact filename"))
	}

	cbCtx, ok := ctx.(agent.CallbackContext)
	if !ok {
		return orEmpty(optional, fmt.Errorf("artifacts not available in readonly context"))
	}
	artifacts := cbCtx.Artifacts()
	if artifacts == nil {
		return orEmpty(optional, fmt.Errorf("artifact service not available"))
	}

	resp, err := artifacts.Load(ctx, filename)
	if err != nil {
		return orEmpty(optional, fmt.Errorf("failed to load artifact %q: %w", filename, err))
	}
	return partText(resp.Part), nil
}

func partText(part a2a.Part) string {
	switch p := part.(type) {
	case a2a.TextPart:
		return p.Text
	case *a2a.TextPart:
		return p.Text
	default:
		return ""
	}
}

// resolveState substitutes a session state value, formatted with %v.
func resolveState(ctx agent.ReadonlyContext, name string, optional bool) (string, error) {
	state := ctx.ReadonlyState()
	if state == nil {
		return orEmpty(optional, fmt.Errorf("session state not available"))
	}

	value, err := state.Get(name)
	if err != nil {
		return orEmpty(optional, fmt.Errorf("state key %q: %w", name, err))
	}
	if value == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", value), nil
}

// isValidStateName accepts identifiers, optionally carrying one of the
// app:/user:/temp: prefixes.
func isValidStateName(name string) bool {
	prefix, rest, found := strings.Cut(name, ":")
	if !found {
		return isIdentifier(name)
	}
	switch prefix + ":" {
	case PrefixApp, PrefixUser, PrefixTemp:
		return isIdentifier(rest)
	default:
		return false
	}
}

// isIdentifier reports whether s is letter-or-underscore followed by
// letters, digits or underscores.
func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return s != ""
}
