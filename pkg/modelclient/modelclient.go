// AgentNet - Autonomous Agent Network Core
// Copyright (C) 2026 atproto-agent-network
//
// This file is part of AgentNet.
//
// AgentNet is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AgentNet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with AgentNet. If not, see <https://www.gnu.org/licenses/>.


// Package modelclient drives the external model collaborator in the
// agentic tool-call loop: trimmed history, tool dispatch via pkg/toolkit,
// a global loop timeout, per-call HTTP timeout, and a deduplicated model
// fallback chain that retries on 5xx/429/network errors but never on
// other 4xx responses.
package modelclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

// ToolCall is a model-requested tool invocation before it has been
// resolved against the registry.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// Message is one agentic-loop transcript entry: either a user/assistant
// text turn or a tool-result turn.
type Message struct {
	Role       string // "system" | "user" | "assistant" | "tool"
	Content    string
	ToolCalls  []ToolCall // set when Role == "assistant" and the model asked for tools
	ToolName   string     // set when Role == "tool"
	ToolCallID string     // set when Role == "tool"
}

// GenerateResponse is one model call's outcome.
type GenerateResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolDef is one tool definition advertised to the model: the name,
// description, and JSON-schema parameters of a registry entry the caller
// chose to expose for this call.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Client is the external model collaborator. Implementations perform
// one bounded HTTP round trip; RunLoop supplies the retry/fallback/
// timeout policy around it.
type Client interface {
	Generate(ctx context.Context, model, system string, tools []ToolDef, history []Message) (GenerateResponse, error)
}

// RetryableError marks an error as eligible for model fallback (5xx,
// 429, or a network/timeout failure). Non-429 4xx client errors must
// NOT be wrapped in this and therefore do not trigger fallback.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

const (
	globalLoopTimeout = 25 * time.Second
	perCallTimeout    = 20 * time.Second
	trimmedHistoryLen = 12
)

// FallbackChain builds the deduplicated model list:
// [primary, fast?, "google/gemini-3-flash-preview", "moonshotai/kimi-k2.5"].
func FallbackChain(primary, fast string) []string {
	seen := map[string]bool{}
	var chain []string
	add := func(m string) {
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		chain = append(chain, m)
	}
	add(primary)
	add(fast)
	add("google/gemini-3-flash-preview")
	add("moonshotai/kimi-k2.5")
	return chain
}

// StepTrace is one agentic-loop iteration's observability record: the
// model actually used for that step, its duration, and the tool calls it
// made.
type StepTrace struct {
	Model      string
	DurationMs int64
	ToolCalls  []string
}

// LoopResult is the final outcome of one think-phase agentic loop.
type LoopResult struct {
	FinalText string
	History   []Message
	Trace     []StepTrace
}

// LoopOptions configures one RunLoop invocation.
type LoopOptions struct {
	Models       []string // fallback chain, in order
	System       string
	Seed         []Message // prior trimmed history to resume from
	EnabledTools []string
	Alias        toolkit.AliasResolver
	ActorRoles   []string
}

// RunLoop drives the agentic tool-call loop against a single Client,
// retrying across the model fallback chain on retryable failures and
// dispatching tool calls via the supplied toolkit.Registry.
func RunLoop(ctx context.Context, client Client, registry *toolkit.Registry, opts LoopOptions) (LoopResult, error) {
	ctx, cancel := context.WithTimeout(ctx, globalLoopTimeout)
	defer cancel()

	history := trimHistory(opts.Seed)
	tools := exposedToolDefs(registry, opts.EnabledTools)
	result := LoopResult{}

	for {
		stepStart := time.Now()
		resp, usedModel, err := generateWithFallback(ctx, client, opts.Models, opts.System, tools, history)
		if err != nil {
			return result, err
		}

		if len(resp.ToolCalls) == 0 {
			result.FinalText = resp.Text
			result.History = history
			return result, nil
		}

		assistantMsg := Message{Role: "assistant", Content: resp.Text, ToolCalls: resp.ToolCalls}
		history = appendTrimmed(history, assistantMsg)

		var calls []toolkit.Call
		for _, tc := range resp.ToolCalls {
			calls = append(calls, toolkit.Call{ID: tc.ID, Name: tc.Name, Args: tc.Args})
		}
		report := registry.Dispatch(ctx, calls, toolkit.DispatchOptions{
			EnabledTools: opts.EnabledTools, Alias: opts.Alias, ActorRoles: opts.ActorRoles,
		})

		names := make([]string, 0, len(report.Results))
		for _, res := range report.Results {
			names = append(names, res.Name)
			content := string(res.Result)
			if !res.OK {
				content = res.Error
			}
			history = appendTrimmed(history, Message{Role: "tool", Content: content, ToolName: res.Name})
		}
		result.Trace = append(result.Trace, StepTrace{
			Model: usedModel, ToolCalls: names, DurationMs: time.Since(stepStart).Milliseconds(),
		})

		if ctx.Err() != nil {
			result.History = history
			return result, ctx.Err()
		}
	}
}

// exposedToolDefs builds the tool definitions sent to the model: the
// registry entries whose names survive the caller's enabled-tool filter.
// An empty filter exposes nothing; a phase that wants no tool use (e.g.
// reflection) simply passes no EnabledTools.
func exposedToolDefs(registry *toolkit.Registry, enabled []string) []ToolDef {
	if registry == nil || len(enabled) == 0 {
		return nil
	}
	allow := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allow[name] = true
	}
	var defs []ToolDef
	for _, t := range registry.List() {
		if !allow[t.Name] {
			continue
		}
		defs = append(defs, ToolDef{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return defs
}

func generateWithFallback(ctx context.Context, client Client, models []string, system string, tools []ToolDef, history []Message) (GenerateResponse, string, error) {
	var lastErr error
	for _, model := range models {
		callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
		resp, err := client.Generate(callCtx, model, system, tools, history)
		cancel()
		if err == nil {
			return resp, model, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return GenerateResponse{}, model, fmt.Errorf("modelclient: %s: %w", model, err)
		}
	}
	return GenerateResponse{}, "", fmt.Errorf("modelclient: all models exhausted: %w", lastErr)
}

func trimHistory(history []Message) []Message {
	if len(history) <= trimmedHistoryLen {
		return append([]Message{}, history...)
	}
	return append([]Message{}, history[len(history)-trimmedHistoryLen:]...)
}

func appendTrimmed(history []Message, msg Message) []Message {
	return trimHistory(append(history, msg))
}
