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


// Package toolkit implements the tool registry and dispatcher: named
// tools with JSON-schema parameters, allowlist enforcement, per-call and
// per-phase timeouts, environment routing/aliasing, capability guards,
// auto-play injection, and outcome recording.
package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CallResult is the shape recorded for every attempted tool call; every
// attempt lands in the bounded outcome log.
type CallResult struct {
	Name       string          `json:"name"`
	OK         bool            `json:"ok"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"durationMs"`
	GoalID     string          `json:"goalId,omitempty"`
}

// Handler executes a tool call.
type Handler func(ctx context.Context, callID string, args json.RawMessage) (json.RawMessage, error)

// Tool is one dispatchable registry entry: a name, a description, the
// JSON-schema parameters advertised to the model, and the handler.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON schema
	Execute     Handler

	// RequiresRole gates dispatch behind a role predicate on the actor,
	// for sensitive tools like a game-master surface. Nil means no guard.
	RequiresRole func(actorRoles []string) bool
}

// Registry is an insertion-ordered map of tools: lookup by name,
// ordered enumeration for deterministic tool-list serialization to the
// model.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds or replaces a tool, preserving its original insertion
// position on replace.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns tools in insertion order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// AliasResolver rewrites a routed call name to the active environment's
// native tool name, e.g. "game" <-> "rpg".
type AliasResolver func(name string) string

const (
	maxCallsPerCycle = 10
	phaseBudget      = 30 * time.Second
)

// DispatchOptions configures one tool-call phase.
type DispatchOptions struct {
	EnabledTools []string
	Alias        AliasResolver
	ActorRoles   []string
}

// Call is one requested tool invocation.
type Call struct {
	ID   string
	Name string
	Args json.RawMessage
}

// DispatchReport summarizes one tool phase's outcome.
type DispatchReport struct {
	Results   []CallResult
	Truncated bool
	TimedOut  bool
}

// Dispatch runs calls against the registry honoring the cap, the phase
// budget, per-call remaining-budget timeouts, the allowlist (with alias
// resolution), and capability guards. Errors from a tool never abort the
// phase; each call records its own failure and the next call proceeds.
func (r *Registry) Dispatch(ctx context.Context, calls []Call, opts DispatchOptions) DispatchReport {
	var report DispatchReport

	if len(calls) > maxCallsPerCycle {
		calls = calls[:maxCallsPerCycle]
		report.Truncated = true
	}

	deadline := time.Now().Add(phaseBudget)
	allowlist := toSet(opts.EnabledTools)

	for _, call := range calls {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			report.TimedOut = true
			break
		}

		resolved := call.Name
		if opts.Alias != nil {
			if aliased := opts.Alias(call.Name); aliased != "" {
				resolved = aliased
			}
		}

		start := time.Now()
		if !allowlist[resolved] && !allowlist[call.Name] {
			report.Results = append(report.Results, CallResult{
				Name: call.Name, OK: false, Error: "Tool not enabled",
				DurationMs: time.Since(start).Milliseconds(),
			})
			continue
		}

		tool, ok := r.Get(resolved)
		if !ok {
			report.Results = append(report.Results, CallResult{
				Name: call.Name, OK: false, Error: "Tool not enabled",
				DurationMs: time.Since(start).Milliseconds(),
			})
			continue
		}

		if tool.RequiresRole != nil && !tool.RequiresRole(opts.ActorRoles) {
			report.Results = append(report.Results, CallResult{
				Name: call.Name, OK: false, Error: "tool not available",
				DurationMs: time.Since(start).Milliseconds(),
			})
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, remaining)
		result, err := tool.Execute(callCtx, call.ID, call.Args)
		cancel()
		dur := time.Since(start)

		if err != nil {
			msg := err.Error()
			if callCtx.Err() == context.DeadlineExceeded {
				msg = fmt.Sprintf("Tool timed out: %s", call.Name)
				report.TimedOut = true
			}
			report.Results = append(report.Results, CallResult{
				Name: call.Name, OK: false, Error: msg, DurationMs: dur.Milliseconds(),
				GoalID: extractGoalID(call.Args, nil),
			})
			continue
		}

		report.Results = append(report.Results, CallResult{
			Name: call.Name, OK: true, Result: result, DurationMs: dur.Milliseconds(),
			GoalID: extractGoalID(call.Args, result),
		})
	}

	return report
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// extractGoalID attributes a call to a goal for the outcome log: it
// looks for a top-level "goalId" field in args, falling back to the
// result.
func extractGoalID(args, result json.RawMessage) string {
	if id := goalIDFrom(args); id != "" {
		return id
	}
	return goalIDFrom(result)
}

func goalIDFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v struct {
		GoalID string `json:"goalId"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.GoalID
}

// AutoPlayInjection merges environment-injected calls into a call list
// when the model took no action. Exactly one injected call is appended;
// otherwise all but the last are prepended (setup moves) and the last is
// appended (turn-closer).
func AutoPlayInjection(existing []Call, injected []Call) []Call {
	if len(injected) == 0 {
		return existing
	}
	if len(injected) == 1 {
		return append(existing, injected[0])
	}
	setup := injected[:len(injected)-1]
	closer := injected[len(injected)-1]
	out := make([]Call, 0, len(setup)+len(existing)+1)
	out = append(out, setup...)
	out = append(out, existing...)
	out = append(out, closer)
	return out
}
