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


package actor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atproto-agent-network/agentnet/pkg/agentconfig"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

const extensibilityHint = "You can be extended with additional tools registered for this agent; ask if you're unsure what's available."

// BuildSystemPrompt builds the system prompt from the agent's
// personality plus an optional specialty line.
func BuildSystemPrompt(cfg *agentconfig.AgentConfig) string {
	if cfg.Specialty == "" {
		return cfg.Personality
	}
	return fmt.Sprintf("%s\n\nSpecialty: %s", cfg.Personality, cfg.Specialty)
}

// BuildUserMessage builds the think-phase user message: active goals
// (plus recent completions), the last five outcomes, observations JSON,
// the claimed environment's context block, an inbox nudge, enabled
// tools, and imperative working instructions.
func BuildUserMessage(cfg *agentconfig.AgentConfig, goals []agentconfig.Goal, outcomes []toolkit.CallResult, obs Observation, envCtx json.RawMessage) string {
	var b strings.Builder

	b.WriteString("Active goals:\n")
	var completed []agentconfig.Goal
	for _, g := range goals {
		if g.Status == agentconfig.GoalCompleted {
			completed = append(completed, g)
			continue
		}
		fmt.Fprintf(&b, "- [%s] (priority %d, %.0f%%) %s\n", g.Status, g.Priority, g.Progress*100, g.Description)
	}
	if len(completed) > cfg.MaxCompletedGoals {
		completed = completed[len(completed)-cfg.MaxCompletedGoals:]
	}
	if len(completed) > 0 {
		b.WriteString("\nRecently completed:\n")
		for _, g := range completed {
			fmt.Fprintf(&b, "- %s\n", g.Description)
		}
	}

	recent := outcomes
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	b.WriteString("\nLast outcomes:\n")
	for _, o := range recent {
		status := "ok"
		if !o.OK {
			status = "error: " + o.Error
		}
		fmt.Fprintf(&b, "- %s -> %s\n", o.Name, status)
	}

	if len(obs.Context) > 0 {
		fmt.Fprintf(&b, "\nObservations: %s\n", string(obs.Context))
	}
	if len(envCtx) > 0 {
		fmt.Fprintf(&b, "\nEnvironment: %s\n", string(envCtx))
	}
	if obs.HasInbox {
		b.WriteString("\nYou have unread inbox messages.\n")
	}

	b.WriteString("\nEnabled tools: ")
	b.WriteString(strings.Join(cfg.EnabledTools, ", "))

	b.WriteString("\n\nWork toward your goals. Always use at least one tool. If you are stuck, report it via a notify tool.")
	return b.String()
}

// BuildReflectionPrompt builds the reflection-mode prompt from the last
// ten outcomes, inviting an optional updated goals list.
func BuildReflectionPrompt(outcomes []toolkit.CallResult) string {
	var b strings.Builder
	b.WriteString("Reflect on your recent work.\n\nLast outcomes:\n")
	for _, o := range outcomes {
		status := "ok"
		if !o.OK {
			status = "error: " + o.Error
		}
		fmt.Fprintf(&b, "- %s -> %s\n", o.Name, status)
	}
	b.WriteString("\nSummarize what you've learned and, if warranted, propose an updated goals list as JSON.")
	return b.String()
}

// ExposedTools filters baseExposedTools by suppressedTools and an
// optional phaseWhitelist, which wins when non-empty.
func ExposedTools(base, suppressed, phaseWhitelist []string) []string {
	suppress := toSet(suppressed)
	var filtered []string
	for _, name := range base {
		if suppress[name] {
			continue
		}
		filtered = append(filtered, name)
	}
	if len(phaseWhitelist) == 0 {
		return filtered
	}
	allow := toSet(phaseWhitelist)
	var out []string
	for _, name := range filtered {
		if allow[name] {
			out = append(out, name)
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
