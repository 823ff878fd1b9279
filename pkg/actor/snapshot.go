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
	"github.com/atproto-agent-network/agentnet/pkg/agentconfig"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

// Snapshot is the JSON-serializable persisted state layout: loop
// running/count, mode and its counter, error backoff, session, goals
// and their archive, action outcomes, and the last reflection text.
// Identity/config are persisted separately by their own stores and are
// not duplicated here.
type Snapshot struct {
	LoopRunning      bool               `json:"loopRunning"`
	LoopCount        int                `json:"loopCount"`
	AlarmMode        Mode               `json:"alarmMode"`
	AlarmModeCounter int                `json:"alarmModeCounter"`
	ErrorBackoff     BackoffState       `json:"errorBackoff"`
	Session          Session            `json:"session"`
	Goals            []agentconfig.Goal `json:"goals"`
	GoalsArchive     []agentconfig.Goal `json:"goalsArchive"`
	Outcomes         []OutcomeSnapshot  `json:"actionOutcomes"`
	LastReflection   string             `json:"lastReflection"`
}

// OutcomeSnapshot is the persisted shape of one tool call outcome.
type OutcomeSnapshot struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
	GoalID     string `json:"goalId,omitempty"`
}

// Snapshot captures the actor's current mutable state for persistence.
func (a *Actor) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	outcomes := make([]OutcomeSnapshot, 0, len(a.outcomes))
	for _, o := range a.outcomes {
		outcomes = append(outcomes, OutcomeSnapshot{
			Name: o.Name, OK: o.OK, Error: o.Error, DurationMs: o.DurationMs, GoalID: o.GoalID,
		})
	}

	return Snapshot{
		LoopRunning:      a.running,
		LoopCount:        a.loopCount,
		AlarmMode:        a.mode,
		AlarmModeCounter: a.modeCounter,
		ErrorBackoff:     a.backoff,
		Session:          a.session,
		Goals:            append([]agentconfig.Goal{}, a.goals...),
		GoalsArchive:     append([]agentconfig.Goal{}, a.goalArchive...),
		Outcomes:         outcomes,
		LastReflection:   a.lastReflection,
	}
}

// Hydrate restores state from a previously captured Snapshot. It does
// not start the loop even if LoopRunning was true; the caller decides
// whether to call Start after hydration.
func (a *Actor) Hydrate(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loopCount = s.LoopCount
	a.mode = s.AlarmMode
	if a.mode == "" {
		a.mode = ModeThink
	}
	a.modeCounter = s.AlarmModeCounter
	a.backoff = s.ErrorBackoff
	a.session = s.Session
	a.goals = append([]agentconfig.Goal{}, s.Goals...)
	a.goalArchive = append([]agentconfig.Goal{}, s.GoalsArchive...)
	a.lastReflection = s.LastReflection

	outcomes := make([]toolkit.CallResult, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		outcomes = append(outcomes, toolkit.CallResult{
			Name: o.Name, OK: o.OK, Error: o.Error, DurationMs: o.DurationMs, GoalID: o.GoalID,
		})
	}
	a.outcomes = outcomes
}
