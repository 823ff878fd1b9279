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


package toolkit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name: name,
		Execute: func(_ context.Context, _ string, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		},
	}
}

func TestDispatch_AllowlistBlocksUnlistedTool(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("remember"))
	reg.Register(echoTool("recall"))

	report := reg.Dispatch(context.Background(), []Call{{ID: "1", Name: "recall"}}, DispatchOptions{EnabledTools: []string{"remember"}})
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].OK)
	assert.Equal(t, "Tool not enabled", report.Results[0].Error)
}

func TestDispatch_AliasRoutesIntoAllowlist(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("rpg"))

	alias := func(name string) string {
		if name == "game" {
			return "rpg"
		}
		return ""
	}
	report := reg.Dispatch(context.Background(), []Call{{ID: "1", Name: "game"}}, DispatchOptions{EnabledTools: []string{"rpg"}, Alias: alias})
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].OK)
}

func TestDispatch_CapTruncatesOverflow(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("ping"))

	var calls []Call
	for i := 0; i < 15; i++ {
		calls = append(calls, Call{ID: "x", Name: "ping"})
	}
	report := reg.Dispatch(context.Background(), calls, DispatchOptions{EnabledTools: []string{"ping"}})
	assert.True(t, report.Truncated)
	assert.Len(t, report.Results, maxCallsPerCycle)
}

func TestDispatch_CapabilityGuard(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Tool{
		Name:         "game-master",
		RequiresRole: func(roles []string) bool { return contains(roles, "gm") },
		Execute: func(_ context.Context, _ string, args json.RawMessage) (json.RawMessage, error) {
			return args, nil
		},
	})

	report := reg.Dispatch(context.Background(), []Call{{ID: "1", Name: "game-master"}}, DispatchOptions{
		EnabledTools: []string{"game-master"}, ActorRoles: []string{"player"},
	})
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].OK)
	assert.Equal(t, "tool not available", report.Results[0].Error)

	reportOK := reg.Dispatch(context.Background(), []Call{{ID: "1", Name: "game-master"}}, DispatchOptions{
		EnabledTools: []string{"game-master"}, ActorRoles: []string{"gm"},
	})
	assert.True(t, reportOK.Results[0].OK)
}

func TestDispatch_ToolErrorDoesNotAbortPhase(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Tool{
		Name: "flaky",
		Execute: func(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
			return nil, assertErr
		},
	})
	reg.Register(echoTool("stable"))

	report := reg.Dispatch(context.Background(), []Call{
		{ID: "1", Name: "flaky"}, {ID: "2", Name: "stable"},
	}, DispatchOptions{EnabledTools: []string{"flaky", "stable"}})

	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].OK)
	assert.True(t, report.Results[1].OK)
}

var assertErr = assertError("boom")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestDispatch_PerCallTimeout(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Tool{
		Name: "slow",
		Execute: func(ctx context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
			select {
			case <-time.After(50 * time.Millisecond):
				return json.RawMessage(`{}`), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	report := reg.Dispatch(ctx, []Call{{ID: "1", Name: "slow"}}, DispatchOptions{EnabledTools: []string{"slow"}})
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].OK)
}

func TestAutoPlayInjection(t *testing.T) {
	existing := []Call{{ID: "m", Name: "model-call"}}

	single := AutoPlayInjection(existing, []Call{{ID: "a", Name: "a"}})
	assert.Equal(t, []Call{existing[0], {ID: "a", Name: "a"}}, single)

	multi := AutoPlayInjection(existing, []Call{{ID: "a", Name: "a"}, {ID: "b", Name: "b"}, {ID: "c", Name: "c"}})
	require.Len(t, multi, 4)
	assert.Equal(t, "a", multi[0].Name)
	assert.Equal(t, "b", multi[1].Name)
	assert.Equal(t, "model-call", multi[2].Name)
	assert.Equal(t, "c", multi[3].Name)
}

func TestExtractGoalID_FallsBackToResult(t *testing.T) {
	args := json.RawMessage(`{}`)
	result := json.RawMessage(`{"goalId":"g1"}`)
	assert.Equal(t, "g1", extractGoalID(args, result))

	argsWithGoal := json.RawMessage(`{"goalId":"g2"}`)
	assert.Equal(t, "g2", extractGoalID(argsWithGoal, result))
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
