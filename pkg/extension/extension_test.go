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


package extension

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_DuplicateNameFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Extension{Name: "rpg"}))
	err := r.Register(&Extension{Name: "rpg"})
	assert.ErrorIs(t, err, ErrExists)
}

func TestSelected_SkipsUnregisteredNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Extension{Name: "rpg"}))

	selected := r.Selected([]string{"rpg", "ghost"})
	require.Len(t, selected, 1)
	assert.Equal(t, "rpg", selected[0].Name)
}

func TestClaimTurn_FirstClaimantWins(t *testing.T) {
	claimed := []string{}
	first := &Extension{Name: "a", BuildContext: func(_ context.Context, _ string) (json.RawMessage, error) {
		claimed = append(claimed, "a")
		return json.RawMessage(`{"turn":true}`), nil
	}}
	second := &Extension{Name: "b", BuildContext: func(_ context.Context, _ string) (json.RawMessage, error) {
		claimed = append(claimed, "b")
		return json.RawMessage(`{"turn":true}`), nil
	}}

	winner, out, err := ClaimTurn(context.Background(), "alice", []*Extension{first, second})
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "a", winner.Name)
	assert.JSONEq(t, `{"turn":true}`, string(out))
	assert.Equal(t, []string{"a"}, claimed)
}

func TestClaimTurn_NoneClaim(t *testing.T) {
	ext := &Extension{Name: "a", BuildContext: func(_ context.Context, _ string) (json.RawMessage, error) {
		return nil, nil
	}}
	winner, out, err := ClaimTurn(context.Background(), "alice", []*Extension{ext})
	require.NoError(t, err)
	assert.Nil(t, winner)
	assert.Nil(t, out)
}

func TestAliasResolver_RewritesWithinClaimedExtension(t *testing.T) {
	ext := &Extension{Name: "rpg", Aliases: map[string]string{"game": "rpg_move"}}
	resolve := AliasResolver(ext)
	require.NotNil(t, resolve)
	assert.Equal(t, "rpg_move", resolve("game"))
	assert.Equal(t, "", resolve("unmapped"))
}

func TestAliasResolver_NilForNoClaimant(t *testing.T) {
	assert.Nil(t, AliasResolver(nil))
}

func TestMetrics_RecordLoadAndToolCall(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Extension{Name: "rpg"}))
	r.RecordLoad("rpg")
	r.RecordToolCall("rpg", true)
	r.RecordToolCall("rpg", false)

	m := r.MetricsFor("rpg")
	assert.Equal(t, int64(1), m.Loads)
	assert.Equal(t, int64(2), m.ToolCalls)
	assert.Equal(t, int64(1), m.ToolFailures)
}
