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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atproto-agent-network/agentnet/pkg/agentconfig"
	"github.com/atproto-agent-network/agentnet/pkg/identity"
	"github.com/atproto-agent-network/agentnet/pkg/memory"
	"github.com/atproto-agent-network/agentnet/pkg/modelclient"
	"github.com/atproto-agent-network/agentnet/pkg/store"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

// fakeRecordBackend/fakeSharedBackend are minimal in-memory stand-ins for
// store.RecordBackend/SharedBackend, in the style of pkg/memory's test
// fakes, sized down to what the session-archive path in think() needs.
type fakeRecordBackend struct{ rows map[string]*store.Row }

func newFakeRecordBackend() *fakeRecordBackend {
	return &fakeRecordBackend{rows: map[string]*store.Row{}}
}

func (f *fakeRecordBackend) Insert(_ context.Context, row *store.Row) error {
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}
func (f *fakeRecordBackend) Get(_ context.Context, id string) (*store.Row, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *row
	return &cp, nil
}
func (f *fakeRecordBackend) List(_ context.Context, did, collection string, limit int) ([]*store.Row, error) {
	return nil, nil
}
func (f *fakeRecordBackend) UpdateCiphertext(_ context.Context, id string, ciphertext, nonce []byte, updatedAt time.Time) error {
	return store.ErrNotFound
}
func (f *fakeRecordBackend) SoftDelete(_ context.Context, id string, deletedAt time.Time) (bool, error) {
	return false, nil
}

type fakeSharedBackend struct{}

func (fakeSharedBackend) Upsert(context.Context, string, string, []byte, time.Time) error {
	return nil
}
func (fakeSharedBackend) Get(context.Context, string, string) ([]byte, error) {
	return nil, store.ErrNotFound
}
func (fakeSharedBackend) ListForRecipient(context.Context, string, string, int) ([]*store.Row, [][]byte, error) {
	return nil, nil, nil
}
func (fakeSharedBackend) PurgeOrphaned(context.Context) (int64, error) { return 0, nil }

// fakeModel is a deterministic modelclient.Client that never requests
// tool calls, so RunLoop returns on its first Generate call.
type fakeModel struct{ calls int }

func (f *fakeModel) Generate(_ context.Context, model, system string, tools []modelclient.ToolDef, history []modelclient.Message) (modelclient.GenerateResponse, error) {
	f.calls++
	return modelclient.GenerateResponse{Text: "ok"}, nil
}

// fakeEnv is a no-op Environment used to exercise the think-mode branch
// without a real game/tool surface.
type fakeEnv struct {
	reason   IntervalReason
	autoPlay []toolkit.Call
	observeN int
}

func (e *fakeEnv) Observe(context.Context) (Observation, error) {
	e.observeN++
	return Observation{IntervalReason: e.reason}, nil
}
func (e *fakeEnv) AutoPlay(context.Context) ([]toolkit.Call, error) { return e.autoPlay, nil }

func newTestActor(t *testing.T) *Actor {
	t.Helper()
	id, err := identity.New()
	require.NoError(t, err)
	records := newFakeRecordBackend()
	mem := memory.New(records, fakeSharedBackend{}, id)
	cfg := agentconfig.DefaultAgentConfig("alice", "You are Alice.", []string{"remember"})
	a := New("alice", id, mem, toolkit.NewRegistry(), &fakeModel{}, cfg)
	return a
}

func TestActor_StartSetsRunningAndSchedulesTimer(t *testing.T) {
	a := newTestActor(t)
	assert.False(t, a.IsRunning())
	a.Start(context.Background())
	defer a.Stop()
	assert.True(t, a.IsRunning())
	a.mu.Lock()
	timer := a.timer
	a.mu.Unlock()
	assert.NotNil(t, timer)
}

func TestActor_StopClearsRunning(t *testing.T) {
	a := newTestActor(t)
	a.Start(context.Background())
	a.Stop()
	assert.False(t, a.IsRunning())
}

func TestActor_StartIsIdempotent(t *testing.T) {
	a := newTestActor(t)
	a.Start(context.Background())
	defer a.Stop()
	a.Start(context.Background()) // should not panic or double-launch
	assert.True(t, a.IsRunning())
}

// TestActor_NotifyInboxShortensDistantTimer checks that a timer
// scheduled far in the future is rewritten to ~1s.
func TestActor_NotifyInboxShortensDistantTimer(t *testing.T) {
	a := newTestActor(t)
	a.Start(context.Background())
	defer a.Stop()

	a.scheduleNext(45 * time.Second)
	a.NotifyInbox()

	a.mu.Lock()
	remaining := time.Until(a.nextFireAt)
	a.mu.Unlock()
	assert.Less(t, remaining, 2*time.Second)
}

// TestActor_NotifyInboxLeavesNearTimerAlone covers the "<=10s: leave it"
// half of the same guarantee.
func TestActor_NotifyInboxLeavesNearTimerAlone(t *testing.T) {
	a := newTestActor(t)
	a.Start(context.Background())
	defer a.Stop()

	a.scheduleNext(8 * time.Second)
	before := a.nextFireAt
	a.NotifyInbox()

	a.mu.Lock()
	after := a.nextFireAt
	a.mu.Unlock()
	assert.Equal(t, before, after)
}

func TestActor_NotifyInboxNoOpWhenStopped(t *testing.T) {
	a := newTestActor(t)
	a.scheduleNext(45 * time.Second)
	a.NotifyInbox() // running=false: must not touch the timer
	a.mu.Lock()
	remaining := time.Until(a.nextFireAt)
	a.mu.Unlock()
	assert.Greater(t, remaining, 10*time.Second)
}

// TestActor_RunCycleSkippedWhenStopped covers cycle-chain step 1.
func TestActor_RunCycleSkippedWhenStopped(t *testing.T) {
	a := newTestActor(t)
	a.RunCycle(context.Background()) // running=false
	assert.Equal(t, 0, a.loopCount)
}

// TestActor_RunCycleAdvancesModeAndLoopCount exercises one full think
// cycle against fakes and confirms the cycle-chain's bookkeeping runs.
func TestActor_RunCycleAdvancesModeAndLoopCount(t *testing.T) {
	a := newTestActor(t)
	a.Env = &fakeEnv{}
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	a.RunCycle(context.Background())

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, 1, a.loopCount)
	assert.Equal(t, ModeThink, a.mode)
	assert.Equal(t, 1, a.modeCounter)
}

// TestActor_IntervalReasonMyTurnCapsNextInterval: a my_turn hint caps
// the next interval at 15s.
func TestActor_IntervalReasonMyTurnCapsNextInterval(t *testing.T) {
	a := newTestActor(t)
	next := a.nextInterval(Observation{IntervalReason: ReasonMyTurn}, map[Category]bool{}, time.Minute)
	assert.Equal(t, myTurnCap, next)
}

func TestActor_IntervalReasonWaitingCapsNextInterval(t *testing.T) {
	a := newTestActor(t)
	next := a.nextInterval(Observation{IntervalReason: ReasonWaiting}, map[Category]bool{}, time.Minute)
	assert.Equal(t, waitingCap, next)
}

func TestActor_NoReasonUsesConfiguredInterval(t *testing.T) {
	a := newTestActor(t)
	next := a.nextInterval(Observation{}, map[Category]bool{}, 20*time.Second)
	assert.Equal(t, 20*time.Second, next)
}

func TestActor_ErrorCategoryOverridesIntervalReason(t *testing.T) {
	a := newTestActor(t)
	next := a.nextInterval(Observation{IntervalReason: ReasonMyTurn}, map[Category]bool{CategoryTransient: true}, time.Minute)
	assert.Equal(t, 15*time.Second, next)
}

// TestActor_FirstCycleWithZeroExtensionsShowsHintOnce: the
// extensibility hint is injected once, on the first cycle with zero
// extensions, and never again.
func TestActor_FirstCycleWithZeroExtensionsShowsHintOnce(t *testing.T) {
	a := newTestActor(t)
	a.maybeReloadExtensions()
	a.mu.Lock()
	hint := a.pendingHint
	shown := a.extensionsHintShown
	a.mu.Unlock()
	assert.Equal(t, extensibilityFirstRunHint, hint)
	assert.True(t, shown)

	a.mu.Lock()
	a.pendingHint = ""
	a.mu.Unlock()
	a.maybeReloadExtensions()
	a.mu.Lock()
	hint2 := a.pendingHint
	a.mu.Unlock()
	assert.Empty(t, hint2)
}

func TestActor_SetGoalsReplacesActiveList(t *testing.T) {
	a := newTestActor(t)
	goals := []agentconfig.Goal{{ID: "g1", Description: "ship it"}}
	a.SetGoals(goals)
	assert.Equal(t, goals, a.snapshotGoals())
}

// TestParseGoalsUpdate covers the reflection response's optional embedded
// goals list: a well-formed JSON array replaces the goal set, anything
// else is ignored.
func TestParseGoalsUpdate(t *testing.T) {
	text := `Work went well. Updated goals: [{"id":"g1","description":"finish the report","priority":1,"status":"in_progress","progress":0.5,"createdAt":"2026-02-07T00:00:00Z"}]`
	goals := parseGoalsUpdate(text)
	require.Len(t, goals, 1)
	assert.Equal(t, "g1", goals[0].ID)
	assert.Equal(t, agentconfig.GoalInProgress, goals[0].Status)

	assert.Nil(t, parseGoalsUpdate("no goals here"))
	assert.Nil(t, parseGoalsUpdate("malformed [1, 2, 3]"))
	assert.Nil(t, parseGoalsUpdate(`[{"description":"missing id"}]`))
}

// TestHousekeeping_PrunesAgedAndOverflowCompletions covers the
// housekeeping mode's goal pruning: completions older than 24h and
// completions beyond maxCompletedGoals both move to the goals archive.
func TestHousekeeping_PrunesAgedAndOverflowCompletions(t *testing.T) {
	a := newTestActor(t)
	cfg := agentconfig.DefaultAgentConfig("alice", "p", nil)
	cfg.MaxCompletedGoals = 1

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	newer := time.Now().Add(-time.Minute)
	a.SetGoals([]agentconfig.Goal{
		{ID: "aged", Status: agentconfig.GoalCompleted, CompletedAt: &old},
		{ID: "older-overflow", Status: agentconfig.GoalCompleted, CompletedAt: &recent},
		{ID: "kept", Status: agentconfig.GoalCompleted, CompletedAt: &newer},
		{ID: "active", Status: agentconfig.GoalInProgress},
	})

	a.runHousekeeping(cfg)

	remaining := a.snapshotGoals()
	require.Len(t, remaining, 2)
	assert.Equal(t, "kept", remaining[0].ID)
	assert.Equal(t, "active", remaining[1].ID)

	a.mu.Lock()
	archived := len(a.goalArchive)
	a.mu.Unlock()
	assert.Equal(t, 2, archived)
}
