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

	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
)

func TestPushInbox_AppearsInPeek(t *testing.T) {
	a := newTestActor(t)
	msg := lexicon.Record{"$type": "agent.comms.message", "sender": "did:cf:x"}
	a.PushInbox(msg)
	require.Len(t, a.PeekInbox(), 1)
	assert.Equal(t, msg, a.PeekInbox()[0])
}

// TestPushInbox_InterruptsDistantTimer checks that the interrupt
// scheduling triggers via the inbox write path rather than NotifyInbox
// directly.
func TestPushInbox_InterruptsDistantTimer(t *testing.T) {
	a := newTestActor(t)
	a.Start(context.Background())
	defer a.Stop()
	a.scheduleNext(45 * time.Second)

	a.PushInbox(lexicon.Record{"$type": "agent.comms.message"})

	a.mu.Lock()
	remaining := time.Until(a.nextFireAt)
	a.mu.Unlock()
	assert.Less(t, remaining, 2*time.Second)
}

func TestPushInbox_CapsBacklogDepth(t *testing.T) {
	a := newTestActor(t)
	for i := 0; i < maxInboxDepth+10; i++ {
		a.PushInbox(lexicon.Record{"$type": "agent.comms.message", "seq": i})
	}
	assert.Len(t, a.PeekInbox(), maxInboxDepth)
}

func TestDeliverInbox_SatisfiesRelayDelivererContract(t *testing.T) {
	a := newTestActor(t)
	err := a.DeliverInbox(context.Background(), a.Name, lexicon.Record{"$type": "agent.comms.message"})
	require.NoError(t, err)
	assert.Len(t, a.PeekInbox(), 1)
}

func TestDrainInbox_ClearsPendingMessages(t *testing.T) {
	a := newTestActor(t)
	a.PushInbox(lexicon.Record{"$type": "agent.comms.message"})
	drained := a.drainInbox()
	require.Len(t, drained, 1)
	assert.Empty(t, a.PeekInbox())
}

// TestObserve_SetsHasInboxFromPendingMessages covers the observe-phase
// wiring between the actor's own inbox and Observation.HasInbox,
// independent of whatever the Environment reports.
func TestObserve_SetsHasInboxFromPendingMessages(t *testing.T) {
	a := newTestActor(t)
	a.PushInbox(lexicon.Record{"$type": "agent.comms.message"})
	obs := a.observe(context.Background(), func(string, error) {})
	assert.True(t, obs.HasInbox)
}
