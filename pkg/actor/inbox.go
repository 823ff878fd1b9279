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

	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
)

const maxInboxDepth = 200

// PushInbox appends a validated agent.comms.message to the actor's inbox
// and interrupts the pending timer. Depth is capped so an unread
// backlog cannot grow unbounded; the oldest messages are dropped first.
func (a *Actor) PushInbox(msg lexicon.Record) {
	a.mu.Lock()
	a.inbox = append(a.inbox, msg)
	if len(a.inbox) > maxInboxDepth {
		a.inbox = a.inbox[len(a.inbox)-maxInboxDepth:]
	}
	a.mu.Unlock()

	a.NotifyInbox()
}

// DeliverInbox implements relay.Deliverer so the relay can address this
// actor directly by name.
func (a *Actor) DeliverInbox(_ context.Context, _ string, record lexicon.Record) error {
	a.PushInbox(record)
	return nil
}

// PeekInbox returns a snapshot of pending inbox messages without
// consuming them, used by the GET inbox route.
func (a *Actor) PeekInbox() []lexicon.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]lexicon.Record{}, a.inbox...)
}

// drainInbox consumes and clears all pending inbox messages, called once
// per think cycle so the same message is not re-surfaced indefinitely.
func (a *Actor) drainInbox() []lexicon.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	msgs := a.inbox
	a.inbox = nil
	return msgs
}
