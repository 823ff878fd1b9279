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


package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorilla/websocket"

	"github.com/atproto-agent-network/agentnet/internal/obslog"
	"github.com/atproto-agent-network/agentnet/pkg/apierr"
	"github.com/atproto-agent-network/agentnet/pkg/identity"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/store"
)

type fakeDirectory struct {
	byName map[string]*store.AgentRow
	byDID  map[string]*store.AgentRow
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byName: map[string]*store.AgentRow{}, byDID: map[string]*store.AgentRow{}}
}

func (f *fakeDirectory) Insert(_ context.Context, row *store.AgentRow) error {
	if _, exists := f.byName[row.Name]; exists {
		return store.ErrConflict
	}
	cp := *row
	f.byName[row.Name] = &cp
	f.byDID[row.DID] = &cp
	return nil
}

func (f *fakeDirectory) GetByName(_ context.Context, name string) (*store.AgentRow, error) {
	row, ok := f.byName[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return row, nil
}

func (f *fakeDirectory) GetByDID(_ context.Context, did string) (*store.AgentRow, error) {
	row, ok := f.byDID[did]
	if !ok {
		return nil, store.ErrNotFound
	}
	return row, nil
}

func (f *fakeDirectory) List(_ context.Context) ([]*store.AgentRow, error) {
	var out []*store.AgentRow
	for _, row := range f.byName {
		out = append(out, row)
	}
	return out, nil
}

type fakeDeliverer struct {
	delivered []lexicon.Record
	failWith  error
}

func (f *fakeDeliverer) DeliverInbox(_ context.Context, agentName string, record lexicon.Record) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.delivered = append(f.delivered, record)
	return nil
}

func testKeys(t *testing.T) identity.PublicKeys {
	t.Helper()
	id, err := identity.New()
	require.NoError(t, err)
	keys, err := id.Export()
	require.NoError(t, err)
	return keys
}

func newTestRelay(t *testing.T) (*Relay, *fakeDirectory, *fakeDeliverer) {
	t.Helper()
	dir := newFakeDirectory()
	deliver := &fakeDeliverer{}
	r := New(dir, deliver, obslog.Default())
	return r, dir, deliver
}

func TestRegister_StoresAndReturnsOK(t *testing.T) {
	r, _, _ := newTestRelay(t)
	out, err := r.Register(context.Background(), RegisterInput{
		Name: "alice", DID: "did:cf:abc", PublicKeys: testKeys(t),
	})
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "did:cf:abc", out.DID)
}

// TestRegister_DuplicateNameReturnsConflict: re-registering a taken
// name conflicts.
func TestRegister_DuplicateNameReturnsConflict(t *testing.T) {
	r, _, _ := newTestRelay(t)
	in := RegisterInput{Name: "alice", DID: "did:cf:abc", PublicKeys: testKeys(t)}
	_, err := r.Register(context.Background(), in)
	require.NoError(t, err)

	_, err = r.Register(context.Background(), in)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindConflict, apiErr.Kind)
}

func TestRegister_MissingFieldsRejected(t *testing.T) {
	r, _, _ := newTestRelay(t)
	_, err := r.Register(context.Background(), RegisterInput{Name: "alice"})
	require.Error(t, err)
	apiErr, _ := apierr.As(err)
	assert.Equal(t, apierr.KindInvalidJSON, apiErr.Kind)
}

func TestKeys_ReturnsPublicKeysForKnownDID(t *testing.T) {
	r, _, _ := newTestRelay(t)
	keys := testKeys(t)
	_, err := r.Register(context.Background(), RegisterInput{Name: "alice", DID: "did:cf:abc", PublicKeys: keys})
	require.NoError(t, err)

	payload, err := r.Keys(context.Background(), "did:cf:abc")
	require.NoError(t, err)
	assert.Equal(t, "did:cf:abc", payload.DID)
	assert.Equal(t, keys, payload.PublicKeys)
}

func TestKeys_UnknownDIDReturnsNotFound(t *testing.T) {
	r, _, _ := newTestRelay(t)
	_, err := r.Keys(context.Background(), "did:cf:missing")
	require.Error(t, err)
	apiErr, _ := apierr.As(err)
	assert.Equal(t, apierr.KindNotFound, apiErr.Kind)
}

func TestFilter_WildcardMatchesAnything(t *testing.T) {
	f := Filter{Collections: []string{"*"}, DIDs: []string{"*"}}
	assert.True(t, f.matches(Event{Collection: "agent.comms.message", AgentDID: "did:cf:x"}))
}

func TestFilter_ExactMatchRequiresBothFields(t *testing.T) {
	f := Filter{Collections: []string{"agent.comms.message"}, DIDs: []string{"did:cf:x"}}
	assert.True(t, f.matches(Event{Collection: "agent.comms.message", AgentDID: "did:cf:x"}))
	assert.False(t, f.matches(Event{Collection: "agent.comms.message", AgentDID: "did:cf:y"}))
	assert.False(t, f.matches(Event{Collection: "agent.memory.note", AgentDID: "did:cf:x"}))
}

func TestFilterFromQuery_SplitsCommaJoinedParams(t *testing.T) {
	f := FilterFromQuery(map[string][]string{
		"collections": {"agent.comms.message,agent.memory.note"},
		"dids":        {"did:cf:a", "did:cf:b"},
	})
	assert.ElementsMatch(t, []string{"agent.comms.message", "agent.memory.note"}, f.Collections)
	assert.ElementsMatch(t, []string{"did:cf:a", "did:cf:b"}, f.DIDs)
}

// TestEmit_OnlyMatchingSubscribersReceive exercises Emit's fanout against
// directly-injected subscribers (bypassing the WS upgrade, which needs a
// live HTTP connection).
func TestEmit_OnlyMatchingSubscribersReceive(t *testing.T) {
	r, _, _ := newTestRelay(t)
	matching := &subscriber{filter: Filter{Collections: []string{"*"}, DIDs: []string{"did:cf:a"}}, send: make(chan Event, 1)}
	nonMatching := &subscriber{filter: Filter{Collections: []string{"*"}, DIDs: []string{"did:cf:b"}}, send: make(chan Event, 1)}
	r.mu.Lock()
	r.subs[new(websocket.Conn)] = matching
	r.subs[new(websocket.Conn)] = nonMatching
	r.mu.Unlock()

	delivered := r.Emit(Event{Collection: "agent.comms.message", AgentDID: "did:cf:a"})
	assert.Equal(t, 1, delivered)

	select {
	case ev := <-matching.send:
		assert.Equal(t, "did:cf:a", ev.AgentDID)
	default:
		t.Fatal("expected matching subscriber to receive the event")
	}
	select {
	case <-nonMatching.send:
		t.Fatal("non-matching subscriber should not receive the event")
	default:
	}
}

func TestEmit_FullSendBufferIsSkippedNotBlocked(t *testing.T) {
	r, _, _ := newTestRelay(t)
	full := &subscriber{filter: Filter{Collections: []string{"*"}, DIDs: []string{"*"}}, send: make(chan Event)} // unbuffered, no reader
	r.mu.Lock()
	r.subs[new(websocket.Conn)] = full
	r.mu.Unlock()

	done := make(chan int, 1)
	go func() { done <- r.Emit(Event{Collection: "x", AgentDID: "y"}) }()
	select {
	case delivered := <-done:
		assert.Equal(t, 0, delivered)
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber buffer")
	}
}

func TestDeliverMessage_ValidatesLexiconType(t *testing.T) {
	r, dir, _ := newTestRelay(t)
	_ = dir.Insert(context.Background(), &store.AgentRow{Name: "bob", DID: "did:cf:bob"})

	err := r.DeliverMessage(context.Background(), "bob", lexicon.Record{"$type": "agent.memory.note"})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindInvalidRecord, apiErr.Kind)
}

func TestDeliverMessage_UnknownRecipientNotFound(t *testing.T) {
	r, _, _ := newTestRelay(t)
	msg := validCommsMessage()
	err := r.DeliverMessage(context.Background(), "ghost", msg)
	require.Error(t, err)
	apiErr, _ := apierr.As(err)
	assert.Equal(t, apierr.KindNotFound, apiErr.Kind)
}

// TestDeliverMessage_DeliversAndEmitsFanout: a directed delivery both
// posts to the recipient's inbox and emits a matching fanout event.
func TestDeliverMessage_DeliversAndEmitsFanout(t *testing.T) {
	r, dir, deliver := newTestRelay(t)
	require.NoError(t, dir.Insert(context.Background(), &store.AgentRow{Name: "bob", DID: "did:cf:bob"}))

	sub := &subscriber{filter: Filter{Collections: []string{"*"}, DIDs: []string{"*"}}, send: make(chan Event, 1)}
	r.mu.Lock()
	r.subs[new(websocket.Conn)] = sub
	r.mu.Unlock()

	msg := validCommsMessage()
	require.NoError(t, r.DeliverMessage(context.Background(), "bob", msg))
	require.Len(t, deliver.delivered, 1)

	select {
	case ev := <-sub.send:
		assert.Equal(t, "did:cf:bob", ev.AgentDID)
		assert.Equal(t, string(lexicon.TypeCommsMessage), ev.Collection)
	default:
		t.Fatal("expected a fanout event for the directed delivery")
	}
}

func validCommsMessage() lexicon.Record {
	return lexicon.Record{
		"$type":     "agent.comms.message",
		"sender":    "did:cf:alice",
		"recipient": "did:cf:bob",
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"content":   map[string]interface{}{"kind": "text", "text": "hi"},
	}
}

func TestWellKnownDocument_ListsAllLexiconTypes(t *testing.T) {
	doc := WellKnownDocument("did:cf:relay")
	assert.Equal(t, "did:cf:relay", doc.RelayDID)
	assert.Len(t, doc.LexiconTypes, 7)
}
