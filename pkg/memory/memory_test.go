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


package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atproto-agent-network/agentnet/pkg/identity"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/store"
)

// fakeState is the shared in-memory table backing both fake stores
// below.
type fakeState struct {
	rows   map[string]*store.Row
	shares map[string]map[string][]byte // recordID -> recipientDID -> encryptedDEK
}

// fakeBackend implements store.RecordBackend over fakeState.
type fakeBackend struct{ *fakeState }

// fakeSharedBackend implements store.SharedBackend over the same fakeState.
type fakeSharedBackend struct{ *fakeState }

func newFakeBackend() (*fakeBackend, *fakeSharedBackend) {
	s := &fakeState{rows: map[string]*store.Row{}, shares: map[string]map[string][]byte{}}
	return &fakeBackend{s}, &fakeSharedBackend{s}
}

func (f *fakeBackend) Insert(_ context.Context, row *store.Row) error {
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}

func (f *fakeBackend) Get(_ context.Context, id string) (*store.Row, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeBackend) List(_ context.Context, did, collection string, limit int) ([]*store.Row, error) {
	var out []*store.Row
	for _, row := range f.rows {
		if row.DID != did || row.DeletedAt != nil {
			continue
		}
		if collection != "" && row.Collection != collection {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBackend) UpdateCiphertext(_ context.Context, id string, ciphertext, nonce []byte, updatedAt time.Time) error {
	row, ok := f.rows[id]
	if !ok || row.DeletedAt != nil {
		return store.ErrNotFound
	}
	row.Ciphertext = ciphertext
	row.Nonce = nonce
	row.UpdatedAt = &updatedAt
	return nil
}

func (f *fakeBackend) SoftDelete(_ context.Context, id string, deletedAt time.Time) (bool, error) {
	row, ok := f.rows[id]
	if !ok || row.DeletedAt != nil {
		return false, nil
	}
	row.DeletedAt = &deletedAt
	return true, nil
}

func (f *fakeSharedBackend) Upsert(_ context.Context, recordID, recipientDID string, encryptedDEK []byte, _ time.Time) error {
	if f.shares[recordID] == nil {
		f.shares[recordID] = map[string][]byte{}
	}
	f.shares[recordID][recipientDID] = encryptedDEK
	return nil
}

func (f *fakeSharedBackend) Get(_ context.Context, recordID, recipientDID string) ([]byte, error) {
	m, ok := f.shares[recordID]
	if !ok {
		return nil, store.ErrNotFound
	}
	dek, ok := m[recipientDID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return dek, nil
}

func (f *fakeSharedBackend) ListForRecipient(_ context.Context, recipientDID, collection string, limit int) ([]*store.Row, [][]byte, error) {
	var rows []*store.Row
	var deks [][]byte
	for recordID, m := range f.shares {
		dek, ok := m[recipientDID]
		if !ok {
			continue
		}
		row, ok := f.rows[recordID]
		if !ok || row.DeletedAt != nil {
			continue
		}
		if collection != "" && row.Collection != collection {
			continue
		}
		cp := *row
		rows = append(rows, &cp)
		deks = append(deks, dek)
	}
	if len(rows) > limit {
		rows = rows[:limit]
		deks = deks[:limit]
	}
	return rows, deks, nil
}

func (f *fakeSharedBackend) PurgeOrphaned(_ context.Context) (int64, error) {
	var n int64
	for recordID := range f.shares {
		if _, ok := f.rows[recordID]; !ok {
			delete(f.shares, recordID)
			n++
		}
	}
	return n, nil
}

func newTestIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.New()
	require.NoError(t, err)
	return id
}

func TestStoreRetrieve_RoundTrip(t *testing.T) {
	owner := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	record := lexicon.Record{"$type": "agent.memory.note", "summary": "hi", "createdAt": "2026-02-07T00:00:00.000Z"}
	id, err := m.StoreRecord(context.Background(), record)
	require.NoError(t, err)
	assert.Contains(t, id, "/agent.memory.note/")

	got, err := m.Retrieve(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hi", got["summary"])
}

func TestStoreRecord_RequiresType(t *testing.T) {
	owner := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	_, err := m.StoreRecord(context.Background(), lexicon.Record{"summary": "hi"})
	assert.Error(t, err)
}

func TestRetrieve_ReturnsNilForMissing(t *testing.T) {
	owner := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	got, err := m.Retrieve(context.Background(), "did:cf:x/agent.memory.note/doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdate_PreservesWrappedDEK(t *testing.T) {
	owner := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	record := lexicon.Record{"$type": "agent.memory.note", "summary": "v1", "createdAt": "2026-02-07T00:00:00.000Z"}
	id, err := m.StoreRecord(context.Background(), record)
	require.NoError(t, err)

	before, err := records.Get(context.Background(), id)
	require.NoError(t, err)

	updated := lexicon.Record{"$type": "agent.memory.note", "summary": "v2", "createdAt": "2026-02-07T00:00:00.000Z"}
	require.NoError(t, m.Update(context.Background(), id, updated))

	after, err := records.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, before.EncryptedDEK, after.EncryptedDEK)
	assert.NotEqual(t, before.Nonce, after.Nonce)

	got, err := m.Retrieve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "v2", got["summary"])
}

func TestSoftDelete_Idempotent(t *testing.T) {
	owner := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	id, err := m.StoreRecord(context.Background(), lexicon.Record{"$type": "agent.memory.note", "summary": "x", "createdAt": "now"})
	require.NoError(t, err)

	deleted, err := m.SoftDelete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deletedAgain, err := m.SoftDelete(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deletedAgain)

	got, err := m.Retrieve(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestShareAndRetrieveShared(t *testing.T) {
	owner := newTestIdentity(t)
	recipient := newTestIdentity(t)
	eve := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	id, err := m.StoreRecord(context.Background(), lexicon.Record{"$type": "agent.memory.note", "summary": "secret", "createdAt": "now"})
	require.NoError(t, err)

	recipientKeys, err := recipient.EncryptionKeyPair()
	require.NoError(t, err)
	require.NoError(t, m.Share(context.Background(), id, string(recipient.DID), recipientKeys.PublicBytes()))

	got, err := m.RetrieveShared(context.Background(), id, string(recipient.DID), recipientKeys)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "secret", got["summary"])

	eveKeys, err := eve.EncryptionKeyPair()
	require.NoError(t, err)
	gotEve, err := m.RetrieveShared(context.Background(), id, string(eve.DID), eveKeys)
	require.NoError(t, err)
	assert.Nil(t, gotEve)
}

func TestShare_ForbiddenOnPublicRecord(t *testing.T) {
	owner := newTestIdentity(t)
	recipient := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	id, err := m.StoreRecord(context.Background(), lexicon.Record{"$type": "agent.memory.note", "summary": "x", "createdAt": "now"})
	require.NoError(t, err)
	row, err := records.Get(context.Background(), id)
	require.NoError(t, err)
	row.Public = true
	records.rows[id] = row

	recipientKeys, err := recipient.EncryptionKeyPair()
	require.NoError(t, err)
	err = m.Share(context.Background(), id, string(recipient.DID), recipientKeys.PublicBytes())
	assert.Error(t, err)
}

func TestList_SkipsUndecryptableRows(t *testing.T) {
	owner := newTestIdentity(t)
	records, shared := newFakeBackend()
	m := New(records, shared, owner)

	_, err := m.StoreRecord(context.Background(), lexicon.Record{"$type": "agent.memory.note", "summary": "a", "createdAt": "now"})
	require.NoError(t, err)

	// Inject a corrupt row under the same owner/collection that cannot decrypt.
	records.rows["did:cf:corrupt/agent.memory.note/zzz"] = &store.Row{
		ID: "did:cf:corrupt/agent.memory.note/zzz", DID: string(owner.DID), Collection: "agent.memory.note",
		Ciphertext: []byte("not valid ciphertext"), EncryptedDEK: []byte("not a valid wrapped dek"), Nonce: make([]byte, 12),
	}

	listed, err := m.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
