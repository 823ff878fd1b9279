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


// Package memory implements the per-agent encrypted memory engine:
// per-record envelope encryption, soft delete, DEK re-wrap sharing, and
// listing/filtering, layered over pkg/store persistence and
// pkg/envelope's AEAD/ECDH primitives.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atproto-agent-network/agentnet/internal/metrics"
	"github.com/atproto-agent-network/agentnet/pkg/apierr"
	"github.com/atproto-agent-network/agentnet/pkg/envelope"
	"github.com/atproto-agent-network/agentnet/pkg/identity"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/store"
	"github.com/atproto-agent-network/agentnet/pkg/tid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store is the per-actor encrypted memory engine. One Store is bound to
// a single owning identity; every row it writes belongs to that owner.
// It depends on the store.RecordBackend/SharedBackend interfaces rather
// than the concrete Postgres-backed store so it can be exercised against
// a fake in tests.
type Store struct {
	records store.RecordBackend
	shared  store.SharedBackend
	owner   *identity.Identity
}

// New binds a memory engine to its owning actor's identity.
func New(records store.RecordBackend, shared store.SharedBackend, owner *identity.Identity) *Store {
	return &Store{records: records, shared: shared, owner: owner}
}

// recordID builds the "did/collection/rkey" composite id.
func recordID(did, collection, rkey string) string {
	return fmt.Sprintf("%s/%s/%s", did, collection, rkey)
}

// observeEnvelopeOp records one envelope operation's count, duration, and
// error outcome.
func observeEnvelopeOp(op string, start time.Time, err error) {
	metrics.EnvelopeOperations.WithLabelValues(op).Inc()
	metrics.EnvelopeOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EnvelopeErrors.WithLabelValues(op).Inc()
	}
}

func wrapDEK(dek, recipientPub []byte) ([]byte, error) {
	start := time.Now()
	wrapped, err := envelope.WrapDEK(dek, recipientPub)
	observeEnvelopeOp("wrap_dek", start, err)
	return wrapped, err
}

func unwrapDEK(wrapped []byte, recipient *envelope.X25519KeyPair) ([]byte, error) {
	start := time.Now()
	dek, err := envelope.UnwrapDEK(wrapped, recipient)
	observeEnvelopeOp("unwrap_dek", start, err)
	return dek, err
}

func encrypt(dek, nonce, plaintext []byte) ([]byte, error) {
	start := time.Now()
	ct, err := envelope.Encrypt(dek, nonce, plaintext)
	observeEnvelopeOp("encrypt", start, err)
	return ct, err
}

func decrypt(dek, nonce, ciphertext []byte) ([]byte, error) {
	start := time.Now()
	pt, err := envelope.Decrypt(dek, nonce, ciphertext)
	observeEnvelopeOp("decrypt", start, err)
	return pt, err
}

// StoreRecord persists a new record: requires record.$type non-empty,
// generates rkey/DEK/nonce, encrypts, wraps the DEK for the owner, and
// inserts with public=false.
func (s *Store) StoreRecord(ctx context.Context, record lexicon.Record) (string, error) {
	start := time.Now()
	collection := string(record.TypeOf())
	if collection == "" {
		return "", apierr.New(apierr.KindInvalidRecord, "record.$type is required")
	}

	plaintext, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("memory: marshal record: %w", err)
	}

	dek, err := envelope.GenerateDEK()
	if err != nil {
		return "", fmt.Errorf("memory: generate dek: %w", err)
	}
	nonce, err := envelope.GenerateNonce()
	if err != nil {
		return "", fmt.Errorf("memory: generate nonce: %w", err)
	}
	ciphertext, err := encrypt(dek, nonce, plaintext)
	if err != nil {
		return "", fmt.Errorf("memory: encrypt record: %w", err)
	}

	encKeys, err := s.owner.EncryptionKeyPair()
	if err != nil {
		return "", fmt.Errorf("memory: owner encryption key: %w", err)
	}
	wrappedDEK, err := wrapDEK(dek, encKeys.PublicBytes())
	if err != nil {
		return "", fmt.Errorf("memory: wrap dek: %w", err)
	}

	rkey := tid.New()
	id := recordID(string(s.owner.DID), collection, rkey)

	row := &store.Row{
		ID:           id,
		DID:          string(s.owner.DID),
		Collection:   collection,
		RKey:         rkey,
		Ciphertext:   ciphertext,
		EncryptedDEK: wrappedDEK,
		Nonce:        nonce,
		Public:       false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.records.Insert(ctx, row); err != nil {
		return "", fmt.Errorf("memory: insert record: %w", err)
	}
	metrics.RecordsStored.WithLabelValues(collection).Inc()
	metrics.RecordSize.Observe(float64(len(plaintext)))
	metrics.RecordProcessingDuration.Observe(time.Since(start).Seconds())
	return id, nil
}

// Retrieve returns the decrypted record, or nil (no error) if the row
// is missing, soft-deleted, or fails to decrypt.
func (s *Store) Retrieve(ctx context.Context, id string) (lexicon.Record, error) {
	row, err := s.records.Get(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: get record: %w", err)
	}
	if row.DeletedAt != nil {
		return nil, nil
	}
	return s.decryptRow(row)
}

// decryptRow unwraps the record's DEK using the owner's key and decrypts
// its ciphertext. Any failure (identity-key mismatch, corrupt ciphertext)
// is swallowed into a nil rather than surfaced; callers that need to
// distinguish genuine absence from decrypt failure use decryptRowStrict.
func (s *Store) decryptRow(row *store.Row) (lexicon.Record, error) {
	record, err := s.decryptRowStrict(row)
	if err != nil {
		return nil, nil
	}
	return record, nil
}

func (s *Store) decryptRowStrict(row *store.Row) (lexicon.Record, error) {
	encKeys, err := s.owner.EncryptionKeyPair()
	if err != nil {
		return nil, err
	}
	dek, err := unwrapDEK(row.EncryptedDEK, encKeys)
	if err != nil {
		return nil, err
	}
	plaintext, err := decrypt(dek, row.Nonce, row.Ciphertext)
	if err != nil {
		return nil, err
	}
	var record lexicon.Record
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListOptions configures List and ListShared.
type ListOptions struct {
	Collection string
	Limit      int
}

// List returns at most Limit (default 50, cap 200) newest-first
// non-deleted records; rows that fail to decrypt are skipped, never
// aborting the list.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]lexicon.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.records.List(ctx, string(s.owner.DID), opts.Collection, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: list records: %w", err)
	}
	out := make([]lexicon.Record, 0, len(rows))
	for _, row := range rows {
		record, err := s.decryptRowStrict(row)
		if err != nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// Update re-encrypts a record in place: requires a matching $type, a
// fresh nonce but the same wrapped DEK (so outstanding shares stay
// valid), sets updated_at, and fails when the record is missing or
// deleted.
func (s *Store) Update(ctx context.Context, id string, record lexicon.Record) error {
	row, err := s.records.Get(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return apierr.New(apierr.KindNotFound, "record not found")
		}
		return fmt.Errorf("memory: get record for update: %w", err)
	}
	if row.DeletedAt != nil {
		return apierr.New(apierr.KindNotFound, "record not found")
	}
	if string(record.TypeOf()) != row.Collection {
		return apierr.New(apierr.KindInvalidRecord, "record.$type must match the existing record's collection")
	}

	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("memory: marshal updated record: %w", err)
	}

	encKeys, err := s.owner.EncryptionKeyPair()
	if err != nil {
		return fmt.Errorf("memory: owner encryption key: %w", err)
	}
	dek, err := unwrapDEK(row.EncryptedDEK, encKeys)
	if err != nil {
		return fmt.Errorf("memory: unwrap dek for update: %w", err)
	}
	nonce, err := envelope.GenerateNonce()
	if err != nil {
		return fmt.Errorf("memory: generate nonce: %w", err)
	}
	ciphertext, err := encrypt(dek, nonce, plaintext)
	if err != nil {
		return fmt.Errorf("memory: encrypt updated record: %w", err)
	}

	if err := s.records.UpdateCiphertext(ctx, id, ciphertext, nonce, time.Now().UTC()); err != nil {
		if err == store.ErrNotFound {
			return apierr.New(apierr.KindNotFound, "record not found")
		}
		return fmt.Errorf("memory: update record: %w", err)
	}
	return nil
}

// SoftDelete marks a record deleted. Idempotent-safe: returns false on
// a second call.
func (s *Store) SoftDelete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.records.SoftDelete(ctx, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("memory: soft delete record: %w", err)
	}
	return deleted, nil
}

// Share grants a recipient read access: forbidden on public records;
// unwraps the owner DEK, re-wraps it for recipientPubKey, and upserts the
// shared-record row, idempotent on (record_id, recipient_did).
func (s *Store) Share(ctx context.Context, id, recipientDID string, recipientPubKey []byte) error {
	row, err := s.records.Get(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return apierr.New(apierr.KindNotFound, "record not found")
		}
		return fmt.Errorf("memory: get record for share: %w", err)
	}
	if row.DeletedAt != nil {
		return apierr.New(apierr.KindNotFound, "record not found")
	}
	if row.Public {
		return apierr.New(apierr.KindInvalidRecord, "public records cannot be shared")
	}

	encKeys, err := s.owner.EncryptionKeyPair()
	if err != nil {
		return fmt.Errorf("memory: owner encryption key: %w", err)
	}
	dek, err := unwrapDEK(row.EncryptedDEK, encKeys)
	if err != nil {
		return fmt.Errorf("memory: unwrap dek for share: %w", err)
	}
	wrapped, err := wrapDEK(dek, recipientPubKey)
	if err != nil {
		return fmt.Errorf("memory: wrap dek for recipient: %w", err)
	}
	if err := s.shared.Upsert(ctx, id, recipientDID, wrapped, time.Now().UTC()); err != nil {
		return fmt.Errorf("memory: upsert share: %w", err)
	}
	return nil
}

// RetrieveShared is the recipient-side lookup of a shared record using
// the recipient's own encryption key pair.
func (s *Store) RetrieveShared(ctx context.Context, id string, recipientDID string, recipientKeys *envelope.X25519KeyPair) (lexicon.Record, error) {
	wrappedDEK, err := s.shared.Get(ctx, id, recipientDID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: get share: %w", err)
	}
	row, err := s.records.Get(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: get shared record: %w", err)
	}
	if row.DeletedAt != nil {
		return nil, nil
	}

	dek, err := unwrapDEK(wrappedDEK, recipientKeys)
	if err != nil {
		return nil, nil
	}
	plaintext, err := decrypt(dek, row.Nonce, row.Ciphertext)
	if err != nil {
		return nil, nil
	}
	var record lexicon.Record
	if err := json.Unmarshal(plaintext, &record); err != nil {
		return nil, nil
	}
	return record, nil
}

// ListShared is the recipient-side listing, skipping deleted or
// undecryptable rows.
func (s *Store) ListShared(ctx context.Context, recipientDID string, recipientKeys *envelope.X25519KeyPair, opts ListOptions) ([]lexicon.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, deks, err := s.shared.ListForRecipient(ctx, recipientDID, opts.Collection, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: list shared records: %w", err)
	}
	out := make([]lexicon.Record, 0, len(rows))
	for i, row := range rows {
		if row.DeletedAt != nil {
			continue
		}
		dek, err := unwrapDEK(deks[i], recipientKeys)
		if err != nil {
			continue
		}
		plaintext, err := decrypt(dek, row.Nonce, row.Ciphertext)
		if err != nil {
			continue
		}
		var record lexicon.Record
		if err := json.Unmarshal(plaintext, &record); err != nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// PurgeOrphanedShares sweeps shared_records rows whose owning record no
// longer exists, for the retention job that hard-deletes aged records.
func (s *Store) PurgeOrphanedShares(ctx context.Context) (int64, error) {
	n, err := s.shared.PurgeOrphaned(ctx)
	if err != nil {
		return 0, fmt.Errorf("memory: purge orphaned shares: %w", err)
	}
	return n, nil
}
