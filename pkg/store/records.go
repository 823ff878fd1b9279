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


package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is a proper sentinel (rather than a wrapped pgx.ErrNoRows)
// so pkg/memory can translate it into apierr.KindNotFound without string
// matching.
var ErrNotFound = errors.New("store: not found")

// Row is the raw persisted shape of an encrypted record.
type Row struct {
	ID           string
	DID          string
	Collection   string
	RKey         string
	Ciphertext   []byte
	EncryptedDEK []byte // nil iff Public
	Nonce        []byte
	Public       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
}

// RecordStore persists the `records` table: parameterized SQL,
// pgx.ErrNoRows translation, and RowsAffected checks for idempotency.
type RecordStore struct {
	db *pgxpool.Pool
}

// Insert creates a new record row.
func (s *RecordStore) Insert(ctx context.Context, row *Row) error {
	query := `
		INSERT INTO records (id, did, collection, rkey, ciphertext, encrypted_dek, nonce, public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		row.ID, row.DID, row.Collection, row.RKey, row.Ciphertext,
		row.EncryptedDEK, row.Nonce, row.Public, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert record: %w", err)
	}
	return nil
}

// Get fetches a row regardless of soft-delete state; callers filter.
func (s *RecordStore) Get(ctx context.Context, id string) (*Row, error) {
	query := `
		SELECT id, did, collection, rkey, ciphertext, encrypted_dek, nonce, public, created_at, updated_at, deleted_at
		FROM records WHERE id = $1
	`
	row := s.db.QueryRow(ctx, query, id)
	var r Row
	err := row.Scan(&r.ID, &r.DID, &r.Collection, &r.RKey, &r.Ciphertext, &r.EncryptedDEK, &r.Nonce, &r.Public, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get record: %w", err)
	}
	return &r, nil
}

// List returns at most limit non-deleted rows for did, newest first,
// optionally filtered by collection.
func (s *RecordStore) List(ctx context.Context, did string, collection string, limit int) ([]*Row, error) {
	var rows pgx.Rows
	var err error
	if collection != "" {
		rows, err = s.db.Query(ctx, `
			SELECT id, did, collection, rkey, ciphertext, encrypted_dek, nonce, public, created_at, updated_at, deleted_at
			FROM records WHERE did = $1 AND collection = $2 AND deleted_at IS NULL
			ORDER BY created_at DESC LIMIT $3
		`, did, collection, limit)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT id, did, collection, rkey, ciphertext, encrypted_dek, nonce, public, created_at, updated_at, deleted_at
			FROM records WHERE did = $1 AND deleted_at IS NULL
			ORDER BY created_at DESC LIMIT $2
		`, did, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.DID, &r.Collection, &r.RKey, &r.Ciphertext, &r.EncryptedDEK, &r.Nonce, &r.Public, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate records: %w", err)
	}
	return out, nil
}

// UpdateCiphertext re-encrypts in place: fresh ciphertext and nonce, the
// wrapped DEK left untouched so outstanding shares stay valid, and sets
// updated_at.
func (s *RecordStore) UpdateCiphertext(ctx context.Context, id string, ciphertext, nonce []byte, updatedAt time.Time) error {
	query := `
		UPDATE records SET ciphertext = $1, nonce = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
	`
	result, err := s.db.Exec(ctx, query, ciphertext, nonce, updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: update record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete sets deleted_at if not already set. Returns false
// (idempotent-safe) if the row was already deleted or absent.
func (s *RecordStore) SoftDelete(ctx context.Context, id string, deletedAt time.Time) (bool, error) {
	query := `UPDATE records SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := s.db.Exec(ctx, query, deletedAt, id)
	if err != nil {
		return false, fmt.Errorf("store: soft delete record: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// SharedRecordStore persists the `shared_records` table.
type SharedRecordStore struct {
	db *pgxpool.Pool
}

// Upsert grants/refreshes a recipient's wrapped DEK for a record,
// idempotent on (record_id, recipient_did).
func (s *SharedRecordStore) Upsert(ctx context.Context, recordID, recipientDID string, encryptedDEK []byte, sharedAt time.Time) error {
	query := `
		INSERT INTO shared_records (record_id, recipient_did, encrypted_dek, shared_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_id, recipient_did) DO UPDATE SET encrypted_dek = $3, shared_at = $4
	`
	_, err := s.db.Exec(ctx, query, recordID, recipientDID, encryptedDEK, sharedAt)
	if err != nil {
		return fmt.Errorf("store: upsert share: %w", err)
	}
	return nil
}

// Get returns the wrapped DEK for recipientDID's share of recordID.
func (s *SharedRecordStore) Get(ctx context.Context, recordID, recipientDID string) ([]byte, error) {
	query := `SELECT encrypted_dek FROM shared_records WHERE record_id = $1 AND recipient_did = $2`
	var dek []byte
	err := s.db.QueryRow(ctx, query, recordID, recipientDID).Scan(&dek)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get share: %w", err)
	}
	return dek, nil
}

// ListForRecipient lists shares for recipientDID joined to their record,
// newest first, optionally filtered by collection.
func (s *SharedRecordStore) ListForRecipient(ctx context.Context, recipientDID, collection string, limit int) ([]*Row, [][]byte, error) {
	var rows pgx.Rows
	var err error
	if collection != "" {
		rows, err = s.db.Query(ctx, `
			SELECT r.id, r.did, r.collection, r.rkey, r.ciphertext, r.encrypted_dek, r.nonce, r.public, r.created_at, r.updated_at, r.deleted_at, sr.encrypted_dek
			FROM shared_records sr JOIN records r ON r.id = sr.record_id
			WHERE sr.recipient_did = $1 AND r.collection = $2 AND r.deleted_at IS NULL
			ORDER BY sr.shared_at DESC LIMIT $3
		`, recipientDID, collection, limit)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT r.id, r.did, r.collection, r.rkey, r.ciphertext, r.encrypted_dek, r.nonce, r.public, r.created_at, r.updated_at, r.deleted_at, sr.encrypted_dek
			FROM shared_records sr JOIN records r ON r.id = sr.record_id
			WHERE sr.recipient_did = $1 AND r.deleted_at IS NULL
			ORDER BY sr.shared_at DESC LIMIT $2
		`, recipientDID, limit)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("store: list shared records: %w", err)
	}
	defer rows.Close()

	var recordRows []*Row
	var deks [][]byte
	for rows.Next() {
		var r Row
		var sharedDEK []byte
		if err := rows.Scan(&r.ID, &r.DID, &r.Collection, &r.RKey, &r.Ciphertext, &r.EncryptedDEK, &r.Nonce, &r.Public, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt, &sharedDEK); err != nil {
			return nil, nil, fmt.Errorf("store: scan shared record: %w", err)
		}
		recordRows = append(recordRows, &r)
		deks = append(deks, sharedDEK)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: iterate shared records: %w", err)
	}
	return recordRows, deks, nil
}

// PurgeOrphaned removes shared_records rows whose owning record was hard
// deleted (never happens via softDelete alone, but a retention job may
// eventually hard-delete).
func (s *SharedRecordStore) PurgeOrphaned(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM shared_records sr
		WHERE NOT EXISTS (SELECT 1 FROM records r WHERE r.id = sr.record_id)
	`
	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("store: purge orphaned shares: %w", err)
	}
	return result.RowsAffected(), nil
}
