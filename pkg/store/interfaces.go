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
	"encoding/json"
	"time"
)

// RecordBackend is the persistence surface pkg/memory depends on, split
// from its concrete implementation so pkg/memory can be exercised against
// a fake in tests instead of a live Postgres instance.
type RecordBackend interface {
	Insert(ctx context.Context, row *Row) error
	Get(ctx context.Context, id string) (*Row, error)
	List(ctx context.Context, did, collection string, limit int) ([]*Row, error)
	UpdateCiphertext(ctx context.Context, id string, ciphertext, nonce []byte, updatedAt time.Time) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) (bool, error)
}

// SharedBackend is the shared-record persistence surface.
type SharedBackend interface {
	Upsert(ctx context.Context, recordID, recipientDID string, encryptedDEK []byte, sharedAt time.Time) error
	Get(ctx context.Context, recordID, recipientDID string) ([]byte, error)
	ListForRecipient(ctx context.Context, recipientDID, collection string, limit int) ([]*Row, [][]byte, error)
	PurgeOrphaned(ctx context.Context) (int64, error)
}

// DirectoryBackend is the agent-registry persistence surface the relay
// depends on.
type DirectoryBackend interface {
	Insert(ctx context.Context, row *AgentRow) error
	GetByName(ctx context.Context, name string) (*AgentRow, error)
	GetByDID(ctx context.Context, did string) (*AgentRow, error)
	List(ctx context.Context) ([]*AgentRow, error)
}

// StateBackend is the per-actor state persistence surface.
type StateBackend interface {
	Upsert(ctx context.Context, did, name string, state json.RawMessage, updatedAt time.Time) error
	Get(ctx context.Context, did string) (json.RawMessage, error)
	GetByName(ctx context.Context, name string) (json.RawMessage, error)
}

var (
	_ RecordBackend    = (*RecordStore)(nil)
	_ SharedBackend    = (*SharedRecordStore)(nil)
	_ DirectoryBackend = (*AgentDirectoryStore)(nil)
	_ StateBackend     = (*ActorStateStore)(nil)
)
