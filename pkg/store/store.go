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


// Package store is the Postgres persistence layer underlying the encrypted
// memory engine (pkg/memory) and the relay's agent directory: a
// *pgxpool.Pool wrapped by narrow per-table stores for the record,
// shared-record, agent, and actor-state tables.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds the Postgres connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store bundles the pool and every sub-store this module persists through.
type Store struct {
	pool *pgxpool.Pool

	Records   *RecordStore
	Shared    *SharedRecordStore
	Directory *AgentDirectoryStore
	State     *ActorStateStore
}

// New opens a connection pool and pings it.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &Store{pool: pool}
	s.Records = &RecordStore{db: pool}
	s.Shared = &SharedRecordStore{db: pool}
	s.Directory = &AgentDirectoryStore{db: pool}
	s.State = &ActorStateStore{db: pool}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Schema is the DDL this module expects to already exist, applied by an
// operator migration step; this module never runs DDL itself.
const Schema = `
CREATE TABLE IF NOT EXISTS agents (
	name       TEXT PRIMARY KEY,
	did        TEXT UNIQUE NOT NULL,
	identity   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id            TEXT PRIMARY KEY,
	did           TEXT NOT NULL,
	collection    TEXT NOT NULL,
	rkey          TEXT NOT NULL,
	ciphertext    BYTEA NOT NULL,
	encrypted_dek BYTEA,
	nonce         BYTEA NOT NULL,
	public        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ,
	deleted_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS records_did_collection_idx ON records (did, collection, created_at DESC);

CREATE TABLE IF NOT EXISTS shared_records (
	record_id     TEXT NOT NULL REFERENCES records(id),
	recipient_did TEXT NOT NULL,
	encrypted_dek BYTEA NOT NULL,
	shared_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (record_id, recipient_did)
);

CREATE TABLE IF NOT EXISTS actor_state (
	did   TEXT PRIMARY KEY,
	name  TEXT UNIQUE NOT NULL,
	state JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
