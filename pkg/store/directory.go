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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentRow is the persisted shape of the relay's `agents` table.
type AgentRow struct {
	Name      string
	DID       string
	Identity  json.RawMessage
	CreatedAt time.Time
}

// AgentDirectoryStore backs the relay's registry and public-key directory:
// name/did keyed lookups over a single table.
type AgentDirectoryStore struct {
	db *pgxpool.Pool
}

// Insert registers a new agent. Returns ErrConflict if the name already
// exists.
func (s *AgentDirectoryStore) Insert(ctx context.Context, row *AgentRow) error {
	query := `INSERT INTO agents (name, did, identity, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.db.Exec(ctx, query, row.Name, row.DID, row.Identity, row.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("store: insert agent: %w", err)
	}
	return nil
}

// GetByName fetches a registration by agent name.
func (s *AgentDirectoryStore) GetByName(ctx context.Context, name string) (*AgentRow, error) {
	query := `SELECT name, did, identity, created_at FROM agents WHERE name = $1`
	var r AgentRow
	err := s.db.QueryRow(ctx, query, name).Scan(&r.Name, &r.DID, &r.Identity, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get agent by name: %w", err)
	}
	return &r, nil
}

// GetByDID fetches a registration by DID, used by the relay's key
// directory and directed-delivery resolution.
func (s *AgentDirectoryStore) GetByDID(ctx context.Context, did string) (*AgentRow, error) {
	query := `SELECT name, did, identity, created_at FROM agents WHERE did = $1`
	var r AgentRow
	err := s.db.QueryRow(ctx, query, did).Scan(&r.Name, &r.DID, &r.Identity, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get agent by did: %w", err)
	}
	return &r, nil
}

// List returns all registrations newest-first.
func (s *AgentDirectoryStore) List(ctx context.Context) ([]*AgentRow, error) {
	query := `SELECT name, did, identity, created_at FROM agents ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list agents: %w", err)
	}
	defer rows.Close()

	var out []*AgentRow
	for rows.Next() {
		var r AgentRow
		if err := rows.Scan(&r.Name, &r.DID, &r.Identity, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan agent: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate agents: %w", err)
	}
	return out, nil
}

// ErrConflict signals a duplicate agent name.
var ErrConflict = errors.New("store: conflict")

func isUniqueViolation(err error) bool {
	// pgx surfaces unique-violations as *pgconn.PgError with Code "23505";
	// a message substring check is adequate here since this path only ever
	// sees that one class of constraint violation.
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key"))
}

// ActorStateStore persists the per-actor key/value state blob (identity,
// config, session, sessionId, loopRunning, and the rest of an actor's
// persisted fields) as one JSONB document keyed by DID.
type ActorStateStore struct {
	db *pgxpool.Pool
}

// Upsert writes the full state blob for did.
func (s *ActorStateStore) Upsert(ctx context.Context, did, name string, state json.RawMessage, updatedAt time.Time) error {
	query := `
		INSERT INTO actor_state (did, name, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (did) DO UPDATE SET state = $3, updated_at = $4
	`
	_, err := s.db.Exec(ctx, query, did, name, state, updatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert actor state: %w", err)
	}
	return nil
}

// Get fetches the state blob for did.
func (s *ActorStateStore) Get(ctx context.Context, did string) (json.RawMessage, error) {
	query := `SELECT state FROM actor_state WHERE did = $1`
	var raw json.RawMessage
	err := s.db.QueryRow(ctx, query, did).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get actor state: %w", err)
	}
	return raw, nil
}

// GetByName fetches the state blob by actor name, used at HTTP routing
// time before the DID is known to the caller.
func (s *ActorStateStore) GetByName(ctx context.Context, name string) (json.RawMessage, error) {
	query := `SELECT state FROM actor_state WHERE name = $1`
	var raw json.RawMessage
	err := s.db.QueryRow(ctx, query, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get actor state by name: %w", err)
	}
	return raw, nil
}
