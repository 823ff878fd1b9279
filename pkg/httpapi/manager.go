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


// Package httpapi is the HTTP ingress for the agent network: the per-agent
// admin surface (create/config/identity/profile/character/memory/share/
// inbox/prompt/observations/execute/loop control/trace/WS) plus the
// bearer-token gate and the `/health`/`.well-known` discovery routes.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/atproto-agent-network/agentnet/internal/obslog"
	"github.com/atproto-agent-network/agentnet/pkg/actor"
	"github.com/atproto-agent-network/agentnet/pkg/agentconfig"
	"github.com/atproto-agent-network/agentnet/pkg/apierr"
	"github.com/atproto-agent-network/agentnet/pkg/extension"
	"github.com/atproto-agent-network/agentnet/pkg/identity"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/memory"
	"github.com/atproto-agent-network/agentnet/pkg/modelclient"
	"github.com/atproto-agent-network/agentnet/pkg/relay"
	"github.com/atproto-agent-network/agentnet/pkg/store"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

// ToolsFactory builds the tool registry an agent's cycles dispatch
// against. Supplied by the embedding binary (cmd/agentnetd) since the
// concrete tool set (remember/recall/notify/update_goal plus any domain
// tools) is deployment-specific. It receives the actor's own memory
// store and the actor itself (for the update_goal tool's GoalSetter
// surface), so it must run after the actor exists, not before.
type ToolsFactory func(name string, cfg *agentconfig.AgentConfig, mem *memory.Store, ac *actor.Actor) *toolkit.Registry

// agentEntry bundles one actor with the identity/config the HTTP handlers
// need direct access to beyond what Actor exposes.
type agentEntry struct {
	actor    *actor.Actor
	identity *identity.Identity
	cfg      *agentconfig.AgentConfig
}

// Manager owns every actor in the process plus the shared backends they
// persist through. There is no cross-actor lock on durability; Manager is
// the process-wide directory of those per-actor backing stores, not a
// lock over them.
type Manager struct {
	Records    store.RecordBackend
	Shared     store.SharedBackend
	Directory  store.DirectoryBackend
	State      store.StateBackend
	Relay      *relay.Relay
	Model      modelclient.Client
	Extensions *extension.Registry
	ToolsFor   ToolsFactory
	ProcessCfg *agentconfig.ProcessConfig
	Log        obslog.Logger

	mu     sync.RWMutex
	agents map[string]*agentEntry
}

// NewManager wires a Manager from its dependencies. Log is set to
// obslog.Default().
func NewManager(records store.RecordBackend, shared store.SharedBackend, directory store.DirectoryBackend, state store.StateBackend, rel *relay.Relay, model modelclient.Client, exts *extension.Registry, toolsFor ToolsFactory, cfg *agentconfig.ProcessConfig) *Manager {
	log := obslog.Default()
	return &Manager{
		Records: records, Shared: shared, Directory: directory, State: state,
		Relay: rel, Model: model, Extensions: exts, ToolsFor: toolsFor, ProcessCfg: cfg,
		Log:    log,
		agents: make(map[string]*agentEntry),
	}
}

// CreateAgent mints a fresh identity, binds a memory store to it, builds
// the actor, registers it with the relay directory, and starts its cycle
// loop. Returns apierr.KindConflict if the name is already in use.
func (m *Manager) CreateAgent(ctx context.Context, name string, req CreateAgentRequest) (*identity.Identity, error) {
	m.mu.Lock()
	if _, exists := m.agents[name]; exists {
		m.mu.Unlock()
		return nil, apierr.New(apierr.KindConflict, "agent already exists")
	}
	m.mu.Unlock()

	id, err := identity.New()
	if err != nil {
		return nil, fmt.Errorf("httpapi: generate identity: %w", err)
	}

	cfg := agentconfig.DefaultAgentConfig(name, req.Personality, req.EnabledTools)
	if req.Specialty != "" {
		cfg.Specialty = req.Specialty
	}
	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.FastModel != "" {
		cfg.FastModel = req.FastModel
	}
	if req.LoopIntervalMs > 0 {
		cfg.LoopIntervalMs = req.LoopIntervalMs
	}
	if req.LoopMode != "" {
		cfg.LoopMode = req.LoopMode
	}
	if req.WebhookURL != "" {
		cfg.WebhookURL = req.WebhookURL
	}

	mem := memory.New(m.Records, m.Shared, id)

	ac := actor.New(name, id, mem, toolkit.NewRegistry(), m.Model, cfg)
	ac.Extensions = m.Extensions

	if m.ToolsFor != nil {
		ac.Tools = m.ToolsFor(name, cfg, mem, ac)
	}
	m.wireStatePersistence(ac)

	m.mu.Lock()
	if _, exists := m.agents[name]; exists {
		m.mu.Unlock()
		return nil, apierr.New(apierr.KindConflict, "agent already exists")
	}
	m.agents[name] = &agentEntry{actor: ac, identity: id, cfg: cfg}
	m.mu.Unlock()

	pubKeys, err := id.Export()
	if err != nil {
		return nil, fmt.Errorf("httpapi: export public keys: %w", err)
	}
	if m.Relay != nil {
		if _, err := m.Relay.Register(ctx, relay.RegisterInput{
			Name: name, DID: string(id.DID), PublicKeys: pubKeys,
		}); err != nil {
			return nil, err
		}
	}

	ac.Start(ctx)
	return id, nil
}

// wireStatePersistence hooks ac.OnCycleEnd to persist its Snapshot into
// m.State when a StateBackend is configured. Best-effort: a persistence
// failure is logged, never fatal to the cycle chain.
func (m *Manager) wireStatePersistence(ac *actor.Actor) {
	if m.State == nil {
		return
	}
	name := ac.Name
	did := string(ac.Identity.DID)
	ac.OnCycleEnd = func(snap actor.Snapshot) {
		body, err := json.Marshal(snap)
		if err != nil {
			m.Log.Error("httpapi.state_marshal_failed", obslog.String("agent", name), obslog.Err(err))
			return
		}
		if err := m.State.Upsert(context.Background(), did, name, body, time.Now().UTC()); err != nil {
			m.Log.Error("httpapi.state_persist_failed", obslog.String("agent", name), obslog.Err(err))
		}
	}
}

// StopAll stops every actor's cycle timer, for use during process
// shutdown. In-flight cycles are left to complete; the cycle is
// uncancellable from outside, only Stop removes the next timer.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.agents {
		e.actor.Stop()
	}
}

// get returns the named agent's entry, or apierr.KindNotFound.
func (m *Manager) get(name string) (*agentEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.agents[name]
	if !ok {
		return nil, apierr.New(apierr.KindNotFound, "unknown agent")
	}
	return e, nil
}

// Names returns every registered agent name.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.agents))
	for name := range m.agents {
		out = append(out, name)
	}
	return out
}

// DeliverInbox implements relay.Deliverer over the whole agent set, routed
// by name: posts the record to the named agent's inbox.
func (m *Manager) DeliverInbox(_ context.Context, name string, record lexicon.Record) error {
	e, err := m.get(name)
	if err != nil {
		return err
	}
	e.actor.PushInbox(record)
	return nil
}
