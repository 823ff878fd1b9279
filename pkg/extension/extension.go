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


// Package extension implements the per-agent extension contract: a
// registered-plugin model (compile-time registration with per-agent
// selection) rather than dynamic code loading.
//
// An extension is a compile-time Go package that registers itself by
// name; an agent selects which registered extensions apply to it by name
// in its config. A Registry value holds a map guarded by one mutex
// and is shared by the process, supporting any number of named extensions per process with any subset
// selected per agent.
package extension

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

// ErrExists is returned by Register when the name is already taken.
var ErrExists = errors.New("extension: already registered")

// ErrNotFound is returned when a requested extension name isn't registered.
var ErrNotFound = errors.New("extension: not found")

// BuildContext reports an environment's per-cycle context. Before
// dispatch, at most one environment claims the turn by returning a
// non-empty context; a nil or empty return means this extension does not
// claim the turn.
type BuildContext func(ctx context.Context, agentName string) (json.RawMessage, error)

// AutoPlay returns injected calls when no action was taken by the model,
// used only when this extension's BuildContext claimed the turn.
type AutoPlay func(ctx context.Context, agentName string) ([]toolkit.Call, error)

// Extension is one registered per-agent environment/tool bundle: a name,
// the tools it contributes, an optional turn-claiming BuildContext/
// AutoPlay pair, and an alias table of well-known alias pairs rewritten
// to the environment's native tool name.
type Extension struct {
	Name         string
	Tools        []*toolkit.Tool
	BuildContext BuildContext
	AutoPlay     AutoPlay
	Aliases      map[string]string // e.g. {"rpg": "game"}

	// PhaseWhitelist, when non-empty, narrows the tool names exposed to
	// the model while this extension holds the turn. The whitelist wins
	// over the agent's broader allowlist.
	PhaseWhitelist []string
}

// Metrics is the per-extension counter set persisted under
// "extensionMetrics:<name>".
type Metrics struct {
	Loads        int64 `json:"loads"`
	ToolCalls    int64 `json:"toolCalls"`
	ToolFailures int64 `json:"toolFailures"`
}

// Registry is the process-wide extension registry. One Registry is
// shared by every actor in the process; per-agent selection happens at
// lookup time via Selected.
type Registry struct {
	mu      sync.RWMutex
	exts    map[string]*Extension
	metrics map[string]*Metrics
}

// NewRegistry returns an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{exts: make(map[string]*Extension), metrics: make(map[string]*Metrics)}
}

// Register adds ext under its Name, failing if the name is taken.
func (r *Registry) Register(ext *Extension) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.exts[ext.Name]; exists {
		return fmt.Errorf("%w: %s", ErrExists, ext.Name)
	}
	r.exts[ext.Name] = ext
	r.metrics[ext.Name] = &Metrics{}
	return nil
}

// Get looks up a registered extension by name.
func (r *Registry) Get(name string) (*Extension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.exts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return ext, nil
}

// Names returns every registered extension name, sorted for deterministic
// reload ordering.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.exts))
	for name := range r.exts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Selected resolves the subset of registered extensions an agent's
// config names, skipping names that aren't registered (a removed
// extension shouldn't crash hot-reload).
func (r *Registry) Selected(names []string) []*Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Extension, 0, len(names))
	for _, n := range names {
		if ext, ok := r.exts[n]; ok {
			out = append(out, ext)
		}
	}
	return out
}

// RecordLoad bumps the load counter for name, used at each hot-reload
// point.
func (r *Registry) RecordLoad(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[name]; ok {
		m.Loads++
	}
}

// RecordToolCall bumps the call/failure counters for name.
func (r *Registry) RecordToolCall(name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, exists := r.metrics[name]
	if !exists {
		return
	}
	m.ToolCalls++
	if !ok {
		m.ToolFailures++
	}
}

// MetricsFor returns a copy of name's counters, or zero-value if unknown.
func (r *Registry) MetricsFor(name string) Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.metrics[name]; ok {
		return *m
	}
	return Metrics{}
}

// AliasResolver builds a toolkit.AliasResolver from the subset of
// extensions an agent has selected: within the one environment that
// claimed the turn, its own alias table rewrites routed names.
func AliasResolver(claimed *Extension) toolkit.AliasResolver {
	if claimed == nil || len(claimed.Aliases) == 0 {
		return nil
	}
	return func(name string) string {
		if native, ok := claimed.Aliases[name]; ok {
			return native
		}
		return ""
	}
}

// ClaimTurn runs environment routing: at most one of the selected
// extensions claims the turn by returning a non-empty BuildContext
// result. The first claimant in selection order wins; later extensions
// are not consulted once one claims.
func ClaimTurn(ctx context.Context, agentName string, selected []*Extension) (*Extension, json.RawMessage, error) {
	for _, ext := range selected {
		if ext.BuildContext == nil {
			continue
		}
		out, err := ext.BuildContext(ctx, agentName)
		if err != nil {
			return nil, nil, fmt.Errorf("extension: %s buildContext: %w", ext.Name, err)
		}
		if len(out) > 0 {
			return ext, out, nil
		}
	}
	return nil, nil, nil
}
