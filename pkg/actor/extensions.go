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
	"github.com/atproto-agent-network/agentnet/pkg/extension"
)

// extensibilityFirstRunHint is the one-time system-prompt hint injected
// on an actor's first cycle when it has zero extensions configured.
const extensibilityFirstRunHint = extensibilityHint

// ReloadExtensions selects the extensions named in names, registers
// their tools into the actor's tool registry alongside the tools already
// there, and records the load in the shared extension registry's
// per-extension metrics. It runs whenever called and clears the reload
// flag. Tools from extensions that are no longer named stay registered.
func (a *Actor) ReloadExtensions(names []string) {
	a.mu.Lock()
	reg := a.Extensions
	a.mu.Unlock()
	if reg == nil || a.Tools == nil {
		return
	}
	for _, ext := range reg.Selected(names) {
		for _, tool := range ext.Tools {
			a.Tools.Register(tool)
		}
		reg.RecordLoad(ext.Name)
	}

	a.mu.Lock()
	a.extensionsReloadNeeded = false
	a.extensionNames = append([]string{}, names...)
	a.mu.Unlock()
}

// FlagExtensionsReload marks the actor for a hot-reload at the next
// cycle's step 3, e.g. after an admin operation installs or removes an
// extension.
func (a *Actor) FlagExtensionsReload() {
	a.mu.Lock()
	a.extensionsReloadNeeded = true
	a.mu.Unlock()
}

// maybeReloadExtensions runs at cycle-chain step 3. It hot-reloads when
// flagged, and on the very first cycle with zero configured extensions,
// queues the one-time extensibility hint in pendingHint, which the next
// think phase appends to its system prompt (the hint is suppressed on
// every subsequent cycle via extensionsHintShown).
func (a *Actor) maybeReloadExtensions() {
	a.mu.Lock()
	needsReload := a.extensionsReloadNeeded
	zeroExtensions := len(a.extensionNames) == 0
	hintShown := a.extensionsHintShown
	a.mu.Unlock()

	if needsReload {
		a.ReloadExtensions(a.extensionNames)
	}

	if zeroExtensions && !hintShown {
		a.mu.Lock()
		a.extensionsHintShown = true
		a.pendingHint = extensibilityFirstRunHint
		a.mu.Unlock()
	}
}

// selectedExtensions returns the actor's currently selected extensions,
// of which at most one may claim the current turn.
func (a *Actor) selectedExtensions() []*extension.Extension {
	a.mu.Lock()
	reg := a.Extensions
	names := append([]string{}, a.extensionNames...)
	a.mu.Unlock()
	if reg == nil {
		return nil
	}
	return reg.Selected(names)
}
