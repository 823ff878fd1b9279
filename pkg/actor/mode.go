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

// Mode is the cycle-chain mode.
type Mode string

const (
	ModeThink        Mode = "think"
	ModeHousekeeping Mode = "housekeeping"
	ModeReflection   Mode = "reflection"
)

const thinkCyclesBeforeHousekeeping = 5

// RotateMode advances the cycle-chain mode: think five times, then
// housekeeping, then reflection, then back to think with the counter
// reset.
func RotateMode(mode Mode, counter int) (Mode, int) {
	switch mode {
	case ModeThink:
		if counter+1 >= thinkCyclesBeforeHousekeeping {
			return ModeHousekeeping, 0
		}
		return ModeThink, counter + 1
	case ModeHousekeeping:
		return ModeReflection, 0
	case ModeReflection:
		return ModeThink, 0
	default:
		return ModeThink, 0
	}
}
