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


package metrics

import "github.com/prometheus/client_golang/prometheus"

// namespace and Registry anchor every promauto metric declared in this
// package: one shared Registry, promauto.With(Registry) per metric
// file.
const namespace = "agentnet"

// Registry is a dedicated registry rather than prometheus.DefaultRegisterer
// so repeated test-process metric registration (multiple *testing.T runs
// importing this package) never panics on duplicate collectors.
var Registry = prometheus.NewRegistry()
