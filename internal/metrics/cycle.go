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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle metrics cover the actor cycle chain: starts, completions,
// errors by backoff category, and per-mode duration.
var (
	CyclesStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "started_total",
			Help:      "Total number of agent cycles started",
		},
		[]string{"agent", "mode"}, // think, housekeeping, reflection
	)

	CyclesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "completed_total",
			Help:      "Total number of agent cycles completed",
		},
		[]string{"agent", "status"}, // success, error
	)

	CycleErrorsByCategory = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "errors_total",
			Help:      "Total number of cycle errors by backoff category",
		},
		[]string{"agent", "category"}, // transient, persistent, game, unknown
	)

	CycleDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "duration_seconds",
			Help:      "Agent cycle duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
		},
		[]string{"agent", "mode"},
	)
)
