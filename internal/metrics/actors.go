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

// Actor metrics cover the actor registry, loop lifecycle, relay fanout,
// directed inbox delivery, and the audit sink.
var (
	ActorsRegistered = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actors",
			Name:      "registered_total",
			Help:      "Total number of agent actors registered",
		},
		[]string{"status"}, // success, conflict
	)

	ActorsRunning = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "actors",
			Name:      "running",
			Help:      "Number of agent actors with loopRunning=true",
		},
	)

	RelayFanoutDelivered = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "fanout_delivered_total",
			Help:      "Total number of firehose events delivered to matching subscribers",
		},
	)

	InboxDeliveries = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actors",
			Name:      "inbox_deliveries_total",
			Help:      "Total number of directed inbox deliveries",
		},
		[]string{"status"}, // delivered, not_found, invalid
	)

	AuditEventsFlushed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "events_flushed_total",
			Help:      "Total number of buffered relay events written to the audit log file",
		},
	)
)
