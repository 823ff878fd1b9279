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

// Record metrics cover lexicon validation and memory-store ingress:
// every ingress edge (HTTP, WS, inbox, remember-tool) runs a record
// through the same validate-then-store pipeline.
var (
	RecordsValidated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "validated_total",
			Help:      "Total number of lexicon records validated",
		},
		[]string{"type", "status"}, // $type, valid/invalid
	)

	RecordsStored = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "stored_total",
			Help:      "Total number of records written to the encrypted memory store",
		},
		[]string{"type"},
	)

	RecordProcessingDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "processing_duration_seconds",
			Help:      "Record validate-and-store duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)

	RecordSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "records",
			Name:      "size_bytes",
			Help:      "Plaintext record size in bytes before encryption",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
	)
)
