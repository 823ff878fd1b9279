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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllCollectorsRegistered(t *testing.T) {
	assert.NotNil(t, EnvelopeOperations)
	assert.NotNil(t, CyclesStarted)
	assert.NotNil(t, CyclesCompleted)
	assert.NotNil(t, RecordsValidated)
	assert.NotNil(t, ActorsRegistered)
	assert.NotNil(t, ActorsRunning)
	assert.NotNil(t, RelayFanoutDelivered)
}

func TestMetrics_IncrementAndCollect(t *testing.T) {
	EnvelopeOperations.WithLabelValues("encrypt").Inc()
	CyclesStarted.WithLabelValues("alice", "think").Inc()
	CyclesCompleted.WithLabelValues("alice", "success").Inc()
	CycleErrorsByCategory.WithLabelValues("alice", "transient").Inc()
	RecordsValidated.WithLabelValues("agent.memory.note", "valid").Inc()
	ActorsRegistered.WithLabelValues("success").Inc()
	ActorsRunning.Inc()
	RelayFanoutDelivered.Inc()
	InboxDeliveries.WithLabelValues("delivered").Inc()

	assert.NotZero(t, testutil.CollectAndCount(EnvelopeOperations))
	assert.NotZero(t, testutil.CollectAndCount(CyclesStarted))
	assert.NotZero(t, testutil.CollectAndCount(ActorsRegistered))
}

func TestHandler_ReturnsHandler(t *testing.T) {
	assert.NotNil(t, Handler())
}
