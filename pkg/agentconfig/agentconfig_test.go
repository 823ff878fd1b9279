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


package agentconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProcessConfig_Defaults(t *testing.T) {
	cfg, err := LoadProcessConfig("")
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadProcessConfig_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: production\ncorsOrigin: https://example.com\n"), 0o600))

	cfg, err := LoadProcessConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "https://example.com", cfg.CORSOrigin)
}

func TestLoadProcessConfig_EnvOverlay(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "s3cr3t")
	cfg, err := LoadProcessConfig("")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.AdminToken)
}

func TestMissingBindings_ReportsAdminToken(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "")
	cfg, err := LoadProcessConfig("")
	require.NoError(t, err)
	assert.Contains(t, cfg.MissingBindings(), "ADMIN_TOKEN")
}

func TestClampedLoopInterval_EnforcesFloor(t *testing.T) {
	cfg := &AgentConfig{LoopIntervalMs: 1000}
	assert.Equal(t, minLoopIntervalMs, int(cfg.ClampedLoopInterval().Milliseconds()))

	cfg2 := &AgentConfig{LoopIntervalMs: 20000}
	assert.Equal(t, int64(20000), cfg2.ClampedLoopInterval().Milliseconds())
}

func TestDefaultAgentConfig(t *testing.T) {
	cfg := DefaultAgentConfig("scout", "curious", []string{"remember", "recall"})
	assert.Equal(t, LoopModeAutonomous, cfg.LoopMode)
	assert.Equal(t, int64(minLoopIntervalMs), cfg.LoopIntervalMs)
	assert.Equal(t, 20, cfg.MaxCompletedGoals)
}
