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


// Package agentconfig loads the process-level configuration (admin token,
// CORS origin, database DSN, metrics/health toggles) and models the
// per-agent config. Loading is YAML plus an environment-variable overlay
// for secrets kept out of YAML entirely.
package agentconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProcessConfig is the process-wide configuration.
type ProcessConfig struct {
	Environment string          `yaml:"environment"`
	AdminToken  string          `yaml:"-"` // env-only: ADMIN_TOKEN
	CORSOrigin  string          `yaml:"corsOrigin"`
	Database    *DatabaseConfig `yaml:"database"`
	Logging     *LoggingConfig  `yaml:"logging"`
	Metrics     *MetricsConfig  `yaml:"metrics"`
	Health      *HealthConfig   `yaml:"health"`
}

// DatabaseConfig mirrors store.Config's field set for YAML loading.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // env-only: DATABASE_PASSWORD
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"`
}

// LoggingConfig mirrors config.LoggingConfig.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig mirrors config.MetricsConfig.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HealthConfig mirrors config.HealthConfig.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadProcessConfig reads a YAML file and overlays the required/optional
// environment-variable bindings.
func LoadProcessConfig(path string) (*ProcessConfig, error) {
	cfg := &ProcessConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("agentconfig: read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("agentconfig: parse config file: %w", err)
		}
	}
	setProcessDefaults(cfg)

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.Database != nil {
		if pw := os.Getenv("DATABASE_PASSWORD"); pw != "" {
			cfg.Database.Password = pw
		}
	}
	return cfg, nil
}

func setProcessDefaults(cfg *ProcessConfig) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{Enabled: true, Path: "/metrics"}
	}
	if cfg.Health == nil {
		cfg.Health = &HealthConfig{Enabled: true, Path: "/health"}
	}
}

// MissingBindings returns the required environment bindings that are
// unset, which /health surfaces as a 500.
func (c *ProcessConfig) MissingBindings() []string {
	var missing []string
	if c.AdminToken == "" {
		missing = append(missing, "ADMIN_TOKEN")
	}
	return missing
}

// LoopMode is the Agent config loopMode enum.
type LoopMode string

const (
	LoopModeAutonomous LoopMode = "autonomous"
	LoopModePassive    LoopMode = "passive"
)

// GoalStatus is the Goal status enum.
type GoalStatus string

const (
	GoalPending    GoalStatus = "pending"
	GoalInProgress GoalStatus = "in_progress"
	GoalBlocked    GoalStatus = "blocked"
	GoalCompleted  GoalStatus = "completed"
	GoalCancelled  GoalStatus = "cancelled"
)

// Goal is one tracked objective in an agent's config.
type Goal struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Status      GoalStatus `json:"status"`
	Progress    float64    `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// AgentConfig is the per-agent configuration record.
type AgentConfig struct {
	Name              string   `json:"name"`
	Personality       string   `json:"personality"`
	Specialty         string   `json:"specialty,omitempty"`
	Model             string   `json:"model"`
	FastModel         string   `json:"fastModel,omitempty"`
	LoopIntervalMs    int64    `json:"loopIntervalMs"`
	MaxCompletedGoals int      `json:"maxCompletedGoals"`
	Goals             []Goal   `json:"goals"`
	EnabledTools      []string `json:"enabledTools"`
	SuppressedTools   []string `json:"suppressedTools,omitempty"`
	LoopMode          LoopMode `json:"loopMode"`
	WebhookURL        string   `json:"webhookUrl,omitempty"`
}

const minLoopIntervalMs = 5000

// ClampedLoopInterval returns LoopIntervalMs clamped to a 5s floor.
func (c *AgentConfig) ClampedLoopInterval() time.Duration {
	ms := c.LoopIntervalMs
	if ms < minLoopIntervalMs {
		ms = minLoopIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// DefaultAgentConfig fills the defaults a bare create-agent request omits.
func DefaultAgentConfig(name, personality string, enabledTools []string) *AgentConfig {
	return &AgentConfig{
		Name:              name,
		Personality:       personality,
		Model:             "anthropic/claude-sonnet-4.5",
		LoopIntervalMs:    minLoopIntervalMs,
		MaxCompletedGoals: 20,
		EnabledTools:      enabledTools,
		LoopMode:          LoopModeAutonomous,
	}
}
