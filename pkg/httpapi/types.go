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


package httpapi

import "github.com/atproto-agent-network/agentnet/pkg/agentconfig"

// CreateAgentRequest is the "POST create" body.
type CreateAgentRequest struct {
	Personality    string               `json:"personality"`
	Specialty      string               `json:"specialty,omitempty"`
	Model          string               `json:"model,omitempty"`
	FastModel      string               `json:"fastModel,omitempty"`
	LoopIntervalMs int64                `json:"loopIntervalMs,omitempty"`
	LoopMode       agentconfig.LoopMode `json:"loopMode,omitempty"`
	EnabledTools   []string             `json:"enabledTools"`
	WebhookURL     string               `json:"webhookUrl,omitempty"`
}

// CreateAgentResponse is the "POST create" reply: the minted did and
// whether the cycle loop is running.
type CreateAgentResponse struct {
	DID         string `json:"did"`
	LoopRunning bool   `json:"loop.loopRunning"`
}

// ConfigPatch is the "PATCH config" body: any subset of the mutable
// AgentConfig fields.
type ConfigPatch struct {
	Personality       *string               `json:"personality,omitempty"`
	Specialty         *string               `json:"specialty,omitempty"`
	Model             *string               `json:"model,omitempty"`
	FastModel         *string               `json:"fastModel,omitempty"`
	LoopIntervalMs    *int64                `json:"loopIntervalMs,omitempty"`
	MaxCompletedGoals *int                  `json:"maxCompletedGoals,omitempty"`
	EnabledTools      *[]string             `json:"enabledTools,omitempty"`
	SuppressedTools   *[]string             `json:"suppressedTools,omitempty"`
	LoopMode          *agentconfig.LoopMode `json:"loopMode,omitempty"`
	WebhookURL        *string               `json:"webhookUrl,omitempty"`
}

// Apply mutates cfg in place with every non-nil field in the patch.
func (p ConfigPatch) Apply(cfg *agentconfig.AgentConfig) {
	if p.Personality != nil {
		cfg.Personality = *p.Personality
	}
	if p.Specialty != nil {
		cfg.Specialty = *p.Specialty
	}
	if p.Model != nil {
		cfg.Model = *p.Model
	}
	if p.FastModel != nil {
		cfg.FastModel = *p.FastModel
	}
	if p.LoopIntervalMs != nil {
		cfg.LoopIntervalMs = *p.LoopIntervalMs
	}
	if p.MaxCompletedGoals != nil {
		cfg.MaxCompletedGoals = *p.MaxCompletedGoals
	}
	if p.EnabledTools != nil {
		cfg.EnabledTools = *p.EnabledTools
	}
	if p.SuppressedTools != nil {
		cfg.SuppressedTools = *p.SuppressedTools
	}
	if p.LoopMode != nil {
		cfg.LoopMode = *p.LoopMode
	}
	if p.WebhookURL != nil {
		cfg.WebhookURL = *p.WebhookURL
	}
}

// ProfileView is the "GET|PUT profile" shape: the agent's public-facing
// descriptive fields, a narrower view than the full AgentConfig.
type ProfileView struct {
	Name        string `json:"name"`
	Specialty   string `json:"specialty,omitempty"`
	Personality string `json:"personality"`
}

// CharacterView is the "GET|PUT character" shape: the agent's goals plus
// personality, the slice of config a game/roleplay environment cares
// about. Distinguished from ProfileView since profile and character are
// edited from different surfaces.
type CharacterView struct {
	Personality string             `json:"personality"`
	Goals       []agentconfig.Goal `json:"goals"`
}

// ShareRequest is the "POST share" body. RecipientPubKey is permissive
// at the ingress boundary: a multibase "z..." export, a base64 string,
// or a numeric byte array all decode to the same raw key.
type ShareRequest struct {
	RecordID        string      `json:"recordId"`
	RecipientDID    string      `json:"recipientDid"`
	RecipientPubKey interface{} `json:"recipientPubKey"`
}

// PromptRequest is the "POST prompt" body for an out-of-cycle, ad hoc
// model call (distinct from the timer-driven think phase). Message is sent
// as a single user turn to the agent's configured model, with its
// personality as the system prompt; the actor's session history and
// tools are not included.
type PromptRequest struct {
	Message string `json:"message"`
}

// PromptResponse is the "POST prompt" reply.
type PromptResponse struct {
	Text string `json:"text"`
}

// ExecuteRequest is the "POST execute" body: the external-brain tool
// dispatch surface, letting a caller run a named tool outside the cycle
// chain's think phase.
type ExecuteRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// LoopStatusResponse is the "GET loop/status" reply.
type LoopStatusResponse struct {
	Running   bool `json:"running"`
	LoopCount int  `json:"loopCount"`
}
