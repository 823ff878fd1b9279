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


// Package coretools implements the always-available tool set every actor
// starts with: remember/recall against the per-agent encrypted memory
// store, a notify tool for reporting stuck situations, and a goal-mutation
// tool for patching goal status/progress by ID.
package coretools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atproto-agent-network/agentnet/pkg/agentconfig"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/memory"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

// GoalSetter is the narrow actor surface update_goal mutates, satisfied
// by *actor.Actor without importing pkg/actor (which itself depends on
// pkg/toolkit, so an actor->coretools->actor import would cycle).
type GoalSetter interface {
	SnapshotGoalsForTool() []agentconfig.Goal
	SetGoals([]agentconfig.Goal)
}

// rememberParams / recallParams document the JSON schema shape; the
// registry stores the schema as a json.RawMessage for the model.
var rememberSchema = json.RawMessage(`{
	"type": "object",
	"required": ["type", "fields"],
	"properties": {
		"type": {"type": "string", "description": "lexicon $type, e.g. agent.memory.note"},
		"fields": {"type": "object"}
	}
}`)

var recallSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"collection": {"type": "string"},
		"limit": {"type": "integer"}
	}
}`)

var notifySchema = json.RawMessage(`{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string"},
		"goalId": {"type": "string"}
	}
}`)

var updateGoalSchema = json.RawMessage(`{
	"type": "object",
	"required": ["goalId"],
	"properties": {
		"goalId": {"type": "string"},
		"status": {"type": "string"},
		"progress": {"type": "number"}
	}
}`)

// Remember stores a validated lexicon record into the actor's memory
// store. The model supplies the record's type and fields separately
// (rather than a raw "$type" map) so a single JSON-schema "fields" object
// suffices for every lexicon variant.
func Remember(mem *memory.Store) *toolkit.Tool {
	return &toolkit.Tool{
		Name:        "remember",
		Description: "Persist a durable memory record (note, decision, or comms record) to the agent's encrypted memory store.",
		Parameters:  rememberSchema,
		Execute: func(ctx context.Context, _ string, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Type   string                 `json:"type"`
				Fields map[string]interface{} `json:"fields"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("coretools: remember: decode args: %w", err)
			}
			rec := lexicon.Record{}
			for k, v := range in.Fields {
				rec[k] = v
			}
			rec["$type"] = in.Type
			if issues := lexicon.Validate(rec); issues != nil {
				return nil, fmt.Errorf("coretools: remember: invalid record: %s", issues.Error())
			}
			lexicon.ApplyDefaults(rec)
			id, err := mem.StoreRecord(ctx, rec)
			if err != nil {
				return nil, err
			}
			return json.Marshal(map[string]string{"id": id})
		},
	}
}

// Recall lists recent memory records, optionally filtered by collection.
func Recall(mem *memory.Store) *toolkit.Tool {
	return &toolkit.Tool{
		Name:        "recall",
		Description: "List recent memory records, optionally filtered by collection.",
		Parameters:  recallSchema,
		Execute: func(ctx context.Context, _ string, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Collection string `json:"collection"`
				Limit      int    `json:"limit"`
			}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("coretools: recall: decode args: %w", err)
				}
			}
			records, err := mem.List(ctx, memory.ListOptions{Collection: in.Collection, Limit: in.Limit})
			if err != nil {
				return nil, err
			}
			return json.Marshal(records)
		},
	}
}

// Notify implements the prompt builder's "report stuck situations via a
// notify tool" instruction (pkg/actor/prompt.go). It validates the message
// and returns an acknowledgement, with no other side effect; the call and
// its result are visible only where the caller keeps tool results (session
// history for think-phase calls, the action-outcome log for auto-play).
func Notify() *toolkit.Tool {
	return &toolkit.Tool{
		Name:        "notify",
		Description: "Report a stuck or noteworthy situation that a human or downstream system should see.",
		Parameters:  notifySchema,
		Execute: func(_ context.Context, _ string, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Message string `json:"message"`
				GoalID  string `json:"goalId"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("coretools: notify: decode args: %w", err)
			}
			if in.Message == "" {
				return nil, fmt.Errorf("coretools: notify: message is required")
			}
			return json.Marshal(map[string]string{"acknowledged": "true"})
		},
	}
}

// UpdateGoal patches one goal's status/progress in the actor's in-memory
// goal list by ID. The write lands immediately in the actor's working set
// and is persisted with the end-of-cycle snapshot; a reflection-mode cycle
// whose response carries a goal list replaces the whole list.
func UpdateGoal(a GoalSetter) *toolkit.Tool {
	return &toolkit.Tool{
		Name:        "update_goal",
		Description: "Update a goal's status and/or progress.",
		Parameters:  updateGoalSchema,
		Execute: func(_ context.Context, _ string, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				GoalID   string  `json:"goalId"`
				Status   string  `json:"status"`
				Progress float64 `json:"progress"`
			}
			raw := map[string]interface{}{}
			if err := json.Unmarshal(args, &raw); err != nil {
				return nil, fmt.Errorf("coretools: update_goal: decode args: %w", err)
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("coretools: update_goal: decode args: %w", err)
			}
			if in.GoalID == "" {
				return nil, fmt.Errorf("coretools: update_goal: goalId is required")
			}
			_, hasProgress := raw["progress"]

			goals := a.SnapshotGoalsForTool()
			found := false
			for i := range goals {
				if goals[i].ID != in.GoalID {
					continue
				}
				found = true
				if in.Status != "" {
					goals[i].Status = agentconfig.GoalStatus(in.Status)
					if goals[i].Status == agentconfig.GoalCompleted && goals[i].CompletedAt == nil {
						now := time.Now().UTC()
						goals[i].CompletedAt = &now
					}
				}
				if hasProgress {
					goals[i].Progress = in.Progress
				}
			}
			if !found {
				return nil, fmt.Errorf("coretools: update_goal: unknown goalId %q", in.GoalID)
			}
			a.SetGoals(goals)
			return json.Marshal(map[string]string{"goalId": in.GoalID, "updated": "true"})
		},
	}
}

// Registry builds the core tool registry every actor starts with.
// Callers append domain/extension tools afterward.
func Registry(mem *memory.Store, goals GoalSetter) *toolkit.Registry {
	reg := toolkit.NewRegistry()
	reg.Register(Remember(mem))
	reg.Register(Recall(mem))
	reg.Register(Notify())
	reg.Register(UpdateGoal(goals))
	return reg
}
