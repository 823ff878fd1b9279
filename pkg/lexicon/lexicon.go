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


// Package lexicon implements a discriminated-union record validator: a
// closed set of "$type" variants, each with explicit required-field
// checks (not reflection/struct-tag driven), returning a structured issue
// list on failure.
package lexicon

import (
	"fmt"
)

// Type identifies one of the closed lexicon record types.
type Type string

const (
	TypeMemoryNote     Type = "agent.memory.note"
	TypeMemoryDecision Type = "agent.memory.decision"
	TypeCommsMessage   Type = "agent.comms.message"
	TypeCommsTask      Type = "agent.comms.task"
	TypeCommsResponse  Type = "agent.comms.response"
	TypeCommsHandoff   Type = "agent.comms.handoff"
	TypeSessionArchive Type = "agent.session.archive"
)

// Record is the generic ingress shape: a map keyed by field name with
// "$type" discriminating the variant. Using map[string]interface{} (rather
// than a sum type) matches how loosely-typed wire payloads arrive at every
// ingress edge (HTTP, WS, inbox, remember-tool).
type Record map[string]interface{}

// TypeOf returns the record's "$type" field, or "" if absent.
func (r Record) TypeOf() Type {
	v, _ := r["$type"].(string)
	return Type(v)
}

// Known reports whether t is one of the closed set of record types.
// Callers labeling metrics by type use this to keep arbitrary ingress
// strings out of the label space.
func Known(t Type) bool {
	switch t {
	case TypeMemoryNote, TypeMemoryDecision, TypeCommsMessage,
		TypeCommsTask, TypeCommsResponse, TypeCommsHandoff, TypeSessionArchive:
		return true
	}
	return false
}

// ValidationError is returned on a failed validation, carrying the issue
// list HTTP handlers surface verbatim as a 400 response.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %v", e.Issues)
}

func fail(issues ...string) *ValidationError {
	return &ValidationError{Issues: issues}
}

// DecisionStatus enumerates agent.memory.decision's status field.
type DecisionStatus string

const (
	DecisionProposed   DecisionStatus = "proposed"
	DecisionAccepted   DecisionStatus = "accepted"
	DecisionRejected   DecisionStatus = "rejected"
	DecisionSuperseded DecisionStatus = "superseded"
)

// ResponseStatus enumerates agent.comms.response's status field.
type ResponseStatus string

const (
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseCompleted ResponseStatus = "completed"
	ResponseFailed    ResponseStatus = "failed"
	ResponseRejected  ResponseStatus = "rejected"
)

// ContentKind enumerates agent.comms.message's content.kind tagged union.
type ContentKind string

const (
	ContentText ContentKind = "text"
	ContentJSON ContentKind = "json"
	ContentRef  ContentKind = "ref"
)

// Validate runs the discriminated-union check. Unknown $type is always
// rejected.
func Validate(r Record) *ValidationError {
	switch r.TypeOf() {
	case TypeMemoryNote:
		return validateMemoryNote(r)
	case TypeMemoryDecision:
		return validateMemoryDecision(r)
	case TypeCommsMessage:
		return validateCommsMessage(r)
	case TypeCommsTask:
		return validateCommsTask(r)
	case TypeCommsResponse:
		return validateCommsResponse(r)
	case TypeCommsHandoff:
		return validateCommsHandoff(r)
	case TypeSessionArchive:
		return validateSessionArchive(r)
	case "":
		return fail("$type is required")
	default:
		return fail(fmt.Sprintf("unknown $type: %q", r.TypeOf()))
	}
}

func requireString(r Record, field string, issues *[]string) {
	v, ok := r[field]
	if !ok {
		*issues = append(*issues, field+" is required")
		return
	}
	s, ok := v.(string)
	if !ok || s == "" {
		*issues = append(*issues, field+" must be a non-empty string")
	}
}

func requirePresent(r Record, field string, issues *[]string) {
	if _, ok := r[field]; !ok {
		*issues = append(*issues, field+" is required")
	}
}

func validateMemoryNote(r Record) *ValidationError {
	var issues []string
	requireString(r, "summary", &issues)
	requireString(r, "createdAt", &issues)
	if len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

func validateMemoryDecision(r Record) *ValidationError {
	var issues []string
	requireString(r, "decision", &issues)
	requireString(r, "context", &issues)
	requireString(r, "rationale", &issues)
	requireString(r, "createdAt", &issues)
	status, ok := r["status"].(string)
	if !ok {
		issues = append(issues, "status is required")
	} else {
		switch DecisionStatus(status) {
		case DecisionProposed, DecisionAccepted, DecisionRejected, DecisionSuperseded:
		default:
			issues = append(issues, "status must be one of proposed|accepted|rejected|superseded")
		}
	}
	if len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

func validateCommsMessage(r Record) *ValidationError {
	var issues []string
	requireString(r, "sender", &issues)
	requireString(r, "recipient", &issues)
	requireString(r, "createdAt", &issues)
	requirePresent(r, "content", &issues)

	if content, ok := r["content"].(map[string]interface{}); ok {
		kind, ok := content["kind"].(string)
		if !ok {
			issues = append(issues, "content.kind is required")
		} else {
			switch ContentKind(kind) {
			case ContentText, ContentJSON, ContentRef:
			default:
				issues = append(issues, "content.kind must be one of text|json|ref")
			}
		}
	} else if _, present := r["content"]; present {
		issues = append(issues, "content must be an object with a kind field")
	}

	if p, ok := r["priority"]; ok {
		pf, ok := toFloat(p)
		if !ok || pf < 1 || pf > 5 {
			issues = append(issues, "priority must be in range [1,5]")
		}
	}
	if len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

func validateCommsTask(r Record) *ValidationError {
	var issues []string
	requireString(r, "sender", &issues)
	requireString(r, "recipient", &issues)
	requireString(r, "createdAt", &issues)
	requirePresent(r, "task", &issues)
	requireString(r, "replyTo", &issues)
	if len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

func validateCommsResponse(r Record) *ValidationError {
	var issues []string
	requireString(r, "sender", &issues)
	requireString(r, "recipient", &issues)
	requireString(r, "requestUri", &issues)
	requireString(r, "createdAt", &issues)
	status, ok := r["status"].(string)
	if !ok {
		issues = append(issues, "status is required")
	} else {
		switch ResponseStatus(status) {
		case ResponseAccepted, ResponseCompleted, ResponseFailed, ResponseRejected:
		default:
			issues = append(issues, "status must be one of accepted|completed|failed|rejected")
		}
	}
	if len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

func validateCommsHandoff(r Record) *ValidationError {
	var issues []string
	requireString(r, "from", &issues)
	requireString(r, "to", &issues)
	requireString(r, "reason", &issues)
	requireString(r, "createdAt", &issues)
	ctx, ok := r["context"].([]interface{})
	if !ok {
		issues = append(issues, "context is required and must be an array")
	} else {
		for i, item := range ctx {
			entry, ok := item.(map[string]interface{})
			if !ok {
				issues = append(issues, fmt.Sprintf("context[%d] must be an object", i))
				continue
			}
			if _, ok := entry["recordId"].(string); !ok {
				issues = append(issues, fmt.Sprintf("context[%d].recordId is required", i))
			}
			if _, ok := entry["encryptedDek"]; !ok {
				issues = append(issues, fmt.Sprintf("context[%d].encryptedDek is required", i))
			}
		}
	}
	if len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

func validateSessionArchive(r Record) *ValidationError {
	var issues []string
	requirePresent(r, "messages", &issues)
	requireString(r, "archivedAt", &issues)
	if len(issues) > 0 {
		return fail(issues...)
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// DefaultPriority is applied when agent.comms.message omits priority.
const DefaultPriority = 3

// DefaultResultVisibility is applied when agent.comms.task omits
// resultVisibility.
const DefaultResultVisibility = "private"

// ApplyDefaults fills the optional fields that carry a documented
// default. Callers run it after a successful Validate, before the record
// is stored or delivered.
func ApplyDefaults(r Record) {
	switch r.TypeOf() {
	case TypeCommsMessage:
		if _, ok := r["priority"]; !ok {
			r["priority"] = DefaultPriority
		}
	case TypeCommsTask:
		if _, ok := r["resultVisibility"]; !ok {
			r["resultVisibility"] = DefaultResultVisibility
		}
	}
}
