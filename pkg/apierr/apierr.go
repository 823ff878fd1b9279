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


// Package apierr defines the error kinds surfaced by the core and their
// mapping to HTTP status codes. Each Error carries one Kind from a closed
// set of string constants, and Status maps that Kind to a status code.
package apierr

import (
	"errors"
	"net/http"
)

// Kind identifies one of the error kinds the core surfaces.
type Kind string

const (
	KindUnauthorized     Kind = "Unauthorized"
	KindInvalidJSON      Kind = "InvalidJSON"
	KindInvalidRecord    Kind = "InvalidRecord"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
	KindMethodNotAllowed Kind = "MethodNotAllowed"
	KindUpstreamFailure  Kind = "UpstreamFailure"
	KindInternal         Kind = "InternalError"
)

// Error is a typed API error carrying its kind, a human message, and an
// optional issue list (populated by the lexicon validator).
type Error struct {
	Kind    Kind
	Message string
	Issues  []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithIssues attaches a validator issue list and returns the receiver.
func (e *Error) WithIssues(issues []string) *Error {
	e.Issues = issues
	return e
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInvalidJSON, KindInvalidRecord:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, if any wraps one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
