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


package relay

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/atproto-agent-network/agentnet/internal/obslog"
	"github.com/atproto-agent-network/agentnet/pkg/apierr"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
)

// Routes mounts the relay's own HTTP surface: POST/GET /agents, GET
// /keys/<did>, POST /emit, WS /firehose, and POST /relay/message.
func (r *Relay) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/agents", r.handleAgents)
	mux.HandleFunc("/keys/", r.handleKeys)
	mux.HandleFunc("/emit", r.handleEmit)
	mux.HandleFunc("/firehose", r.handleFirehose)
	mux.HandleFunc("/relay/message", r.handleRelayMessage)
}

func (r *Relay) handleAgents(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		var in RegisterInput
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
		out, err := r.Register(req.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodGet:
		rows, err := r.List(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	default:
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
	}
}

func (r *Relay) handleKeys(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	did := strings.TrimPrefix(req.URL.Path, "/keys/")
	if did == "" {
		writeError(w, apierr.New(apierr.KindNotFound, "did is required"))
		return
	}
	payload, err := r.Keys(req.Context(), did)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (r *Relay) handleEmit(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	var ev Event
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	delivered := r.Emit(ev)
	writeJSON(w, http.StatusOK, map[string]int{"delivered": delivered})
}

func (r *Relay) handleFirehose(w http.ResponseWriter, req *http.Request) {
	filter := FilterFromQuery(req.URL.Query())
	if err := r.Subscribe(w, req, filter); err != nil {
		r.Log.Error("relay.firehose_upgrade_failed", obslog.Err(err))
	}
}

func (r *Relay) handleRelayMessage(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	var body struct {
		Recipient string         `json:"recipient"`
		Message   lexicon.Record `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
		return
	}
	if body.Recipient == "" {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "recipient is required"))
		return
	}
	if err := r.DeliverMessage(req.Context(), body.Recipient, body.Message); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders a typed API error. Internal errors are logged in
// full but surface only a fixed body.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Wrap(apierr.KindInternal, "internal error", err)
	}
	status := apierr.Status(apiErr.Kind)
	msg := apiErr.Message
	if apiErr.Kind == apierr.KindInternal {
		obslog.Error("relay.internal_error", obslog.Err(apiErr))
		msg = "Internal Server Error"
	}
	body := map[string]interface{}{"error": msg}
	if len(apiErr.Issues) > 0 {
		body["issues"] = apiErr.Issues
	}
	writeJSON(w, status, body)
}
