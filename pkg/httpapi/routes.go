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

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atproto-agent-network/agentnet/internal/metrics"
	"github.com/atproto-agent-network/agentnet/internal/obslog"
	"github.com/atproto-agent-network/agentnet/pkg/apierr"
	"github.com/atproto-agent-network/agentnet/pkg/bytesnorm"
	"github.com/atproto-agent-network/agentnet/pkg/envelope"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/memory"
	"github.com/atproto-agent-network/agentnet/pkg/modelclient"
	"github.com/atproto-agent-network/agentnet/pkg/relay"
	"github.com/atproto-agent-network/agentnet/pkg/toolkit"
)

// publicGETSuffixes are the per-agent GET routes that are explicitly
// public: read-only, non-sensitive surfaces safe to expose without the
// bearer token. Every other /agents/<name>/* route, and every non-GET
// method, requires Authorization.
//
// identity/config/memory/inbox/shared can all surface private key
// material or message contents, so only the two routes with no
// secret-bearing payload, loop status and the cycle trace, are public
// here.
var publicGETSuffixes = map[string]bool{
	"loop/status": true,
	"trace":       true,
}

// Routes mounts the HTTP surface onto mux: the per-agent admin routes,
// `/health`, the discovery document, and the relay's own routes when
// m.Relay is set. withAuth wraps the /agents/ routes only, letting the
// public loop/status and trace GETs through without a token; `/health`
// and the discovery document are mounted unwrapped.
func (m *Manager) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/agents/", m.withAuth(m.routeAgent, isPublicAgentGET))
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/.well-known/agent-network.json", m.handleWellKnown)
	if m.Relay != nil {
		m.Relay.Routes(mux)
	}
}

// isPublicAgentGET reports whether req is a GET against one of the
// publicGETSuffixes under /agents/<name>/.
func isPublicAgentGET(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	_, suffix, ok := splitAgentPath(req.URL.Path)
	return ok && publicGETSuffixes[suffix]
}

// withAuth implements the bearer-token gate: every route requires the
// shared ADMIN_TOKEN except OPTIONS, /health, the well-known document,
// and routes isPublic accepts.
func (m *Manager) withAuth(next http.HandlerFunc, isPublic func(*http.Request) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if m.ProcessCfg != nil && m.ProcessCfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", m.ProcessCfg.CORSOrigin)
		}
		if req.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if isPublic != nil && isPublic(req) {
			next(w, req)
			return
		}
		token := bearerToken(req)
		if token == "" || m.ProcessCfg == nil || token != m.ProcessCfg.AdminToken {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, apierr.New(apierr.KindUnauthorized, "missing or invalid bearer token"))
			return
		}
		next(w, req)
	}
}

func bearerToken(req *http.Request) string {
	if tok := req.URL.Query().Get("token"); tok != "" {
		return tok
	}
	h := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimPrefix(h, prefix)
	}
	return ""
}

// splitAgentPath parses "/agents/<name>/<suffix...>" into its name and
// suffix components.
func splitAgentPath(path string) (name, suffix string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/agents/")
	if trimmed == path {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", false
	}
	if len(parts) == 1 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}

// validateIngress runs the lexicon check on a decoded record and records
// the outcome.
func validateIngress(record lexicon.Record) *lexicon.ValidationError {
	issues := lexicon.Validate(record)
	label := "unknown"
	if lexicon.Known(record.TypeOf()) {
		label = string(record.TypeOf())
	}
	status := "valid"
	if issues != nil {
		status = "invalid"
	}
	metrics.RecordsValidated.WithLabelValues(label, status).Inc()
	if issues == nil {
		lexicon.ApplyDefaults(record)
	}
	return issues
}

// routeAgent dispatches every /agents/<name>/<suffix> request.
func (m *Manager) routeAgent(w http.ResponseWriter, req *http.Request) {
	name, suffix, ok := splitAgentPath(req.URL.Path)
	if !ok {
		writeError(w, apierr.New(apierr.KindNotFound, "agent name is required"))
		return
	}

	if suffix == "create" {
		m.handleCreate(w, req, name)
		return
	}
	if suffix == "ws" {
		m.handleWS(w, req, name)
		return
	}

	e, err := m.get(name)
	if err != nil {
		writeError(w, err)
		return
	}

	switch suffix {
	case "config":
		m.handleConfig(w, req, e)
	case "identity":
		m.handleIdentity(w, req, e)
	case "profile":
		m.handleProfile(w, req, e)
	case "character":
		m.handleCharacter(w, req, e)
	case "memory":
		m.handleMemory(w, req, e)
	case "share":
		m.handleShare(w, req, e)
	case "shared":
		m.handleShared(w, req, e)
	case "inbox":
		m.handleInbox(w, req, e)
	case "prompt":
		m.handlePrompt(w, req, e)
	case "observations":
		m.handleObservations(w, req, e)
	case "execute":
		m.handleExecute(w, req, e)
	case "loop/start":
		m.handleLoopStart(w, req, e)
	case "loop/stop":
		m.handleLoopStop(w, req, e)
	case "loop/status":
		m.handleLoopStatus(w, req, e)
	case "trace":
		m.handleTrace(w, req, e)
	default:
		writeError(w, apierr.New(apierr.KindNotFound, "unknown route"))
	}
}

func (m *Manager) handleCreate(w http.ResponseWriter, req *http.Request, name string) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	var body CreateAgentRequest
	if req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
	}
	id, err := m.CreateAgent(req.Context(), name, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CreateAgentResponse{DID: string(id.DID), LoopRunning: true})
}

func (m *Manager) handleConfig(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, e.cfg)
	case http.MethodPatch:
		var patch ConfigPatch
		if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
		patch.Apply(e.cfg)
		writeJSON(w, http.StatusOK, e.cfg)
	default:
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
	}
}

func (m *Manager) handleIdentity(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	pubKeys, err := e.identity.Export()
	if err != nil {
		writeError(w, apierr.Wrap(apierr.KindInternal, "export identity", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"did":        e.identity.DID,
		"publicKeys": pubKeys,
		"createdAt":  e.identity.CreatedAt,
		"rotatedAt":  e.identity.RotatedAt,
	})
}

func (m *Manager) handleProfile(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, ProfileView{Name: e.cfg.Name, Specialty: e.cfg.Specialty, Personality: e.cfg.Personality})
	case http.MethodPut:
		var body ProfileView
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
		e.cfg.Specialty = body.Specialty
		e.cfg.Personality = body.Personality
		writeJSON(w, http.StatusOK, ProfileView{Name: e.cfg.Name, Specialty: e.cfg.Specialty, Personality: e.cfg.Personality})
	default:
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
	}
}

func (m *Manager) handleCharacter(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, CharacterView{Personality: e.cfg.Personality, Goals: e.cfg.Goals})
	case http.MethodPut:
		var body CharacterView
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
		e.cfg.Personality = body.Personality
		e.cfg.Goals = body.Goals
		e.actor.SetGoals(body.Goals)
		writeJSON(w, http.StatusOK, CharacterView{Personality: e.cfg.Personality, Goals: e.cfg.Goals})
	default:
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
	}
}

func (m *Manager) memoryStore(e *agentEntry) *memory.Store {
	return memory.New(m.Records, m.Shared, e.identity)
}

// handleMemory implements "POST|GET|PUT|DELETE memory": store, retrieve/
// list, update, and soft-delete of encrypted memory records.
func (m *Manager) handleMemory(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	mem := m.memoryStore(e)
	switch req.Method {
	case http.MethodPost:
		var record lexicon.Record
		if err := json.NewDecoder(req.Body).Decode(&record); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
		if issues := validateIngress(record); issues != nil {
			writeError(w, apierr.New(apierr.KindInvalidRecord, "Invalid record").WithIssues(issues.Issues))
			return
		}
		id, err := mem.StoreRecord(req.Context(), record)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})

	case http.MethodGet:
		id := req.URL.Query().Get("id")
		if id != "" {
			record, err := mem.Retrieve(req.Context(), id)
			if err != nil {
				writeError(w, apierr.Wrap(apierr.KindInternal, "retrieve record", err))
				return
			}
			if record == nil {
				writeError(w, apierr.New(apierr.KindNotFound, "record not found"))
				return
			}
			writeJSON(w, http.StatusOK, record)
			return
		}
		opts := memory.ListOptions{Collection: req.URL.Query().Get("collection")}
		if l := req.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil {
				opts.Limit = n
			}
		}
		records, err := mem.List(req.Context(), opts)
		if err != nil {
			writeError(w, apierr.Wrap(apierr.KindInternal, "list records", err))
			return
		}
		writeJSON(w, http.StatusOK, records)

	case http.MethodPut:
		id := req.URL.Query().Get("id")
		if id == "" {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "id query parameter is required"))
			return
		}
		var record lexicon.Record
		if err := json.NewDecoder(req.Body).Decode(&record); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
		if issues := validateIngress(record); issues != nil {
			writeError(w, apierr.New(apierr.KindInvalidRecord, "Invalid record").WithIssues(issues.Issues))
			return
		}
		if err := mem.Update(req.Context(), id, record); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	case http.MethodDelete:
		id := req.URL.Query().Get("id")
		if id == "" {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "id query parameter is required"))
			return
		}
		deleted, err := mem.SoftDelete(req.Context(), id)
		if err != nil {
			writeError(w, apierr.Wrap(apierr.KindInternal, "delete record", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})

	default:
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
	}
}

// handleShare implements "POST share": re-wraps a record's DEK for a
// recipient and upserts the shared-record row.
func (m *Manager) handleShare(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	var body ShareRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
		return
	}
	pubBytes, err := decodeRecipientKey(body.RecipientPubKey)
	if err != nil {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "recipientPubKey must be a multibase key, base64 string, or byte array"))
		return
	}
	mem := m.memoryStore(e)
	if err := mem.Share(req.Context(), body.RecordID, body.RecipientDID, pubBytes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// decodeRecipientKey normalizes the shapes a recipient public key arrives
// in: a multibase "z..." export, a base64 string, or a numeric byte
// array.
func decodeRecipientKey(v interface{}) ([]byte, error) {
	if s, ok := v.(string); ok && strings.HasPrefix(s, "z") {
		if _, raw, err := envelope.ParsePublicKey(s); err == nil {
			return raw, nil
		}
		// A base64 string can start with 'z' too; fall through.
	}
	return bytesnorm.Normalize(v)
}

// handleShared implements "GET shared": the calling agent is the
// recipient, using its own encryption key pair to unwrap shares addressed
// to it.
func (m *Manager) handleShared(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	recipientKeys, err := e.identity.EncryptionKeyPair()
	if err != nil {
		writeError(w, apierr.Wrap(apierr.KindInternal, "recipient encryption key", err))
		return
	}
	mem := m.memoryStore(e)
	if id := req.URL.Query().Get("id"); id != "" {
		record, err := mem.RetrieveShared(req.Context(), id, string(e.identity.DID), recipientKeys)
		if err != nil {
			writeError(w, apierr.Wrap(apierr.KindInternal, "retrieve shared record", err))
			return
		}
		if record == nil {
			writeError(w, apierr.New(apierr.KindNotFound, "shared record not found"))
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}
	opts := memory.ListOptions{Collection: req.URL.Query().Get("collection")}
	records, err := mem.ListShared(req.Context(), string(e.identity.DID), recipientKeys, opts)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.KindInternal, "list shared records", err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleInbox implements "POST|GET inbox": POST validates and pushes a
// message, interrupting the pending cycle timer; GET peeks without
// consuming.
func (m *Manager) handleInbox(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	switch req.Method {
	case http.MethodPost:
		var record lexicon.Record
		if err := json.NewDecoder(req.Body).Decode(&record); err != nil {
			writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
			return
		}
		if issues := validateIngress(record); issues != nil {
			writeError(w, apierr.New(apierr.KindInvalidRecord, "Invalid record").WithIssues(issues.Issues))
			return
		}
		if record.TypeOf() != lexicon.TypeCommsMessage {
			writeError(w, apierr.New(apierr.KindInvalidRecord, "inbox requires agent.comms.message"))
			return
		}
		e.actor.PushInbox(record)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case http.MethodGet:
		writeJSON(w, http.StatusOK, e.actor.PeekInbox())
	default:
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
	}
}

// handlePrompt implements "POST prompt": an ad hoc model call outside
// the cycle timer, useful for synchronous admin/debug probing.
func (m *Manager) handlePrompt(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	var body PromptRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
		return
	}
	if m.Model == nil {
		writeError(w, apierr.New(apierr.KindInternal, "no model client configured"))
		return
	}
	history := []modelclient.Message{{Role: "user", Content: body.Message}}
	resp, err := m.Model.Generate(req.Context(), e.cfg.Model, e.cfg.Personality, nil, history)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.KindUpstreamFailure, "model call failed", err))
		return
	}
	writeJSON(w, http.StatusOK, PromptResponse{Text: resp.Text})
}

func (m *Manager) handleObservations(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, e.actor.Snapshot())
}

// handleExecute implements "POST execute": the external-brain tool
// dispatch surface, invoking the registry/dispatcher directly instead of
// from inside a cycle's think phase.
func (m *Manager) handleExecute(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	var body ExecuteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "malformed JSON body"))
		return
	}
	args, err := json.Marshal(body.Args)
	if err != nil {
		writeError(w, apierr.New(apierr.KindInvalidJSON, "args must be a JSON object"))
		return
	}
	if e.actor.Tools == nil {
		writeError(w, apierr.New(apierr.KindInternal, "no tools registered for this agent"))
		return
	}
	calls := []toolkit.Call{{ID: uuid.NewString(), Name: body.Tool, Args: args}}
	report := e.actor.Tools.Dispatch(req.Context(), calls, toolkit.DispatchOptions{EnabledTools: e.cfg.EnabledTools})
	writeJSON(w, http.StatusOK, report)
}

func (m *Manager) handleLoopStart(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	e.actor.Start(req.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (m *Manager) handleLoopStop(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodPost {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	e.actor.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (m *Manager) handleLoopStatus(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	snap := e.actor.Snapshot()
	writeJSON(w, http.StatusOK, LoopStatusResponse{Running: e.actor.IsRunning(), LoopCount: snap.LoopCount})
}

func (m *Manager) handleTrace(w http.ResponseWriter, req *http.Request, e *agentEntry) {
	if req.Method != http.MethodGet {
		writeError(w, apierr.New(apierr.KindMethodNotAllowed, "method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, e.actor.Snapshot())
}

// handleWS upgrades to a firehose-style per-agent WebSocket, reusing the
// relay's subscriber plumbing scoped to this agent's own DID.
func (m *Manager) handleWS(w http.ResponseWriter, req *http.Request, name string) {
	e, err := m.get(name)
	if err != nil {
		writeError(w, err)
		return
	}
	if m.Relay == nil {
		writeError(w, apierr.New(apierr.KindInternal, "no relay configured"))
		return
	}
	filter := relay.Filter{Collections: []string{"*"}, DIDs: []string{string(e.identity.DID)}}
	if err := m.Relay.Subscribe(w, req, filter); err != nil {
		m.Log.Error("httpapi.ws_upgrade_failed", obslog.Err(err))
	}
}

// handleHealth returns a 500 with the missing-bindings list when a
// required environment binding is absent.
func (m *Manager) handleHealth(w http.ResponseWriter, req *http.Request) {
	missing := m.ProcessCfg.MissingBindings()
	if len(missing) > 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": "unhealthy", "missing": missing,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (m *Manager) handleWellKnown(w http.ResponseWriter, req *http.Request) {
	doc := relay.WellKnownDocument("did:cf:relay")
	writeJSON(w, http.StatusOK, doc)
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
		obslog.Error("httpapi.internal_error", obslog.Err(apiErr))
		msg = "Internal Server Error"
	}
	body := map[string]interface{}{"error": msg}
	if len(apiErr.Issues) > 0 {
		body["issues"] = apiErr.Issues
	}
	writeJSON(w, status, body)
}
