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


// Package relay implements the agent registry, public-key directory,
// WebSocket firehose fanout, and directed inbox delivery.
//
// The WS server tracks connections in a mutex-guarded map and fans each
// emitted event out to the subset of subscribers whose filter matches;
// the registry surface is a plain register/lookup/list directory.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/atproto-agent-network/agentnet/internal/auditlog"
	"github.com/atproto-agent-network/agentnet/internal/metrics"
	"github.com/atproto-agent-network/agentnet/internal/obslog"
	"github.com/atproto-agent-network/agentnet/pkg/apierr"
	"github.com/atproto-agent-network/agentnet/pkg/identity"
	"github.com/atproto-agent-network/agentnet/pkg/lexicon"
	"github.com/atproto-agent-network/agentnet/pkg/store"
)

// Event is the canonical firehose shape, narrowed to what fanout
// filtering and wire serialization need.
type Event struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	AgentDID   string          `json:"agentDid"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Filter is one subscriber's `(collections, dids)` match criteria: a
// "*" entry is a wildcard, anything else is an exact match. It is stored
// as a per-socket attachment so it survives the life of the
// connection.
type Filter struct {
	Collections []string
	DIDs        []string
}

func (f Filter) matches(ev Event) bool {
	return matchesAny(f.Collections, ev.Collection) && matchesAny(f.DIDs, ev.AgentDID)
}

func matchesAny(patterns []string, value string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, p := range patterns {
		if p == "*" || p == value {
			return true
		}
	}
	return false
}

// FilterFromQuery parses the `/firehose` query string's `collections` and
// `dids` repeated/comma-joined parameters into a Filter.
func FilterFromQuery(q map[string][]string) Filter {
	return Filter{
		Collections: splitAll(q["collections"]),
		DIDs:        splitAll(q["dids"]),
	}
}

func splitAll(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Deliverer is the recipient-side hook the relay uses to post a
// validated agent.comms.message into an actor's inbox. It is an
// interface so pkg/relay never imports pkg/actor (avoiding an import
// cycle through pkg/httpapi, which wires both).
type Deliverer interface {
	DeliverInbox(ctx context.Context, agentName string, record lexicon.Record) error
}

// subscriber is one /firehose WebSocket connection plus its filter.
type subscriber struct {
	conn   *websocket.Conn
	filter Filter
	send   chan Event
}

const subscriberSendBuffer = 32

// Relay is the registry + fanout + directed-delivery component.
// Directory is backed by store.DirectoryBackend so it can run against
// Postgres in production or an in-memory fake in tests.
type Relay struct {
	Directory store.DirectoryBackend
	Deliver   Deliverer
	Log       obslog.Logger

	// Audit, if set, receives a copy of every emitted event for the
	// periodic sink-shipper flush to the audit log file.
	Audit *auditlog.Shipper

	upgrader websocket.Upgrader

	// resolveGroup collapses concurrent GetByName lookups for the same
	// recipient into one directory query.
	resolveGroup singleflight.Group

	mu   sync.RWMutex
	subs map[*websocket.Conn]*subscriber
}

// New constructs a Relay. deliver may be nil until the actor manager is
// wired up (directed delivery then fails with apierr.KindNotFound).
func New(dir store.DirectoryBackend, deliver Deliverer, log obslog.Logger) *Relay {
	return &Relay{
		Directory: dir,
		Deliver:   deliver,
		Log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[*websocket.Conn]*subscriber),
	}
}

// RegisterInput is the POST /agents body. Name keys the duplicate-
// registration conflict; callers that only have a DID may pass it as
// Name too.
type RegisterInput struct {
	Name       string              `json:"name"`
	DID        string              `json:"did"`
	PublicKeys identity.PublicKeys `json:"publicKeys"`
	Metadata   json.RawMessage     `json:"metadata,omitempty"`
}

// RegisterOutput is the POST /agents response.
type RegisterOutput struct {
	OK  bool   `json:"ok"`
	DID string `json:"did"`
}

// Register stores a new agent's DID and public keys, keyed by both name
// and DID since the rest of the HTTP surface addresses actors by name.
func (r *Relay) Register(ctx context.Context, in RegisterInput) (RegisterOutput, error) {
	if in.Name == "" || in.DID == "" || in.PublicKeys.Encryption == "" || in.PublicKeys.Signing == "" {
		metrics.ActorsRegistered.WithLabelValues("rejected").Inc()
		return RegisterOutput{}, apierr.New(apierr.KindInvalidJSON, "name, did, and publicKeys are required")
	}
	identityBlob, err := json.Marshal(struct {
		PublicKeys identity.PublicKeys `json:"publicKeys"`
		Metadata   json.RawMessage     `json:"metadata,omitempty"`
	}{PublicKeys: in.PublicKeys, Metadata: in.Metadata})
	if err != nil {
		return RegisterOutput{}, apierr.Wrap(apierr.KindInternal, "marshal identity", err)
	}

	row := &store.AgentRow{Name: in.Name, DID: in.DID, Identity: identityBlob, CreatedAt: time.Now().UTC()}
	if err := r.Directory.Insert(ctx, row); err != nil {
		if err == store.ErrConflict {
			metrics.ActorsRegistered.WithLabelValues("conflict").Inc()
			return RegisterOutput{}, apierr.New(apierr.KindConflict, "agent name already registered")
		}
		return RegisterOutput{}, apierr.Wrap(apierr.KindInternal, "register agent", err)
	}
	metrics.ActorsRegistered.WithLabelValues("success").Inc()
	return RegisterOutput{OK: true, DID: in.DID}, nil
}

// List returns all registrations newest-first.
func (r *Relay) List(ctx context.Context) ([]*store.AgentRow, error) {
	rows, err := r.Directory.List(ctx)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "list agents", err)
	}
	return rows, nil
}

// keysPayload is the GET /keys/<did> response body.
type keysPayload struct {
	DID        string              `json:"did"`
	PublicKeys identity.PublicKeys `json:"publicKeys"`
}

// Keys resolves a DID's public keys for GET /keys/<did>.
func (r *Relay) Keys(ctx context.Context, did string) (keysPayload, error) {
	row, err := r.Directory.GetByDID(ctx, did)
	if err == store.ErrNotFound {
		return keysPayload{}, apierr.New(apierr.KindNotFound, "unknown did")
	}
	if err != nil {
		return keysPayload{}, apierr.Wrap(apierr.KindInternal, "lookup did", err)
	}
	var decoded struct {
		PublicKeys identity.PublicKeys `json:"publicKeys"`
	}
	if err := json.Unmarshal(row.Identity, &decoded); err != nil {
		return keysPayload{}, apierr.Wrap(apierr.KindInternal, "decode identity", err)
	}
	return keysPayload{DID: row.DID, PublicKeys: decoded.PublicKeys}, nil
}

// Subscribe upgrades an HTTP request to a /firehose WebSocket connection
// and registers it as a fanout subscriber with the given filter. It
// blocks until the connection closes.
func (r *Relay) Subscribe(w http.ResponseWriter, req *http.Request, filter Filter) error {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return fmt.Errorf("relay: upgrade: %w", err)
	}
	sub := &subscriber{conn: conn, filter: filter, send: make(chan Event, subscriberSendBuffer)}

	r.mu.Lock()
	r.subs[conn] = sub
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.subs, conn)
		r.mu.Unlock()
		_ = conn.Close()
	}()

	done := make(chan struct{})
	go r.writePump(sub, done)

	// Drain and discard inbound frames (firehose is send-only); exits on
	// close or read error, matching server.go's read-deadline loop.
	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			close(done)
			return nil
		}
	}
}

func (r *Relay) writePump(sub *subscriber, done <-chan struct{}) {
	for {
		select {
		case ev := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := sub.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Emit fans an event out to every subscriber whose filter matches.
// Sends are best-effort and non-blocking: a subscriber whose send buffer
// is full is skipped rather than stalling the fanout.
func (r *Relay) Emit(ev Event) int {
	if r.Audit != nil {
		r.Audit.Add(auditlog.Event{
			Type: ev.Type, Collection: ev.Collection, AgentDID: ev.AgentDID,
			Timestamp: ev.Timestamp, Payload: ev.Payload,
		})
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	delivered := 0
	for _, sub := range r.subs {
		if !sub.filter.matches(ev) {
			continue
		}
		select {
		case sub.send <- ev:
			delivered++
			metrics.RelayFanoutDelivered.Inc()
		default:
			r.Log.Warn("relay.fanout_dropped", obslog.String("collection", ev.Collection))
		}
	}
	return delivered
}

// DeliverMessage is the directed-delivery path: a validated
// agent.comms.message is posted to the recipient's inbox, followed by a
// corresponding fanout event.
func (r *Relay) DeliverMessage(ctx context.Context, recipientName string, record lexicon.Record) error {
	label := "unknown"
	if lexicon.Known(record.TypeOf()) {
		label = string(record.TypeOf())
	}
	if issues := lexicon.Validate(record); issues != nil {
		metrics.RecordsValidated.WithLabelValues(label, "invalid").Inc()
		metrics.InboxDeliveries.WithLabelValues("invalid").Inc()
		return apierr.New(apierr.KindInvalidRecord, "invalid message").WithIssues(issues.Issues)
	}
	metrics.RecordsValidated.WithLabelValues(label, "valid").Inc()
	lexicon.ApplyDefaults(record)
	if record.TypeOf() != lexicon.TypeCommsMessage {
		metrics.InboxDeliveries.WithLabelValues("invalid").Inc()
		return apierr.New(apierr.KindInvalidRecord, "relay/message requires agent.comms.message")
	}
	if r.Deliver == nil {
		metrics.InboxDeliveries.WithLabelValues("not_found").Inc()
		return apierr.New(apierr.KindNotFound, "no recipient actor manager wired")
	}
	resolved, err, _ := r.resolveGroup.Do(recipientName, func() (interface{}, error) {
		return r.Directory.GetByName(ctx, recipientName)
	})
	if err == store.ErrNotFound {
		metrics.InboxDeliveries.WithLabelValues("not_found").Inc()
		return apierr.New(apierr.KindNotFound, "unknown recipient")
	}
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "resolve recipient", err)
	}
	row := resolved.(*store.AgentRow)
	if err := r.Deliver.DeliverInbox(ctx, recipientName, record); err != nil {
		return err
	}
	metrics.InboxDeliveries.WithLabelValues("delivered").Inc()

	payload, _ := json.Marshal(record)
	r.Emit(Event{
		Type:       "agent.comms.message",
		Collection: string(lexicon.TypeCommsMessage),
		AgentDID:   row.DID,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	})
	return nil
}

// WellKnown is the discovery document body exposed at
// `.well-known/agent-network.json`.
type WellKnown struct {
	RelayDID     string   `json:"relayDid"`
	KeysEndpoint string   `json:"keysEndpoint"`
	LexiconTypes []string `json:"lexiconTypes"`
}

// WellKnownDocument builds the discovery body: the relay's DID, the key
// directory endpoint, and the record types it understands.
func WellKnownDocument(relayDID string) WellKnown {
	return WellKnown{
		RelayDID:     relayDID,
		KeysEndpoint: "/keys/{did}",
		LexiconTypes: []string{
			string(lexicon.TypeMemoryNote),
			string(lexicon.TypeMemoryDecision),
			string(lexicon.TypeCommsMessage),
			string(lexicon.TypeCommsTask),
			string(lexicon.TypeCommsResponse),
			string(lexicon.TypeCommsHandoff),
			string(lexicon.TypeSessionArchive),
		},
	}
}
