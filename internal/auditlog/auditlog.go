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


// Package auditlog is the event sink shipper: a small in-memory buffer
// of relay events that a background ticker goroutine periodically
// flushes to an append-only audit log file, stoppable via a done
// channel.
package auditlog

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/atproto-agent-network/agentnet/internal/metrics"
	"github.com/atproto-agent-network/agentnet/internal/obslog"
)

// Event is the shape buffered and flushed; callers adapt their own event
// types into this one rather than auditlog depending on pkg/relay.
type Event struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	AgentDID   string          `json:"agentDid"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Shipper buffers Events and flushes them as newline-delimited JSON to a
// file on a fixed interval.
type Shipper struct {
	path     string
	interval time.Duration
	log      obslog.Logger

	mu  sync.Mutex
	buf []Event

	done chan struct{}
}

// NewShipper returns a Shipper that flushes buffered events to the audit
// log file at path every interval once Start is called. The file is not
// touched here; each Flush opens it for append, creating it if absent.
func NewShipper(path string, interval time.Duration, log obslog.Logger) *Shipper {
	if log == nil {
		log = obslog.Default()
	}
	return &Shipper{path: path, interval: interval, log: log, done: make(chan struct{})}
}

// Add buffers ev for the next flush. Safe for concurrent use.
func (s *Shipper) Add(ev Event) {
	s.mu.Lock()
	s.buf = append(s.buf, ev)
	s.mu.Unlock()
}

// Start runs the periodic flush loop in its own goroutine until Stop is
// called.
func (s *Shipper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Flush(); err != nil {
					s.log.Warn("auditlog.flush_failed", obslog.Err(err))
				}
			case <-s.done:
				_ = s.Flush()
				return
			}
		}
	}()
}

// Stop ends the flush loop after one final flush of anything buffered.
func (s *Shipper) Stop() {
	close(s.done)
}

// Flush writes every buffered event to the audit log file and clears
// the buffer, even on a partial write error. Events already taken from
// the buffer are not retried; the file write is append-only and
// best-effort.
func (s *Shipper) Flush() error {
	s.mu.Lock()
	pending := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	for _, ev := range pending {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(out.Bytes()); err != nil {
		return err
	}
	metrics.AuditEventsFlushed.Add(float64(len(pending)))
	return nil
}
