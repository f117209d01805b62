// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/middleware"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is the wire form of a ledger event.
type Message struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields"`
}

func NewMessage(ev ledger.Event) Message {
	return Message{
		ID:     ev.ID.String(),
		Kind:   string(ev.Kind),
		At:     ev.At,
		Fields: ev.Fields(),
	}
}

type subscriber struct {
	ch      chan Message
	roundID *uint64
}

// Hub fans ledger events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	buffer   int
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	dropped atomic.Uint64
}

var _ ledger.EventSink = (*Hub)(nil)

// NewHub creates a hub with the given per-subscriber buffer. allowedOrigin
// restricts websocket upgrades; "" or "*" accepts any origin.
func NewHub(buffer int, allowedOrigin string) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	h := &Hub{buffer: buffer, subs: make(map[*subscriber]struct{})}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
	return h
}

func (h *Hub) Publish(_ context.Context, ev ledger.Event) {
	msg := NewMessage(ev)
	scoped := ev.Kind != ledger.EventAdminTransferred

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.roundID != nil && (!scoped || *s.roundID != ev.RoundID) {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber, optionally limited to one round, and
// returns its channel and a cancel func that closes it.
func (h *Hub) Subscribe(roundID *uint64) (<-chan Message, func()) {
	s := &subscriber{ch: make(chan Message, h.buffer), roundID: roundID}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped on full buffers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// ServeHTTP upgrades to a websocket and streams events as JSON text frames.
// The optional round_id query parameter limits the stream to one round.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var roundID *uint64
	if v := r.URL.Query().Get("round_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid round_id")
			return
		}
		roundID = &id
	}

	msgs, cancel := h.Subscribe(roundID)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("event stream opened", "remote", r.RemoteAddr, "round_id", roundID)

	// Incoming frames are ignored; reading detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("event stream read error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("event stream write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			slog.Info("event stream closed", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}
