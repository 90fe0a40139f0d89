package ws

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Closer is a connection that can be torn down by the server
type Closer interface {
	Conn
	Close()
}

// Tracker keeps the set of live websocket connections across every
// endpoint. It backs the health counters, the relay broadcast and shutdown.
type Tracker struct {
	mu    sync.RWMutex
	conns map[string]Closer
	log   *slog.Logger
}

// NewTracker creates an empty tracker
func NewTracker(log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		conns: make(map[string]Closer),
		log:   log.With("component", "connections"),
	}
}

// Add registers a connection
func (t *Tracker) Add(c Closer) {
	t.mu.Lock()
	t.conns[c.ID()] = c
	n := len(t.conns)
	t.mu.Unlock()

	t.log.Debug("connection opened", "conn", c.ID(), "active", n)
}

// Remove forgets a connection. Removing an unknown connection is a no-op.
func (t *Tracker) Remove(c Closer) {
	t.mu.Lock()
	_, ok := t.conns[c.ID()]
	delete(t.conns, c.ID())
	n := len(t.conns)
	t.mu.Unlock()

	if ok {
		t.log.Debug("connection closed", "conn", c.ID(), "active", n)
	}
}

// Count returns the number of live connections
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// Broadcast sends data to every connection except the one with id except.
// Failed sends are logged and skipped. It returns the number delivered.
func (t *Tracker) Broadcast(data []byte, except string) int {
	t.mu.RLock()
	targets := lo.FilterMap(lo.Entries(t.conns), func(e lo.Entry[string, Closer], _ int) (Closer, bool) {
		return e.Value, e.Key != except
	})
	t.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.Send(data); err != nil {
			t.log.Warn("relay broadcast failed", "conn", c.ID(), "error", err)
			continue
		}
		sent++
	}
	return sent
}

// CloseAll closes every live connection and returns how many were closed
func (t *Tracker) CloseAll() int {
	t.mu.Lock()
	conns := t.conns
	t.conns = make(map[string]Closer)
	t.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	if len(conns) > 0 {
		t.log.Info("closed all connections", "count", len(conns))
	}
	return len(conns)
}
