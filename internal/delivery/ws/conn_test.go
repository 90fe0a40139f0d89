package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
)

// fakeConn records every frame sent to it. A failing fakeConn rejects
// every send, like a peer that has already gone away.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return domain.ErrConnClosed
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) setFail(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// envelope is the decoded shape of any outbound frame
type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	MessageID string          `json:"message_id"`
	From      string          `json:"from"`
}

func (c *fakeConn) received(t *testing.T) []envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("Failed to decode frame %s: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

// events returns the data of every group_chat_response frame
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, env := range c.received(t) {
		if env.Type != domain.EnvelopeGroupChatResponse {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("Failed to decode event %s: %v", env.Data, err)
		}
		out = append(out, data)
	}
	return out
}

func (c *fakeConn) lastEvent(t *testing.T) map[string]any {
	t.Helper()
	evs := c.events(t)
	if len(evs) == 0 {
		t.Fatalf("Expected at least one event on %s", c.id)
	}
	return evs[len(evs)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(maxUsers int) *Registry {
	return NewRegistry(Options{MaxUsersPerRoom: maxUsers, Logger: discardLogger()})
}
