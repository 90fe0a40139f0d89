package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
)

// scriptedStreamer emits a fixed list of chunks, then returns err
type scriptedStreamer struct {
	chunks  []string
	err     error
	emitted int
	got     domain.ChatRequest
	panics  bool
}

func (s *scriptedStreamer) Stream(_ context.Context, req domain.ChatRequest, emit func(json.RawMessage) error) error {
	if s.panics {
		panic("model exploded")
	}
	s.got = req
	for _, c := range s.chunks {
		if err := emit(json.RawMessage(c)); err != nil {
			return err
		}
		s.emitted++
	}
	return s.err
}

func TestChatHandler_Ping(t *testing.T) {
	req := require.New(t)

	h := NewChatHandler(nil, NewTracker(discardLogger()), discardLogger())
	conn := newFakeConn("c-1")

	h.Handle(context.Background(), conn, []byte(`{"type":"ping"}`))

	got := conn.received(t)
	req.Len(got, 1)
	req.Equal("pong", got[0].Type)
}

func TestChatHandler_StreamsChunks(t *testing.T) {
	req := require.New(t)

	// Given
	streamer := &scriptedStreamer{chunks: []string{`{"content":"Hel"}`, `{"content":"lo","is_final":true}`}}
	h := NewChatHandler(streamer, NewTracker(discardLogger()), discardLogger())
	conn := newFakeConn("c-1")

	// When
	h.Handle(context.Background(), conn, []byte(`{"type":"chat_message","content":"hi","message_id":"m-1"}`))

	// Then
	req.Equal("hi", streamer.got.Content)
	req.Equal("m-1", streamer.got.MessageID)

	got := conn.received(t)
	req.Len(got, 2)
	req.Equal("chat_response", got[0].Type)
	req.JSONEq(`{"content":"Hel"}`, string(got[0].Data))
	req.JSONEq(`{"content":"lo","is_final":true}`, string(got[1].Data))
}

func TestChatHandler_NoStreamer(t *testing.T) {
	req := require.New(t)

	h := NewChatHandler(nil, NewTracker(discardLogger()), discardLogger())
	conn := newFakeConn("c-1")

	h.Handle(context.Background(), conn, []byte(`{"type":"chat_message","content":"hi","message_id":"m-1"}`))

	got := conn.received(t)
	req.Len(got, 1)
	req.Equal("chat_error", got[0].Type)
	req.Equal("Chat service unavailable. Please check configuration.", got[0].Error)
	req.Equal("m-1", got[0].MessageID)
}

func TestChatHandler_InvalidRequest(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr string
	}{
		{"empty content", `{"type":"chat_message","content":"","message_id":"m-1"}`, "content is required"},
		{"missing id", `{"type":"chat_message","content":"hi"}`, "message_id is required"},
		{"bad attachment", `{"type":"chat_message","content":"hi","message_id":"m-1","attachments":[{"name":"a.png","mime_type":"image/png","data":"%%%"}]}`, "attachment data is invalid"},
		{"unknown type", `{"type":"join_room"}`, "Unknown message type: join_room"},
		{"not json", `{`, "Invalid message format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			streamer := &scriptedStreamer{chunks: []string{`{}`}}
			h := NewChatHandler(streamer, NewTracker(discardLogger()), discardLogger())
			conn := newFakeConn("c-1")

			h.Handle(context.Background(), conn, []byte(tt.frame))

			got := conn.received(t)
			req.Len(got, 1)
			req.Equal("chat_error", got[0].Type)
			req.Equal(tt.wantErr, got[0].Error)
			req.Zero(streamer.emitted)
		})
	}
}

func TestChatHandler_StreamFailure(t *testing.T) {
	req := require.New(t)

	streamer := &scriptedStreamer{chunks: []string{`{"content":"partial"}`}, err: errors.New("upstream timeout")}
	h := NewChatHandler(streamer, NewTracker(discardLogger()), discardLogger())
	conn := newFakeConn("c-1")

	h.Handle(context.Background(), conn, []byte(`{"type":"chat_message","content":"hi","message_id":"m-9"}`))

	got := conn.received(t)
	req.Len(got, 2)
	req.Equal("chat_response", got[0].Type)
	req.Equal("chat_error", got[1].Type)
	req.Equal("upstream timeout", got[1].Error)
	req.Equal("m-9", got[1].MessageID)
}

func TestChatHandler_StopsWhenRequesterGone(t *testing.T) {
	req := require.New(t)

	streamer := &scriptedStreamer{chunks: []string{`{}`, `{}`, `{}`}}
	h := NewChatHandler(streamer, NewTracker(discardLogger()), discardLogger())
	conn := newFakeConn("c-1")
	conn.setFail(true)

	h.Handle(context.Background(), conn, []byte(`{"type":"chat_message","content":"hi","message_id":"m-1"}`))

	req.Zero(streamer.emitted, "streaming must stop at the first failed relay")
}

func TestChatHandler_RecoversFromPanic(t *testing.T) {
	req := require.New(t)

	h := NewChatHandler(&scriptedStreamer{panics: true}, NewTracker(discardLogger()), discardLogger())
	conn := newFakeConn("c-1")

	req.NotPanics(func() {
		h.Handle(context.Background(), conn, []byte(`{"type":"chat_message","content":"hi","message_id":"m-1"}`))
	})

	got := conn.received(t)
	req.Len(got, 1)
	req.Equal("chat_error", got[0].Type)
	req.Equal("Internal server error", got[0].Error)
}

func TestChatHandler_Broadcast(t *testing.T) {
	req := require.New(t)

	// Given
	tracker := NewTracker(discardLogger())
	sender, a, b := newFakeConn("c-sender"), newFakeConn("c-a"), newFakeConn("c-b")
	for _, c := range []*fakeConn{sender, a, b} {
		tracker.Add(c)
	}
	h := NewChatHandler(nil, tracker, discardLogger())

	// When
	h.Handle(context.Background(), sender, []byte(`{"type":"broadcast","data":{"x":1},"from":"tab-1"}`))
	h.Handle(context.Background(), sender, []byte(`{"type":"broadcast"}`))

	// Then
	req.Empty(sender.received(t))
	for _, c := range []*fakeConn{a, b} {
		got := c.received(t)
		req.Len(got, 2)
		req.Equal("broadcast", got[0].Type)
		req.Equal("tab-1", got[0].From)
		req.JSONEq(`{"x":1}`, string(got[0].Data))
		req.Equal("unknown", got[1].From)
		req.JSONEq(`{}`, string(got[1].Data))
	}
}
