package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
)

// ResponseStreamer produces the reply to an AI chat message as a sequence
// of chunks. emit returns an error once the requester can no longer be
// reached, after which Stream should stop and return.
type ResponseStreamer interface {
	Stream(ctx context.Context, req domain.ChatRequest, emit func(chunk json.RawMessage) error) error
}

const errStreamerUnavailable = "Chat service unavailable. Please check configuration."

type chatResponse struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type chatError struct {
	Type      string `json:"type"`
	Error     string `json:"error"`
	MessageID string `json:"message_id,omitempty"`
}

type relayBroadcast struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	From string          `json:"from"`
}

// ChatHandler serves the AI relay endpoint: heartbeat pings, chat messages
// streamed through a ResponseStreamer, and fan-out broadcasts.
type ChatHandler struct {
	streamer ResponseStreamer
	tracker  *Tracker
	log      *slog.Logger
}

// NewChatHandler creates the relay dispatcher. streamer may be nil, in
// which case chat messages are answered with a chat_error.
func NewChatHandler(streamer ResponseStreamer, tracker *Tracker, log *slog.Logger) *ChatHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ChatHandler{
		streamer: streamer,
		tracker:  tracker,
		log:      log.With("component", "chat_relay"),
	}
}

// Handle processes one raw frame from conn
func (h *ChatHandler) Handle(ctx context.Context, conn Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic while handling frame", "conn", conn.ID(), "panic", r)
			h.sendError(conn, "Internal server error", "")
		}
	}()

	frame, err := domain.DecodeFrame(raw)
	if err != nil {
		h.sendError(conn, "Invalid message format", "")
		return
	}

	switch frame.Type {
	case domain.CommandPing:
		h.send(conn, pongFrame)
	case domain.CommandChatMessage:
		h.handleChat(ctx, conn, frame)
	case domain.CommandBroadcast:
		h.handleBroadcast(conn, frame)
	default:
		h.log.Warn("unknown message type", "conn", conn.ID(), "type", frame.Type)
		h.sendError(conn, "Unknown message type: "+string(frame.Type), "")
	}
}

func (h *ChatHandler) handleChat(ctx context.Context, conn Conn, frame domain.Frame) {
	req, err := frame.ChatRequest()
	if err != nil {
		h.sendError(conn, err.Error(), frame.MessageID)
		return
	}
	if h.streamer == nil {
		h.sendError(conn, errStreamerUnavailable, req.MessageID)
		return
	}

	chunks := 0
	var relayErr error
	err = h.streamer.Stream(ctx, req, func(chunk json.RawMessage) error {
		data, err := json.Marshal(chatResponse{Type: domain.EnvelopeChatResponse, Data: chunk})
		if err != nil {
			return fmt.Errorf("encode chunk: %w", err)
		}
		if err := conn.Send(data); err != nil {
			relayErr = err
			return err
		}
		chunks++
		return nil
	})

	switch {
	case relayErr != nil:
		h.log.Warn("requester gone during streaming",
			"conn", conn.ID(), "message_id", req.MessageID, "chunks", chunks, "error", relayErr)
	case err != nil:
		h.log.Error("streaming failed", "conn", conn.ID(), "message_id", req.MessageID, "error", err)
		h.sendError(conn, err.Error(), req.MessageID)
	default:
		h.log.Info("chat message processed", "message_id", req.MessageID, "chunks", chunks)
	}
}

func (h *ChatHandler) handleBroadcast(conn Conn, frame domain.Frame) {
	from := frame.From
	if from == "" {
		from = "unknown"
	}
	payload := frame.Data
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	data, err := json.Marshal(relayBroadcast{Type: domain.EnvelopeBroadcast, Data: payload, From: from})
	if err != nil {
		h.sendError(conn, "Invalid broadcast payload", "")
		return
	}
	sent := h.tracker.Broadcast(data, conn.ID())
	h.log.Info("broadcast relayed", "from", from, "sent", sent)
}

func (h *ChatHandler) sendError(conn Conn, msg, messageID string) {
	data, _ := json.Marshal(chatError{Type: domain.EnvelopeChatError, Error: msg, MessageID: messageID})
	h.send(conn, data)
}

func (h *ChatHandler) send(conn Conn, data []byte) {
	if err := conn.Send(data); err != nil && !errors.Is(err, domain.ErrConnClosed) {
		h.log.Warn("failed to reply", "conn", conn.ID(), "error", err)
	}
}
