package ws

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
	"github.com/mmuslimabdulj/goat-rooms/internal/usecase"
)

var pongFrame = []byte(`{"type":"` + domain.EnvelopePong + `"}`)

// GroupChatHandler turns inbound group chat frames into registry calls and
// writes the per-requester replies.
type GroupChatHandler struct {
	registry *Registry
	log      *slog.Logger
}

// NewGroupChatHandler creates a dispatcher bound to registry
func NewGroupChatHandler(registry *Registry, log *slog.Logger) *GroupChatHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GroupChatHandler{
		registry: registry,
		log:      log.With("component", "group_chat_dispatch"),
	}
}

// Handle processes one raw frame from conn. Failures are reported to conn
// only; the connection is never closed here.
func (h *GroupChatHandler) Handle(conn Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic while handling frame", "conn", conn.ID(), "panic", r)
			h.replyError(conn, "Internal server error")
		}
	}()

	frame, err := domain.DecodeFrame(raw)
	if err != nil {
		h.log.Debug("rejected frame", "conn", conn.ID(), "error", err)
		h.replyError(conn, "Invalid message format")
		return
	}

	switch frame.Type {
	case domain.CommandJoinRoom:
		frame.Nickname = usecase.NormalizeNickname(frame.Nickname)
		cmd, err := frame.JoinRoom()
		if err != nil {
			h.replyError(conn, err.Error())
			return
		}
		h.reply(conn, h.registry.Join(cmd.Nickname, conn, cmd.RoomID))

	case domain.CommandLeaveRoom:
		cmd, err := frame.LeaveRoom()
		if err != nil {
			h.replyError(conn, err.Error())
			return
		}
		if ev, ok := h.registry.Leave(conn, cmd.RoomID); ok {
			h.reply(conn, ev)
		}

	case domain.CommandSendMessage:
		cmd, err := frame.SendMessage()
		if err != nil {
			h.replyError(conn, err.Error())
			return
		}
		// A delivered message already reached the sender through the
		// room broadcast.
		if ev := h.registry.Send(cmd.Message, conn, cmd.RoomID); ev.Type() == domain.EventError {
			h.reply(conn, ev)
		}

	case domain.CommandGetUsers:
		cmd, err := frame.GetUsers()
		if err != nil {
			h.replyError(conn, err.Error())
			return
		}
		h.reply(conn, h.registry.Users(cmd.RoomID))

	case domain.CommandPing:
		h.send(conn, pongFrame)

	default:
		err := fmt.Errorf("%w: %s", domain.ErrUnknownCommand, frame.Type)
		h.log.Debug("rejected frame", "conn", conn.ID(), "error", err)
		h.replyError(conn, "Unknown message type: "+string(frame.Type))
	}
}

func (h *GroupChatHandler) reply(conn Conn, ev domain.Event) {
	data, err := domain.EncodeEvent(ev)
	if err != nil {
		h.log.Error("failed to encode reply", "conn", conn.ID(), "error", err)
		h.replyError(conn, "Internal server error")
		return
	}
	h.log.Debug("reply", "conn", conn.ID(), "event", ev.Type(), "detail", describe(ev))
	h.send(conn, data)
}

func (h *GroupChatHandler) replyError(conn Conn, msg string) {
	h.send(conn, domain.EncodeError(msg))
}

func (h *GroupChatHandler) send(conn Conn, data []byte) {
	if err := conn.Send(data); err != nil && !errors.Is(err, domain.ErrConnClosed) {
		h.log.Warn("failed to reply", "conn", conn.ID(), "error", err)
	}
}

// describe gives a short log summary of an event
func describe(ev domain.Event) string {
	switch e := ev.(type) {
	case domain.RoomJoined:
		return fmt.Sprintf("%s joined with %d users", e.Nickname, e.UserCount)
	case domain.RoomFull:
		return e.Error
	case domain.UserJoined:
		return fmt.Sprintf("%s joined", e.Sender)
	case domain.UserLeft:
		return fmt.Sprintf("%s left", e.Sender)
	case domain.ChatMessage:
		return fmt.Sprintf("message from %s", e.Sender)
	case domain.UserList:
		return fmt.Sprintf("%d users", e.UserCount)
	case domain.Error:
		return e.Error
	default:
		return string(ev.Type())
	}
}
