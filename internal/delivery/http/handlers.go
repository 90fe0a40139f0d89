package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmuslimabdulj/goat-rooms/internal/config"
	"github.com/mmuslimabdulj/goat-rooms/internal/delivery/ws"
)

const (
	serviceName    = "Goat Rooms API"
	serviceVersion = "1.0.0"
)

type Handler struct {
	cfg       *config.Config
	registry  *ws.Registry
	tracker   *ws.Tracker
	groupChat *ws.GroupChatHandler
	chat      *ws.ChatHandler
	upgrader  websocket.Upgrader
	log       *slog.Logger
}

// NewHandler wires the HTTP surface to the shared registry and tracker.
// streamer may be nil; the AI relay then answers every chat message with
// an error.
func NewHandler(cfg *config.Config, registry *ws.Registry, tracker *ws.Tracker, streamer ws.ResponseStreamer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		cfg:       cfg,
		registry:  registry,
		tracker:   tracker,
		groupChat: ws.NewGroupChatHandler(registry, log),
		chat:      ws.NewChatHandler(streamer, tracker, log),
		log:       log.With("component", "http"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.IsOriginAllowed(r.Header.Get("Origin"))
		},
	}
	return h
}

// HandleRoot reports basic service information
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": serviceName,
		"version": serviceVersion,
		"status":  "running",
	})
}

// HandleHealth reports liveness with connection and room counts
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"connections": h.tracker.Count(),
		"rooms":       h.registry.RoomCount(),
		"timestamp":   float64(time.Now().UnixNano()) / 1e9,
	})
}

// HandleRooms lists every room with its occupancy
func (h *Handler) HandleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rooms := h.registry.Rooms()
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"total": len(rooms),
	})
}

// HandleGroupChat upgrades to a group chat connection. Leaving the socket,
// by close or by heartbeat timeout, counts as leaving the room.
func (h *Handler) HandleGroupChat(w http.ResponseWriter, r *http.Request) {
	client, ok := h.upgrade(w, r)
	if !ok {
		return
	}

	go client.WritePump()
	go func() {
		defer func() {
			h.registry.HandleDisconnect(client)
			h.tracker.Remove(client)
		}()
		client.ReadPump(func(raw []byte) {
			h.groupChat.Handle(client, raw)
		})
	}()
}

// HandleChat upgrades to an AI relay connection
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	client, ok := h.upgrade(w, r)
	if !ok {
		return
	}

	go client.WritePump()
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer func() {
			cancel()
			h.tracker.Remove(client)
		}()
		client.ReadPump(func(raw []byte) {
			h.chat.Handle(ctx, client, raw)
		})
	}()
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) (*ws.Client, bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response
		h.log.Debug("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return nil, false
	}

	client := ws.NewClient(conn, ws.ClientOptions{
		SendBufferSize: h.cfg.SendBufferSize,
		MaxMessageSize: h.cfg.MaxMessageSize,
		PongWait:       h.cfg.PongWait,
		PingPeriod:     h.cfg.PingPeriod,
		Logger:         h.log,
	})
	h.tracker.Add(client)
	h.log.Info("websocket connected", "path", r.URL.Path, "conn", client.ID(), "active", h.tracker.Count())
	return client, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
