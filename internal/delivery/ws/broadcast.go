package ws

import (
	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
)

// broadcast sends ev to every target and returns the number of successful
// deliveries. A failed send never stops delivery to the remaining targets.
//
// After the sweep, members whose send failed are evicted as if they had
// disconnected, except on user_joined: a connection that fails its first
// receive right after joining is usually still settling and must not be
// evicted by the join it triggered.
//
// Callers must not hold room.mu.
func (g *Registry) broadcast(room *Room, targets []Conn, ev domain.Event) int {
	if len(targets) == 0 {
		return 0
	}

	data, err := domain.EncodeEvent(ev)
	if err != nil {
		g.log.Error("failed to encode event", "room", room.ID, "event", ev.Type(), "error", err)
		return 0
	}

	sent := 0
	var failed []Conn
	for _, conn := range targets {
		if err := conn.Send(data); err != nil {
			g.log.Warn("failed to deliver event",
				"room", room.ID, "event", ev.Type(), "conn", conn.ID(), "error", err)
			failed = append(failed, conn)
			continue
		}
		sent++
	}

	g.log.Debug("broadcast completed",
		"room", room.ID, "event", ev.Type(), "sent", sent, "failed", len(failed))

	if len(failed) == 0 {
		return sent
	}

	if ev.Type() == domain.EventUserJoined {
		g.log.Info("skipping cleanup after user_joined", "room", room.ID, "failed", len(failed))
		return sent
	}

	for _, conn := range failed {
		if _, ok := g.leave(room, conn); ok {
			g.log.Info("evicted unreachable member", "room", room.ID, "conn", conn.ID(), "event", ev.Type())
		}
	}
	return sent
}
