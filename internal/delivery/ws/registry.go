package ws

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
)

// Options configures a Registry
type Options struct {
	DefaultRoomID   string
	MaxUsersPerRoom int
	// RoomIdleTTL evicts non-default rooms that stayed empty this long.
	// Zero keeps every room for the life of the process.
	RoomIdleTTL time.Duration
	Logger      *slog.Logger
}

// Registry owns every room and routes group chat operations to them. One
// Registry is shared by all connection handlers.
type Registry struct {
	mu            sync.RWMutex
	rooms         map[string]*Room
	defaultRoomID string
	maxUsers      int
	idleTTL       time.Duration
	log           *slog.Logger
}

// RoomInfo is a point-in-time summary of a room
type RoomInfo struct {
	ID        string `json:"room_id"`
	UserCount int    `json:"user_count"`
	MaxUsers  int    `json:"max_users"`
}

// NewRegistry creates a registry and its default room
func NewRegistry(opts Options) *Registry {
	if opts.DefaultRoomID == "" {
		opts.DefaultRoomID = domain.DefaultRoomID
	}
	if opts.MaxUsersPerRoom <= 0 {
		opts.MaxUsersPerRoom = domain.MaxUsersPerRoom
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	g := &Registry{
		rooms:         make(map[string]*Room),
		defaultRoomID: opts.DefaultRoomID,
		maxUsers:      opts.MaxUsersPerRoom,
		idleTTL:       opts.RoomIdleTTL,
		log:           opts.Logger.With("component", "group_chat"),
	}
	g.Room(g.defaultRoomID)
	return g
}

// DefaultRoomID returns the room used when none is given
func (g *Registry) DefaultRoomID() string {
	return g.defaultRoomID
}

// Room returns the room with the given id, creating it on first use. An
// empty id resolves to the default room.
func (g *Registry) Room(roomID string) *Room {
	roomID = g.resolve(roomID)

	g.mu.RLock()
	room, ok := g.rooms[roomID]
	g.mu.RUnlock()
	if ok {
		return room
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok := g.rooms[roomID]; ok {
		return room
	}
	room = NewRoom(roomID, g.maxUsers)
	g.rooms[roomID] = room
	g.log.Info("created chat room", "room", roomID)
	return room
}

// Lookup returns an existing room without creating it
func (g *Registry) Lookup(roomID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[g.resolve(roomID)]
	return room, ok
}

// RoomOf finds the room that currently holds conn. A connection belongs to
// at most one room.
func (g *Registry) RoomOf(conn Conn) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, room := range g.rooms {
		if _, ok := room.UserByConn(conn); ok {
			return room, true
		}
	}
	return nil, false
}

// Rooms returns a summary of every room ordered by id
func (g *Registry) Rooms() []RoomInfo {
	g.mu.RLock()
	infos := lo.MapToSlice(g.rooms, func(id string, room *Room) RoomInfo {
		return RoomInfo{ID: id, UserCount: room.Count(), MaxUsers: room.MaxUsers()}
	})
	g.mu.RUnlock()

	slices.SortFunc(infos, func(a, b RoomInfo) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// RoomCount returns the number of rooms
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Join adds conn to a room under nickname. Everyone else in the room is
// told about the new member; the returned event is meant for conn only.
// A connection that is already in a room leaves it once the join succeeds;
// a rejected join leaves membership untouched.
func (g *Registry) Join(nickname string, conn Conn, roomID string) domain.Event {
	prev, inRoom := g.RoomOf(conn)

	room := g.lockRoom(roomID)

	// Rejoining the same room swaps the membership in place, so the
	// member's own seat never counts against the cap.
	var left *domain.UserLeft
	var leftTargets []Conn
	if inRoom && prev == room {
		if old, ok := room.removeUser(conn); ok {
			users := room.users()
			left = &domain.UserLeft{Sender: old.Nickname, UserID: old.ID, Users: users, UserCount: len(users)}
			leftTargets = room.connections(nil)
		}
	}

	if room.isFull() {
		room.mu.Unlock()
		g.log.Info("join rejected, room full", "room", room.ID, "nickname", nickname)
		return domain.RoomFull{Error: fmt.Sprintf("Chat room is full (%d users maximum)", room.maxUsers)}
	}

	user, err := room.addUser(nickname, conn)
	if err != nil {
		room.mu.Unlock()
		g.log.Error("join failed", "room", room.ID, "nickname", nickname, "error", err)
		if left != nil {
			g.broadcast(room, leftTargets, *left)
		}
		return domain.Error{Error: "Failed to join room"}
	}
	users := room.users()
	others := room.connections(conn)
	room.mu.Unlock()

	switch {
	case left != nil:
		g.broadcast(room, leftTargets, *left)
	case inRoom && prev != room:
		g.leave(prev, conn)
	}

	g.log.Info("user joined",
		"room", room.ID, "nickname", user.Nickname, "user_id", user.ID, "users", len(users))

	g.broadcast(room, others, domain.UserJoined{
		Sender:    user.Nickname,
		UserID:    user.ID,
		Users:     users,
		UserCount: len(users),
	})

	return domain.RoomJoined{
		Nickname:  user.Nickname,
		UserID:    user.ID,
		Users:     users,
		UserCount: len(users),
	}
}

// lockRoom returns the live room for roomID with its lock held. A room
// closed by the janitor in the meantime is replaced by a fresh one.
func (g *Registry) lockRoom(roomID string) *Room {
	room := g.Room(roomID)
	room.mu.Lock()
	for room.closed {
		room.mu.Unlock()
		room = g.Room(roomID)
		room.mu.Lock()
	}
	return room
}

// Leave removes conn from a room and tells the remaining members. ok is
// false when conn was not a member, in which case nothing is broadcast.
func (g *Registry) Leave(conn Conn, roomID string) (domain.Event, bool) {
	room, ok := g.Lookup(roomID)
	if !ok {
		return nil, false
	}
	return g.leave(room, conn)
}

func (g *Registry) leave(room *Room, conn Conn) (domain.Event, bool) {
	room.mu.Lock()
	user, ok := room.removeUser(conn)
	if !ok {
		room.mu.Unlock()
		return nil, false
	}
	users := room.users()
	remaining := room.connections(nil)
	room.mu.Unlock()

	g.log.Info("user left",
		"room", room.ID, "nickname", user.Nickname, "user_id", user.ID, "users", len(users))

	g.broadcast(room, remaining, domain.UserLeft{
		Sender:    user.Nickname,
		UserID:    user.ID,
		Users:     users,
		UserCount: len(users),
	})

	return domain.UserLeft{Sender: user.Nickname, UserID: user.ID, Ack: true}, true
}

// Send broadcasts text from the member bound to conn to every member of
// the room, the sender included.
func (g *Registry) Send(text string, conn Conn, roomID string) domain.Event {
	room, ok := g.Lookup(roomID)
	if !ok {
		return domain.Error{Error: "User not found in room"}
	}

	room.mu.Lock()
	user, ok := room.userByConn(conn)
	if !ok {
		room.mu.Unlock()
		return domain.Error{Error: "User not found in room"}
	}
	room.touch()
	everyone := room.connections(nil)
	room.mu.Unlock()

	msg := domain.ChatMessage{Message: text, Sender: user.Nickname, UserID: user.ID}
	g.broadcast(room, everyone, msg)
	return msg
}

// Users returns the roster of a room
func (g *Registry) Users(roomID string) domain.Event {
	room, ok := g.Lookup(roomID)
	if !ok {
		return domain.UserList{}
	}

	room.mu.RLock()
	users := room.users()
	room.mu.RUnlock()

	return domain.UserList{Users: users, UserCount: len(users)}
}

// HandleDisconnect removes conn from whichever room holds it, exactly as
// an explicit leave would.
func (g *Registry) HandleDisconnect(conn Conn) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("panic during disconnect cleanup", "conn", conn.ID(), "panic", r)
		}
	}()

	if room, ok := g.RoomOf(conn); ok {
		g.leave(room, conn)
	}
}

// SweepIdle evicts non-default rooms that have been empty for at least the
// configured TTL. It returns the evicted room ids.
func (g *Registry) SweepIdle(now time.Time) []string {
	if g.idleTTL <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var evicted []string
	for id, room := range g.rooms {
		if id == g.defaultRoomID {
			continue
		}
		room.mu.Lock()
		if len(room.members) == 0 && now.Sub(room.emptySince) >= g.idleTTL {
			room.closed = true
			delete(g.rooms, id)
			evicted = append(evicted, id)
		}
		room.mu.Unlock()
	}

	if len(evicted) > 0 {
		g.log.Info("evicted idle rooms", "rooms", evicted)
	}
	return evicted
}

// RunJanitor sweeps idle rooms every interval until ctx is done. It returns
// immediately when idle eviction is disabled.
func (g *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	if g.idleTTL <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.SweepIdle(now)
		}
	}
}

func (g *Registry) resolve(roomID string) string {
	if roomID == "" {
		return g.defaultRoomID
	}
	return roomID
}
