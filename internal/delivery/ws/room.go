package ws

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
	"github.com/mmuslimabdulj/goat-rooms/internal/usecase"
)

// Room is an isolated broadcast domain with a bounded member set.
//
// members, conns and nicknames always share the same set of users; byConn
// is the reverse index used to resolve a connection to its member. All four
// maps change together under mu.
type Room struct {
	ID       string
	maxUsers int

	mu           sync.RWMutex
	members      map[string]domain.User // userID -> user
	conns        map[string]Conn        // userID -> connection
	nicknames    map[string]string      // lowercase nickname -> userID
	byConn       map[string]string      // connection ID -> userID
	emptySince   time.Time
	lastActivity time.Time
	closed       bool // evicted from the registry; no further joins
}

// NewRoom creates an empty room
func NewRoom(id string, maxUsers int) *Room {
	now := time.Now()
	return &Room{
		ID:           id,
		maxUsers:     maxUsers,
		members:      make(map[string]domain.User),
		conns:        make(map[string]Conn),
		nicknames:    make(map[string]string),
		byConn:       make(map[string]string),
		emptySince:   now,
		lastActivity: now,
	}
}

// MaxUsers returns the room capacity
func (r *Room) MaxUsers() int {
	return r.maxUsers
}

// IsFull reports whether the room is at capacity
func (r *Room) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isFull()
}

// IsNicknameTaken reports a case-insensitive nickname collision
func (r *Room) IsNicknameTaken(nickname string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isNicknameTaken(nickname)
}

// AddUser adds a member bound to conn. A colliding nickname is
// disambiguated with a numeric suffix, so only capacity can make it fail.
func (r *Room) AddUser(nickname string, conn Conn) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addUser(nickname, conn)
}

// RemoveUser removes the member bound to conn
func (r *Room) RemoveUser(conn Conn) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeUser(conn)
}

// UserByConn returns the member bound to conn
func (r *Room) UserByConn(conn Conn) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userByConn(conn)
}

// Users returns a snapshot of the roster in join order
func (r *Room) Users() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users()
}

// Connections returns a snapshot of member connections, without exclude
func (r *Room) Connections(exclude Conn) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections(exclude)
}

// Count returns the number of members
func (r *Room) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// IdleSince reports when the room became empty. ok is false while the room
// has members.
func (r *Room) IdleSince() (since time.Time, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.members) > 0 {
		return time.Time{}, false
	}
	return r.emptySince, true
}

// LastActivity returns the time of the last membership change or message
func (r *Room) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}

// The methods below require r.mu to be held by the caller.

func (r *Room) isFull() bool {
	return len(r.members) >= r.maxUsers
}

func (r *Room) isNicknameTaken(nickname string) bool {
	_, ok := r.nicknames[usecase.NicknameKey(nickname)]
	return ok
}

func (r *Room) addUser(nickname string, conn Conn) (domain.User, error) {
	if r.isFull() {
		return domain.User{}, domain.ErrRoomFull
	}

	nickname = usecase.Disambiguate(nickname, domain.MaxNicknameLength, r.isNicknameTaken)
	user := domain.NewUser(nickname)

	r.members[user.ID] = user
	r.conns[user.ID] = conn
	r.nicknames[usecase.NicknameKey(nickname)] = user.ID
	r.byConn[conn.ID()] = user.ID
	r.lastActivity = user.JoinedAt

	return user, nil
}

func (r *Room) removeUser(conn Conn) (domain.User, bool) {
	userID, ok := r.byConn[conn.ID()]
	if !ok {
		return domain.User{}, false
	}
	user := r.members[userID]

	delete(r.members, userID)
	delete(r.conns, userID)
	delete(r.nicknames, usecase.NicknameKey(user.Nickname))
	delete(r.byConn, conn.ID())

	r.lastActivity = time.Now()
	if len(r.members) == 0 {
		r.emptySince = r.lastActivity
	}
	return user, true
}

func (r *Room) userByConn(conn Conn) (domain.User, bool) {
	userID, ok := r.byConn[conn.ID()]
	if !ok {
		return domain.User{}, false
	}
	user, ok := r.members[userID]
	return user, ok
}

func (r *Room) users() []domain.User {
	users := lo.Values(r.members)
	slices.SortFunc(users, func(a, b domain.User) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return users
}

func (r *Room) connections(exclude Conn) []Conn {
	return lo.FilterMap(r.users(), func(u domain.User, _ int) (Conn, bool) {
		conn := r.conns[u.ID]
		return conn, exclude == nil || conn.ID() != exclude.ID()
	})
}

func (r *Room) touch() {
	r.lastActivity = time.Now()
}
