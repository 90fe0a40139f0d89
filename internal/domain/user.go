package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User is a room member record. It is immutable once created.
type User struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	JoinedAt time.Time `json:"-"`
}

// NewUser creates a new User with a generated ID, joined now
func NewUser(nickname string) User {
	return User{
		ID:       uuid.NewString(),
		Nickname: nickname,
		JoinedAt: time.Now(),
	}
}

// MarshalJSON encodes joined_at as fractional unix seconds, which is what
// clients expect.
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string  `json:"id"`
		Nickname string  `json:"nickname"`
		JoinedAt float64 `json:"joined_at"`
	}{
		ID:       u.ID,
		Nickname: u.Nickname,
		JoinedAt: float64(u.JoinedAt.UnixNano()) / float64(time.Second),
	})
}
