package domain

import "time"

// ==== Room Constants ====

const (
	// DefaultRoomID is the room used when a command omits room_id
	DefaultRoomID = "general"

	// MaxUsersPerRoom is the default room capacity
	MaxUsersPerRoom = 20

	// MaxNicknameLength is the maximum nickname length in characters
	MaxNicknameLength = 20

	// MaxRoomIDLength bounds client supplied room ids
	MaxRoomIDLength = 64
)

// ==== WebSocket Constants ====

const (
	// MaxMessageSize is the maximum allowed WebSocket frame size in bytes
	MaxMessageSize = 1 << 20

	// SendBufferSize is the number of outbound frames queued per connection
	SendBufferSize = 256

	// PongWait is how long a connection may stay silent before it is dropped
	PongWait = 60 * time.Second

	// PingPeriod is the heartbeat interval (must be less than PongWait)
	PingPeriod = 30 * time.Second
)

// ==== Envelope Types ====

const (
	EnvelopeGroupChatResponse = "group_chat_response"
	EnvelopeGroupChatError    = "group_chat_error"
	EnvelopeChatResponse      = "chat_response"
	EnvelopeChatError         = "chat_error"
	EnvelopeBroadcast         = "broadcast"
	EnvelopePong              = "pong"
)
