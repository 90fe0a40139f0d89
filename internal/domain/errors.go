package domain

import "errors"

var (
	ErrRoomFull       = errors.New("room is full")
	ErrNotMember      = errors.New("user not found in room")
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
	ErrUnknownCommand = errors.New("unknown message type")
	ErrInvalidFrame   = errors.New("invalid message format")
)
