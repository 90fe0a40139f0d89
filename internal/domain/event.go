package domain

import (
	"encoding/json"
	"fmt"
)

// EventType is the closed set of group chat event kinds
type EventType string

const (
	EventRoomJoined EventType = "room_joined"
	EventRoomFull   EventType = "room_full"
	EventUserJoined EventType = "user_joined"
	EventUserLeft   EventType = "user_left"
	EventMessage    EventType = "message"
	EventUserList   EventType = "user_list"
	EventError      EventType = "error"
)

// Event is a group chat event. The set of implementations is closed: only
// the types in this file satisfy it.
type Event interface {
	Type() EventType
	isEvent()
}

// RoomJoined is returned to a joining connection
type RoomJoined struct {
	Nickname  string // assigned nickname, possibly disambiguated
	UserID    string
	Users     []User
	UserCount int
}

// RoomFull is returned when a join hits capacity
type RoomFull struct {
	Error string
}

// UserJoined is broadcast to everyone except the joining connection
type UserJoined struct {
	Sender    string
	UserID    string
	Users     []User
	UserCount int
}

// UserLeft is broadcast to the remaining members. The acknowledgment sent
// back to the leaver carries no roster.
type UserLeft struct {
	Sender    string
	UserID    string
	Users     []User
	UserCount int
	Ack       bool
}

// ChatMessage is broadcast to every member including the sender
type ChatMessage struct {
	Message string
	Sender  string
	UserID  string
}

// UserList answers get_users
type UserList struct {
	Users     []User
	UserCount int
}

// Error reports a failure to the requester only
type Error struct {
	Error string
}

func (RoomJoined) Type() EventType  { return EventRoomJoined }
func (RoomFull) Type() EventType    { return EventRoomFull }
func (UserJoined) Type() EventType  { return EventUserJoined }
func (UserLeft) Type() EventType    { return EventUserLeft }
func (ChatMessage) Type() EventType { return EventMessage }
func (UserList) Type() EventType    { return EventUserList }
func (Error) Type() EventType       { return EventError }

func (RoomJoined) isEvent()  {}
func (RoomFull) isEvent()    {}
func (UserJoined) isEvent()  {}
func (UserLeft) isEvent()    {}
func (ChatMessage) isEvent() {}
func (UserList) isEvent()    {}
func (Error) isEvent()       {}

func roster(users []User) []User {
	if users == nil {
		return []User{}
	}
	return users
}

func (e RoomJoined) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      EventType `json:"type"`
		Sender    string    `json:"sender,omitempty"`
		UserID    string    `json:"userId,omitempty"`
		Users     []User    `json:"users"`
		UserCount int       `json:"userCount"`
	}{e.Type(), e.Nickname, e.UserID, roster(e.Users), e.UserCount})
}

func (e RoomFull) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  EventType `json:"type"`
		Error string    `json:"error"`
	}{e.Type(), e.Error})
}

func (e UserJoined) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      EventType `json:"type"`
		Sender    string    `json:"sender"`
		UserID    string    `json:"userId"`
		Users     []User    `json:"users"`
		UserCount int       `json:"userCount"`
	}{e.Type(), e.Sender, e.UserID, roster(e.Users), e.UserCount})
}

func (e UserLeft) MarshalJSON() ([]byte, error) {
	if e.Ack {
		return json.Marshal(struct {
			Type   EventType `json:"type"`
			Sender string    `json:"sender"`
			UserID string    `json:"userId,omitempty"`
		}{e.Type(), e.Sender, e.UserID})
	}
	return json.Marshal(struct {
		Type      EventType `json:"type"`
		Sender    string    `json:"sender"`
		UserID    string    `json:"userId,omitempty"`
		Users     []User    `json:"users"`
		UserCount int       `json:"userCount"`
	}{e.Type(), e.Sender, e.UserID, roster(e.Users), e.UserCount})
}

func (e ChatMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    EventType `json:"type"`
		Message string    `json:"message"`
		Sender  string    `json:"sender"`
		UserID  string    `json:"userId"`
	}{e.Type(), e.Message, e.Sender, e.UserID})
}

func (e UserList) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      EventType `json:"type"`
		Users     []User    `json:"users"`
		UserCount int       `json:"userCount"`
	}{e.Type(), roster(e.Users), e.UserCount})
}

func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  EventType `json:"type"`
		Error string    `json:"error"`
	}{e.Type(), e.Error})
}

// Response is the group_chat_response envelope
type Response struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

// ErrorResponse is the protocol level group_chat_error envelope
type ErrorResponse struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// EncodeEvent wraps an event in its envelope and serializes it
func EncodeEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("encode event: nil event")
	}
	data, err := json.Marshal(Response{Type: EnvelopeGroupChatResponse, Data: e})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Type(), err)
	}
	return data, nil
}

// EncodeError serializes a group_chat_error envelope
func EncodeError(msg string) []byte {
	data, _ := json.Marshal(ErrorResponse{Type: EnvelopeGroupChatError, Error: msg})
	return data
}
