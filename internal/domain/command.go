package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CommandType defines the type of an inbound frame
type CommandType string

const (
	CommandJoinRoom    CommandType = "join_room"
	CommandLeaveRoom   CommandType = "leave_room"
	CommandSendMessage CommandType = "send_message"
	CommandGetUsers    CommandType = "get_users"
	CommandPing        CommandType = "ping"
	CommandChatMessage CommandType = "chat_message"
	CommandBroadcast   CommandType = "broadcast"
)

// Frame is the raw shape of every inbound frame. Fields that do not apply
// to a command type are ignored.
type Frame struct {
	Type        CommandType     `json:"type"`
	Nickname    string          `json:"nickname,omitempty"`
	RoomID      string          `json:"room_id,omitempty"`
	Message     string          `json:"message,omitempty"`
	Content     string          `json:"content,omitempty"`
	MessageID   string          `json:"message_id,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	From        string          `json:"from,omitempty"`
}

// DecodeFrame parses an inbound frame
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrInvalidFrame)
	}
	return f, nil
}

type JoinRoomCommand struct {
	Nickname string `validate:"required,min=1,max=20"`
	RoomID   string `validate:"omitempty,max=64"`
}

type LeaveRoomCommand struct {
	RoomID string `validate:"omitempty,max=64"`
}

type SendMessageCommand struct {
	Message string `validate:"required,min=1"`
	RoomID  string `validate:"omitempty,max=64"`
}

type GetUsersCommand struct {
	RoomID string `validate:"omitempty,max=64"`
}

// Attachment is a file sent along with an AI chat message
type Attachment struct {
	Name     string `json:"name" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
	Data     string `json:"data" validate:"required,base64"`
	Size     int    `json:"size,omitempty"`
}

// ChatRequest is an AI chat message handed to the response streamer
type ChatRequest struct {
	Content     string       `validate:"required,min=1"`
	MessageID   string       `validate:"required"`
	Attachments []Attachment `validate:"omitempty,dive"`
}

// JoinRoom builds a validated join command. Nickname whitespace is trimmed.
func (f Frame) JoinRoom() (JoinRoomCommand, error) {
	cmd := JoinRoomCommand{Nickname: strings.TrimSpace(f.Nickname), RoomID: strings.TrimSpace(f.RoomID)}
	return cmd, Validate(cmd)
}

func (f Frame) LeaveRoom() (LeaveRoomCommand, error) {
	cmd := LeaveRoomCommand{RoomID: strings.TrimSpace(f.RoomID)}
	return cmd, Validate(cmd)
}

func (f Frame) SendMessage() (SendMessageCommand, error) {
	cmd := SendMessageCommand{Message: strings.TrimSpace(f.Message), RoomID: strings.TrimSpace(f.RoomID)}
	return cmd, Validate(cmd)
}

func (f Frame) GetUsers() (GetUsersCommand, error) {
	cmd := GetUsersCommand{RoomID: strings.TrimSpace(f.RoomID)}
	return cmd, Validate(cmd)
}

func (f Frame) ChatRequest() (ChatRequest, error) {
	req := ChatRequest{Content: f.Content, MessageID: f.MessageID, Attachments: f.Attachments}
	return req, Validate(req)
}

var validate = validator.New()

// Validate checks a command's struct tags and turns the first violation into
// a message fit for the client.
func Validate(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return &ValidationError{Field: verrs[0].Field(), Tag: verrs[0].Tag(), Param: verrs[0].Param()}
}

// ValidationError describes a rejected command field
type ValidationError struct {
	Field string
	Tag   string
	Param string
}

func (e *ValidationError) Error() string {
	field := fieldNames[e.Field]
	if field == "" {
		field = strings.ToLower(e.Field)
	}
	switch e.Tag {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param)
	default:
		return field + " is invalid"
	}
}

var fieldNames = map[string]string{
	"Nickname":  "nickname",
	"RoomID":    "room_id",
	"Message":   "message",
	"Content":   "content",
	"MessageID": "message_id",
	"Data":      "attachment data",
	"Name":      "attachment name",
	"MimeType":  "attachment mime_type",
}
