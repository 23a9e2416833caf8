// Package domain contains core concepts of the chat relay.
// This file defines Message records and their visibility rules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BroadcastTarget is the reserved recipient meaning "everyone in the room".
const BroadcastTarget = "Todos"

// Status notice texts emitted when presence changes.
const (
	JoinNotice  = "entra na sala..."
	LeaveNotice = "sai da sala..."
)

// TimeLayout is the wall-clock format stored on every message.
const TimeLayout = "15:04:05"

type MessageType string

const (
	TypeMessage MessageType = "message"
	TypePrivate MessageType = "private_message"
	TypeStatus  MessageType = "status"
)

// Message is a chat record. ID, From, Time and At are immutable once stored;
// From defines ownership for edits and deletes.
type Message struct {
	ID   uuid.UUID
	From string
	To   string
	Text string
	Type MessageType
	Time string
	At   time.Time
}

// MessageEdit carries the mutable fields of a message.
type MessageEdit struct {
	To   string
	Text string
	Type MessageType
}

// NewStatus builds a system-generated presence notice addressed to everyone.
func NewStatus(name, text string, at time.Time) Message {
	return Message{
		ID:   uuid.New(),
		From: name,
		To:   BroadcastTarget,
		Text: text,
		Type: TypeStatus,
		Time: at.Format(TimeLayout),
		At:   at,
	}
}

// VisibleTo reports whether viewer may see the message: public messages,
// broadcasts, and anything the viewer sent or received.
func (m Message) VisibleTo(viewer string) bool {
	return m.Type == TypeMessage ||
		m.To == BroadcastTarget ||
		m.To == viewer ||
		m.From == viewer
}

// OwnedBy reports whether name is the message owner.
func (m Message) OwnedBy(name string) bool {
	return m.From == name
}
