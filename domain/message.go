// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	NormalMessage  MessageType = "message"
	PrivateMessage MessageType = "private_message"
	StatusMessage  MessageType = "status"
)

// BroadcastTarget is the reserved recipient meaning every participant.
// Matched case-sensitively.
const BroadcastTarget = "all"

const (
	JoinedText = "joined"
	LeftText   = "left"
)

// TimeLayout renders the wall-clock time of a message on a 12-hour clock.
const TimeLayout = "03:04:05"

// Message represents a chat event.
type Message struct {
	ID        uuid.UUID // time ordered, defines the store order
	From      string
	To        string
	Text      string
	Type      MessageType
	Time      string
	CreatedAt time.Time // never updated
}

// MessagePatch holds the fields an owner may overwrite.
type MessagePatch struct {
	To   string
	Text string
	Type MessageType
	Time string
}

func NewMessage(from, to, text string, messageType MessageType, at time.Time) Message {
	return Message{
		ID:        uuid.Must(uuid.NewV7()),
		From:      from,
		To:        to,
		Text:      text,
		Type:      messageType,
		Time:      at.Format(TimeLayout),
		CreatedAt: at,
	}
}

// NewStatusMessage builds the broadcast notice emitted when name joins or leaves.
func NewStatusMessage(name, text string, at time.Time) Message {
	return NewMessage(name, BroadcastTarget, text, StatusMessage, at)
}

// VisibleTo reports whether requester may read the message.
func (m Message) VisibleTo(requester string) bool {
	return m.To == requester || m.To == BroadcastTarget || m.From == requester
}

func (m Message) Apply(patch MessagePatch) Message {
	m.To = patch.To
	m.Text = patch.Text
	m.Type = patch.Type
	m.Time = patch.Time
	return m
}

// Window keeps the tail of messages selected by limit, mirroring slice(-limit):
// zero keeps everything, a positive limit keeps the last limit entries and a
// negative one drops the first -limit entries.
func Window(messages []Message, limit int) []Message {
	switch {
	case limit == 0:
		return messages
	case limit > 0:
		if limit >= len(messages) {
			return messages
		}
		return messages[len(messages)-limit:]
	default:
		skip := -limit
		if skip >= len(messages) {
			return []Message{}
		}
		return messages[skip:]
	}
}
