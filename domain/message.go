// Package domain contains core concepts of the consultation chat.
// This file defines Message events and related rules.
// Messages are immutable once appended to a timeline.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SelfSender marks messages originated by the local participant.
const SelfSender = "self"

type MessageKind int

const (
	KindText MessageKind = iota
	KindFile
	KindError
	KindSystem
)

func (k MessageKind) String() string {
	switch k {
	case KindText:
		return "TEXT"
	case KindFile:
		return "FILE"
	case KindError:
		return "ERROR"
	case KindSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Message represents one chat event, ordered by arrival.
// Content is nil only when the server explicitly sent a null content.
type Message struct {
	ID         uuid.UUID // unique identifier
	Sender     string
	Kind       MessageKind
	Content    *string
	Attachment *Attachment
	Timestamp  time.Time
}

// Text returns the content or an empty string when it is absent.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

func (m Message) IsSelf() bool {
	return m.Sender == SelfSender
}

// Attachment is a file embedded inline in a message payload.
type Attachment struct {
	FileName string
	MimeType string
	Payload  []byte
}

func (a Attachment) Size() int {
	return len(a.Payload)
}
