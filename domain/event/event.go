package event

import (
	"consult-chat/domain"
	"time"
)

// SessionEvent is everything a session publishes to the UI on its single
// notification channel.
type SessionEvent interface {
	ConsultationID() domain.ConsultationID
	OccurredAt() time.Time
}

type StateChanged struct {
	Consultation domain.ConsultationID
	From         domain.ConnectionState
	To           domain.ConnectionState
	At           time.Time
}

func (e StateChanged) ConsultationID() domain.ConsultationID { return e.Consultation }
func (e StateChanged) OccurredAt() time.Time                 { return e.At }

// MessageAppended is emitted after the message reached the timeline.
type MessageAppended struct {
	Consultation domain.ConsultationID
	Message      domain.Message
}

func (e MessageAppended) ConsultationID() domain.ConsultationID { return e.Consultation }
func (e MessageAppended) OccurredAt() time.Time                 { return e.Message.Timestamp }

// Notice is a transient, non-blocking notification for the user.
// Err wraps one of the sentinel errors of the errors package.
type Notice struct {
	Consultation domain.ConsultationID
	Err          error
	At           time.Time
}

func (e Notice) ConsultationID() domain.ConsultationID { return e.Consultation }
func (e Notice) OccurredAt() time.Time                 { return e.At }
