// Package projection builds the local timeline of one consultation.
// The timeline is append-only and ordered by arrival.
// Does not emit events or interact with UI directly.
package projection

import (
	"consult-chat/domain"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Timeline is the in-memory message history of a consultation.
// Only the owning session appends; readers take snapshots.
type Timeline struct {
	Consultation domain.ConsultationID

	mu       sync.RWMutex
	messages []domain.Message
	now      func() time.Time
}

func NewTimeline(id domain.ConsultationID) *Timeline {
	return &Timeline{Consultation: id, now: time.Now}
}

// WithClock replaces the timestamp source.
func (t *Timeline) WithClock(now func() time.Time) *Timeline {
	t.now = now
	return t
}

// Append stamps the message and adds it at the end.
// Timestamps never go backwards even if the wall clock does.
func (t *Timeline) Append(msg domain.Message) domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	at := t.now()
	if n := len(t.messages); n > 0 && at.Before(t.messages[n-1].Timestamp) {
		at = t.messages[n-1].Timestamp
	}
	msg.Timestamp = at
	t.messages = append(t.messages, msg)
	return msg
}

// Messages returns a copy, safe to keep while the session appends.
func (t *Timeline) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Timeline) Last() (domain.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return domain.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Clear drops everything, used when the chat panel goes away.
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
