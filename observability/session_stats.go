package observability

import (
	"consult-chat/contract"
	"consult-chat/domain"
	"consult-chat/domain/event"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// SessionStats counts what flowed through one session. It is an event sink;
// every counter is safe to read while events are consumed.
type SessionStats struct {
	Sent        atomic.Uint64
	Received    atomic.Uint64
	Errors      atomic.Uint64
	Bytes       atomic.Uint64
	Reconnects  atomic.Uint64
	Notices     atomic.Uint64
	// WorkerRestarts counts panel workers restarted by the supervisor.
	WorkerRestarts atomic.Uint64
	connectedAt    atomic.Int64
}

func NewSessionStats() *SessionStats {
	return &SessionStats{}
}

func (s *SessionStats) Consume(e event.SessionEvent) {
	switch evt := e.(type) {
	case event.MessageAppended:
		msg := evt.Message
		switch {
		case msg.Kind == domain.KindError:
			s.Errors.Add(1)
		case msg.IsSelf():
			s.Sent.Add(1)
		default:
			s.Received.Add(1)
		}
		if msg.Attachment != nil {
			s.Bytes.Add(uint64(msg.Attachment.Size()))
		}
	case event.StateChanged:
		switch evt.To {
		case domain.StateReconnecting:
			s.Reconnects.Add(1)
		case domain.StateConnected:
			s.connectedAt.Store(evt.At.UnixNano())
		}
	case event.Notice:
		s.Notices.Add(1)
	}
}

// WorkerRestarted is a supervisor restart hook.
func (s *SessionStats) WorkerRestarted(_ contract.WorkerName, _ error) {
	s.WorkerRestarts.Add(1)
}

// ConnectedSince is zero until the first CONNECTED.
func (s *SessionStats) ConnectedSince() time.Time {
	nanos := s.connectedAt.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (s *SessionStats) String() string {
	since := "never"
	if at := s.ConnectedSince(); !at.IsZero() {
		since = humanize.Time(at)
	}
	return fmt.Sprintf("sent=%d received=%d errors=%d attachments=%s reconnects=%d restarts=%d connected %s",
		s.Sent.Load(), s.Received.Load(), s.Errors.Load(),
		humanize.Bytes(s.Bytes.Load()), s.Reconnects.Load(), s.WorkerRestarts.Load(), since)
}
