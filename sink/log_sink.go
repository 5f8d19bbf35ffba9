package sink

import (
	"consult-chat/domain/event"
	"log/slog"
)

// LogSink mirrors session events into the structured log so a session can
// be followed from the log file alone.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Consume(e event.SessionEvent) {
	switch evt := e.(type) {
	case event.StateChanged:
		s.log.Info("Session state changed",
			"consultation", evt.Consultation.String(),
			"from", evt.From.String(),
			"to", evt.To.String())
	case event.MessageAppended:
		s.log.Debug("Message appended",
			"consultation", evt.Consultation.String(),
			"id", evt.Message.ID.String(),
			"sender", evt.Message.Sender,
			"kind", evt.Message.Kind.String())
	case event.Notice:
		s.log.Warn("Session notice", "consultation", evt.Consultation.String(), "error", evt.Err)
	}
}
