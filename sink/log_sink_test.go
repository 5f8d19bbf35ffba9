package sink

import (
	"bytes"
	"consult-chat/domain"
	"consult-chat/domain/event"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogSink_Consume(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewLogSink(log)
	text := "hello"

	s.Consume(event.StateChanged{Consultation: 42, From: domain.StateIdle, To: domain.StateConnecting, At: time.Now()})
	s.Consume(event.MessageAppended{Consultation: 42, Message: domain.Message{Sender: "Staff", Kind: domain.KindText, Content: &text}})
	s.Consume(event.Notice{Consultation: 42, Err: fmt.Errorf("boom"), At: time.Now()})

	out := buf.String()
	req.Contains(out, "to=CONNECTING")
	req.Contains(out, "sender=Staff")
	req.Contains(out, "error=boom")
	req.Contains(out, "consultation=42")
}
