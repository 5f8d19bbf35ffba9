package observability

import (
	"consult-chat/domain"
	"consult-chat/domain/event"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStats_Consume(t *testing.T) {
	req := require.New(t)
	stats := NewSessionStats()
	text := "hi"
	at := time.Now()

	stats.Consume(event.StateChanged{Consultation: 1, From: domain.StateConnecting, To: domain.StateConnected, At: at})
	stats.Consume(event.MessageAppended{Consultation: 1, Message: domain.Message{Sender: domain.SelfSender, Kind: domain.KindText, Content: &text}})
	stats.Consume(event.MessageAppended{Consultation: 1, Message: domain.Message{
		Sender: "Staff", Kind: domain.KindFile, Content: &text,
		Attachment: &domain.Attachment{FileName: "a.pdf", Payload: make([]byte, 2048)},
	}})
	stats.Consume(event.MessageAppended{Consultation: 1, Message: domain.Message{Sender: "Staff", Kind: domain.KindError, Content: &text}})
	stats.Consume(event.StateChanged{Consultation: 1, From: domain.StateConnected, To: domain.StateReconnecting, At: at})
	stats.Consume(event.Notice{Consultation: 1, Err: fmt.Errorf("lost"), At: at})

	req.EqualValues(1, stats.Sent.Load())
	req.EqualValues(1, stats.Received.Load())
	req.EqualValues(1, stats.Errors.Load())
	req.EqualValues(2048, stats.Bytes.Load())
	req.EqualValues(1, stats.Reconnects.Load())
	req.EqualValues(1, stats.Notices.Load())
	req.Equal(at.UnixNano(), stats.ConnectedSince().UnixNano())
	req.Contains(stats.String(), "attachments=2.0 kB")
}

func TestSessionStats_WorkerRestarted(t *testing.T) {
	stats := NewSessionStats()

	stats.WorkerRestarted("Input", fmt.Errorf("boom"))
	stats.WorkerRestarted("Input", fmt.Errorf("boom"))

	require.EqualValues(t, 2, stats.WorkerRestarts.Load())
	require.Contains(t, stats.String(), "restarts=2")
}

func TestSessionStats_NeverConnected(t *testing.T) {
	stats := NewSessionStats()

	require.True(t, stats.ConnectedSince().IsZero())
	require.Contains(t, stats.String(), "connected never")
}
