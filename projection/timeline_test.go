package projection

import (
	"consult-chat/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestTimeline_Append_KeepsArrivalOrder(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(42)

	// Given three messages from two senders
	timeline.Append(domain.Message{Sender: "Alice", Kind: domain.KindText, Content: lo.ToPtr("Hello")})
	timeline.Append(domain.Message{Sender: domain.SelfSender, Kind: domain.KindText, Content: lo.ToPtr("Hi")})
	timeline.Append(domain.Message{Sender: "Alice", Kind: domain.KindText, Content: lo.ToPtr("How are you?")})

	// Then they are kept in the same relative order
	messages := timeline.Messages()
	req.Len(messages, 3)
	req.Equal("Hello", messages[0].Text())
	req.Equal("Hi", messages[1].Text())
	req.Equal("How are you?", messages[2].Text())
	for _, msg := range messages {
		req.NotEqual(uuid.Nil, msg.ID)
	}
}

func TestTimeline_Append_TimestampsNeverGoBackwards(t *testing.T) {
	req := require.New(t)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	timeline := NewTimeline(1).WithClock(func() time.Time {
		at := ticks[i]
		i++
		return at
	})

	first := timeline.Append(domain.Message{Sender: "a"})
	// When the wall clock jumps backwards
	second := timeline.Append(domain.Message{Sender: "b"})
	third := timeline.Append(domain.Message{Sender: "c"})

	req.Equal(base, first.Timestamp)
	req.Equal(base, second.Timestamp)
	req.Equal(base.Add(time.Second), third.Timestamp)
}

func TestTimeline_Messages_ReturnsSnapshot(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(1)
	timeline.Append(domain.Message{Sender: "a"})

	snapshot := timeline.Messages()
	timeline.Append(domain.Message{Sender: "b"})

	req.Len(snapshot, 1)
	req.Equal(2, timeline.Len())
	last, ok := timeline.Last()
	req.True(ok)
	req.Equal("b", last.Sender)

	timeline.Clear()
	req.Equal(0, timeline.Len())
	_, ok = timeline.Last()
	req.False(ok)
}
