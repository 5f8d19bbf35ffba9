package workers

import (
	"consult-chat/domain"
	"consult-chat/domain/event"
	"consult-chat/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Fanout(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mocks.NewMockEventSink(ctrl)
	second := mocks.NewMockEventSink(ctrl)
	evt := event.StateChanged{Consultation: 42, From: domain.StateIdle, To: domain.StateConnecting, At: time.Now()}

	// Given two sinks registered in order
	gomock.InOrder(
		first.EXPECT().Consume(evt).Times(1),
		second.EXPECT().Consume(evt).Times(1),
	)

	NewEventFanout(log, nil).Add(first, second).Fanout(evt)
}

func TestEventFanout_RunStopsWhenChannelCloses(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockEventSink(ctrl)
	events := make(chan event.SessionEvent, 3)
	text := "hello"
	events <- event.MessageAppended{Consultation: 42, Message: domain.Message{Sender: "Staff", Content: &text}}
	events <- event.Notice{Consultation: 42, At: time.Now()}
	close(events)

	// Then every buffered event reaches the sink before Run returns
	sink.EXPECT().Consume(gomock.Any()).Times(2)

	done := make(chan error, 1)
	go func() { done <- NewEventFanout(log, events).Add(sink).Run(context.Background()) }()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Fanout did not stop after the channel closed")
	}
}

func TestEventFanout_RunStopsOnCancel(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- NewEventFanout(slog.Default(), make(chan event.SessionEvent)).Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Fanout did not stop after cancellation")
	}
}
