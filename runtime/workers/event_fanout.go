package workers

import (
	"consult-chat/contract"
	"consult-chat/domain/event"
	"context"
	"log/slog"
)

// EventFanout drains the event channel of a session and hands every event
// to each sink in registration order.
//
// Delivery is best effort: sinks must not block, since a slow sink delays
// the others. Run returns nil once the session closes its channel.
type EventFanout struct {
	Log    *slog.Logger
	Name   contract.WorkerName
	events <-chan event.SessionEvent
	sinks  []contract.EventSink
}

func NewEventFanout(log *slog.Logger, events <-chan event.SessionEvent) *EventFanout {
	return &EventFanout{Log: log, events: events}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) WithName(name string) *EventFanout {
	w.Name = contract.WorkerName(name)
	return w
}

func (w *EventFanout) GetName() contract.WorkerName { return w.Name }

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				w.Log.Debug("Session events closed, stopping fanout")
				return nil
			}
			w.Fanout(evt)
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout one sink after the other.
func (w *EventFanout) Fanout(evt event.SessionEvent) {
	for _, sink := range w.sinks {
		sink.Consume(evt)
	}
}
