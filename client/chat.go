// Package client is the terminal chat panel bound to one consultation.
package client

import (
	"consult-chat/contract"
	"consult-chat/observability"
	"consult-chat/runtime/workers"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Chat wires a session to the terminal: events are rendered by a fanout
// worker, lines typed by the user are executed by an input worker, both
// under one supervisor.
type Chat struct {
	log        *slog.Logger
	session    contract.ChatSession
	in         io.Reader
	out        io.Writer
	colours    bool
	largeBytes int
	sinks      []contract.EventSink
	stats      *observability.SessionStats
}

func NewChat(log *slog.Logger, session contract.ChatSession, in io.Reader, out io.Writer) *Chat {
	return &Chat{
		log:        log,
		session:    session,
		in:         in,
		out:        out,
		largeBytes: 5 << 20,
		stats:      observability.NewSessionStats(),
	}
}

func (c *Chat) WithColours(colours bool) *Chat {
	c.colours = colours
	return c
}

func (c *Chat) WithLargeAttachment(bytes int) *Chat {
	c.largeBytes = bytes
	return c
}

// WithSinks adds consumers next to the terminal renderer.
func (c *Chat) WithSinks(sinks ...contract.EventSink) *Chat {
	c.sinks = append(c.sinks, sinks...)
	return c
}

func (c *Chat) Stats() *observability.SessionStats { return c.stats }

// Run blocks until the user quits, input ends or ctx is done. The session
// is closed and its timeline cleared on return.
func (c *Chat) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer := NewRenderer(c.out, c.colours).WithLargeAttachment(c.largeBytes)
	fanout := workers.NewEventFanout(c.log, c.session.Events()).
		WithName("session-events").
		Add(renderer, c.stats).
		Add(c.sinks...)
	input := NewInput(c.log, c.session, c.in, renderer, cancel).
		WithLargeAttachment(c.largeBytes).
		WithStats(c.stats)

	if err := c.session.Connect(ctx); err != nil {
		return err
	}
	renderer.Println(fmt.Sprintf("consultation %s as %s, type /help for commands",
		c.session.Consultation().ID, c.session.Consultation().Role))

	workers.NewSupervisor(c.log).
		WithRestartHook(c.stats.WorkerRestarted).
		Add(fanout, input).
		Run(ctx)

	err := c.session.Close()
	c.session.Timeline().Clear()
	return err
}
