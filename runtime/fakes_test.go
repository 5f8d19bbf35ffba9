package runtime

import (
	"bytes"
	"consult-chat/contract"
	"consult-chat/stomp"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const connectedFrame = "CONNECTED\nversion:1.2\n\n\x00"

// fakeConn is an in-memory broker connection. It answers CONNECT with
// CONNECTED unless rejectWith is set.
type fakeConn struct {
	mu         sync.Mutex
	written    [][]byte
	inbound    chan []byte
	closed     chan struct{}
	closeOnce  sync.Once
	rejectWith string
	silent     bool
	// stallGoodbye blocks the DISCONNECT write until it is closed.
	stallGoodbye chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 128), closed: make(chan struct{})}
}

func (c *fakeConn) Write(frame []byte) error {
	if c.stallGoodbye != nil && bytes.HasPrefix(frame, []byte(stomp.CommandDisconnect)) {
		<-c.stallGoodbye
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	c.written = append(c.written, append([]byte(nil), frame...))

	parsed, err := stomp.Unmarshal(frame)
	if err == nil && parsed.Command == stomp.CommandConnect && !c.silent {
		if c.rejectWith != "" {
			c.inbound <- stomp.Frame{
				Command: stomp.CommandError,
				Headers: stomp.Headers{{Key: stomp.HeaderMessage, Value: c.rejectWith}},
			}.Marshal()
		} else {
			c.inbound <- []byte(connectedFrame)
		}
	}
	return nil
}

func (c *fakeConn) Read() ([]byte, error) {
	select {
	case raw := <-c.inbound:
		return raw, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// drop simulates the server going away.
func (c *fakeConn) drop() { _ = c.Close() }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(raw string) { c.inbound <- []byte(raw) }

func (c *fakeConn) pushMessage(body string) {
	c.push(fmt.Sprintf("MESSAGE\ndestination:/topic/consultation/42\nsubscription:sub-1\n\n%s\x00", body))
}

func (c *fakeConn) frames() []stomp.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]stomp.Frame, 0, len(c.written))
	for _, raw := range c.written {
		frame, err := stomp.Unmarshal(raw)
		if err != nil {
			panic(err)
		}
		out = append(out, frame)
	}
	return out
}

func (c *fakeConn) count(cmd stomp.Command) int {
	n := 0
	for _, frame := range c.frames() {
		if frame.Command == cmd {
			n++
		}
	}
	return n
}

func (c *fakeConn) commands() []stomp.Command {
	var out []stomp.Command
	for _, frame := range c.frames() {
		out = append(out, frame.Command)
	}
	return out
}

type fakeDialer struct {
	mu       sync.Mutex
	conns    []*fakeConn
	dials    atomic.Int32
	gate     chan struct{}
	failWith error
	prepare  func(*fakeConn)
}

func (d *fakeDialer) Dial(ctx context.Context) (contract.Conn, error) {
	d.dials.Add(1)
	d.mu.Lock()
	gate, failWith, prepare := d.gate, d.failWith, d.prepare
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failWith != nil {
		return nil, failWith
	}
	conn := newFakeConn()
	if prepare != nil {
		prepare(conn)
	}
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) setGate(gate chan struct{}) {
	d.mu.Lock()
	d.gate = gate
	d.mu.Unlock()
}

func (d *fakeDialer) setFailure(err error) {
	d.mu.Lock()
	d.failWith = err
	d.mu.Unlock()
}

func (d *fakeDialer) connections() []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeConn(nil), d.conns...)
}

func (d *fakeDialer) last() *fakeConn {
	conns := d.connections()
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// manualScheduler records timers; tests fire them by hand.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *manualTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) contract.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{delay: d, fn: f}
	s.timers = append(s.timers, timer)
	return timer
}

func (s *manualScheduler) all() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*manualTimer(nil), s.timers...)
}

func (s *manualScheduler) pending() []*manualTimer {
	var out []*manualTimer
	for _, timer := range s.all() {
		if !timer.stopped.Load() && !timer.fired.Load() {
			out = append(out, timer)
		}
	}
	return out
}

// fireLast runs the newest timer callback, even when it already ran.
func (s *manualScheduler) fireLast() {
	timers := s.all()
	if len(timers) == 0 {
		panic("no timer scheduled")
	}
	last := timers[len(timers)-1]
	last.fired.Store(true)
	last.fn()
}
