package runtime

import (
	"consult-chat/attachment"
	"consult-chat/contract"
	"consult-chat/domain"
	"consult-chat/domain/event"
	"consult-chat/errors"
	"consult-chat/projection"
	"consult-chat/stomp"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServerSender labels entries produced from broker ERROR frames.
const ServerSender = "server"

// NullContentDiagnostic is the text of the ERROR entry shown when a message
// arrives with a null content.
const NullContentDiagnostic = "message could not be displayed: content is missing"

type SessionConfig struct {
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
	ConnectTimeout       time.Duration
	SendBufferSize       int
	EventBufferSize      int
	StaffGreeting        string
	Host                 string
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReconnectInterval:    5 * time.Second,
		MaxReconnectInterval: 60 * time.Second,
		ConnectTimeout:       10 * time.Second,
		SendBufferSize:       64,
		EventBufferSize:      256,
		StaffGreeting:        "Hello, I am the pharmacist on duty. How can I help you today?",
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	def := DefaultSessionConfig()
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = def.ReconnectInterval
	}
	if c.MaxReconnectInterval < c.ReconnectInterval {
		c.MaxReconnectInterval = c.ReconnectInterval
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	// SUBSCRIBE plus the staff greeting must always fit in a fresh queue.
	if c.SendBufferSize < 2 {
		c.SendBufferSize = def.SendBufferSize
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = def.EventBufferSize
	}
	return c
}

// link is one live transport connection with its outbound queue.
type link struct {
	conn contract.Conn
	out  chan []byte
	done chan struct{}
}

// Session owns the connection lifecycle of one consultation:
// IDLE -> CONNECTING -> CONNECTED -> RECONNECTING -> ... -> CLOSED.
//
// All state lives under mu. Network I/O runs in per-connection goroutines
// tagged with an epoch; callbacks from an older epoch are ignored.
type Session struct {
	log          *slog.Logger
	config       SessionConfig
	consultation domain.Consultation
	dialer       contract.Dialer
	scheduler    contract.Scheduler
	codec        *stomp.Codec
	encoder      *attachment.Encoder
	timeline     *projection.Timeline

	mu           sync.Mutex
	state        domain.ConnectionState
	epoch        uint64
	link         *link
	timer        contract.Timer
	timerSeq     uint64
	failures     int
	lifetime     context.Context
	cancel       context.CancelFunc
	stopWatch    func() bool
	events       chan event.SessionEvent
	eventsClosed bool
}

func NewSession(
	log *slog.Logger,
	consultation domain.Consultation,
	dialer contract.Dialer,
	config SessionConfig,
) *Session {
	config = config.withDefaults()
	log = log.With("consultation", consultation.ID.String(), "role", consultation.Role.String())
	return &Session{
		log:          log,
		config:       config,
		consultation: consultation,
		dialer:       dialer,
		scheduler:    WallClock{},
		codec:        stomp.NewCodec(config.Host),
		encoder:      attachment.NewEncoder(log),
		timeline:     projection.NewTimeline(consultation.ID),
		state:        domain.StateIdle,
		events:       make(chan event.SessionEvent, config.EventBufferSize),
	}
}

// WithScheduler replaces the reconnect timer source. Call before Connect.
func (s *Session) WithScheduler(scheduler contract.Scheduler) *Session {
	s.scheduler = scheduler
	return s
}

func (s *Session) WithTimeline(timeline *projection.Timeline) *Session {
	s.timeline = timeline
	return s
}

func (s *Session) Consultation() domain.Consultation { return s.consultation }

func (s *Session) Timeline() *projection.Timeline { return s.timeline }

// Events is closed once the session reaches CLOSED.
func (s *Session) Events() <-chan event.SessionEvent { return s.events }

func (s *Session) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanSend drives the enabled state of the send affordance.
func (s *Session) CanSend() bool {
	return s.State() == domain.StateConnected
}

// Connect starts the first connection attempt and returns immediately.
// The session is closed when ctx is done.
func (s *Session) Connect(ctx context.Context) error {
	if !s.consultation.Authenticated() {
		return errors.ErrAuthRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateClosed:
		return errors.ErrSessionClosed
	case domain.StateIdle:
	default:
		return nil
	}

	s.lifetime, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.stopWatch = context.AfterFunc(ctx, func() { _ = s.Close() })
	s.attemptLocked()
	return nil
}

// Run connects and holds the session open until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Close()
}

// Close is idempotent and safe from any state. The goodbye and the socket
// close happen after the state lock is released, so readers never wait on
// a stalled transport.
func (s *Session) Close() error {
	l := s.shutdown()
	if l == nil {
		return nil
	}
	if err := l.conn.Write(s.codec.EncodeDisconnect(uuid.NewString())); err != nil {
		s.log.Debug("DISCONNECT not delivered", "error", err)
	}
	if err := l.conn.Close(); err != nil {
		s.log.Debug("Transport close failed", "error", err)
	}
	return nil
}

// shutdown moves to CLOSED and hands back the live link, if any.
func (s *Session) shutdown() *link {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateClosed {
		return nil
	}

	s.cancelTimerLocked()
	s.epoch++
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if s.cancel != nil {
		s.cancel()
	}
	l := s.link
	if l != nil {
		close(l.done)
		s.link = nil
	}

	s.transitionLocked(domain.StateClosed)
	s.eventsClosed = true
	close(s.events)
	return l
}

// Send appends the text to the timeline under "self" and queues it for the
// wire without waiting for any confirmation.
func (s *Session) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sendableLocked(); err != nil {
		return err
	}
	return s.publishLocked(
		domain.Message{Sender: domain.SelfSender, Kind: domain.KindText, Content: &text},
		stomp.Payload{Content: text},
	)
}

// SendFile reads and encodes the file, then sends it as a FILE message.
// A read failure is reported to the caller and as a notice; the connection
// is left untouched.
func (s *Session) SendFile(ctx context.Context, path string) error {
	s.mu.Lock()
	err := s.sendableLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	att, err := s.encoder.Encode(ctx, path)
	if err != nil {
		s.mu.Lock()
		s.noticeLocked(err)
		s.mu.Unlock()
		return err
	}
	return s.SendAttachment(att)
}

func (s *Session) SendAttachment(att domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sendableLocked(); err != nil {
		return err
	}
	label := att.FileName
	return s.publishLocked(
		domain.Message{Sender: domain.SelfSender, Kind: domain.KindFile, Content: &label, Attachment: &att},
		stomp.Payload{Content: label, FileData: attachment.DataURL(att), FileName: att.FileName},
	)
}

func (s *Session) sendableLocked() error {
	switch s.state {
	case domain.StateClosed:
		return errors.ErrSessionClosed
	case domain.StateConnected:
		return nil
	default:
		return errors.ErrNotConnected
	}
}

func (s *Session) publishLocked(msg domain.Message, payload stomp.Payload) error {
	raw, err := s.codec.EncodeSend(stomp.SendDestination(s.consultation.ID), payload)
	if err != nil {
		return err
	}
	// Only this method and establishLocked enqueue, both under mu, so the
	// capacity check holds until the push below.
	if len(s.link.out) == cap(s.link.out) {
		s.noticeLocked(errors.ErrSendQueueFull)
		return errors.ErrSendQueueFull
	}
	s.appendLocked(msg)
	s.link.out <- raw
	return nil
}

func (s *Session) attemptLocked() {
	s.epoch++
	s.transitionLocked(domain.StateConnecting)
	go s.dial(s.epoch)
}

func (s *Session) dial(epoch uint64) {
	ctx, cancel := context.WithTimeout(s.lifetime, s.config.ConnectTimeout)
	defer cancel()

	conn, err := s.handshake(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state != domain.StateConnecting {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		s.failLocked(err)
		return
	}
	s.establishLocked(epoch, conn)
}

type handshakeResult struct {
	frame stomp.Frame
	err   error
}

// handshake dials, sends CONNECT and waits for CONNECTED, all bounded by ctx.
func (s *Session) handshake(ctx context.Context) (contract.Conn, error) {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Write(s.codec.EncodeConnect(s.consultation.Credential)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	reply := make(chan handshakeResult, 1)
	go func() {
		for {
			raw, err := conn.Read()
			if err != nil {
				reply <- handshakeResult{err: err}
				return
			}
			frame, err := s.codec.Decode(raw)
			if err != nil {
				s.log.Warn("Discarding malformed frame during handshake", "error", err)
				continue
			}
			if frame.IsHeartbeat() {
				continue
			}
			reply <- handshakeResult{frame: frame}
			return
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("%w: handshake: %v", errors.ErrTransport, ctx.Err())
	case res := <-reply:
		if res.err != nil {
			_ = conn.Close()
			return nil, res.err
		}
		switch res.frame.Command {
		case stomp.CommandConnected:
			return conn, nil
		case stomp.CommandError:
			_ = conn.Close()
			return nil, fmt.Errorf("%w: %s", errors.ErrServerRejected, res.frame.Headers.Value(stomp.HeaderMessage))
		default:
			_ = conn.Close()
			return nil, fmt.Errorf("%w: unexpected %s before CONNECTED", errors.ErrTransport, res.frame.Command)
		}
	}
}

// establishLocked queues SUBSCRIBE before publishing CONNECTED, so it always
// precedes any SEND on the wire.
func (s *Session) establishLocked(epoch uint64, conn contract.Conn) {
	l := &link{
		conn: conn,
		out:  make(chan []byte, s.config.SendBufferSize),
		done: make(chan struct{}),
	}
	raw, subscriptionID := s.codec.EncodeSubscribe(stomp.ConsultationTopic(s.consultation.ID))
	l.out <- raw

	s.link = l
	s.failures = 0
	s.transitionLocked(domain.StateConnected)
	s.log.Info("Subscribed", "destination", stomp.ConsultationTopic(s.consultation.ID), "subscription", subscriptionID)

	if s.consultation.Role == domain.RoleStaff && s.config.StaffGreeting != "" {
		greeting := s.config.StaffGreeting
		if err := s.publishLocked(
			domain.Message{Sender: domain.SelfSender, Kind: domain.KindText, Content: &greeting},
			stomp.Payload{Content: greeting},
		); err != nil {
			s.log.Warn("Staff greeting not sent", "error", err)
		}
	}

	go s.writeLoop(epoch, l)
	go s.readLoop(epoch, l)
}

func (s *Session) writeLoop(epoch uint64, l *link) {
	for {
		select {
		case <-l.done:
			return
		case raw := <-l.out:
			if err := l.conn.Write(raw); err != nil {
				s.dropped(epoch, err)
				return
			}
		}
	}
}

func (s *Session) readLoop(epoch uint64, l *link) {
	for {
		raw, err := l.conn.Read()
		if err != nil {
			s.dropped(epoch, err)
			return
		}
		frame, err := s.codec.Decode(raw)
		if err != nil {
			s.log.Warn("Discarding malformed frame", "error", err)
			continue
		}
		s.dispatch(epoch, frame)
	}
}

func (s *Session) dropped(epoch uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state != domain.StateConnected {
		return
	}
	s.failLocked(err)
}

// failLocked moves CONNECTING or CONNECTED to RECONNECTING and arms the timer.
func (s *Session) failLocked(err error) {
	if s.link != nil {
		close(s.link.done)
		_ = s.link.conn.Close()
		s.link = nil
	}
	s.failures++
	s.log.Warn("Connection lost", "error", err, "failures", s.failures)
	s.transitionLocked(domain.StateReconnecting)
	s.noticeLocked(fmt.Errorf("%w: %w", errors.ErrTransport, err))
	s.scheduleRetryLocked()
}

// scheduleRetryLocked supersedes any pending timer.
func (s *Session) scheduleRetryLocked() {
	s.cancelTimerLocked()
	seq := s.timerSeq
	delay := s.backoffLocked()
	s.log.Info("Reconnect scheduled", "in", delay)
	s.timer = s.scheduler.AfterFunc(delay, func() { s.retry(seq) })
}

func (s *Session) cancelTimerLocked() {
	s.timerSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// backoffLocked doubles the interval per consecutive failure up to the cap.
func (s *Session) backoffLocked() time.Duration {
	delay := s.config.ReconnectInterval
	for i := 1; i < s.failures && delay < s.config.MaxReconnectInterval; i++ {
		delay *= 2
	}
	if delay > s.config.MaxReconnectInterval {
		delay = s.config.MaxReconnectInterval
	}
	return delay
}

// retry is a no-op unless the session is still waiting to reconnect, so a
// tick never produces a second concurrent connection.
func (s *Session) retry(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.timerSeq {
		return
	}
	s.timer = nil
	if s.state != domain.StateReconnecting {
		s.log.Debug("Reconnect tick ignored", "state", s.state.String())
		return
	}
	s.attemptLocked()
}

func (s *Session) dispatch(epoch uint64, frame stomp.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.state != domain.StateConnected {
		return
	}

	switch frame.Command {
	case stomp.CommandMessage:
		in, err := stomp.DecodeMessage(frame)
		if err != nil {
			s.log.Warn("Discarding undecodable message", "error", err)
			return
		}
		if !in.IsChat() {
			s.log.Warn("Discarding message without content", "sender", in.Sender)
			return
		}
		s.appendLocked(s.toMessage(in))
	case stomp.CommandError:
		text := frame.Headers.Value(stomp.HeaderMessage)
		if text == "" {
			text = string(frame.Body)
		}
		s.appendLocked(domain.Message{Sender: ServerSender, Kind: domain.KindSystem, Content: &text})
		s.noticeLocked(fmt.Errorf("%w: %s", errors.ErrServerRejected, text))
	default:
		s.log.Debug("Frame ignored", "command", string(frame.Command))
	}
}

func (s *Session) toMessage(in stomp.InboundMessage) domain.Message {
	msg := domain.Message{Sender: in.Sender}
	switch {
	case in.ContentNull:
		diagnostic := NullContentDiagnostic
		msg.Kind = domain.KindError
		msg.Content = &diagnostic
	case in.HasFile():
		att, err := attachment.Decode(in.FileName, in.FileData)
		if err != nil {
			s.log.Warn("Attachment could not be decoded", "file", in.FileName, "error", err)
			diagnostic := fmt.Sprintf("attachment %q could not be decoded", in.FileName)
			msg.Kind = domain.KindError
			msg.Content = &diagnostic
			return msg
		}
		label := in.Content
		if label == "" {
			label = in.FileName
		}
		msg.Kind = domain.KindFile
		msg.Content = &label
		msg.Attachment = &att
	default:
		content := in.Content
		msg.Kind = domain.KindText
		msg.Content = &content
	}
	return msg
}

func (s *Session) appendLocked(msg domain.Message) {
	stored := s.timeline.Append(msg)
	s.emitLocked(event.MessageAppended{Consultation: s.consultation.ID, Message: stored})
}

func (s *Session) transitionLocked(to domain.ConnectionState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.log.Debug("State changed", "from", from.String(), "to", to.String())
	s.emitLocked(event.StateChanged{Consultation: s.consultation.ID, From: from, To: to, At: time.Now()})
}

func (s *Session) noticeLocked(err error) {
	s.emitLocked(event.Notice{Consultation: s.consultation.ID, Err: err, At: time.Now()})
}

// emitLocked never blocks: the UI can always re-read State and the timeline.
func (s *Session) emitLocked(evt event.SessionEvent) {
	if s.eventsClosed {
		return
	}
	select {
	case s.events <- evt:
	default:
		s.log.Debug("Session event dropped", "type", fmt.Sprintf("%T", evt))
	}
}
