package e2e

import (
	"consult-chat/contract"
	"consult-chat/domain"
	"consult-chat/runtime"
	"consult-chat/stomp"
	"consult-chat/transport"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseStompSuite struct {
	suite.Suite
	Config Config
	// Broker is nil when the suite targets an external broker.
	Broker *Broker
}

// SetupSuite loads the environment configuration and starts a local broker
// unless one is configured.
func (s *BaseStompSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.WsURL == "" {
		s.Broker = NewBroker()
		s.Config.WsURL = s.Broker.URL()
	}
}

func (s *BaseStompSuite) TearDownSuite() {
	if s.Broker != nil {
		s.Broker.Close()
	}
}

// Header prints a step title in the test log.
func (s *BaseStompSuite) Header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Dialer returns a websocket dialer, wrapped to dump frames when
// E2E_DEBUG_FRAMES is set.
func (s *BaseStompSuite) Dialer(t *testing.T) contract.Dialer {
	dialer := transport.NewWebSocketDialer(slog.Default(), transport.Config{URL: s.Config.WsURL, WriteTimeout: 5 * time.Second})
	if !s.Config.DebugFrames {
		return dialer
	}
	return &tracingDialer{t: t, next: dialer}
}

// WithSession opens a session for the configured consultation and closes it
// once fn returns.
func (s *BaseStompSuite) WithSession(name string, role domain.Role, token string, fn func(ctx context.Context, session *runtime.Session)) {
	s.Header(s.T(), name)
	config := runtime.DefaultSessionConfig()
	config.ReconnectInterval = 100 * time.Millisecond
	config.MaxReconnectInterval = 400 * time.Millisecond
	config.ConnectTimeout = 5 * time.Second

	consultation := domain.Consultation{ID: domain.ConsultationID(s.Config.ConsultationID), Role: role, Credential: token}
	session := runtime.NewSession(logs.GetLoggerFromLevel(slog.LevelDebug), consultation, s.Dialer(s.T()), config)
	defer func() { _ = session.Close() }()

	topic := stomp.ConsultationTopic(consultation.ID)
	var subscribed int
	if s.Broker != nil {
		subscribed = s.Broker.Subscribers(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(session.Connect(ctx))
	s.AwaitState(session, domain.StateConnected)
	if s.Broker != nil {
		s.Require().Eventually(func() bool { return s.Broker.Subscribers(topic) > subscribed },
			5*time.Second, 10*time.Millisecond, "broker never saw the subscription")
	}

	fn(ctx, session)
}

// AwaitState polls until the session reaches the expected state.
func (s *BaseStompSuite) AwaitState(session *runtime.Session, expected domain.ConnectionState) {
	s.Require().Eventually(func() bool { return session.State() == expected },
		5*time.Second, 10*time.Millisecond, "session never reached %s", expected)
}

// AwaitMessage polls the timeline for a message from sender with the given text.
func (s *BaseStompSuite) AwaitMessage(session *runtime.Session, sender, text string) domain.Message {
	var found domain.Message
	s.Require().Eventually(func() bool {
		for _, msg := range session.Timeline().Messages() {
			if msg.Sender == sender && msg.Text() == text {
				found = msg
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "no message %q from %s", text, sender)
	return found
}

type tracingDialer struct {
	t    *testing.T
	next contract.Dialer
}

func (d *tracingDialer) Dial(ctx context.Context) (contract.Conn, error) {
	conn, err := d.next.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return &tracingConn{t: d.t, Conn: conn}, nil
}

type tracingConn struct {
	contract.Conn
	t *testing.T
}

func (c *tracingConn) Write(frame []byte) error {
	c.t.Logf(">>> %q", frame)
	return c.Conn.Write(frame)
}

func (c *tracingConn) Read() ([]byte, error) {
	frame, err := c.Conn.Read()
	if err == nil {
		c.t.Logf("<<< %q", frame)
	}
	return frame, err
}
