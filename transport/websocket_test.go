package transport

import (
	"consult-chat/errors"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type broker struct {
	subprotocols chan string
	auth         chan string
}

// newBroker echoes every text message back, prefixed with "ECHO ".
func newBroker(t *testing.T) (*httptest.Server, *broker) {
	t.Helper()
	b := &broker{subprotocols: make(chan string, 1), auth: make(chan string, 1)}
	upgrader := websocket.Upgrader{Subprotocols: []string{"v12.stomp"}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		b.subprotocols <- conn.Subprotocol()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				return
			}
			if err := conn.WriteMessage(kind, append([]byte("ECHO "), data...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server, b
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketDialer_RoundTrip(t *testing.T) {
	req := require.New(t)
	server, b := newBroker(t)
	dialer := NewWebSocketDialer(logs.GetLoggerFromLevel(slog.LevelDebug), Config{URL: wsURL(server), WriteTimeout: time.Second})

	conn, err := dialer.Dial(context.Background())
	req.NoError(err)
	defer func() { _ = conn.Close() }()

	req.Equal("v12.stomp", <-b.subprotocols)

	req.NoError(conn.Write([]byte("CONNECT\naccept-version:1.2\n\n\x00")))
	data, err := conn.Read()
	req.NoError(err)
	req.Equal("ECHO CONNECT\naccept-version:1.2\n\n\x00", string(data))
}

func TestWebSocketDialer_DialFailure(t *testing.T) {
	server, _ := newBroker(t)
	url := wsURL(server)
	server.Close()

	_, err := NewWebSocketDialer(slog.Default(), Config{URL: url}).Dial(context.Background())

	require.ErrorIs(t, err, errors.ErrTransport)
}

func TestWebSocketDialer_DialHonoursContext(t *testing.T) {
	server, _ := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWebSocketDialer(slog.Default(), Config{URL: wsURL(server)}).Dial(ctx)

	require.ErrorIs(t, err, errors.ErrTransport)
}

func TestWsConn_ReadFailsWhenServerGoesAway(t *testing.T) {
	req := require.New(t)
	server, _ := newBroker(t)

	conn, err := NewWebSocketDialer(slog.Default(), Config{URL: wsURL(server)}).Dial(context.Background())
	req.NoError(err)
	defer func() { _ = conn.Close() }()

	req.NoError(conn.Write([]byte("bye")))
	_, err = conn.Read()
	req.ErrorIs(err, errors.ErrTransport)
}

func TestWsConn_CloseTwice(t *testing.T) {
	req := require.New(t)
	server, _ := newBroker(t)

	conn, err := NewWebSocketDialer(slog.Default(), Config{URL: wsURL(server)}).Dial(context.Background())
	req.NoError(err)

	req.NoError(conn.Close())
	req.NoError(conn.Close())
	req.ErrorIs(conn.Write([]byte("late")), errors.ErrTransport)
}
