// Package transport opens the full-duplex connection to the consultation
// broker endpoint.
package transport

import (
	"consult-chat/contract"
	"consult-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

type Config struct {
	URL          string
	WriteTimeout time.Duration
	// Subprotocols advertised during the handshake, "v12.stomp" by default.
	Subprotocols []string
}

// WebSocketDialer dials one websocket per call. It holds no connection itself.
type WebSocketDialer struct {
	log    *slog.Logger
	config Config
	dialer *websocket.Dialer
}

func NewWebSocketDialer(log *slog.Logger, config Config) *WebSocketDialer {
	if len(config.Subprotocols) == 0 {
		config.Subprotocols = []string{"v12.stomp"}
	}
	return &WebSocketDialer{
		log:    log,
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
			Subprotocols:     config.Subprotocols,
		},
	}
}

func (d *WebSocketDialer) Dial(ctx context.Context) (contract.Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, d.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", errors.ErrTransport, d.config.URL, err)
	}
	d.log.Debug("Websocket opened", "url", d.config.URL, "subprotocol", conn.Subprotocol())
	return &wsConn{conn: conn, writeTimeout: d.config.WriteTimeout}, nil
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

func (c *wsConn) Write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: write: %v", errors.ErrTransport, err)
	}
	return nil
}

func (c *wsConn) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", errors.ErrTransport, err)
	}
	return data, nil
}

// Close sends a normal closure and releases the socket. Safe to call twice.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
