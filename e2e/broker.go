package e2e

import (
	"consult-chat/stomp"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/tidwall/sjson"
)

// Broker is a minimal in-process consultation broker. It accepts any bearer
// credential, fans SEND frames out to the matching consultation topic and
// stamps the sender from the credential.
type Broker struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	peers    map[*peer]struct{}
	connects atomic.Int64
}

type peer struct {
	conn   *websocket.Conn
	wmu    sync.Mutex
	sender string
	// destination -> subscription id
	subs map[string]string
}

func NewBroker() *Broker {
	b := &Broker{
		upgrader: websocket.Upgrader{Subprotocols: []string{"v12.stomp"}},
		peers:    make(map[*peer]struct{}),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

func (b *Broker) URL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

// Connects counts accepted CONNECT frames.
func (b *Broker) Connects() int64 {
	return b.connects.Load()
}

// Subscribers counts live connections subscribed to destination.
func (b *Broker) Subscribers(destination string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for p := range b.peers {
		if _, ok := p.subs[destination]; ok {
			count++
		}
	}
	return count
}

// Drop closes every live connection, the way a flaky network would.
func (b *Broker) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for p := range b.peers {
		_ = p.conn.Close()
	}
}

func (b *Broker) Close() {
	b.Drop()
	b.server.Close()
}

func (b *Broker) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn, subs: make(map[string]string)}
	b.mu.Lock()
	b.peers[p] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.peers, p)
		b.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := stomp.Unmarshal(raw)
		if err != nil || frame.IsHeartbeat() {
			continue
		}
		if !b.handle(p, frame) {
			return
		}
	}
}

func (b *Broker) handle(p *peer, frame stomp.Frame) bool {
	switch frame.Command {
	case stomp.CommandConnect:
		credential := strings.TrimPrefix(frame.Headers.Value(stomp.HeaderAuthorization), "Bearer ")
		if credential == "" {
			p.write(stomp.Frame{Command: stomp.CommandError, Headers: stomp.Headers{{Key: stomp.HeaderMessage, Value: "authentication required"}}})
			return false
		}
		b.mu.Lock()
		p.sender = credential
		b.mu.Unlock()
		b.connects.Add(1)
		p.write(stomp.Frame{Command: stomp.CommandConnected, Headers: stomp.Headers{{Key: stomp.HeaderVersion, Value: "1.2"}}})
	case stomp.CommandSubscribe:
		b.mu.Lock()
		p.subs[frame.Headers.Value(stomp.HeaderDestination)] = frame.Headers.Value(stomp.HeaderID)
		b.mu.Unlock()
	case stomp.CommandSend:
		b.publish(p, frame)
	case stomp.CommandDisconnect:
		if receipt := frame.Headers.Value(stomp.HeaderReceipt); receipt != "" {
			p.write(stomp.Frame{Command: stomp.CommandReceipt, Headers: stomp.Headers{{Key: stomp.HeaderReceiptID, Value: receipt}}})
		}
		return false
	}
	return true
}

func (b *Broker) publish(from *peer, frame stomp.Frame) {
	id, ok := strings.CutPrefix(frame.Headers.Value(stomp.HeaderDestination), "/app/chat.sendMessage/")
	if !ok {
		return
	}
	topic := "/topic/consultation/" + id

	b.mu.Lock()
	body, err := sjson.SetBytes(frame.Body, "sender", from.sender)
	if err != nil {
		b.mu.Unlock()
		return
	}
	type delivery struct {
		to  *peer
		sub string
	}
	var targets []delivery
	for p := range b.peers {
		if sub, ok := p.subs[topic]; ok {
			targets = append(targets, delivery{to: p, sub: sub})
		}
	}
	b.mu.Unlock()

	for _, d := range targets {
		d.to.write(stomp.Frame{
			Command: stomp.CommandMessage,
			Headers: stomp.Headers{
				{Key: stomp.HeaderDestination, Value: topic},
				{Key: stomp.HeaderSubscription, Value: d.sub},
				{Key: stomp.HeaderContentType, Value: "application/json"},
			},
			Body: body,
		})
	}
}

func (p *peer) write(frame stomp.Frame) {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_ = p.conn.WriteMessage(websocket.TextMessage, frame.Marshal())
}
