package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamfabric/gateway/internal/auth"
)

// WSMessageKind discriminates the four wire message kinds in §4.14.
type WSMessageKind string

const (
	WSRequest  WSMessageKind = "request"
	WSResponse WSMessageKind = "response"
	WSEvent    WSMessageKind = "event"
	WSError    WSMessageKind = "error"
)

// WSMessage is the JSON envelope for every WebSocket text frame.
type WSMessage struct {
	Kind    WSMessageKind  `json:"kind"`
	ID      string         `json:"id,omitempty"`
	Channel string         `json:"channel,omitempty"`
	Action  string         `json:"action,omitempty"`
	Event   string         `json:"event,omitempty"`
	Success *bool          `json:"success,omitempty"`
	Payload any            `json:"payload,omitempty"`
	Error   *WSErrorDetail `json:"error,omitempty"`
}

// WSErrorDetail is the error payload on an `error` message.
type WSErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// wsUpgrader negotiates the server's single subprotocol token and leaves
// origin checking to the caller (CORS middleware already ran before the
// upgrade, per the middleware chain ordering).
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var wsConnSeq int64

// Conn wraps a gorilla websocket.Conn with the bookkeeping §4.14 requires:
// a monotonic id, an attached principal, subscribed channel set, and a
// backpressure budget enforced on every send.
//
// Grounded on the teacher's internal/proxy chat_stream_handler.go (upgrade
// pattern, ping/pong deadlines) and internal/keyshare/websocket_manager.go
// (connection bookkeeping with reverse-lookup maps), merged here into one
// connection type scoped to this fabric's wire protocol.
type Conn struct {
	ID        int64
	Principal auth.Principal
	raw       *websocket.Conn

	maxBuffered int

	mu       sync.Mutex
	channels map[string]bool
	closed   bool
}

// UpgradeWS upgrades req to a WebSocket connection on the configured
// subprotocol, clamps the ping interval to half the websocket timeout
// (minimum 5s per §6.3), and starts the ping/pong liveness loop.
func UpgradeWS(w http.ResponseWriter, r *http.Request, principal auth.Principal, subprotocol string, wsTimeout time.Duration, maxBuffered int) (*Conn, error) {
	upgrader := wsUpgrader
	if subprotocol != "" {
		upgrader.Subprotocols = []string{subprotocol}
	}
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ID:          atomic.AddInt64(&wsConnSeq, 1),
		Principal:   principal,
		raw:         raw,
		maxBuffered: maxBuffered,
		channels:    make(map[string]bool),
	}

	interval := wsTimeout / 2
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	c.startLiveness(interval)
	return c, nil
}

func (c *Conn) startLiveness(interval time.Duration) {
	c.raw.SetReadDeadline(time.Now().Add(interval * 2))
	c.raw.SetPongHandler(func(string) error {
		c.raw.SetReadDeadline(time.Now().Add(interval * 2))
		return nil
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			if err := c.raw.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
				c.Close(websocket.CloseNormalClosure)
				return
			}
		}
	}()
}

// Subscribe marks a channel as subscribed on this connection.
func (c *Conn) Subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = true
}

// Unsubscribe removes a channel subscription.
func (c *Conn) Unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channel)
}

// SubscriptionCount reports how many channels this connection is
// subscribed to, for enforcing maxWsSubscriptionsPerConnection.
func (c *Conn) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

// Send writes msg as a JSON text frame, closing the connection with code
// 1013 (try again later / overloaded) if doing so would exceed the
// configured backpressure budget.
func (c *Conn) Send(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	if c.maxBuffered > 0 && len(data) > c.maxBuffered {
		c.closeLocked(websocket.CloseTryAgainLater)
		return websocket.ErrCloseSent
	}
	return c.raw.WriteMessage(websocket.TextMessage, data)
}

// ReadLoop blocks reading JSON messages and invoking handle for each,
// returning when the connection closes. Malformed frames are reported via
// handle(nil, err) rather than dropped silently.
func (c *Conn) ReadLoop(handle func(*WSMessage, error)) {
	for {
		_, data, err := c.raw.ReadMessage()
		if err != nil {
			c.Close(websocket.CloseNormalClosure)
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			handle(nil, err)
			continue
		}
		handle(&msg, nil)
	}
}

// Close closes the underlying connection with the given close code. Safe
// to call more than once.
func (c *Conn) Close(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(code)
}

func (c *Conn) closeLocked(code int) {
	if c.closed {
		return
	}
	c.closed = true
	deadline := time.Now().Add(time.Second)
	_ = c.raw.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""), deadline)
	_ = c.raw.Close()
}
