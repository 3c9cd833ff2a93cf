// Package transport owns one raw bidirectional WebSocket per kernel. It is
// responsible only for connect/send/receive/reconnect/close framing; frame
// semantics live in the session layer.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nbclient/internal/logging"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Defaults for the reconnect policy.
const (
	DefaultBaseDelay            = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
)

// Options configures a Conn.
type Options struct {
	// BaseDelay is multiplied by the attempt number for linear backoff.
	BaseDelay time.Duration

	// MaxReconnectAttempts caps consecutive automatic reconnects after an
	// abnormal close. Explicit Close zeroes the budget permanently.
	MaxReconnectAttempts int

	// Dialer overrides the default websocket dialer (mainly for tests).
	Dialer *websocket.Dialer
}

// MessageHandler receives each inbound frame as raw bytes.
type MessageHandler func(data []byte)

// StateHandler receives connection state transitions.
type StateHandler func(state State)

// ErrorHandler receives transport-level errors. Errors are never returned
// from Send; they only surface here and as state changes.
type ErrorHandler func(err error)

// Unsubscribe removes a previously registered handler.
type Unsubscribe func()

// Conn is a reconnecting WebSocket connection with FIFO send buffering.
//
// Frames sent while not connected are queued and flushed in order on the
// next successful (re)connect. Frames the server sent during the outage are
// lost; the protocol has no replay, so delivery across a reconnect boundary
// is best effort only.
type Conn struct {
	url  string
	opts Options

	// dialMu serializes Connect so a caller racing the reconnect timer
	// coalesces into the in-flight dial instead of opening a second socket.
	dialMu sync.Mutex

	mu       sync.Mutex
	ws       *websocket.Conn
	state    State
	pending  [][]byte // outbound frames buffered while not connected
	attempts int      // consecutive reconnect attempts since last success
	closed   bool     // explicit Close; suppresses reconnect permanently
	timer    *time.Timer

	handlerMu     sync.RWMutex
	nextHandlerID int
	msgHandlers   map[int]MessageHandler
	stateHandlers map[int]StateHandler
	errHandlers   map[int]ErrorHandler
}

// New creates a Conn for the given WebSocket URL. Call Connect to dial.
func New(url string, opts Options) *Conn {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	return &Conn{
		url:           url,
		opts:          opts,
		state:         StateDisconnected,
		msgHandlers:   make(map[int]MessageHandler),
		stateHandlers: make(map[int]StateHandler),
		errHandlers:   make(map[int]ErrorHandler),
	}
}

// Connect dials the server. It returns once the socket is open or the dial
// failed. Concurrent calls are serialized; a call that lands while another
// dial is in flight waits for it and returns nil if it succeeded. A
// successful connect resets the reconnect budget and flushes any buffered
// frames in order.
func (c *Conn) Connect(ctx context.Context) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("connection closed")
	}
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.setState(StateConnecting)

	ws, _, err := c.opts.Dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.setState(StateError)
		c.setState(StateDisconnected)
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.Close()
		return fmt.Errorf("connection closed")
	}
	if c.ws != nil {
		// Superseded socket; its pump bails on the stale-pump guard.
		c.ws.Close()
	}
	c.ws = ws
	c.attempts = 0

	// Flush the FIFO buffer before the connected state becomes visible to
	// Send, so a racing frame cannot overtake buffered ones. On a write
	// error the remainder stays queued and the pump drives reconnect.
	for len(c.pending) > 0 {
		frame := c.pending[0]
		if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			break
		}
		c.pending = c.pending[1:]
	}
	c.state = StateConnected
	c.mu.Unlock()

	c.emitState(StateConnected)
	logging.Transport("connected to %s", c.url)

	go c.readPump(ws)
	return nil
}

// Send marshals frame as JSON and transmits it. While not connected the
// frame is buffered FIFO; transport failures surface via OnError and
// OnStateChange, never as a returned error. The only returned error is a
// marshal failure.
func (c *Conn) Send(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	if c.state != StateConnected || c.ws == nil {
		c.pending = append(c.pending, data)
		n := len(c.pending)
		c.mu.Unlock()
		logging.TransportDebug("buffered frame while %s (queue=%d)", c.state, n)
		return nil
	}
	c.mu.Unlock()

	c.writeFrame(data)
	return nil
}

func (c *Conn) writeFrame(data []byte) {
	c.mu.Lock()
	ws := c.ws
	if ws == nil {
		c.pending = append(c.pending, data)
		c.mu.Unlock()
		return
	}
	err := ws.WriteMessage(websocket.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		// The read pump observes the broken socket and drives reconnect;
		// requeue so the frame goes out after it succeeds.
		c.mu.Lock()
		c.pending = append(c.pending, data)
		c.mu.Unlock()
		c.emitError(fmt.Errorf("write: %w", err))
	}
}

// Close permanently shuts down the connection. Auto-reconnect is suppressed
// for the lifetime of this instance.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ws.Close()
	}

	c.setState(StateDisconnected)
	logging.Transport("closed connection to %s", c.url)
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingCount returns the number of buffered outbound frames.
func (c *Conn) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// OnMessage registers a handler for inbound frames.
func (c *Conn) OnMessage(h MessageHandler) Unsubscribe {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.msgHandlers[id] = h
	return func() {
		c.handlerMu.Lock()
		defer c.handlerMu.Unlock()
		delete(c.msgHandlers, id)
	}
}

// OnStateChange registers a handler for state transitions.
func (c *Conn) OnStateChange(h StateHandler) Unsubscribe {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.stateHandlers[id] = h
	return func() {
		c.handlerMu.Lock()
		defer c.handlerMu.Unlock()
		delete(c.stateHandlers, id)
	}
}

// OnError registers a handler for transport errors.
func (c *Conn) OnError(h ErrorHandler) Unsubscribe {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.errHandlers[id] = h
	return func() {
		c.handlerMu.Lock()
		defer c.handlerMu.Unlock()
		delete(c.errHandlers, id)
	}
}

// readPump delivers inbound frames until the socket breaks, then decides
// whether the close was clean and drives reconnection.
func (c *Conn) readPump(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.handleDisconnect(ws, err)
			return
		}
		c.emitMessage(data)
	}
}

func (c *Conn) handleDisconnect(ws *websocket.Conn, err error) {
	c.mu.Lock()
	// A stale pump from a previous socket must not disturb current state.
	if c.ws != ws {
		c.mu.Unlock()
		return
	}
	c.ws = nil
	closed := c.closed
	c.mu.Unlock()

	ws.Close()

	wasClean := closed || websocket.IsCloseError(err,
		websocket.CloseNormalClosure, websocket.CloseGoingAway)

	if wasClean {
		c.setState(StateDisconnected)
		return
	}

	logging.TransportWarn("abnormal close: %v", err)
	c.emitError(err)
	c.setState(StateError)
	c.setState(StateDisconnected)
	c.scheduleReconnect()
}

// scheduleReconnect arms the backoff timer for the next attempt. Attempts
// are serialized: only one timer is live at a time.
func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.attempts >= c.opts.MaxReconnectAttempts {
		logging.TransportWarn("reconnect budget exhausted (%d attempts)", c.attempts)
		return
	}

	c.attempts++
	delay := c.opts.BaseDelay * time.Duration(c.attempts)
	logging.Transport("reconnect attempt %d/%d in %v", c.attempts, c.opts.MaxReconnectAttempts, delay)

	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.mu.Unlock()

		if err := c.Connect(context.Background()); err != nil {
			c.emitError(err)
			c.scheduleReconnect()
		}
	})
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.emitState(s)
}

func (c *Conn) emitState(s State) {
	c.handlerMu.RLock()
	handlers := make([]StateHandler, 0, len(c.stateHandlers))
	for _, h := range c.stateHandlers {
		handlers = append(handlers, h)
	}
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(s)
	}
}

func (c *Conn) emitMessage(data []byte) {
	c.handlerMu.RLock()
	handlers := make([]MessageHandler, 0, len(c.msgHandlers))
	for _, h := range c.msgHandlers {
		handlers = append(handlers, h)
	}
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
}

func (c *Conn) emitError(err error) {
	c.handlerMu.RLock()
	handlers := make([]ErrorHandler, 0, len(c.errHandlers))
	for _, h := range c.errHandlers {
		handlers = append(handlers, h)
	}
	c.handlerMu.RUnlock()

	for _, h := range handlers {
		h(err)
	}
}
