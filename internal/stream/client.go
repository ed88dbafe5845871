package stream

import (
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/optiondesk/marketdata/internal/events"
)

// Client owns the single physical connection to the market-data server.
// All methods are safe for concurrent use and none of them blocks on
// network I/O: Connect dials in the background and Send queues while the
// connection is down.
type Client struct {
	cfg    Config
	logger *slog.Logger

	// wire dispatches inbound messages by type; local carries optimistic
	// UI events and never touches the network.
	wire  *events.Bus
	local *events.Bus

	// Write serialization
	writeMu sync.Mutex

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	token          string
	queue          [][]byte         // FIFO outbound queue, drained on open
	subs           map[string]int64 // symbol → instrument token
	attempts       int
	reconnectTimer *time.Timer
	noReconnect    bool
	gen            int // connection generation, guards stale callbacks
}

// NewClient creates a disconnected stream client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		wire:   events.NewBus(logger.With("bus", "wire")),
		local:  events.NewBus(logger.With("bus", "local")),
		state:  StateDisconnected,
		subs:   make(map[string]int64),
	}
}

// Connect starts establishing the connection and returns immediately.
// A non-empty token is stored and reused on every reconnect. Calling
// Connect while already connecting or open is a no-op. An explicit
// Connect after Close re-enables automatic reconnection.
func (c *Client) Connect(token string) {
	c.mu.Lock()
	if token != "" {
		c.token = token
	}
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.noReconnect = false
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.dial(gen)
}

// Close tears down the connection and disables reconnection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.noReconnect = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.gen++ // invalidate in-flight dials and read loops
	conn := c.conn
	c.conn = nil
	if conn != nil {
		c.state = StateClosing
	} else {
		c.state = StateClosed
	}
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err := conn.Close()

		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		return err
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a snapshot for health reporting.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:             c.state,
		QueuedMessages:    len(c.queue),
		Subscriptions:     len(c.subs),
		ReconnectAttempts: c.attempts,
	}
}

// Send serializes and transmits the message if the connection is open.
// Otherwise the message is enqueued and, if the connection is fully
// closed (not merely connecting), a connect attempt is triggered with
// the stored token. Send never blocks waiting for the connection.
func (c *Client) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == StateOpen {
		conn := c.conn
		c.mu.Unlock()
		return c.write(conn, data)
	}

	c.queue = append(c.queue, data)
	needConnect := c.state == StateDisconnected || c.state == StateClosed
	c.mu.Unlock()

	if needConnect {
		c.Connect("")
	}
	return nil
}

// Subscribe records the symbol in the registry (only when an instrument
// token is supplied) and sends a subscribe message. The registry is
// replayed on every reconnect, so subscriptions survive drops.
func (c *Client) Subscribe(symbol string, instrumentToken int64) {
	if instrumentToken > 0 {
		c.mu.Lock()
		c.subs[symbol] = instrumentToken
		c.mu.Unlock()
	}

	c.Send(Message{Type: MessageSubscribe, Symbol: symbol, InstrumentToken: instrumentToken})
}

// Unsubscribe removes the symbol from the registry and sends an
// unsubscribe message.
func (c *Client) Unsubscribe(symbol string, instrumentToken int64) {
	c.mu.Lock()
	delete(c.subs, symbol)
	c.mu.Unlock()

	c.Send(Message{Type: MessageUnsubscribe, Symbol: symbol, InstrumentToken: instrumentToken})
}

// Subscriptions returns a copy of the subscription registry.
func (c *Client) Subscriptions() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.subs))
	for sym, tok := range c.subs {
		out[sym] = tok
	}
	return out
}

// JoinRoom sends a join message for a server-side broadcast room.
func (c *Client) JoinRoom(room string) {
	c.Send(Message{Type: MessageJoin, Data: RoomData{Room: room}})
}

// LeaveRoom sends a leave message for a server-side broadcast room.
func (c *Client) LeaveRoom(room string) {
	c.Send(Message{Type: MessageLeave, Data: RoomData{Room: room}})
}

// On registers a listener for inbound messages of the given type and
// returns a function that removes it. Listeners run in registration
// order; one panicking never blocks the rest.
func (c *Client) On(messageType string, fn Listener) func() {
	return c.wire.On(messageType, func(payload any) {
		fn(payload.(json.RawMessage))
	})
}

// OnLocal registers a listener on the local event channel.
func (c *Client) OnLocal(event string, fn events.Handler) func() {
	return c.local.On(event, fn)
}

// EmitLocal publishes an event on the local channel. It never touches
// the network and works in any connection state.
func (c *Client) EmitLocal(event string, payload any) {
	c.local.Emit(event, payload)
}

// dial establishes the websocket connection for the given generation.
func (c *Client) dial(gen int) {
	url := c.cfg.URL
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		url += "?token=" + token
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(url, nil)

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		// Superseded by Close or a newer Connect.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.state = StateClosed
		c.mu.Unlock()
		c.logger.Warn("stream dial failed", "url", c.cfg.URL, "error", err)
		c.scheduleReconnect()
		return
	}

	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	queued := c.queue
	c.queue = nil
	replay := make([]Message, 0, len(c.subs))
	symbols := make([]string, 0, len(c.subs))
	for sym := range c.subs {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		replay = append(replay, Message{Type: MessageSubscribe, Symbol: sym, InstrumentToken: c.subs[sym]})
	}
	c.mu.Unlock()

	c.logger.Info("stream connected", "url", c.cfg.URL, "queued", len(queued), "subscriptions", len(replay))

	// Drain the outbound queue first, then replay the registry.
	for _, data := range queued {
		if err := c.write(conn, data); err != nil {
			c.logger.Warn("failed to flush queued message", "error", err)
		}
	}
	for _, msg := range replay {
		data, _ := json.Marshal(msg)
		if err := c.write(conn, data); err != nil {
			c.logger.Warn("failed to replay subscription", "symbol", msg.Symbol, "error", err)
		}
	}

	go c.readLoop(conn, gen)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(conn, gen)
	}
}

// pingLoop sends application-level keepalive pings while the connection
// stays open. It exits when the generation moves on.
func (c *Client) pingLoop(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	ping, _ := json.Marshal(Message{Type: MessagePing})
	for range ticker.C {
		c.mu.Lock()
		alive := c.gen == gen && c.state == StateOpen
		c.mu.Unlock()
		if !alive {
			return
		}
		if err := c.write(conn, ping); err != nil {
			return
		}
	}
}

// write sends raw bytes on the connection with the configured deadline.
func (c *Client) write(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads and dispatches inbound messages until the connection drops.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			c.logger.Warn("dropping unparseable message", "error", err, "len", len(data))
			continue
		}

		c.wire.Emit(env.Type, env.Data)
	}
}

// handleClose processes an unplanned connection drop.
func (c *Client) handleClose(gen int, err error) {
	c.mu.Lock()
	if c.gen != gen {
		// A newer connection owns the state now.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateClosed
	stop := c.noReconnect
	c.mu.Unlock()

	c.logger.Warn("stream disconnected", "error", err)

	if !stop {
		c.scheduleReconnect()
	}
}

// scheduleReconnect arms the single reconnect timer. A close event while
// a timer is already pending does not schedule a second one.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.noReconnect || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	c.attempts++
	delay := backoffDelay(c.cfg, c.attempts)
	attempt := c.attempts
	c.reconnectTimer = time.AfterFunc(delay, c.reconnect)
	c.mu.Unlock()

	c.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
}

// reconnect fires when the backoff timer elapses.
func (c *Client) reconnect() {
	c.mu.Lock()
	c.reconnectTimer = nil
	if c.noReconnect || c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.dial(gen)
}

// backoffDelay computes min(MaxDelay, BaseDelay * factor^attempt).
func backoffDelay(cfg Config, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffFactor, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}
