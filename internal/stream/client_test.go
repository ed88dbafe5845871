package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockServer is a test WebSocket server that records inbound messages.
type mockServer struct {
	*httptest.Server

	conns    atomic.Int64
	received chan Message
	tokens   chan string
	push     chan []byte

	// closeAfter closes each connection after reading this many messages
	// (0 keeps connections open).
	closeAfter int
}

func newMockServer(t *testing.T, closeAfter int) *mockServer {
	t.Helper()

	s := &mockServer{
		received:   make(chan Message, 64),
		tokens:     make(chan string, 8),
		push:       make(chan []byte, 8),
		closeAfter: closeAfter,
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case s.tokens <- r.URL.Query().Get("token"):
		default:
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		s.conns.Add(1)

		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case data := <-s.push:
					conn.WriteMessage(websocket.TextMessage, data)
				case <-done:
					return
				}
			}
		}()

		count := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			s.received <- msg
			count++
			if s.closeAfter > 0 && count >= s.closeAfter {
				return
			}
		}
	}))

	return s
}

func (s *mockServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *mockServer) next(t *testing.T) Message {
	t.Helper()
	select {
	case msg := <-s.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 50 * time.Millisecond
	return cfg
}

func waitForState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", c.State(), want)
}

func TestClient_Connect(t *testing.T) {
	server := newMockServer(t, 0)
	defer server.Close()

	client := NewClient(testConfig(server.wsURL()), nil)
	defer client.Close()

	client.Connect("")
	waitForState(t, client, StateOpen)

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if got := client.State(); got != StateClosed {
		t.Errorf("state after Close = %s, want %s", got, StateClosed)
	}
}

func TestClient_ConnectNoOpWhileOpen(t *testing.T) {
	server := newMockServer(t, 0)
	defer server.Close()

	client := NewClient(testConfig(server.wsURL()), nil)
	defer client.Close()

	client.Connect("")
	waitForState(t, client, StateOpen)
	client.Connect("")
	client.Connect("")

	time.Sleep(50 * time.Millisecond)
	if got := server.conns.Load(); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
}

func TestClient_TokenAppended(t *testing.T) {
	server := newMockServer(t, 0)
	defer server.Close()

	client := NewClient(testConfig(server.wsURL()), nil)
	defer client.Close()

	client.Connect("secret-token")
	waitForState(t, client, StateOpen)

	select {
	case tok := <-server.tokens:
		if tok != "secret-token" {
			t.Errorf("token = %q, want %q", tok, "secret-token")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for token")
	}
}

func TestClient_QueueDrainedBeforeReplay(t *testing.T) {
	server := newMockServer(t, 0)
	defer server.Close()

	client := NewClient(testConfig(server.wsURL()), nil)
	defer client.Close()

	// Everything below is issued while disconnected: the subscribe and
	// join go on the queue (Send triggers the connect attempt).
	client.Subscribe("NIFTY 50", 256265)
	client.JoinRoom("orders")

	waitForState(t, client, StateOpen)

	// Queue drains FIFO first: subscribe, join. Then the registry replay
	// re-sends the subscription.
	first := server.next(t)
	if first.Type != MessageSubscribe || first.Symbol != "NIFTY 50" {
		t.Errorf("first message = %+v, want queued subscribe", first)
	}
	second := server.next(t)
	if second.Type != MessageJoin {
		t.Errorf("second message = %+v, want queued join", second)
	}
	third := server.next(t)
	if third.Type != MessageSubscribe || third.InstrumentToken != 256265 {
		t.Errorf("third message = %+v, want replayed subscribe", third)
	}

	// The join must not be duplicated.
	select {
	case extra := <-server.received:
		if extra.Type == MessageJoin {
			t.Errorf("join delivered twice: %+v", extra)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_ResubscribeOnReconnect(t *testing.T) {
	// Server drops each connection after the first message it reads.
	server := newMockServer(t, 1)
	defer server.Close()

	client := NewClient(testConfig(server.wsURL()), nil)
	defer client.Close()

	client.Connect("")
	waitForState(t, client, StateOpen)

	client.Subscribe("NIFTY 50", 256265)
	client.Subscribe("BANKNIFTY", 260105)
	client.Unsubscribe("NIFTY 50", 256265)

	// After the drop and reconnect, the replayed set must equal the
	// registry exactly: BANKNIFTY only.
	deadline := time.Now().Add(3 * time.Second)
	replayed := make(map[string]int)
	for time.Now().Before(deadline) {
		select {
		case msg := <-server.received:
			if msg.Type == MessageSubscribe && server.conns.Load() > 1 {
				replayed[msg.Symbol]++
			}
		case <-time.After(50 * time.Millisecond):
		}
		if len(replayed) > 0 && server.conns.Load() > 1 {
			break
		}
	}

	if replayed["NIFTY 50"] != 0 {
		t.Errorf("unsubscribed symbol replayed %d times, want 0", replayed["NIFTY 50"])
	}
	if replayed["BANKNIFTY"] == 0 {
		t.Error("subscribed symbol was not replayed after reconnect")
	}

	subs := client.Subscriptions()
	if len(subs) != 1 || subs["BANKNIFTY"] != 260105 {
		t.Errorf("registry = %v, want map[BANKNIFTY:260105]", subs)
	}
}

func TestClient_SubscribeWithoutTokenNotRecorded(t *testing.T) {
	client := NewClient(testConfig("ws://localhost:1"), nil)
	defer client.Close()

	client.Subscribe("NIFTY 50", 0)
	if got := len(client.Subscriptions()); got != 0 {
		t.Errorf("registry size = %d, want 0 (no instrument token supplied)", got)
	}
}

func TestClient_ListenerDispatch(t *testing.T) {
	server := newMockServer(t, 0)
	defer server.Close()

	client := NewClient(testConfig(server.wsURL()), nil)
	defer client.Close()

	ticks := make(chan string, 8)
	client.On(MessageTick, func(data json.RawMessage) {
		panic("first listener always panics")
	})
	client.On(MessageTick, func(data json.RawMessage) {
		var tick struct {
			Symbol string `json:"symbol"`
		}
		json.Unmarshal(data, &tick)
		ticks <- tick.Symbol
	})

	client.Connect("")
	waitForState(t, client, StateOpen)

	// Push one unparseable frame, one unknown type, then a tick. Only the
	// tick must reach the listener, despite the panicking one before it.
	server.push <- []byte(`{not json`)
	server.push <- []byte(`{"type":"noise","data":{}}`)
	server.push <- []byte(`{"type":"tick","data":{"symbol":"NIFTY 50","last_price":24513.7}}`)

	select {
	case sym := <-ticks:
		if sym != "NIFTY 50" {
			t.Errorf("tick symbol = %q, want NIFTY 50", sym)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for tick dispatch")
	}

	if client.State() != StateOpen {
		t.Errorf("state = %s, want open (bad frames must not kill the loop)", client.State())
	}
}

func TestClient_PingKeepalive(t *testing.T) {
	server := newMockServer(t, 0)
	defer server.Close()

	cfg := testConfig(server.wsURL())
	cfg.PingInterval = 20 * time.Millisecond
	client := NewClient(cfg, nil)
	defer client.Close()

	client.Connect("")
	waitForState(t, client, StateOpen)

	pings := 0
	deadline := time.After(500 * time.Millisecond)
	for pings < 2 {
		select {
		case msg := <-server.received:
			if msg.Type == MessagePing {
				pings++
			}
		case <-deadline:
			t.Fatalf("received %d pings before deadline, want 2", pings)
		}
	}
}

func TestClient_LocalEventsIndependent(t *testing.T) {
	client := NewClient(testConfig("ws://localhost:1"), nil)
	defer client.Close()

	var got any
	off := client.OnLocal("order_placed", func(p any) { got = p })

	// Disconnected on purpose: local events never touch the network.
	client.EmitLocal("order_placed", "payload")
	if got != "payload" {
		t.Errorf("payload = %v, want %q", got, "payload")
	}

	off()
	got = nil
	client.EmitLocal("order_placed", "again")
	if got != nil {
		t.Error("listener invoked after removal")
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := Config{
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 1.5,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1500 * time.Millisecond},
		{2, 2250 * time.Millisecond},
		{3, 3375 * time.Millisecond},
		{9, time.Duration(float64(time.Second) * 38.443359375)}, // capped below
		{100, 30 * time.Second},
	}

	for _, tt := range tests {
		got := backoffDelay(cfg, tt.attempt)
		want := tt.want
		if want > cfg.MaxDelay {
			want = cfg.MaxDelay
		}
		if got != want {
			t.Errorf("backoffDelay(attempt=%d) = %v, want %v", tt.attempt, got, want)
		}
	}
}

func TestClient_SingleReconnectTimerPending(t *testing.T) {
	cfg := testConfig("ws://localhost:1")
	cfg.BaseDelay = time.Hour // never fires during the test
	cfg.MaxDelay = time.Hour
	client := NewClient(cfg, nil)
	defer client.Close()

	// Two close events arriving while a timer is pending must not arm a
	// second timer or bump the attempt counter twice.
	client.scheduleReconnect()
	client.scheduleReconnect()
	client.scheduleReconnect()

	if got := client.Stats().ReconnectAttempts; got != 1 {
		t.Errorf("ReconnectAttempts = %d, want 1", got)
	}
}

func TestClient_CloseStopsReconnect(t *testing.T) {
	// Server closes every connection immediately after accept.
	server := newMockServer(t, 0)
	server.Close() // all subsequent dials fail

	client := NewClient(testConfig(server.wsURL()), nil)
	client.Connect("")

	time.Sleep(20 * time.Millisecond)
	client.Close()

	attempts := client.Stats().ReconnectAttempts
	time.Sleep(100 * time.Millisecond)

	if got := client.Stats().ReconnectAttempts; got != attempts {
		t.Errorf("reconnect attempts kept growing after Close: %d -> %d", attempts, got)
	}
	if got := client.State(); got != StateClosed {
		t.Errorf("state = %s, want %s", got, StateClosed)
	}
}
