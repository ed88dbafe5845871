package watch

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/optiondesk/marketdata/internal/model"
	"github.com/optiondesk/marketdata/internal/stream"
)

// Feed is the slice of the stream client the watch list needs.
type Feed interface {
	Subscribe(symbol string, instrumentToken int64)
	Unsubscribe(symbol string, instrumentToken int64)
	On(messageType string, fn stream.Listener) func()
}

// Item is a watched symbol and its latest observed price.
type Item struct {
	Symbol          string
	InstrumentToken int64
	LastPrice       float64
	UpdatedAt       time.Time
}

// List tracks watched symbols. Adding subscribes the symbol on the feed;
// inbound ticks keep the last price current.
type List struct {
	feed   Feed
	logger *slog.Logger
	off    func()

	mu    sync.RWMutex
	items map[string]*Item
}

// NewList creates a watch list wired to the feed's tick stream.
func NewList(feed Feed, logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.Default()
	}
	l := &List{
		feed:   feed,
		logger: logger,
		items:  make(map[string]*Item),
	}
	l.off = feed.On(stream.MessageTick, l.handleTick)
	return l
}

// Close detaches the tick listener. Watched symbols stay subscribed.
func (l *List) Close() {
	if l.off != nil {
		l.off()
	}
}

// Add watches a symbol and subscribes it on the feed. Re-adding an
// already-watched symbol just refreshes the token.
func (l *List) Add(symbol string, instrumentToken int64) {
	l.mu.Lock()
	item, ok := l.items[symbol]
	if ok {
		item.InstrumentToken = instrumentToken
	} else {
		l.items[symbol] = &Item{Symbol: symbol, InstrumentToken: instrumentToken}
	}
	l.mu.Unlock()

	l.feed.Subscribe(symbol, instrumentToken)
}

// Remove stops watching a symbol and unsubscribes it from the feed.
// Removing an unwatched symbol is a no-op.
func (l *List) Remove(symbol string) {
	l.mu.Lock()
	item, ok := l.items[symbol]
	if ok {
		delete(l.items, symbol)
	}
	l.mu.Unlock()

	if ok {
		l.feed.Unsubscribe(symbol, item.InstrumentToken)
	}
}

// LivePrice returns the latest observed price for a watched symbol. The
// second return is false when the symbol is unwatched or no tick has
// arrived yet.
func (l *List) LivePrice(symbol string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	item, ok := l.items[symbol]
	if !ok || item.LastPrice == 0 {
		return 0, false
	}
	return item.LastPrice, true
}

// Items returns a snapshot of the watch list sorted by symbol.
func (l *List) Items() []Item {
	l.mu.RLock()
	out := make([]Item, 0, len(l.items))
	for _, item := range l.items {
		out = append(out, *item)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// handleTick updates the watched item matching the tick, if any.
func (l *List) handleTick(data json.RawMessage) {
	var tick model.Tick
	if err := json.Unmarshal(data, &tick); err != nil {
		l.logger.Warn("dropping unparseable tick", "error", err)
		return
	}

	price := tick.EffectivePrice()
	if price == 0 {
		return
	}

	l.mu.Lock()
	if item, ok := l.items[tick.Symbol]; ok {
		item.LastPrice = price
		item.UpdatedAt = time.Now()
	}
	l.mu.Unlock()
}
