package model

import (
	"strings"
	"time"
)

// Option types as reported by the instrument catalog.
const (
	OptionCall = "CE"
	OptionPut  = "PE"
)

// Instrument is an immutable tradable instrument record.
// Identity is the trading symbol; duplicates are tolerated by the store.
type Instrument struct {
	TradingSymbol   string    `json:"tradingsymbol"`    // Primary identity (e.g., "NIFTY25SEP24500CE")
	Name            string    `json:"name"`             // Underlying name (e.g., "NIFTY")
	InstrumentToken int64     `json:"instrument_token"` // Numeric feed identifier
	Exchange        string    `json:"exchange"`         // Exchange (e.g., "NFO")
	Segment         string    `json:"segment"`          // Segment (e.g., "NFO-OPT")
	InstrumentType  string    `json:"instrument_type"`  // "CE", "PE", "FUT", "EQ"
	Strike          float64   `json:"strike"`           // Strike price, 0 for non-options
	Expiry          time.Time `json:"expiry"`           // Contract expiry date (zero for non-derivatives)

	// SearchText is the precomputed lowercase blob used for substring search.
	SearchText string `json:"search_text"`
}

// IsCall reports whether the instrument is a call option.
func (i Instrument) IsCall() bool { return i.InstrumentType == OptionCall }

// IsPut reports whether the instrument is a put option.
func (i Instrument) IsPut() bool { return i.InstrumentType == OptionPut }

// IsOption reports whether the instrument is an option contract.
func (i Instrument) IsOption() bool { return i.IsCall() || i.IsPut() }

// BuildSearchText concatenates the searchable fields into a lowercase blob.
func BuildSearchText(tradingSymbol, name, exchange, segment string) string {
	return strings.ToLower(tradingSymbol + " " + name + " " + exchange + " " + segment)
}

// Tick is a single live price update pushed over the stream.
type Tick struct {
	Symbol          string  `json:"symbol"`
	InstrumentToken int64   `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
	Price           float64 `json:"price,omitempty"` // Some producers use "price" instead of "last_price"
	Volume          int64   `json:"volume"`
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	OI              int64   `json:"oi"`
	Timestamp       string  `json:"timestamp"`
}

// EffectivePrice returns the tick's traded price, whichever field carried it.
func (t Tick) EffectivePrice() float64 {
	if t.LastPrice != 0 {
		return t.LastPrice
	}
	return t.Price
}

// Candle is a single daily OHLCV bar from the history store.
type Candle struct {
	Day    time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}
