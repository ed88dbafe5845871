package api

import (
	"time"

	"github.com/optiondesk/marketdata/internal/model"
)

// expiry formats observed across catalog dumps.
var expiryLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseExpiry parses a catalog expiry string.
// Returns the zero time for empty or unrecognized input.
func ParseExpiry(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ToModel converts an APIInstrument to model.Instrument.
func (a *APIInstrument) ToModel() model.Instrument {
	return model.Instrument{
		TradingSymbol:   a.TradingSymbol,
		Name:            a.Name,
		InstrumentToken: a.InstrumentToken,
		Exchange:        a.Exchange,
		Segment:         a.Segment,
		InstrumentType:  a.InstrumentType,
		Strike:          a.Strike,
		Expiry:          ParseExpiry(a.Expiry),
		SearchText:      model.BuildSearchText(a.TradingSymbol, a.Name, a.Exchange, a.Segment),
	}
}
