package resolve

import (
	"context"
	"log/slog"

	"github.com/optiondesk/marketdata/internal/model"
)

// Suggestion kinds, in decision order.
const (
	KindStrike = "strike" // exact underlying+strike match
	KindATM    = "atm"    // at-the-money expansion around a reference price
	KindText   = "text"   // free-text substring search
)

// DefaultSuggestLimit caps suggestions when the caller passes limit <= 0.
const DefaultSuggestLimit = 10

// Suggestion is one suggested contract.
type Suggestion struct {
	Kind       string
	Instrument model.Instrument
}

// Catalog is the slice of the instrument store the engine queries.
type Catalog interface {
	Ready() bool
	Search(query string, limit int) []model.Instrument
	ByUnderlyingAndStrike(underlying string, strike float64, limit int) []model.Instrument
	StrikesAroundSpot(underlying string, spot float64, limit int) []model.Instrument
}

// LivePrices provides the watch list's live prices (tier 1).
type LivePrices interface {
	LivePrice(symbol string) (float64, bool)
}

// CloseSource provides historical daily closes (tier 2).
type CloseSource interface {
	LastDailyClose(ctx context.Context, instrumentToken int64) (float64, error)
}

// Engine resolves queries against the catalog. prices and closes are
// optional; a nil tier is skipped.
type Engine struct {
	catalog Catalog
	prices  LivePrices
	closes  CloseSource
	logger  *slog.Logger
}

// NewEngine creates a resolution engine.
func NewEngine(catalog Catalog, prices LivePrices, closes CloseSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog: catalog,
		prices:  prices,
		closes:  closes,
		logger:  logger,
	}
}

// Suggest resolves a query to suggestions. It returns nil immediately
// when the catalog is not ready rather than blocking.
func (e *Engine) Suggest(ctx context.Context, query string, limit int) []Suggestion {
	if !e.catalog.Ready() {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	if parsed, ok := ParseUnderlyingAndStrike(query); ok {
		return wrap(KindStrike, e.catalog.ByUnderlyingAndStrike(parsed.Name, parsed.Strike, limit))
	}

	if prefixes := RecognizedPrefixes(query); len(prefixes) > 0 {
		u, _ := lookup(prefixes[0])
		spot := e.referencePrice(ctx, u)
		return wrap(KindATM, e.catalog.StrikesAroundSpot(u.Name, spot, limit))
	}

	return wrap(KindText, e.catalog.Search(query, limit))
}

// referencePrice resolves a spot price for the underlying: live watch
// price, then last daily close, then the static fallback.
func (e *Engine) referencePrice(ctx context.Context, u Underlying) float64 {
	if e.prices != nil {
		if price, ok := e.prices.LivePrice(u.DisplaySymbol); ok && price > 0 {
			return price
		}
	}

	if e.closes != nil {
		closePrice, err := e.closes.LastDailyClose(ctx, u.IndexToken)
		if err == nil && closePrice > 0 {
			return closePrice
		}
		if err != nil {
			e.logger.Debug("daily close unavailable", "underlying", u.Name, "error", err)
		}
	}

	return u.FallbackSpot
}

func wrap(kind string, instruments []model.Instrument) []Suggestion {
	if len(instruments) == 0 {
		return nil
	}
	out := make([]Suggestion, len(instruments))
	for i, inst := range instruments {
		out[i] = Suggestion{Kind: kind, Instrument: inst}
	}
	return out
}
