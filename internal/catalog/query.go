package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/optiondesk/marketdata/internal/model"
)

// DefaultSearchLimit caps Search results when the caller passes limit <= 0.
const DefaultSearchLimit = 50

// strikesAroundCount is how many distinct strikes StrikesAroundSpot selects.
const strikesAroundCount = 10

// Search returns instruments whose search text contains the normalized
// query as a substring, in catalog order, up to limit. Matching is
// case-insensitive; an empty query matches nothing.
func (s *Store) Search(query string, limit int) []model.Instrument {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Instrument
	for _, inst := range s.instruments {
		if strings.Contains(inst.SearchText, q) {
			out = append(out, inst)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// ByUnderlyingAndStrike returns contracts for the underlying at the
// exact strike, ordered by expiry ascending with the call before the
// put on equal expiry, truncated to limit (limit <= 0 means no cap).
func (s *Store) ByUnderlyingAndStrike(underlying string, strike float64, limit int) []model.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Instrument
	for _, inst := range s.byUnderlying[underlying] {
		if inst.Strike == strike {
			out = append(out, inst)
		}
	}
	sortChain(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StrikesAroundSpot selects up to 10 distinct strikes for the underlying
// centered on the spot price and returns the nearest-expiry call and put
// for each, call before put, truncated to limit (limit <= 0 means no
// cap). The at-the-money strike comes first, then strikes alternate
// above and below, stepping outward.
func (s *Store) StrikesAroundSpot(underlying string, spot float64, limit int) []model.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contracts := s.byUnderlying[underlying]
	if len(contracts) == 0 {
		return nil
	}

	strikes := distinctStrikes(contracts)
	selected := pickAroundATM(strikes, spot, strikesAroundCount)

	out := make([]model.Instrument, 0, 2*len(selected))
	for _, strike := range selected {
		if call, ok := nearestExpiry(contracts, strike, model.OptionCall); ok {
			out = append(out, call)
		}
		if put, ok := nearestExpiry(contracts, strike, model.OptionPut); ok {
			out = append(out, put)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// distinctStrikes returns the sorted set of strikes present in contracts.
func distinctStrikes(contracts []model.Instrument) []float64 {
	seen := make(map[float64]bool)
	var strikes []float64
	for _, inst := range contracts {
		if !seen[inst.Strike] {
			seen[inst.Strike] = true
			strikes = append(strikes, inst.Strike)
		}
	}
	sort.Float64s(strikes)
	return strikes
}

// pickAroundATM anchors on the strike nearest to spot and alternates
// above, below, stepping outward until n strikes are selected or the
// ladder is exhausted.
func pickAroundATM(strikes []float64, spot float64, n int) []float64 {
	if len(strikes) == 0 {
		return nil
	}

	atm := 0
	for i, strike := range strikes {
		if math.Abs(strike-spot) < math.Abs(strikes[atm]-spot) {
			atm = i
		}
	}

	selected := []float64{strikes[atm]}
	for step := 1; len(selected) < n; step++ {
		hi, lo := atm+step, atm-step
		if hi >= len(strikes) && lo < 0 {
			break
		}
		if hi < len(strikes) {
			selected = append(selected, strikes[hi])
		}
		if lo >= 0 && len(selected) < n {
			selected = append(selected, strikes[lo])
		}
	}
	return selected
}

// nearestExpiry returns the contract at the strike with the given option
// type and the earliest expiry.
func nearestExpiry(contracts []model.Instrument, strike float64, optionType string) (model.Instrument, bool) {
	var best model.Instrument
	found := false
	for _, inst := range contracts {
		if inst.Strike != strike || inst.InstrumentType != optionType {
			continue
		}
		if !found || inst.Expiry.Before(best.Expiry) {
			best = inst
			found = true
		}
	}
	return best, found
}

// sortChain orders contracts by expiry ascending, call before put.
func sortChain(contracts []model.Instrument) {
	sort.SliceStable(contracts, func(i, j int) bool {
		if !contracts[i].Expiry.Equal(contracts[j].Expiry) {
			return contracts[i].Expiry.Before(contracts[j].Expiry)
		}
		return contracts[i].IsCall() && !contracts[j].IsCall()
	})
}
