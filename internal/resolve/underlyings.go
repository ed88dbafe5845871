package resolve

// Underlying is a recognized index underlying.
type Underlying struct {
	Name          string  // Catalog name (e.g., "NIFTY")
	DisplaySymbol string  // Feed symbol of the index itself (e.g., "NIFTY 50")
	IndexToken    int64   // Instrument token of the index
	FallbackSpot  float64 // Static spot used when no live or historical price exists
}

// underlyings is the recognized-underlying table. More specific names
// come first so containment matching never resolves "BANKNIFTY 52000"
// to NIFTY.
var underlyings = []Underlying{
	{Name: "BANKNIFTY", DisplaySymbol: "NIFTY BANK", IndexToken: 260105, FallbackSpot: 52000},
	{Name: "FINNIFTY", DisplaySymbol: "NIFTY FIN SERVICE", IndexToken: 257801, FallbackSpot: 23000},
	{Name: "MIDCPNIFTY", DisplaySymbol: "NIFTY MID SELECT", IndexToken: 288009, FallbackSpot: 12000},
	{Name: "NIFTY", DisplaySymbol: "NIFTY 50", IndexToken: 256265, FallbackSpot: 24000},
}

// Underlyings returns a copy of the recognized-underlying table.
func Underlyings() []Underlying {
	out := make([]Underlying, len(underlyings))
	copy(out, underlyings)
	return out
}

// lookup returns the table entry for a name.
func lookup(name string) (Underlying, bool) {
	for _, u := range underlyings {
		if u.Name == name {
			return u, true
		}
	}
	return Underlying{}, false
}
