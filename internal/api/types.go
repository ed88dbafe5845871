package api

// APIInstrument is a raw instrument record as returned by the catalog service.
type APIInstrument struct {
	InstrumentToken int64   `json:"instrument_token"`
	TradingSymbol   string  `json:"tradingsymbol"`
	Name            string  `json:"name"`
	Exchange        string  `json:"exchange"`
	Segment         string  `json:"segment"`
	InstrumentType  string  `json:"instrument_type"` // "CE", "PE", "FUT", "EQ"
	Strike          float64 `json:"strike"`
	Expiry          string  `json:"expiry"` // "2006-01-02", sometimes with a time suffix
}

// InstrumentsResponse is the catalog listing response.
type InstrumentsResponse struct {
	Instruments []APIInstrument `json:"instruments"`
}
