package api

import (
	"context"
	"fmt"
)

// GetInstruments fetches all instrument records for an exchange.
func (c *Client) GetInstruments(ctx context.Context, exchange string) ([]APIInstrument, error) {
	var resp InstrumentsResponse
	if err := c.get(ctx, "/instruments/"+exchange, nil, &resp); err != nil {
		return nil, fmt.Errorf("get instruments %s: %w", exchange, err)
	}

	c.logger.Debug("fetched instruments", "exchange", exchange, "count", len(resp.Instruments))
	return resp.Instruments, nil
}
