package events

import (
	"time"

	"github.com/google/uuid"
)

// Well-known local event names.
const (
	EventOrderPlaced = "order_placed"
)

// OrderPlaced is the optimistic notification emitted when the user places
// an order, before any server confirmation arrives.
type OrderPlaced struct {
	ClientOrderID uuid.UUID
	Symbol        string
	Side          string // "BUY" or "SELL"
	Quantity      int
	Price         float64
	PlacedAt      time.Time
}

// NewOrderPlaced builds an OrderPlaced event with a fresh client order ID.
func NewOrderPlaced(symbol, side string, quantity int, price float64) OrderPlaced {
	return OrderPlaced{
		ClientOrderID: uuid.New(),
		Symbol:        symbol,
		Side:          side,
		Quantity:      quantity,
		Price:         price,
		PlacedAt:      time.Now(),
	}
}
