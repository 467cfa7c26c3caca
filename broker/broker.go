// Package broker wraps the brokerage REST API used for paper trading.
// The valuation path never touches it; only the status view and the
// optional paper-buy/paper-sell dashboard actions do.
package broker

import "context"

// Broker is the stateless brokerage surface.
type Broker interface {
	Account(ctx context.Context) (Account, error)
	Positions(ctx context.Context) ([]Position, error)
	OpenOrders(ctx context.Context) ([]Order, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// Account is the brokerage account summary.
type Account struct {
	ID          string
	Equity      float64
	Cash        float64
	BuyingPower float64
}

// Position is one open brokerage position.
type Position struct {
	Ticker        string
	Qty           float64
	AvgEntryPrice float64
	CurrentPrice  float64
	MarketValue   float64
	UnrealizedPL  float64
}

// Order is a placed order as reported by the broker.
type Order struct {
	ID     string
	Ticker string
	Qty    float64
	Side   string
	Type   string
	Status string
}

// OrderRequest places a market order.
type OrderRequest struct {
	Ticker string
	Qty    int
	Side   string // "buy" or "sell"
}
