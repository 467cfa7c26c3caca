package broker

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// AlpacaClient implements Broker over the Alpaca trading API. The SDK reads
// APCA_API_KEY_ID / APCA_API_SECRET_KEY / APCA_API_BASE_URL from the
// environment; the base URL defaults to the paper-trading endpoint there,
// so live trading requires an explicit opt-in.
type AlpacaClient struct {
	trade *alpaca.Client
}

var _ Broker = (*AlpacaClient)(nil)

// NewAlpacaClient builds a client from the environment.
func NewAlpacaClient() *AlpacaClient {
	return &AlpacaClient{trade: alpaca.NewClient(alpaca.ClientOpts{})}
}

// Account returns the account summary.
func (c *AlpacaClient) Account(ctx context.Context) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	acct, err := c.trade.GetAccount()
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return Account{
		ID:          acct.ID,
		Equity:      acct.Equity.InexactFloat64(),
		Cash:        acct.Cash.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
	}, nil
}

// Positions returns all open positions.
func (c *AlpacaClient) Positions(ctx context.Context) ([]Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.trade.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	out := make([]Position, 0, len(raw))
	for _, p := range raw {
		out = append(out, Position{
			Ticker:        p.Symbol,
			Qty:           p.Qty.InexactFloat64(),
			AvgEntryPrice: p.AvgEntryPrice.InexactFloat64(),
			CurrentPrice:  deref(p.CurrentPrice),
			MarketValue:   deref(p.MarketValue),
			UnrealizedPL:  deref(p.UnrealizedPL),
		})
	}
	return out, nil
}

// OpenOrders returns orders with open status.
func (c *AlpacaClient) OpenOrders(ctx context.Context) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.trade.GetOrders(alpaca.GetOrdersRequest{
		Status: "open",
		Limit:  100,
	})
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	out := make([]Order, 0, len(raw))
	for _, o := range raw {
		out = append(out, mapOrder(o))
	}
	return out, nil
}

// PlaceOrder submits a day market order.
func (c *AlpacaClient) PlaceOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	qty := decimal.NewFromInt(int64(req.Qty))
	o, err := c.trade.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      req.Ticker,
		Qty:         &qty,
		Side:        alpaca.Side(req.Side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return Order{}, fmt.Errorf("place %s order for %s: %w", req.Side, req.Ticker, err)
	}
	return mapOrder(*o), nil
}

func mapOrder(o alpaca.Order) Order {
	return Order{
		ID:     o.ID,
		Ticker: o.Symbol,
		Qty:    deref(o.Qty),
		Side:   string(o.Side),
		Type:   string(o.Type),
		Status: o.Status,
	}
}

func deref(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return d.InexactFloat64()
}
