package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/folio/ledger"
)

// Buy applies a manual buy: validates that the ticker resolves and that the
// cost fits in cash, then appends the trade-log entry and a new holding
// lot. Repeated buys of the same ticker intentionally create separate lots;
// they are not merged into a blended position. Validation happens before
// any write, so an error means nothing changed.
func (e *Engine) Buy(ctx context.Context, ticker string, shares int, price, stopLoss, cash float64, holdings []Holding, asOf time.Time) (float64, []Holding, error) {
	if shares <= 0 {
		return cash, holdings, fmt.Errorf("buy %s: %w: share count must be positive", ticker, ErrInvalidOrder)
	}
	if price <= 0 {
		return cash, holdings, fmt.Errorf("buy %s: %w: price must be positive", ticker, ErrInvalidOrder)
	}

	if _, err := e.src.Bars(ctx, ticker, 1, asOf); err != nil {
		return cash, holdings, fmt.Errorf("buy %s: %w: %v", ticker, ErrUnknownTicker, err)
	}

	cost := price * float64(shares)
	if cost > cash {
		return cash, holdings, fmt.Errorf(
			"buy %s: %w: need %.2f, have %.2f", ticker, ErrInsufficientFunds, cost, cash)
	}

	day := asOf.Format(ledger.DateLayout)
	entry := ledger.Entry{
		Date:         day,
		Ticker:       ticker,
		SharesBought: shares,
		BuyPrice:     price,
		CostBasis:    cost,
		PnL:          0,
		Reason:       "MANUAL BUY - New position",
	}
	if err := e.trades.Append(entry); err != nil {
		return cash, holdings, fmt.Errorf("log manual buy: %w", err)
	}

	updated := append(append([]Holding(nil), holdings...), Holding{
		Ticker:   ticker,
		Shares:   shares,
		BuyPrice: price,
		StopLoss: stopLoss,
	})
	cash -= cost

	e.audit.Record("manual", "trade_buy", entry)
	e.notifier.Send(fmt.Sprintf("Bought %d shares of %s at %.2f.", shares, ticker, price))

	e.log.Info().Str("ticker", ticker).Int("shares", shares).Float64("price", price).Msg("Manual buy")
	return cash, updated, nil
}

// Sell applies a manual sell against the first lot held for ticker.
// Selling every owned share removes the lot; a partial sell keeps the
// blended buy price and recomputes the lot's cost basis from the remaining
// shares. An error means nothing changed.
func (e *Engine) Sell(ctx context.Context, ticker string, sharesSold int, price, cash float64, holdings []Holding, reason string, asOf time.Time) (float64, []Holding, error) {
	if sharesSold <= 0 {
		return cash, holdings, fmt.Errorf("sell %s: %w: share count must be positive", ticker, ErrInvalidOrder)
	}

	lot := -1
	for i, h := range holdings {
		if h.Ticker == ticker {
			lot = i
			break
		}
	}
	if lot < 0 {
		return cash, holdings, fmt.Errorf("sell %s: %w", ticker, ErrTickerNotFound)
	}

	owned := holdings[lot].Shares
	if sharesSold > owned {
		return cash, holdings, fmt.Errorf(
			"sell %s: %w: selling %d, own %d", ticker, ErrOverSell, sharesSold, owned)
	}

	buyPrice := holdings[lot].BuyPrice
	costBasis := buyPrice * float64(sharesSold)
	pnl := price*float64(sharesSold) - costBasis

	day := asOf.Format(ledger.DateLayout)
	entry := ledger.Entry{
		Date:       day,
		Ticker:     ticker,
		SharesSold: sharesSold,
		SellPrice:  price,
		CostBasis:  costBasis,
		PnL:        pnl,
		Reason:     "MANUAL SELL - " + reason,
	}
	if err := e.trades.Append(entry); err != nil {
		return cash, holdings, fmt.Errorf("log manual sell: %w", err)
	}

	updated := append([]Holding(nil), holdings...)
	if sharesSold == owned {
		updated = append(updated[:lot], updated[lot+1:]...)
	} else {
		updated[lot].Shares = owned - sharesSold
	}
	cash += price * float64(sharesSold)

	e.audit.Record("manual", "trade_sell", entry)
	e.notifier.Send(fmt.Sprintf(
		"Sold %d shares of %s at %.2f (PnL: %.2f).", sharesSold, ticker, price, pnl))

	e.log.Info().Str("ticker", ticker).Int("shares", sharesSold).Float64("price", price).Msg("Manual sell")
	return cash, updated, nil
}
