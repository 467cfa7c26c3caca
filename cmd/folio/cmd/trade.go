package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/folio/portfolio"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Run one daily valuation pass",
	Long: `Value every holding at its latest close, liquidate positions whose price
hit the stop loss, and rewrite today's rows in the portfolio table.

Holdings and cash are rebuilt from the portfolio table itself, so the run
can be repeated safely. Seed a brand new portfolio with --holdings.

Example:
  folio trade --portfolio portfolio.csv
  folio trade --portfolio portfolio.csv --holdings seed.csv --cash 10000`,
	RunE: runTrade,
}

var (
	tradePortfolio string
	tradeHoldings  string
	tradeCash      float64
)

func init() {
	rootCmd.AddCommand(tradeCmd)

	tradeCmd.Flags().StringVarP(&tradePortfolio, "portfolio", "p", "portfolio.csv", "path to the portfolio snapshot CSV")
	tradeCmd.Flags().StringVar(&tradeHoldings, "holdings", "", "seed holdings from this CSV instead of the portfolio table")
	tradeCmd.Flags().Float64VarP(&tradeCash, "cash", "c", -1, "override cash balance (negative keeps the recorded balance)")
}

func runTrade(cmd *cobra.Command, args []string) error {
	a, err := buildApp(tradePortfolio)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	var res portfolio.Result
	if tradeHoldings != "" {
		holdings, err := portfolio.LoadHoldingsCSV(tradeHoldings, a.cfg.DefaultStopLoss)
		if err != nil {
			return fmt.Errorf("load holdings: %w", err)
		}
		cash := tradeCash
		if cash < 0 {
			cash = a.cfg.DefaultCash
		}
		res, err = a.run(ctx, holdings, cash)
		if err != nil {
			return err
		}
	} else {
		res, err = a.runOnce(ctx, tradeCash)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Portfolio updated: %s\n", res.SnapshotPath)
	fmt.Printf("  Positions: %d\n", len(res.Rows)-1)
	fmt.Printf("  Liquidated: %d\n", len(res.Liquidated))
	for _, t := range res.Liquidated {
		fmt.Printf("    - %s\n", t)
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("  Skipped (no price): %d\n", len(res.Skipped))
		for _, t := range res.Skipped {
			fmt.Printf("    - %s\n", t)
		}
	}
	fmt.Printf("  Cash: %.2f\n", res.Cash)
	return nil
}
