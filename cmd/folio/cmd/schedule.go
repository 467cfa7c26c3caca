package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/folio/sched"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily valuation on a timer",
	Long: `Start a scheduler that runs one valuation pass every day at the
configured run time, then wait until interrupted.

The run time comes from the config file unless --time overrides it.

Example:
  folio schedule --portfolio portfolio.csv --time 09:30`,
	RunE: runSchedule,
}

var (
	schedPortfolio string
	schedCash      float64
	schedTime      string
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVarP(&schedPortfolio, "portfolio", "p", "portfolio.csv", "path to the portfolio snapshot CSV")
	scheduleCmd.Flags().Float64VarP(&schedCash, "cash", "c", -1, "override cash balance (negative keeps the recorded balance)")
	scheduleCmd.Flags().StringVarP(&schedTime, "time", "t", "", "daily run time HH:MM (overrides config)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := buildApp(schedPortfolio)
	if err != nil {
		return err
	}
	defer a.close()

	runTime := a.cfg.RunTime
	if schedTime != "" {
		runTime = schedTime
	}

	job := sched.JobFunc{JobName: "daily-valuation", Fn: func() error {
		_, err := a.runOnce(context.Background(), schedCash)
		return err
	}}

	s := sched.New(job, runTime, log)
	if err := s.Start(); err != nil {
		return err
	}
	fmt.Printf("Scheduler running, daily valuation at %s. Ctrl-C to stop.\n", runTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	s.Stop()
	return nil
}
