package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/folio/broker"
	"github.com/rustyeddy/folio/sched"
	"github.com/rustyeddy/folio/web"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the web dashboard",
	Long: `Serve the dashboard: portfolio and trade-log views, manual trading,
configuration, scheduler control and live broker status.

The daily scheduler runs alongside the server. Mutating pages require a
login with DASHBOARD_USERNAME / DASHBOARD_PASSWORD from the environment.

Example:
  folio dashboard --portfolio portfolio.csv --port 8080`,
	RunE: runDashboard,
}

var (
	dashPortfolio string
	dashHost      string
	dashPort      int
)

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().StringVarP(&dashPortfolio, "portfolio", "p", "portfolio.csv", "path to the portfolio snapshot CSV")
	dashboardCmd.Flags().StringVar(&dashHost, "host", "127.0.0.1", "listen host")
	dashboardCmd.Flags().IntVar(&dashPort, "port", 8080, "listen port")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	a, err := buildApp(dashPortfolio)
	if err != nil {
		return err
	}
	defer a.close()

	job := sched.JobFunc{JobName: "daily-valuation", Fn: func() error {
		_, err := a.runOnce(context.Background(), -1)
		return err
	}}
	scheduler := sched.New(job, a.cfg.RunTime, log)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	var bk broker.Broker
	if os.Getenv("APCA_API_KEY_ID") != "" {
		bk = broker.NewAlpacaClient()
	}

	server := web.New(web.Config{
		Host:       dashHost,
		Port:       dashPort,
		Engine:     a.engine,
		Snapshots:  a.snapshots,
		Trades:     a.trades,
		Audit:      a.audit,
		Broker:     bk,
		Scheduler:  scheduler,
		ConfigPath: cfgPath,
		EnvPath:    envPath,
		StatusPath: a.statusPath,
		Username:   os.Getenv("DASHBOARD_USERNAME"),
		Password:   os.Getenv("DASHBOARD_PASSWORD"),
		Log:        log,
	})

	errc := make(chan error, 1)
	go func() { errc <- server.Start() }()
	fmt.Printf("Dashboard listening on http://%s:%d\n", dashHost, dashPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
