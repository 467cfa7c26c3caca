package cmd

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/folio/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "A daily mark-to-market portfolio tracker with stop-loss liquidation",
	Long: `Folio values an equity portfolio once a day at closing prices, enforces
stop-loss liquidation, and keeps its history in plain CSV tables.

It provides tools for:
  - Daily valuation runs against a cached market data feed
  - Automated stop-loss liquidation with an append-only trade log
  - Manual buys and sells with full validation
  - A scheduled daily run and a web dashboard
  - Optional paper-trading through a brokerage account`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; the environment still applies.
		_ = godotenv.Load(envPath)
		log = logger.New(logger.Config{Level: logLevel, Pretty: pretty})
	},
}

var (
	cfgPath  string
	envPath  string
	auditDB  string
	logLevel string
	pretty   bool

	log zerolog.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "path to .env file with broker credentials")
	rootCmd.PersistentFlags().StringVar(&auditDB, "audit-db", "", "path to SQLite audit trail (disabled when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "human-readable console logging")
}
