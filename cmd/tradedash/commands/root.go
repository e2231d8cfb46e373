package commands

import (
	"github.com/spf13/cobra"

	"github.com/alphadesk/tradedash/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tradedash",
	Short: "ML Alpha Trading performance dashboard and notebook runner",
	Long: `tradedash Unified CLI

Strategy performance dashboard (KPI cards, raw results, Sharpe trend)
and the daily notebook batch runner.

Usage:
  go run ./cmd/tradedash [command]

Examples:
  go run ./cmd/tradedash serve
  go run ./cmd/tradedash kpi --source local
  go run ./cmd/tradedash trend
  go run ./cmd/tradedash run
  go run ./cmd/tradedash scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}
