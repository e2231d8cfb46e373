package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alphadesk/tradedash/internal/trend"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// trendCmd represents the trend command
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Print the historical Sharpe series",
	Long: `Scan the runs directory for <prefix>_<YYYY-MM-DD>.csv files and print
one Sharpe point per file, oldest first. Unreadable files are listed as
warnings and skipped.

Example:
  go run ./cmd/tradedash trend
  go run ./cmd/tradedash trend --dir ./archive --json`,
	RunE: runTrend,
}

var (
	trendDir  string
	trendJSON bool
)

func init() {
	rootCmd.AddCommand(trendCmd)

	trendCmd.Flags().StringVar(&trendDir, "dir", "", "runs directory (default $RUNS_DIR)")
	trendCmd.Flags().BoolVar(&trendJSON, "json", false, "print the series as JSON")
}

func runTrend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	dir := trendDir
	if dir == "" {
		dir = cfg.RunsPath()
	}

	res, err := trend.NewScanner(dir, cfg.Sources.TrendPattern, log).Scan(cmd.Context())
	if err != nil {
		return err
	}

	if trendJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Historical Sharpe (%s)\n", dir)
	widths := []int{10, 8, 40}
	PrintTableHeader([]string{"Date", "Sharpe", "File"}, widths)
	for _, p := range res.Points {
		PrintTableRow([]string{p.Date.Format(trend.DateLayout), fmt.Sprintf("%.3f", p.Sharpe), p.File}, widths)
	}

	for _, w := range res.Warnings {
		PrintWarning(fmt.Sprintf("Skipped %s: %s", w.File, w.Reason))
	}

	return nil
}
