package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alphadesk/tradedash/internal/dashboard"
)

// kpiCmd represents the kpi command
var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Print the strategy KPIs",
	Long: `Load a results source and print the metric cards, the raw preview
and the latest-values summary.

Example:
  go run ./cmd/tradedash kpi
  go run ./cmd/tradedash kpi --source latest
  go run ./cmd/tradedash kpi --source dataset --json`,
	RunE: runKPI,
}

var (
	kpiSource string
	kpiJSON   bool
)

func init() {
	rootCmd.AddCommand(kpiCmd)

	kpiCmd.Flags().StringVar(&kpiSource, "source", "", "remote|local|latest|dataset (default $DASHBOARD_SOURCE)")
	kpiCmd.Flags().BoolVar(&kpiJSON, "json", false, "print the view as JSON")
}

func runKPI(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	view, err := d.newDashboard().Build(cmd.Context(), kpiSource)
	if err != nil {
		PrintError(dashboard.Message(err))
		return err
	}

	if kpiJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	PrintDoubleSeparator()
	fmt.Printf("  %s\n", view.Title)
	PrintSeparator()
	PrintInfo(fmt.Sprintf("Loaded %s", view.SourceLabel))
	fmt.Println()

	fmt.Println("Strategy Performance KPIs")
	for _, c := range view.Cards {
		PrintKeyValue(c.Icon+" "+c.Label, c.Value, 16)
	}
	if len(view.Summary.Missing) > 0 {
		PrintWarning(fmt.Sprintf("Columns not found, shown as 0: %v", view.Summary.Missing))
	}

	fmt.Println()
	fmt.Println("Raw Strategy Results")
	widths := columnWidths(view.Columns, view.Preview)
	PrintTableHeader(view.Columns, widths)
	for _, row := range view.Preview {
		PrintTableRow(padRow(row, len(view.Columns)), widths)
	}
	fmt.Printf("(%d of %d rows)\n", len(view.Preview), view.TotalRows)

	if len(view.SummaryTable) > 0 {
		fmt.Println()
		fmt.Println("📈 Performance Summary")
		for _, row := range view.SummaryTable {
			PrintKeyValue(row.Metric, row.Latest, 10)
		}
	}

	return nil
}

func columnWidths(columns []string, rows [][]string) []int {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}
	return widths
}

func padRow(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}
