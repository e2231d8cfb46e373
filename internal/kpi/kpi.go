// Package kpi projects a trading results table onto the four headline
// metrics and formats them for display.
package kpi

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/alphadesk/tradedash/internal/dataset"
)

// Column name variants, tried in order
var (
	SharpeColumns   = []string{"sharpe", "Sharpe"}
	WinRateColumns  = []string{"win_rate", "Win_Rate"}
	MaxDDColumns    = []string{"max_dd", "Max_DD"}
	TurnoverColumns = []string{"turnover", "Turnover"}
	ReturnsColumns  = []string{"returns", "return", "daily_return", "strategy_return", "ret"}
)

// Summary holds the headline metrics. Absent inputs are zero.
type Summary struct {
	Sharpe      float64  `json:"sharpe"`
	WinRate     float64  `json:"win_rate"`
	MaxDrawdown float64  `json:"max_dd"`
	Turnover    float64  `json:"turnover"`
	Missing     []string `json:"missing,omitempty"`
}

// FromFirstRow reads the metrics from row 0
func FromFirstRow(t *dataset.Table) Summary {
	var s Summary
	s.Sharpe = s.first(t, "sharpe", SharpeColumns)
	s.WinRate = s.first(t, "win_rate", WinRateColumns)
	s.MaxDrawdown = s.first(t, "max_dd", MaxDDColumns)
	s.Turnover = s.first(t, "turnover", TurnoverColumns)
	return s
}

func (s *Summary) first(t *dataset.Table, field string, names []string) float64 {
	v, ok := t.Float(0, names...)
	if !ok {
		s.Missing = append(s.Missing, field)
		return 0
	}
	return v
}

// FromColumnMeans averages each metric column over its parsable cells
func FromColumnMeans(t *dataset.Table) Summary {
	var s Summary
	s.Sharpe = s.mean(t, "sharpe", SharpeColumns)
	s.WinRate = s.mean(t, "win_rate", WinRateColumns)
	s.MaxDrawdown = s.mean(t, "max_dd", MaxDDColumns)
	s.Turnover = s.mean(t, "turnover", TurnoverColumns)
	return s
}

func (s *Summary) mean(t *dataset.Table, field string, names []string) float64 {
	values, _ := t.FloatColumn(names...)
	if len(values) == 0 {
		s.Missing = append(s.Missing, field)
		return 0
	}
	return Mean(values)
}

// Mean is the arithmetic mean, 0 for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// TradingDays annualises per-period returns
const TradingDays = 252

// FromReturns derives metrics from a per-period return series.
// Sharpe is mean/stddev scaled by sqrt(TradingDays) with no risk-free rate;
// MaxDrawdown is the worst peak-to-trough decline of compounded equity, as a
// negative fraction. Turnover is not derivable and stays 0.
func FromReturns(returns []float64) Summary {
	var s Summary
	if len(returns) == 0 {
		s.Missing = []string{"sharpe", "win_rate", "max_dd", "turnover"}
		return s
	}

	s.Sharpe = sharpe(returns)

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	s.WinRate = float64(wins) / float64(len(returns))
	s.MaxDrawdown = maxDrawdown(returns)
	s.Missing = []string{"turnover"}
	return s
}

// FromTableReturns applies FromReturns to the table's returns column.
// ok is false when the table has none.
func FromTableReturns(t *dataset.Table) (s Summary, ok bool) {
	returns, ok := t.FloatColumn(ReturnsColumns...)
	if !ok {
		return Summary{}, false
	}
	return FromReturns(returns), true
}

func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := Mean(returns)
	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(TradingDays)
}

func maxDrawdown(returns []float64) float64 {
	equity, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := (equity - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// Card is one formatted metric tile
type Card struct {
	Key   string `json:"key"`
	Icon  string `json:"icon"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Cards formats a summary: Sharpe to 3 decimals, win rate and drawdown as
// percentages with 1 decimal, turnover to 1 decimal. Rounding is half away
// from zero on the shortest decimal representation, so 1.2345 shows 1.235.
func Cards(s Summary) []Card {
	return []Card{
		{Key: "sharpe", Icon: "📈", Label: "Sharpe Ratio", Value: Fixed(s.Sharpe, 3)},
		{Key: "win_rate", Icon: "🏆", Label: "Win Rate", Value: Percent(s.WinRate, 1)},
		{Key: "max_dd", Icon: "📉", Label: "Max Drawdown", Value: Percent(s.MaxDrawdown, 1)},
		{Key: "turnover", Icon: "🔄", Label: "Turnover", Value: Fixed(s.Turnover, 1)},
	}
}

// Fixed formats v with exactly places decimals
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Percent formats a fraction as a percentage with places decimals
func Percent(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(places) + "%"
}

// SummaryRow is one line of the latest-values table
type SummaryRow struct {
	Metric string `json:"metric"`
	Latest string `json:"latest"`
}

// SummaryTable lists the first-row metrics rounded to 4 decimals. It is only
// produced for tables with more than one row; otherwise it returns nil.
func SummaryTable(t *dataset.Table) []SummaryRow {
	if t.Len() <= 1 {
		return nil
	}

	s := FromFirstRow(t)
	return []SummaryRow{
		{Metric: "sharpe", Latest: round4(s.Sharpe)},
		{Metric: "win_rate", Latest: round4(s.WinRate)},
		{Metric: "max_dd", Latest: round4(s.MaxDrawdown)},
		{Metric: "turnover", Latest: round4(s.Turnover)},
	}
}

func round4(v float64) string {
	return decimal.NewFromFloat(v).Round(4).String()
}

var hundred = decimal.NewFromInt(100)
