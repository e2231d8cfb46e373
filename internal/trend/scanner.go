// Package trend rebuilds a historical Sharpe series from dated result files
// left in the runs directory.
package trend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alphadesk/tradedash/internal/dataset"
	"github.com/alphadesk/tradedash/internal/kpi"
	"github.com/alphadesk/tradedash/internal/telemetry"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// DateLayout is the date token embedded in run file names
const DateLayout = "2006-01-02"

// SharpeColumns is the column priority list for a run file
var SharpeColumns = []string{"sharpe", "Sharpe", "sharpe_ratio", "Sharpe_Ratio", "SR"}

// filename schema: <prefix>_<YYYY-MM-DD>.csv, extension in any case
var fileSchema = regexp.MustCompile(`^(.+)_(\d{4}-\d{2}-\d{2})\.(?i:csv)$`)

// Point is one dated Sharpe observation
type Point struct {
	Date   time.Time `json:"date"`
	Sharpe float64   `json:"sharpe"`
	File   string    `json:"file"`
}

// Warning explains why a file was left out of the series
type Warning struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Result is the ordered series plus skipped files
type Result struct {
	Points   []Point   `json:"points"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Scanner reads dated result files from a directory
type Scanner struct {
	dir     string
	pattern string
	logger  *logger.Logger
}

// NewScanner scans dir for CSVs whose name contains pattern
func NewScanner(dir, pattern string, log *logger.Logger) *Scanner {
	return &Scanner{dir: dir, pattern: pattern, logger: log}
}

// Scan never fails on a single bad file; those become warnings.
// Only context cancellation is returned as an error.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	res := &Result{Points: []Point{}}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		res.Warnings = append(res.Warnings, Warning{File: s.dir, Reason: "runs directory not found"})
		return res, nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, Warning{File: s.dir, Reason: err.Error()})
		return res, nil
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := e.Name()
		if e.IsDir() || !strings.Contains(name, s.pattern) || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}

		p, err := s.readPoint(name)
		if err != nil {
			telemetry.TrendFilesSkipped.Inc()
			s.logger.WithFields(map[string]interface{}{
				"file":  name,
				"error": err.Error(),
			}).Warn("Skipping run file")
			res.Warnings = append(res.Warnings, Warning{File: name, Reason: err.Error()})
			continue
		}
		res.Points = append(res.Points, p)
	}

	sort.Slice(res.Points, func(i, j int) bool {
		if !res.Points[i].Date.Equal(res.Points[j].Date) {
			return res.Points[i].Date.Before(res.Points[j].Date)
		}
		return res.Points[i].File < res.Points[j].File
	})

	s.logger.WithFields(map[string]interface{}{
		"dir":     s.dir,
		"points":  len(res.Points),
		"skipped": len(res.Warnings),
	}).Debug("Trend scan completed")

	return res, nil
}

// ParseFileDate extracts the date from a <prefix>_<YYYY-MM-DD>.csv name
func ParseFileDate(name string) (time.Time, error) {
	m := fileSchema.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("name does not match <prefix>_YYYY-MM-DD.csv")
	}
	d, err := time.Parse(DateLayout, m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", m[2], err)
	}
	return d, nil
}

func (s *Scanner) readPoint(name string) (Point, error) {
	date, err := ParseFileDate(name)
	if err != nil {
		return Point{}, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return Point{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	table, err := dataset.Parse(f)
	if err != nil {
		return Point{}, fmt.Errorf("parse: %w", err)
	}

	values, ok := table.FloatColumn(SharpeColumns...)
	if !ok {
		return Point{}, fmt.Errorf("no sharpe column (tried %s)", strings.Join(SharpeColumns, ", "))
	}
	if len(values) == 0 {
		return Point{}, fmt.Errorf("sharpe column has no numeric values")
	}

	return Point{Date: date, Sharpe: kpi.Mean(values), File: name}, nil
}
