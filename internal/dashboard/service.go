// Package dashboard builds the performance view shown by the HTML page and
// the JSON API: metric cards, a raw preview, the latest-values table and the
// historical Sharpe trend.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/alphadesk/tradedash/internal/dataset"
	"github.com/alphadesk/tradedash/internal/kpi"
	"github.com/alphadesk/tradedash/internal/trend"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// Title is the page heading
const Title = "ML Alpha Trading – Performance Dashboard"

// Source names accepted by ?source=
const (
	SourceRemote  = "remote"
	SourceLocal   = "local"
	SourceLatest  = "latest"
	SourceDataset = "dataset"
)

// Metric aggregation modes
const (
	AggregateFirstRow   = "first_row"
	AggregateColumnMean = "column_mean"
)

// ErrUnknownSource is returned for a source name that was never registered
var ErrUnknownSource = errors.New("unknown source")

// Binding is a registered source and how its metrics are read
type Binding struct {
	Source    dataset.Source
	Aggregate string
}

// View is the data-transfer object behind every dashboard response
type View struct {
	Title        string           `json:"title"`
	Source       string           `json:"source"`
	SourceLabel  string           `json:"source_label"`
	Location     string           `json:"location"`
	LoadedAt     time.Time        `json:"loaded_at"`
	Aggregate    string           `json:"aggregate"`
	Summary      kpi.Summary      `json:"summary"`
	Cards        []kpi.Card       `json:"cards"`
	Columns      []string         `json:"columns"`
	Preview      [][]string       `json:"preview"`
	TotalRows    int              `json:"total_rows"`
	SummaryTable []kpi.SummaryRow `json:"summary_table,omitempty"`
	Derived      *kpi.Summary     `json:"derived,omitempty"`
	DerivedCards []kpi.Card       `json:"derived_cards,omitempty"`
	Trend        []trend.Point    `json:"trend"`
	Warnings     []trend.Warning  `json:"warnings,omitempty"`
	Sources      []string         `json:"sources"`
}

// Options tune the view
type Options struct {
	DefaultSource string
	PreviewRows   int
}

// Service assembles views
// ⭐ SSOT: 대시보드 뷰 조립은 여기서만
type Service struct {
	loader   *dataset.Loader
	scanner  *trend.Scanner
	bindings map[string]Binding
	opts     Options
	logger   *logger.Logger
}

// NewService creates a dashboard service. scanner may be nil to disable the trend.
func NewService(loader *dataset.Loader, scanner *trend.Scanner, opts Options, log *logger.Logger) *Service {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = SourceRemote
	}
	return &Service{
		loader:   loader,
		scanner:  scanner,
		bindings: make(map[string]Binding),
		opts:     opts,
		logger:   log,
	}
}

// Register makes src selectable under name
func (s *Service) Register(name string, src dataset.Source, aggregate string) {
	if aggregate == "" {
		aggregate = AggregateFirstRow
	}
	s.bindings[name] = Binding{Source: src, Aggregate: aggregate}
}

// Sources lists registered source names, sorted
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultSource is used when a request names none
func (s *Service) DefaultSource() string {
	return s.opts.DefaultSource
}

// Build loads the named source and assembles the full view. A load failure
// is returned as is and nothing is rendered from it.
func (s *Service) Build(ctx context.Context, source string) (*View, error) {
	if source == "" {
		source = s.opts.DefaultSource
	}

	b, ok := s.bindings[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	ds, err := s.loader.Load(ctx, b.Source)
	if err != nil {
		return nil, err
	}

	var summary kpi.Summary
	if b.Aggregate == AggregateColumnMean {
		summary = kpi.FromColumnMeans(ds.Table)
	} else {
		summary = kpi.FromFirstRow(ds.Table)
	}

	head := ds.Table.Head(s.opts.PreviewRows)
	view := &View{
		Title:        Title,
		Source:       source,
		SourceLabel:  ds.Label,
		Location:     ds.Location,
		LoadedAt:     ds.LoadedAt,
		Aggregate:    b.Aggregate,
		Summary:      summary,
		Cards:        kpi.Cards(summary),
		Columns:      ds.Table.Columns,
		Preview:      head.Rows,
		TotalRows:    ds.Table.Len(),
		SummaryTable: kpi.SummaryTable(ds.Table),
		Trend:        []trend.Point{},
		Sources:      s.Sources(),
	}

	if derived, ok := kpi.FromTableReturns(ds.Table); ok {
		view.Derived = &derived
		view.DerivedCards = kpi.Cards(derived)
	}

	tr, err := s.Trend(ctx)
	if err != nil {
		return nil, err
	}
	view.Trend = tr.Points
	view.Warnings = tr.Warnings

	return view, nil
}

// Trend scans the runs directory. Bad files come back as warnings.
func (s *Service) Trend(ctx context.Context) (*trend.Result, error) {
	if s.scanner == nil {
		return &trend.Result{Points: []trend.Point{}}, nil
	}
	return s.scanner.Scan(ctx)
}

// StatusCode maps a Build error to an HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrRemoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, dataset.ErrLocalMissing):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message is the user-facing explanation of a Build error
func Message(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSource):
		return err.Error()
	case errors.Is(err, dataset.ErrRemoteUnavailable):
		return "Could not fetch the results from GitHub: " + err.Error()
	case errors.Is(err, dataset.ErrLocalMissing):
		return "No trading_results*.csv found. Check the streamlit deployment directories or the project root. (" + err.Error() + ")"
	default:
		return "Failed to load the dashboard: " + err.Error()
	}
}
