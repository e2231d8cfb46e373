package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/alphadesk/tradedash/internal/trend"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("dashboard.html").
		Funcs(template.FuncMap{"cell": cell}).
		ParseFS(templateFS, "templates/dashboard.html"),
)

// Chart is the trend series laid out for an inline SVG polyline
type Chart struct {
	Width, Height int
	Points        string // "x,y x,y ..."
	Dots          []ChartDot
	MinLabel      string
	MaxLabel      string
}

// ChartDot is one plotted observation
type ChartDot struct {
	X, Y  float64
	Label string
}

const chartPad = 24.0

// NewChart scales points into a width x height box. Returns nil for no points.
func NewChart(points []trend.Point, width, height int) *Chart {
	if len(points) == 0 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, p.Sharpe)
		hi = math.Max(hi, p.Sharpe)
	}
	span := hi - lo
	if span == 0 {
		span = 1
		lo -= 0.5
	}

	innerW := float64(width) - 2*chartPad
	innerH := float64(height) - 2*chartPad

	c := &Chart{
		Width:    width,
		Height:   height,
		MinLabel: fmt.Sprintf("%.3f", lo),
		MaxLabel: fmt.Sprintf("%.3f", lo+span),
	}

	coords := make([]string, len(points))
	for i, p := range points {
		x := chartPad + innerW/2
		if len(points) > 1 {
			x = chartPad + innerW*float64(i)/float64(len(points)-1)
		}
		y := chartPad + innerH*(1-(p.Sharpe-lo)/span)

		coords[i] = fmt.Sprintf("%.1f,%.1f", x, y)
		c.Dots = append(c.Dots, ChartDot{
			X:     x,
			Y:     y,
			Label: fmt.Sprintf("%s: %.3f", p.Date.Format(trend.DateLayout), p.Sharpe),
		})
	}
	c.Points = strings.Join(coords, " ")

	return c
}

// Page is the template input. Either View or Error is set.
type Page struct {
	Title   string
	View    *View
	Chart   *Chart
	Error   string
	Sources []string
	Current string
}

// Render writes the dashboard page for view
func Render(w io.Writer, view *View) error {
	return pageTemplate.Execute(w, Page{
		Title:   view.Title,
		View:    view,
		Chart:   NewChart(view.Trend, 720, 240),
		Sources: view.Sources,
		Current: view.Source,
	})
}

// RenderError writes the page with only the error message, nothing else is shown
func RenderError(w io.Writer, msg string, sources []string, current string) error {
	return pageTemplate.Execute(w, Page{
		Title:   Title,
		Error:   msg,
		Sources: sources,
		Current: current,
	})
}

// cell returns row[i] or "" for ragged rows
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
