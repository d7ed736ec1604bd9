package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	db "github.com/benjlis/covid19-search/internal/storage"

	"github.com/benjlis/covid19-search/internal/facets"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template function helpers.
var templateFuncs = template.FuncMap{
	"has": func(values []string, v string) bool {
		for _, value := range values {
			if value == v {
				return true
			}
		}

		return false
	},
}

// Renderer handles HTML template rendering.
type Renderer struct {
	indexTmpl  *template.Template
	detailTmpl *template.Template
	errorTmpl  *template.Template
}

// NewRenderer creates a new template renderer.
func NewRenderer() (*Renderer, error) {
	indexTmpl, err := template.New("index.html").
		Funcs(templateFuncs).
		ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	detailTmpl, err := template.New("detail.html").
		ParseFS(templateFS, "templates/detail.html")
	if err != nil {
		return nil, fmt.Errorf("parse detail template: %w", err)
	}

	errorTmpl, err := template.New("error.html").
		ParseFS(templateFS, "templates/error.html")
	if err != nil {
		return nil, fmt.Errorf("parse error template: %w", err)
	}

	return &Renderer{
		indexTmpl:  indexTmpl,
		detailTmpl: detailTmpl,
		errorTmpl:  errorTmpl,
	}, nil
}

// FormState echoes the submitted filters back into the search form.
type FormState struct {
	Text             string
	Persons          []string
	Orgs             []string
	Locations        []string
	Topics           []string
	DateFrom         string
	DateTo           string
	IncludeNullDates bool
}

// EmailRow is one line of the results table.
type EmailRow struct {
	ID      int64
	Sent    string
	Subject string
	From    string
	To      string
	File    string
	Page    int
}

// ResultsView holds the rendered search outcome.
type ResultsView struct {
	// CountDisplay is the locale-formatted number of rows returned.
	CountDisplay string
	MaxLimit     bool
	Explain      string
	Rows         []EmailRow
}

// IndexData contains all data for rendering the dashboard page.
type IndexData struct {
	Catalog   *facets.Catalog
	Form      FormState
	ChartSpec template.JS
	Results   *ResultsView
}

// DetailData contains all data for rendering the email detail page.
type DetailData struct {
	Email         *db.Email
	Sent          string
	TopicKeywords []string
	PreviewPath   string
	PreviewError  string
}

// ErrorData contains data for rendering error pages.
type ErrorData struct {
	Code    int
	Title   string
	Message string
}

// RenderIndex renders the dashboard page.
func (r *Renderer) RenderIndex(w io.Writer, data *IndexData) error {
	if err := r.indexTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("execute index template: %w", err)
	}

	return nil
}

// RenderDetail renders the email detail page.
func (r *Renderer) RenderDetail(w io.Writer, data *DetailData) error {
	if err := r.detailTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("execute detail template: %w", err)
	}

	return nil
}

// RenderError renders an error page.
func (r *Renderer) RenderError(w io.Writer, data *ErrorData) error {
	if err := r.errorTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("execute error template: %w", err)
	}

	return nil
}

const chartDateLayout = "2006-01-02"

// BuildChartSpec produces the Vega-Lite spec for the email volume bar
// chart: month-formatted x axis, daily counts, date+count tooltip.
func BuildChartSpec(points []db.VolumePoint) (template.JS, error) {
	values := make([]map[string]any, len(points))
	for i, p := range points {
		values[i] = map[string]any{
			"date":   p.Day.Format(chartDateLayout),
			"emails": p.Count,
		}
	}

	spec := map[string]any{
		"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
		"width":   "container",
		"data":    map[string]any{"values": values},
		"mark":    map[string]any{"type": "bar"},
		"encoding": map[string]any{
			"x": map[string]any{
				"field": "date",
				"type":  "temporal",
				"axis":  map[string]any{"format": "%m-%Y"},
			},
			"y": map[string]any{
				"field": "emails",
				"type":  "quantitative",
			},
			"tooltip": []map[string]any{
				{"field": "date", "type": "temporal", "format": "%m-%d-%Y"},
				{"field": "emails", "type": "quantitative"},
			},
		},
	}

	raw, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal chart spec: %w", err)
	}

	//nolint:gosec // spec is assembled from server-side data only
	return template.JS(raw), nil
}

const sentDisplayLayout = "2006-01-02 15:04"

// formatSent renders a sent timestamp for the grid; emails without a date
// show an empty cell.
func formatSent(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(sentDisplayLayout)
}
