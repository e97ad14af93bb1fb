package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/redgate-data/violation.report/internal/httputil"
)

// dashboardDays is how far back the dashboard charts look.
const dashboardDays = 14

// showDashboard renders an operator overview page: daily violation volume and
// the current worst offenders. HTML only, no auth; meant for the local
// operator, not public exposure.
func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	daily, err := s.store.DailyCounts(dashboardDays)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve daily counts: %v", err))
		return
	}
	offenders, err := s.store.TopOffenders(10)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve offenders: %v", err))
		return
	}

	days := make([]string, 0, len(daily))
	counts := make([]opts.BarData, 0, len(daily))
	for _, dc := range daily {
		days = append(days, dc.Date)
		counts = append(counts, opts.BarData{Value: dc.Count})
	}

	volume := charts.NewBar()
	volume.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Red Light Violations",
			Subtitle: fmt.Sprintf("Location %s, last %d days", s.cfg.GetLocationID(), dashboardDays),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	volume.SetXAxis(days).
		AddSeries("violations", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	plates := make([]string, 0, len(offenders))
	risks := make([]opts.BarData, 0, len(offenders))
	for _, o := range offenders {
		plates = append(plates, o.Plate)
		risks = append(risks, opts.BarData{Value: o.TotalViolations})
	}

	worst := charts.NewBar()
	worst.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Top Offenders", Subtitle: "by violation count"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	worst.SetXAxis(plates).
		AddSeries("violations", risks,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(volume, worst)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
