package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/redgate-data/violation.report/internal/httputil"
	"github.com/redgate-data/violation.report/internal/profile"
)

// statsLimit bounds how many recent violations feed the summary statistics.
const statsLimit = 1000

// ViolationStats summarizes recent enforcement activity.
type ViolationStats struct {
	TotalViolations   int                  `json:"total_violations"`
	TotalFines        float64              `json:"total_fines"`
	MeanFine          float64              `json:"mean_fine"`
	StdDevFine        float64              `json:"stddev_fine"`
	MaxFine           float64              `json:"max_fine"`
	MeanOCRConfidence float64              `json:"mean_ocr_confidence"`
	UnknownPlates     int                  `json:"unknown_plates"`
	DailyCounts       []profile.DailyCount `json:"daily_counts"`
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'days' parameter")
			return
		}
		days = parsed
	}

	violations, err := s.store.Violations(statsLimit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve violations: %v", err))
		return
	}
	daily, err := s.store.DailyCounts(days)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve daily counts: %v", err))
		return
	}
	if daily == nil {
		daily = []profile.DailyCount{}
	}

	out := ViolationStats{
		TotalViolations: len(violations),
		DailyCounts:     daily,
	}
	if len(violations) > 0 {
		fines := make([]float64, len(violations))
		confidences := make([]float64, len(violations))
		for i, v := range violations {
			fines[i] = v.FineAmount
			confidences[i] = v.OCRConfidence
			out.TotalFines += v.FineAmount
			out.MaxFine = math.Max(out.MaxFine, v.FineAmount)
			if v.Plate == "UNKNOWN" {
				out.UnknownPlates++
			}
		}
		out.MeanFine = stat.Mean(fines, nil)
		out.MeanOCRConfidence = stat.Mean(confidences, nil)
		if len(fines) > 1 {
			out.StdDevFine = stat.StdDev(fines, nil)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}
