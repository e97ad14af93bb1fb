// Package api exposes the violations database over HTTP: record intake from
// pipelines, profile and stats queries, and an operator dashboard.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/redgate-data/violation.report/internal/config"
	"github.com/redgate-data/violation.report/internal/httputil"
	"github.com/redgate-data/violation.report/internal/profile"
	"github.com/redgate-data/violation.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const maxPlateLength = 10

type Server struct {
	store *profile.Store
	cfg   *config.PipelineConfig
}

func NewServer(store *profile.Store, cfg *config.PipelineConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyPipelineConfig()
	}
	return &Server{
		store: store,
		cfg:   cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/violations", s.handleViolations)
	mux.HandleFunc("/api/v1/profiles", s.listProfiles)
	mux.HandleFunc("/api/v1/profile", s.showProfile)
	mux.HandleFunc("/api/v1/stats", s.showStats)
	mux.HandleFunc("/api/v1/config", s.showConfig)
	mux.HandleFunc("/dashboard", s.showDashboard)
	return mux
}

func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listViolations(w, r)
	case http.MethodPost:
		s.createViolation(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listViolations(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	violations, err := s.store.Violations(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve violations: %v", err))
		return
	}
	if violations == nil {
		violations = []profile.Violation{}
	}
	httputil.WriteJSON(w, http.StatusOK, violations)
}

func (s *Server) createViolation(w http.ResponseWriter, r *http.Request) {
	var v profile.Violation
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid violation payload: %v", err))
		return
	}
	if v.Plate == "" {
		httputil.BadRequest(w, "vehicle_plate is required")
		return
	}
	if len(v.Plate) > maxPlateLength {
		httputil.BadRequest(w, fmt.Sprintf("vehicle_plate exceeds %d characters", maxPlateLength))
		return
	}
	if v.FineAmount < 0 {
		httputil.BadRequest(w, "fine_amount must be non-negative")
		return
	}

	if err := s.store.InsertViolation(&v); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to store violation: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	profiles, err := s.store.TopOffenders(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve profiles: %v", err))
		return
	}
	if profiles == nil {
		profiles = []profile.Aggregate{}
	}
	httputil.WriteJSON(w, http.StatusOK, profiles)
}

func (s *Server) showProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	plate := r.URL.Query().Get("plate")
	if plate == "" {
		httputil.BadRequest(w, "Missing 'plate' parameter")
		return
	}

	agg, err := s.store.Get(plate)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve profile: %v", err))
		return
	}
	if agg == nil {
		httputil.NotFound(w, fmt.Sprintf("No profile for plate %q", plate))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agg)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"location_id":    s.cfg.GetLocationID(),
		"is_school_zone": s.cfg.GetIsSchoolZone(),
		"base_fine":      s.cfg.GetBaseFine(),
		"version":        version.Version,
	})
}
