// Package profile persists violation records and per-plate driver risk
// aggregates in sqlite.
package profile

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/redgate-data/violation.report/internal/monitoring"
	"github.com/redgate-data/violation.report/internal/timeutil"
)

// Risk evolution constants. A first offence seeds the aggregate; each repeat
// compounds the risk score up to the hard cap.
const (
	InitialRiskScore   = 1.5
	RiskGrowthFactor   = 1.1
	MaxRiskScore       = 5.0
	PointsPerViolation = 3
)

// ErrUpsertFailed wraps profile-store failures during a violation's
// attribution. Callers treat it as a reportable condition distinct from a
// normal violation log: the violation id must never be silently lost.
var ErrUpsertFailed = errors.New("profile upsert failed")

// Aggregate is the per-plate running record used to modulate fines and track
// repeat offences. History is append-only and never reordered or truncated.
type Aggregate struct {
	Plate           string    `json:"vehicle_plate"`
	TotalViolations int       `json:"total_violations"`
	LastViolation   time.Time `json:"last_violation_ts"`
	Points          int       `json:"points"`
	RiskScore       float64   `json:"risk_score"`
	History         []string  `json:"history"`
}

// Violation is one stored violation record.
type Violation struct {
	ID            string    `json:"violation_id"`
	Plate         string    `json:"vehicle_plate"`
	RecordedAt    time.Time `json:"recorded_at"`
	LocationID    string    `json:"location_id"`
	VideoClipPath string    `json:"video_clip_path"`
	ImagePath     string    `json:"image_path"`
	ViolationType string    `json:"violation_type"`
	FineAmount    float64   `json:"fine_amount"`
	Processed     bool      `json:"processed"`
	OCRConfidence float64   `json:"ocr_confidence"`
}

// Store wraps the sqlite database holding violations and driver profiles.
type Store struct {
	*sql.DB

	Clock timeutil.Clock

	// Per-plate serialization for upserts. Two violations for the same plate
	// processed close together must both land; a lost update would corrupt
	// the risk score and count.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore opens (or creates) the violations database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS violations (
			violation_id      TEXT PRIMARY KEY,
			vehicle_plate     TEXT NOT NULL,
			recorded_at_unix  DOUBLE NOT NULL,
			location_id       TEXT NOT NULL DEFAULT '',
			video_clip_path   TEXT,
			image_path        TEXT,
			violation_type    TEXT DEFAULT 'red_light_crossing',
			fine_amount       DOUBLE NOT NULL,
			processed         INTEGER DEFAULT 0,
			ocr_confidence    DOUBLE DEFAULT 0.0
		);
		CREATE INDEX IF NOT EXISTS idx_violations_plate ON violations(vehicle_plate);
		CREATE TABLE IF NOT EXISTS driver_profiles (
			vehicle_plate        TEXT PRIMARY KEY,
			total_violations     BIGINT NOT NULL DEFAULT 0,
			last_violation_unix  DOUBLE,
			points               BIGINT NOT NULL DEFAULT 0,
			risk_score           DOUBLE NOT NULL DEFAULT 1.0,
			history              TEXT NOT NULL DEFAULT '[]'
		);
	`)
	if err != nil {
		return nil, err
	}

	return &Store{
		DB:    db,
		Clock: timeutil.RealClock{},
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) plateLock(plate string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[plate]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[plate] = mu
	}
	return mu
}

// InsertViolation stores a violation record. A missing ID is assigned a fresh
// UUID; a missing RecordedAt defaults to now.
func (s *Store) InsertViolation(v *Violation) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = s.Clock.Now().UTC()
	}
	if v.ViolationType == "" {
		v.ViolationType = "red_light_crossing"
	}

	processedInt := 0
	if v.Processed {
		processedInt = 1
	}

	_, err := s.Exec(`
		INSERT INTO violations (
			violation_id, vehicle_plate, recorded_at_unix, location_id,
			video_clip_path, image_path, violation_type, fine_amount,
			processed, ocr_confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Plate, unixFloat(v.RecordedAt), v.LocationID,
		v.VideoClipPath, v.ImagePath, v.ViolationType, v.FineAmount,
		processedInt, v.OCRConfidence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// Violations returns the most recent violation records, newest first.
func (s *Store) Violations(limit int) ([]Violation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Query(`
		SELECT violation_id, vehicle_plate, recorded_at_unix, location_id,
			COALESCE(video_clip_path, ''), COALESCE(image_path, ''),
			COALESCE(violation_type, ''), fine_amount, processed, ocr_confidence
		FROM violations
		ORDER BY recorded_at_unix DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		var recordedUnix float64
		var processedInt int
		if err := rows.Scan(
			&v.ID, &v.Plate, &recordedUnix, &v.LocationID,
			&v.VideoClipPath, &v.ImagePath, &v.ViolationType,
			&v.FineAmount, &processedInt, &v.OCRConfidence,
		); err != nil {
			return nil, err
		}
		v.RecordedAt = timeFromUnixFloat(recordedUnix)
		v.Processed = processedInt != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

// Get retrieves the aggregate for a plate, or nil if the plate has no
// recorded violations.
func (s *Store) Get(plate string) (*Aggregate, error) {
	row := s.QueryRow(`
		SELECT vehicle_plate, total_violations, last_violation_unix,
			points, risk_score, history
		FROM driver_profiles
		WHERE vehicle_plate = ?`, plate)

	agg, err := scanAggregate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// Upsert attributes a violation id to a plate and returns the resulting
// aggregate. This is the sole mutation entry point for driver profiles and is
// serialized per plate: concurrent calls for the same plate apply in order
// and both land.
//
// A new plate seeds count=1, points=3, risk=1.5 and a single-entry history.
// An existing plate increments count, adds points, compounds the risk score
// up to the cap and appends to history.
func (s *Store) Upsert(plate, violationID string) (*Aggregate, error) {
	mu := s.plateLock(plate)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			monitoring.Logf("profile: failed to rollback upsert: %v", err)
		}
	}()

	now := s.Clock.Now().UTC()

	row := tx.QueryRow(`
		SELECT vehicle_plate, total_violations, last_violation_unix,
			points, risk_score, history
		FROM driver_profiles
		WHERE vehicle_plate = ?`, plate)

	agg, err := scanAggregate(row)
	switch {
	case err == sql.ErrNoRows:
		agg = &Aggregate{
			Plate:           plate,
			TotalViolations: 1,
			LastViolation:   now,
			Points:          PointsPerViolation,
			RiskScore:       InitialRiskScore,
			History:         []string{violationID},
		}
		historyJSON, err := json.Marshal(agg.History)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO driver_profiles (
				vehicle_plate, total_violations, last_violation_unix,
				points, risk_score, history
			) VALUES (?, ?, ?, ?, ?, ?)`,
			agg.Plate, agg.TotalViolations, unixFloat(agg.LastViolation),
			agg.Points, agg.RiskScore, string(historyJSON),
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)
		}
		monitoring.Logf("profile: new driver profile created for %s", plate)

	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)

	default:
		agg.TotalViolations++
		agg.LastViolation = now
		agg.Points += PointsPerViolation
		agg.RiskScore = agg.RiskScore * RiskGrowthFactor
		if agg.RiskScore > MaxRiskScore {
			agg.RiskScore = MaxRiskScore
		}
		if agg.History == nil {
			agg.History = []string{}
		}
		agg.History = append(agg.History, violationID)

		historyJSON, err := json.Marshal(agg.History)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)
		}
		if _, err := tx.Exec(`
			UPDATE driver_profiles SET
				total_violations = ?,
				last_violation_unix = ?,
				points = ?,
				risk_score = ?,
				history = ?
			WHERE vehicle_plate = ?`,
			agg.TotalViolations, unixFloat(agg.LastViolation),
			agg.Points, agg.RiskScore, string(historyJSON), agg.Plate,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)
		}
		monitoring.Logf("profile: driver profile updated for %s (total %d)", plate, agg.TotalViolations)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpsertFailed, err)
	}
	return agg, nil
}

// TopOffenders returns the plates with the most violations, worst first.
func (s *Store) TopOffenders(limit int) ([]Aggregate, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.Query(`
		SELECT vehicle_plate, total_violations, last_violation_unix,
			points, risk_score, history
		FROM driver_profiles
		ORDER BY total_violations DESC, risk_score DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Aggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *agg)
	}
	return out, rows.Err()
}

// DailyCount is the number of violations recorded on one calendar day (UTC).
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DailyCounts returns per-day violation counts for the most recent days.
func (s *Store) DailyCounts(days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.Query(`
		SELECT strftime('%Y-%m-%d', recorded_at_unix, 'unixepoch') AS day, COUNT(*)
		FROM violations
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for charting.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row scanner) (*Aggregate, error) {
	var agg Aggregate
	var lastUnix sql.NullFloat64
	var historyJSON string

	if err := row.Scan(
		&agg.Plate, &agg.TotalViolations, &lastUnix,
		&agg.Points, &agg.RiskScore, &historyJSON,
	); err != nil {
		return nil, err
	}

	if lastUnix.Valid {
		agg.LastViolation = timeFromUnixFloat(lastUnix.Float64)
	}
	if historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &agg.History); err != nil {
			// A corrupt history column must not make the plate unreadable;
			// the aggregate still carries counts and risk.
			monitoring.Logf("profile: corrupt history for %s: %v", agg.Plate, err)
			agg.History = nil
		}
	}
	return &agg, nil
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func timeFromUnixFloat(v float64) time.Time {
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
