// Package pipeline drives violation detection over a single frame stream: it
// advances the signal timeline, feeds tracker observations through crossing
// detection, and on a detected crossing assembles evidence, computes the fine,
// attributes the violation to the driver profile and hands one record to the
// sink.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/redgate-data/violation.report/internal/config"
	"github.com/redgate-data/violation.report/internal/evidence"
	"github.com/redgate-data/violation.report/internal/fine"
	"github.com/redgate-data/violation.report/internal/monitoring"
	"github.com/redgate-data/violation.report/internal/plate"
	"github.com/redgate-data/violation.report/internal/profile"
	"github.com/redgate-data/violation.report/internal/signal"
	"github.com/redgate-data/violation.report/internal/track"
)

// maxPlateLength caps the plate carried on an emitted record.
const maxPlateLength = 10

// Tracker supplies per-frame track observations. Implementations may call out
// to an external detector process; a failure is recoverable and yields an
// empty observation set for the frame.
type Tracker interface {
	Detections(ctx context.Context, frameIndex int64) ([]track.Detection, error)
}

// Sink receives finished violation records. It is responsible for durable
// storage; the pipeline makes a single submission attempt per record.
type Sink interface {
	Submit(ctx context.Context, rec ViolationRecord) error
}

// FrameSource yields frames in strictly increasing index order. Next returns
// io.EOF once the stream is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (evidence.Frame, error)
}

// ViolationRecord is the pipeline's externally visible output. It is built
// once per logged track and not modified after emission.
type ViolationRecord struct {
	ID            string    `json:"violation_id"`
	TrackID       int64     `json:"track_id"`
	Plate         string    `json:"vehicle_plate"`
	RecordedAt    time.Time `json:"recorded_at"`
	LocationID    string    `json:"location_id"`
	FineAmount    float64   `json:"fine_amount"`
	ImagePath     string    `json:"image_path"`
	VideoClipPath string    `json:"video_clip_path"`
	OCRConfidence float64   `json:"ocr_confidence"`
}

// Stats counts what a pipeline run did.
type Stats struct {
	FramesProcessed int64
	Violations      int64
	SinkFailures    int64
	UpsertFailures  int64
	TrackerFailures int64
}

// Pipeline processes one logical frame stream. It is not safe for concurrent
// use: frames must be fed strictly in order because crossing detection depends
// on each track's temporal history.
type Pipeline struct {
	timeline *signal.Timeline
	detector *track.Detector
	arena    *track.Arena
	window   *evidence.Window
	evidence *evidence.Store
	profiles *profile.Store
	tracker  Tracker
	ocr      *plate.Chain
	sink     Sink

	stopLine track.StopLine
	zone     fine.ZoneFactors
	cfg      *config.PipelineConfig

	clipHalf int64
	stats    Stats
}

// Options carries the external capabilities and site parameters a Pipeline
// composes over.
type Options struct {
	Timeline      *signal.Timeline
	Tracker       Tracker
	OCR           *plate.Chain
	Sink          Sink
	EvidenceStore *evidence.Store
	Profiles      *profile.Store
	StopLine      track.StopLine
	Config        *config.PipelineConfig
}

// New assembles a Pipeline. The evidence window capacity and clip span are
// derived from the configured seconds and frame rate.
func New(opts Options) *Pipeline {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.EmptyPipelineConfig()
	}

	fps := cfg.GetFrameRate()
	capacity := int(cfg.GetWindowSeconds() * fps)
	clipHalf := int64(cfg.GetClipSeconds() * fps / 2)
	if clipHalf < 1 {
		clipHalf = 1
	}

	return &Pipeline{
		timeline: opts.Timeline,
		detector: track.NewDetector(cfg.GetTrackHistoryDepth()),
		arena:    track.NewArena(),
		window:   evidence.NewWindow(capacity),
		evidence: opts.EvidenceStore,
		profiles: opts.Profiles,
		tracker:  opts.Tracker,
		ocr:      opts.OCR,
		sink:     opts.Sink,
		stopLine: opts.StopLine,
		zone:     fine.ZoneFactors{IsSchoolZone: cfg.GetIsSchoolZone()},
		cfg:      cfg,
		clipHalf: clipHalf,
	}
}

// Stats returns counters for the run so far.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Run processes frames from source until it is exhausted or ctx is cancelled.
// Cancellation takes effect between frames; a frame in flight completes so a
// violation's side effects are never half-applied.
func (p *Pipeline) Run(ctx context.Context, source FrameSource) error {
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("pipeline: stopped after %d frames: %v", p.stats.FramesProcessed, ctx.Err())
			return ctx.Err()
		default:
		}

		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			monitoring.Logf("pipeline: stream exhausted after %d frames, %d violations",
				p.stats.FramesProcessed, p.stats.Violations)
			return nil
		}
		if err != nil {
			return err
		}

		if err := p.ProcessFrame(ctx, frame); err != nil {
			// Upsert failures are reported and counted but never abort the
			// frame loop; the violation id is already in the log line.
			monitoring.Logf("pipeline: frame %d: %v", frame.Index, err)
		}
	}
}

// ProcessFrame runs one frame through the detection state machine. The
// returned error, when non-nil, wraps profile.ErrUpsertFailed: every other
// failure mode is recoverable and already handled inside.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame evidence.Frame) error {
	p.stats.FramesProcessed++
	if frame.Timestamp.IsZero() {
		frame.Timestamp = p.timeline.TimeAt(frame.Index)
	}

	isRed := p.timeline.IsRed(frame.Index)

	detections, err := p.tracker.Detections(ctx, frame.Index)
	if err != nil {
		p.stats.TrackerFailures++
		monitoring.Logf("pipeline: tracker failed on frame %d: %v", frame.Index, err)
		detections = nil
	}

	var upsertErr error
	for _, det := range detections {
		p.arena.MarkTracking(det.TrackID)
		centroid := det.Box.Centroid()
		p.detector.Observe(det.TrackID, frame.Index, centroid)

		if !isRed || p.arena.Logged(det.TrackID) {
			continue
		}
		if !p.detector.Evaluate(det.TrackID, centroid, p.stopLine, isRed) {
			continue
		}

		p.arena.MarkLogged(det.TrackID)
		if err := p.logViolation(ctx, frame, det); err != nil {
			upsertErr = err
		}
	}

	p.window.Push(frame)
	return upsertErr
}

// logViolation performs the one-shot side effects for a crossing: OCR, fine,
// evidence, profile attribution and sink submission.
func (p *Pipeline) logViolation(ctx context.Context, frame evidence.Frame, det track.Detection) error {
	violationID := uuid.NewString()
	now := frame.Timestamp

	region := plate.Region{X1: det.Box.X1, Y1: det.Box.Y1, X2: det.Box.X2, Y2: det.Box.Y2}
	plateText, confidence := p.ocr.Recognize(ctx, frame.Data, region)
	if len(plateText) > maxPlateLength {
		plateText = plateText[:maxPlateLength]
	}

	prior, err := p.profiles.Get(plateText)
	if err != nil {
		monitoring.Logf("pipeline: failed to fetch profile for %s: %v", plateText, err)
		prior = nil
	}
	amount := fine.Compute(prior, p.zone, now, p.cfg)

	imagePath, err := p.evidence.SaveSnapshot(frame, plateText, now)
	if err != nil {
		monitoring.Logf("pipeline: failed to save snapshot for %s: %v", plateText, err)
		imagePath = evidence.UnavailablePath
	}

	clipFrames := p.window.ExtractClip(frame.Index, p.clipHalf)
	clipPath, err := p.evidence.SaveClip(clipFrames, plateText, now)
	if err != nil {
		monitoring.Logf("pipeline: failed to save clip for %s: %v", plateText, err)
		clipPath = evidence.UnavailablePath
	}

	rec := ViolationRecord{
		ID:            violationID,
		TrackID:       det.TrackID,
		Plate:         plateText,
		RecordedAt:    now,
		LocationID:    p.cfg.GetLocationID(),
		FineAmount:    amount,
		ImagePath:     imagePath,
		VideoClipPath: clipPath,
		OCRConfidence: confidence,
	}

	var upsertErr error
	if _, err := p.profiles.Upsert(plateText, violationID); err != nil {
		p.stats.UpsertFailures++
		upsertErr = err
	}

	if err := p.sink.Submit(ctx, rec); err != nil {
		p.stats.SinkFailures++
		monitoring.Logf("pipeline: sink rejected violation %s for %s: %v", violationID, plateText, err)
	}

	p.stats.Violations++
	monitoring.Logf("pipeline: violation %s logged for track %d plate %s fine %.2f",
		violationID, det.TrackID, plateText, amount)
	return upsertErr
}
