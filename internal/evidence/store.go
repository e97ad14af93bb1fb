package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redgate-data/violation.report/internal/monitoring"
	"github.com/redgate-data/violation.report/internal/security"
)

// UnavailablePath is recorded on a violation when an artifact could not be
// written. The record still ships; the sentinel tells consumers the artifact
// is missing rather than silently pointing at nothing.
const UnavailablePath = "unavailable"

// Store writes violation artifacts to disk: a single-frame snapshot and a
// multi-frame clip assembled from the evidence window.
type Store struct {
	ImageDir string
	ClipDir  string
}

// NewStore creates the artifact directories if needed.
func NewStore(imageDir, clipDir string) (*Store, error) {
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create clip dir: %w", err)
	}
	return &Store{ImageDir: imageDir, ClipDir: clipDir}, nil
}

// SaveSnapshot writes the frame payload as the violation snapshot and returns
// its path. Filenames carry the plate and a millisecond timestamp so repeat
// offenders do not collide.
func (s *Store) SaveSnapshot(f Frame, plate string, ts time.Time) (string, error) {
	name := fmt.Sprintf("%s_%s.jpg", security.SanitizeFilename(plate), ts.UTC().Format("20060102_150405.000"))
	path := filepath.Join(s.ImageDir, name)
	if err := security.ValidatePathWithinDirectory(path, s.ImageDir); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	monitoring.Logf("evidence: saved snapshot %s", path)
	return path, nil
}

// SaveClip concatenates the clip frames into a single artifact file and
// returns its path. Frame payloads are stored back to back in ascending
// index order; downstream tooling reassembles them for playback.
func (s *Store) SaveClip(frames []Frame, plate string, ts time.Time) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("no frames retained for clip")
	}

	name := fmt.Sprintf("%s_%s.clip", security.SanitizeFilename(plate), ts.UTC().Format("20060102_150405.000"))
	path := filepath.Join(s.ClipDir, name)
	if err := security.ValidatePathWithinDirectory(path, s.ClipDir); err != nil {
		return "", err
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create clip file: %w", err)
	}
	defer out.Close()

	for _, f := range frames {
		if _, err := out.Write(f.Data); err != nil {
			return "", fmt.Errorf("failed to write clip frame %d: %w", f.Index, err)
		}
	}

	monitoring.Logf("evidence: saved clip %s (%d frames)", path, len(frames))
	return path, nil
}
