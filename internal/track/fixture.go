package track

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FixtureTracker replays tracker output recorded as JSON lines, one line per
// frame:
//
//	{"frame": 12, "tracks": [{"id": 7, "bbox": [610, 420, 710, 505]}]}
//
// It stands in for a live detector/tracker in dev mode and tests, the same
// way the radar stack replays fixture captures.
type FixtureTracker struct {
	byFrame map[int64][]Detection
}

type fixtureLine struct {
	Frame  int64 `json:"frame"`
	Tracks []struct {
		ID   int64  `json:"id"`
		BBox [4]int `json:"bbox"`
	} `json:"tracks"`
}

// LoadFixtureTracker reads a JSON-lines tracker fixture from path.
func LoadFixtureTracker(path string) (*FixtureTracker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracker fixture: %w", err)
	}
	defer f.Close()

	byFrame := make(map[int64][]Detection)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line fixtureLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("tracker fixture line %d: %w", lineNo, err)
		}
		for _, tr := range line.Tracks {
			byFrame[line.Frame] = append(byFrame[line.Frame], Detection{
				TrackID: tr.ID,
				Box:     BoundingBox{X1: tr.BBox[0], Y1: tr.BBox[1], X2: tr.BBox[2], Y2: tr.BBox[3]},
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracker fixture: %w", err)
	}

	return &FixtureTracker{byFrame: byFrame}, nil
}

// Detections returns the recorded observations for a frame. Frames with no
// recorded line yield no detections.
func (ft *FixtureTracker) Detections(ctx context.Context, frameIndex int64) ([]Detection, error) {
	return ft.byFrame[frameIndex], nil
}
