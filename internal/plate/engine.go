package plate

import (
	"context"
	"math"

	"github.com/redgate-data/violation.report/internal/monitoring"
)

// UnknownPlate is the sentinel plate reported when no engine can read the
// region.
const UnknownPlate = "UNKNOWN"

// Region is the sub-rectangle of a frame image handed to OCR engines.
type Region struct {
	X1, Y1, X2, Y2 int
}

// Engine is a single OCR backend. Implementations receive the encoded frame
// image plus the region of interest and return the raw text guess with a
// confidence in [0,1].
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, region Region) (string, float64, error)
}

// Chain runs recognition through an ordered list of engines, falling back to
// the next engine when one fails. An empty chain, or a chain where every
// engine fails, yields ("UNKNOWN", 0.0).
type Chain struct {
	engines []Engine
}

// NewChain builds a fallback chain from the given engines, tried in order.
func NewChain(engines ...Engine) *Chain {
	return &Chain{engines: engines}
}

// Engines returns the names of the configured engines, in fallback order.
func (c *Chain) Engines() []string {
	names := make([]string, 0, len(c.engines))
	for _, e := range c.engines {
		names = append(names, e.Name())
	}
	return names
}

// Recognize reads a plate from the region. The raw engine result is
// normalized; if normalization changed the raw text the confidence is reduced
// by 0.1 as a penalty. Engine failures fall through to the next engine and
// never surface as errors; a fully failed read reports the UNKNOWN plate.
func (c *Chain) Recognize(ctx context.Context, image []byte, region Region) (string, float64) {
	if len(image) == 0 {
		monitoring.Logf("plate: empty image region, skipping OCR")
		return UnknownPlate, 0.0
	}

	for _, e := range c.engines {
		raw, confidence, err := e.Recognize(ctx, image, region)
		if err != nil {
			monitoring.Logf("plate: engine %s failed: %v", e.Name(), err)
			continue
		}
		if raw == "" {
			continue
		}

		normalized := Normalize(raw)
		if normalized == "" {
			continue
		}
		if normalized != raw {
			confidence = math.Max(0.0, confidence-0.1)
		}
		return normalized, round3(confidence)
	}

	return UnknownPlate, 0.0
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
