package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redgate-data/violation.report/internal/httputil"
	"github.com/redgate-data/violation.report/internal/profile"
)

// StoreSink writes violation records straight into the local store. Used when
// the pipeline and the reporting API share a process.
type StoreSink struct {
	Store *profile.Store
}

func (s *StoreSink) Submit(ctx context.Context, rec ViolationRecord) error {
	return s.Store.InsertViolation(&profile.Violation{
		ID:            rec.ID,
		Plate:         rec.Plate,
		RecordedAt:    rec.RecordedAt,
		LocationID:    rec.LocationID,
		VideoClipPath: rec.VideoClipPath,
		ImagePath:     rec.ImagePath,
		FineAmount:    rec.FineAmount,
		OCRConfidence: rec.OCRConfidence,
	})
}

// HTTPSink posts violation records to a remote reporting endpoint. One attempt
// per record; the caller logs failures and moves on.
type HTTPSink struct {
	URL    string
	Client httputil.HTTPClient
}

// NewHTTPSink creates a sink posting to url with a bounded-timeout client.
func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSink) Submit(ctx context.Context, rec ViolationRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode violation record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sink submission failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}
	return nil
}
