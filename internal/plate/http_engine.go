package plate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redgate-data/violation.report/internal/httputil"
)

// HTTPEngine delegates recognition to an external OCR service. The service
// receives the encoded frame plus the region of interest and answers with a
// raw text guess and confidence.
type HTTPEngine struct {
	name   string
	url    string
	Client httputil.HTTPClient
}

// NewHTTPEngine creates an engine posting to the given service URL.
func NewHTTPEngine(name, url string) *HTTPEngine {
	return &HTTPEngine{
		name:   name,
		url:    url,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *HTTPEngine) Name() string { return e.name }

type ocrRequest struct {
	ImageBase64 string `json:"image_base64"`
	Region      [4]int `json:"region"`
}

type ocrResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (e *HTTPEngine) Recognize(ctx context.Context, image []byte, region Region) (string, float64, error) {
	payload := ocrRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		Region:      [4]int{region.X1, region.Y1, region.X2, region.Y2},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("ocr service returned status %d", resp.StatusCode)
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("failed to decode ocr response: %w", err)
	}
	return out.Text, out.Confidence, nil
}
