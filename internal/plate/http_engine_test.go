package plate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/redgate-data/violation.report/internal/httputil"
)

func TestHTTPEngineRecognize(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"text":"ABC-1234","confidence":0.92}`)

	e := NewHTTPEngine("remote", "http://ocr.test/recognize")
	e.Client = mock

	text, confidence, err := e.Recognize(context.Background(), []byte("jpeg-bytes"), Region{X1: 10, Y1: 20, X2: 110, Y2: 60})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "ABC-1234" {
		t.Errorf("text = %q, want ABC-1234", text)
	}
	if confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", confidence)
	}

	req := mock.Request(0)
	if req == nil {
		t.Fatal("No request recorded")
	}
	body, _ := io.ReadAll(req.Body)
	var sent ocrRequest
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("Failed to decode request body: %v", err)
	}
	if sent.Region != [4]int{10, 20, 110, 60} {
		t.Errorf("Region = %v", sent.Region)
	}
	if sent.ImageBase64 == "" {
		t.Error("Expected image payload")
	}
}

func TestHTTPEngineServiceError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusServiceUnavailable, "down")

	e := NewHTTPEngine("remote", "http://ocr.test/recognize")
	e.Client = mock

	if _, _, err := e.Recognize(context.Background(), []byte("x"), Region{}); err == nil {
		t.Error("Recognize should fail on a 503 response")
	}
}

func TestHTTPEngineTransportError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))

	e := NewHTTPEngine("remote", "http://ocr.test/recognize")
	e.Client = mock

	if _, _, err := e.Recognize(context.Background(), []byte("x"), Region{}); err == nil {
		t.Error("Recognize should surface the transport error")
	}
}
