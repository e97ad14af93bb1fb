package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/redgate-data/violation.report/internal/httputil"
	"github.com/redgate-data/violation.report/internal/profile"
)

func testRecord() ViolationRecord {
	return ViolationRecord{
		ID:            "vid-1",
		TrackID:       7,
		Plate:         "ABC1234",
		RecordedAt:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		LocationID:    "CAM_042",
		FineAmount:    150.0,
		ImagePath:     "images/ABC1234.jpg",
		VideoClipPath: "clips/ABC1234.clip",
		OCRConfidence: 0.9,
	}
}

func TestStoreSinkSubmit(t *testing.T) {
	store, err := profile.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	sink := &StoreSink{Store: store}
	if err := sink.Submit(context.Background(), testRecord()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	got, err := store.Violations(10)
	if err != nil {
		t.Fatalf("Violations failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Got %d violations, want 1", len(got))
	}
	if got[0].ID != "vid-1" || got[0].Plate != "ABC1234" || got[0].FineAmount != 150.0 {
		t.Errorf("Stored violation mismatch: %+v", got[0])
	}
}

func TestHTTPSinkSubmit(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusCreated, `{"status":"created"}`)
	sink := &HTTPSink{URL: "http://collector.test/api/v1/violations", Client: mock}

	if err := sink.Submit(context.Background(), testRecord()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := mock.Request(0)
	if req == nil {
		t.Fatal("No request recorded")
	}
	if req.Method != http.MethodPost {
		t.Errorf("Method = %s, want POST", req.Method)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	body, _ := io.ReadAll(req.Body)
	var sent ViolationRecord
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("Failed to decode request body: %v", err)
	}
	if sent.Plate != "ABC1234" || sent.FineAmount != 150.0 {
		t.Errorf("Sent record mismatch: %+v", sent)
	}
}

func TestHTTPSinkNonSuccessStatus(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusInternalServerError, "nope")
	sink := &HTTPSink{URL: "http://collector.test/api/v1/violations", Client: mock}

	if err := sink.Submit(context.Background(), testRecord()); err == nil {
		t.Error("Submit should fail on a 500 response")
	}
}

func TestHTTPSinkTransportError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))
	sink := &HTTPSink{URL: "http://collector.test/api/v1/violations", Client: mock}

	if err := sink.Submit(context.Background(), testRecord()); err == nil {
		t.Error("Submit should surface the transport error")
	}
	// Exactly one attempt, no retry.
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}
}
