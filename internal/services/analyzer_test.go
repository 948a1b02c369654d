package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proctor-backend/internal/models"
)

func testSession() models.LiveSession {
	return models.LiveSession{
		SessionID: "session_7_42_1700000000000000000",
		ExamID:    7,
		UserID:    42,
	}
}

func TestAnalyzeFrame_SendsSessionContext(t *testing.T) {
	frame := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}

	var got struct {
		ImageBase64 string `json:"image_base64"`
		SessionID   string `json:"session_id"`
		ExamID      int64  `json:"exam_id"`
		UserID      int64  `json:"user_id"`
		Timestamp   int64  `json:"timestamp"`
	}

	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/infer" {
			t.Errorf("Expected POST /infer, got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"cheating","message":"Multiple faces detected","confidence":0.93}`))
	}))
	defer engine.Close()

	svc := NewAnalyzerService(engine.URL, 2*time.Second)

	verdict, raw, err := svc.AnalyzeFrame(context.Background(), frame, testSession())
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}

	decoded, decErr := base64.StdEncoding.DecodeString(got.ImageBase64)
	if decErr != nil || string(decoded) != string(frame) {
		t.Errorf("Engine did not receive the original frame bytes")
	}
	if got.SessionID != "session_7_42_1700000000000000000" {
		t.Errorf("Expected session id to be forwarded, got %q", got.SessionID)
	}
	if got.ExamID != 7 || got.UserID != 42 {
		t.Errorf("Expected exam=7 user=42, got exam=%d user=%d", got.ExamID, got.UserID)
	}
	if got.Timestamp == 0 {
		t.Error("Expected a non-zero capture timestamp")
	}

	if verdict.Status != models.VerdictCheating {
		t.Errorf("Expected status %q, got %q", models.VerdictCheating, verdict.Status)
	}
	if verdict.Message != "Multiple faces detected" {
		t.Errorf("Unexpected message %q", verdict.Message)
	}
	if verdict.Confidence == nil || *verdict.Confidence != 0.93 {
		t.Errorf("Expected confidence 0.93, got %v", verdict.Confidence)
	}
	if !json.Valid(raw) {
		t.Error("Raw verdict must be valid JSON")
	}
}

func TestAnalyzeFrame_EngineFailure(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer engine.Close()

	svc := NewAnalyzerService(engine.URL, 2*time.Second)

	if _, _, err := svc.AnalyzeFrame(context.Background(), []byte("frame"), testSession()); err == nil {
		t.Fatal("Expected error for 500 response")
	}
}

func TestAnalyzeFrame_MalformedResponse(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer engine.Close()

	svc := NewAnalyzerService(engine.URL, 2*time.Second)

	if _, _, err := svc.AnalyzeFrame(context.Background(), []byte("frame"), testSession()); err == nil {
		t.Fatal("Expected error for non-JSON response")
	}
}

func TestAnalyzeFrame_Timeout(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"status":"normal","message":"ok"}`))
	}))
	defer engine.Close()

	svc := NewAnalyzerService(engine.URL, 50*time.Millisecond)

	if _, _, err := svc.AnalyzeFrame(context.Background(), []byte("frame"), testSession()); err == nil {
		t.Fatal("Expected timeout error from a stalled engine")
	}
}

func TestAnalyzeFrame_Unreachable(t *testing.T) {
	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	engine.Close() // Closed before use

	svc := NewAnalyzerService(engine.URL, time.Second)

	if _, _, err := svc.AnalyzeFrame(context.Background(), []byte("frame"), testSession()); err == nil {
		t.Fatal("Expected error when the engine is down")
	}
}
