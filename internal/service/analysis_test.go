package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deniz/checklens/internal/domain"
	"github.com/deniz/checklens/internal/llm"
	"github.com/deniz/checklens/internal/ocr"
	"github.com/deniz/checklens/internal/progress"
)

type stubEngine struct {
	name string
	text string
	err  error
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Extract(context.Context, []byte) (string, error) {
	return e.text, e.err
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func fakeModelServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		body, ok := responses[req.Model]
		if !ok {
			json.NewEncoder(w).Encode(map[string]string{"error": "model not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"response": body, "done": true})
	})
	return httptest.NewServer(mux)
}

func newTestService(engines []ocr.Engine, baseURL string) (*AnalysisService, *progress.Store) {
	store := progress.NewStore()
	client := llm.NewClient(&llm.ClientConfig{
		BaseURL:         baseURL,
		GenerateTimeout: 5 * time.Second,
		ListTimeout:     time.Second,
	})
	svc := NewAnalysisService(store, client, engines, "", nil, nil, nil)
	return svc, store
}

func TestAnalyzeSyncSuccess(t *testing.T) {
	srv := fakeModelServer(t, map[string]string{
		"llama2:7b": `{"bank_name": "Ziraat", "amount_numeric": "1250.00"}`,
	})
	defer srv.Close()

	engines := []ocr.Engine{
		&stubEngine{name: "alpha", text: "CIRO EDILEMEZ 1250,00 TL"},
		&stubEngine{name: "beta", err: errors.New("backend down")},
	}
	svc, _ := newTestService(engines, srv.URL)

	sess, err := svc.AnalyzeSync(context.Background(), &AnalysisRequest{
		Image:       testImage(t),
		ContentType: "image/png",
		Models:      []string{"llama2:7b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sess.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", sess.Status)
	}
	if sess.Progress != 100 {
		t.Errorf("expected progress 100, got %d", sess.Progress)
	}
	if sess.Result == nil {
		t.Fatal("expected result on completed session")
	}
	if sess.Error != nil {
		t.Error("completed session must not carry an error")
	}
	if sess.Result.SuccessRate != "1/1" {
		t.Errorf("success_rate = %q", sess.Result.SuccessRate)
	}
	if len(sess.Result.Analyses) != 1 || sess.Result.Analyses[0].Analysis["bank_name"] != "Ziraat" {
		t.Errorf("unexpected analyses: %+v", sess.Result.Analyses)
	}
	if txt := sess.Result.RawOCR["alpha"]; txt == nil || *txt != "CIRO EDILEMEZ 1250,00 TL" {
		t.Error("raw OCR text for healthy engine missing")
	}
	if sess.Result.RawOCR["beta"] != nil {
		t.Error("failed engine must map to nil text")
	}
	if len(sess.Logs) == 0 {
		t.Error("expected progress log entries")
	}
}

func TestAnalyzeSyncNoTextExtracted(t *testing.T) {
	srv := fakeModelServer(t, nil)
	defer srv.Close()

	engines := []ocr.Engine{
		&stubEngine{name: "alpha", text: "   "},
		&stubEngine{name: "beta", err: errors.New("down")},
	}
	svc, _ := newTestService(engines, srv.URL)

	sess, err := svc.AnalyzeSync(context.Background(), &AnalysisRequest{
		Image:       testImage(t),
		ContentType: "image/png",
		Models:      []string{"llama2:7b"},
	})

	var perr *PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", perr.Code)
	}
	if sess.Status != domain.StatusError {
		t.Errorf("expected error status, got %s", sess.Status)
	}
	if sess.Error == nil || sess.Result != nil {
		t.Error("failed session must carry error and no result")
	}
}

func TestAnalyzeSyncAllModelsFailed(t *testing.T) {
	srv := fakeModelServer(t, nil) // every model errors
	defer srv.Close()

	engines := []ocr.Engine{&stubEngine{name: "alpha", text: "some check text"}}
	svc, _ := newTestService(engines, srv.URL)

	_, err := svc.AnalyzeSync(context.Background(), &AnalysisRequest{
		Image:       testImage(t),
		ContentType: "image/png",
		Models:      []string{"llama2:7b", "mistral:latest"},
	})

	var perr *PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", perr.Code)
	}
}

func TestAnalyzeSyncValidation(t *testing.T) {
	engines := []ocr.Engine{&stubEngine{name: "alpha", text: "text"}}
	svc, _ := newTestService(engines, "http://127.0.0.1:1")

	tests := []struct {
		name string
		req  *AnalysisRequest
	}{
		{
			name: "empty image",
			req:  &AnalysisRequest{Models: []string{"llama2:7b"}},
		},
		{
			name: "no models",
			req:  &AnalysisRequest{Image: testImage(t), ContentType: "image/png"},
		},
		{
			name: "undecodable image",
			req: &AnalysisRequest{
				Image:       []byte("not an image"),
				ContentType: "image/png",
				Models:      []string{"llama2:7b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeSync(context.Background(), tt.req)
			var perr *PipelineError
			if !errors.As(err, &perr) {
				t.Fatalf("expected PipelineError, got %v", err)
			}
			if perr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", perr.Code)
			}
		})
	}
}

func TestAnalyzeAsync(t *testing.T) {
	srv := fakeModelServer(t, map[string]string{
		"llama2:7b": `{"confidence": "high"}`,
	})
	defer srv.Close()

	engines := []ocr.Engine{&stubEngine{name: "alpha", text: "check text"}}
	svc, store := newTestService(engines, srv.URL)

	sessionID, err := svc.AnalyzeAsync(context.Background(), &AnalysisRequest{
		Image:       testImage(t),
		ContentType: "image/png",
		Models:      []string{"llama2:7b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		sess, ok := store.Snapshot(sessionID)
		if !ok {
			t.Fatal("session disappeared")
		}
		if sess.Status.IsTerminal() {
			if sess.Status != domain.StatusCompleted {
				t.Fatalf("expected completed, got %s (%v)", sess.Status, sess.Error)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("pipeline did not finish in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAnalyzeAsyncFailsFast(t *testing.T) {
	engines := []ocr.Engine{&stubEngine{name: "alpha", text: "text"}}
	svc, store := newTestService(engines, "http://127.0.0.1:1")

	_, err := svc.AnalyzeAsync(context.Background(), &AnalysisRequest{
		Image:       testImage(t),
		ContentType: "image/png",
	})

	var perr *PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", perr.Code)
	}
	if store.Len() != 0 {
		t.Error("rejected request must not leave a session behind")
	}
}
