package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeOllama serves /api/tags and /api/generate with canned per-model
// behaviour.
func fakeOllama(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		var models []Model
		for name := range responses {
			models = append(models, Model{Name: name})
		}
		json.NewEncoder(w).Encode(tagsResponse{Models: models})
	})

	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, ok := responses[req.Model]
		if !ok {
			json.NewEncoder(w).Encode(generateResponse{Error: "model not found"})
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: body, Done: true})
	})

	return httptest.NewServer(mux)
}

func testClient() *Client {
	return NewClient(&ClientConfig{
		GenerateTimeout: 5 * time.Second,
		ListTimeout:     time.Second,
	})
}

func TestListModels(t *testing.T) {
	srv := fakeOllama(t, map[string]string{"llama2:7b": "{}"})
	defer srv.Close()

	models, err := testClient().ListModels(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0].Name != "llama2:7b" {
		t.Errorf("unexpected models: %v", models)
	}
}

func TestListModelsUnreachable(t *testing.T) {
	if _, err := testClient().ListModels(context.Background(), "http://127.0.0.1:1"); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := fakeOllama(t, map[string]string{})
	defer srv.Close()

	if _, err := testClient().Generate(context.Background(), srv.URL, "ghost", "prompt"); err == nil {
		t.Error("expected error when the model server reports one")
	}
}

func TestAnalyzeAllOrderAndIsolation(t *testing.T) {
	srv := fakeOllama(t, map[string]string{
		"llama2:7b":      `{"bank_name": "Ziraat"}`,
		"mistral:latest": "this is not json at all, just a long refusal message from the model",
		"gemma:7b":       `Here you go: {"bank_name": "Akbank"} hope that helps`,
	})
	defer srv.Close()

	models := []string{"llama2:7b", "mistral:latest", "gemma:7b", "llava:7b"}
	results := testClient().AnalyzeAll(context.Background(), srv.URL, models, "prompt", nil, nil)

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, model := range models {
		if results[i].ModelName != model {
			t.Errorf("result %d: expected %s, got %s", i, model, results[i].ModelName)
		}
	}

	// llama2 parses cleanly
	if results[0].Error != nil {
		t.Errorf("llama2 should succeed, got error %q", *results[0].Error)
	}
	if results[0].Analysis["bank_name"] != "Ziraat" {
		t.Errorf("llama2 analysis = %v", results[0].Analysis)
	}

	// mistral returned prose; classified as a plain text failure
	if results[1].Error == nil {
		t.Fatal("mistral should fail on non-JSON output")
	}
	if results[1].Analysis != nil {
		t.Error("failed result must not carry an analysis")
	}

	// gemma's JSON is recovered from surrounding prose
	if results[2].Error != nil {
		t.Errorf("gemma should succeed via JSON repair, got %q", *results[2].Error)
	}
	if results[2].Analysis["bank_name"] != "Akbank" {
		t.Errorf("gemma analysis = %v", results[2].Analysis)
	}

	// llava is rejected by the suitability check without a network call
	if results[3].Error == nil {
		t.Fatal("llava should be rejected as unsuitable")
	}
	if results[3].Analysis != nil {
		t.Error("rejected model must not carry an analysis")
	}
}

func TestAnalyzeAllReportsSuccessRate(t *testing.T) {
	srv := fakeOllama(t, map[string]string{
		"llama2:7b": `{"ok": true}`,
	})
	defer srv.Close()

	var finalDetails map[string]interface{}
	var mu sync.Mutex
	testClient().AnalyzeAll(context.Background(), srv.URL, []string{"llama2:7b", "ghost"}, "p", nil,
		func(status, message string, details map[string]interface{}) {
			mu.Lock()
			defer mu.Unlock()
			if message == "All models processed" {
				finalDetails = details
			}
		})

	if finalDetails == nil {
		t.Fatal("expected final fan-out update")
	}
	if finalDetails["success_rate"] != "1/2" {
		t.Errorf("success_rate = %v", finalDetails["success_rate"])
	}
}
