package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubEngine struct {
	name string
	text string
	err  error
	boom bool
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Extract(_ context.Context, _ []byte) (string, error) {
	if e.boom {
		panic("engine exploded")
	}
	return e.text, e.err
}

func TestRunAllPreservesEngineOrder(t *testing.T) {
	engines := []Engine{
		&stubEngine{name: "alpha", text: "first"},
		&stubEngine{name: "beta", text: "second"},
		&stubEngine{name: "gamma", text: "third"},
	}

	results := RunAll(context.Background(), engines, []byte("img"), nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if results[i].Engine != want {
			t.Errorf("result %d: expected engine %s, got %s", i, want, results[i].Engine)
		}
	}
	if results[1].Text == nil || *results[1].Text != "second" {
		t.Error("engine output lost")
	}
}

func TestRunAllIsolatesFailures(t *testing.T) {
	engines := []Engine{
		&stubEngine{name: "ok", text: "text"},
		&stubEngine{name: "fails", err: errors.New("no backend")},
		&stubEngine{name: "panics", boom: true},
		&stubEngine{name: "empty", text: "   "},
	}

	results := RunAll(context.Background(), engines, []byte("img"), nil)

	if results[0].Text == nil {
		t.Error("healthy engine should produce text")
	}
	for _, i := range []int{1, 2, 3} {
		if results[i].Text != nil {
			t.Errorf("engine %s should have nil text", results[i].Engine)
		}
	}
}

func TestRunAllReportsProgress(t *testing.T) {
	engines := []Engine{
		&stubEngine{name: "ok", text: "hello"},
		&stubEngine{name: "bad", err: errors.New("down")},
	}

	var mu strings.Builder
	updates := make(chan string, 16)
	RunAll(context.Background(), engines, []byte("img"), func(status, message string) {
		updates <- status + ":" + message
	})
	close(updates)
	for u := range updates {
		mu.WriteString(u + "\n")
	}
	all := mu.String()

	if !strings.Contains(all, "Running ok...") {
		t.Error("missing start notification")
	}
	if !strings.Contains(all, "ok completed: 5 characters") {
		t.Errorf("missing completion notification in %q", all)
	}
	if !strings.Contains(all, "bad failed: down") {
		t.Errorf("missing failure notification in %q", all)
	}
}

func TestCombine(t *testing.T) {
	text := func(s string) *string { return &s }

	tests := []struct {
		name     string
		results  []EngineResult
		expected string
	}{
		{
			name: "all engines produced text",
			results: []EngineResult{
				{Engine: "a", Text: text("one")},
				{Engine: "b", Text: text("two")},
			},
			expected: "one" + Separator + "two",
		},
		{
			name: "nil and empty results skipped",
			results: []EngineResult{
				{Engine: "a", Text: text("only")},
				{Engine: "b", Text: nil},
				{Engine: "c", Text: text("  ")},
			},
			expected: "only",
		},
		{
			name: "everything empty",
			results: []EngineResult{
				{Engine: "a", Text: nil},
				{Engine: "b", Text: nil},
			},
			expected: "",
		},
		{
			name:     "no engines",
			results:  nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Combine(tt.results); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
