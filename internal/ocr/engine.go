package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Separator joins the per-engine texts in the combined output.
const Separator = "\n---OCR SEPARATION---\n"

// Engine extracts text from a preprocessed image. Implementations must be
// safe for concurrent use.
type Engine interface {
	Name() string
	Extract(ctx context.Context, image []byte) (string, error)
}

// EngineResult is the outcome of one engine invocation. Text is nil when
// the engine failed or produced no text.
type EngineResult struct {
	Engine string
	Text   *string
}

// UpdateFunc receives per-engine progress notifications during the fan-out.
type UpdateFunc func(status, message string)

// RunAll invokes every engine concurrently against the same image and waits
// for all of them. A panic or error in one engine is converted into a nil
// result for that engine and never affects its siblings. Results are
// ordered by the input engine list regardless of completion order.
func RunAll(ctx context.Context, engines []Engine, image []byte, update UpdateFunc) []EngineResult {
	if update == nil {
		update = func(string, string) {}
	}

	results := make([]EngineResult, len(engines))
	var wg sync.WaitGroup
	for i, eng := range engines {
		results[i].Engine = eng.Name()

		wg.Add(1)
		go func(i int, eng Engine) {
			defer wg.Done()
			results[i].Text = runOne(ctx, eng, image, update)
		}(i, eng)
	}
	wg.Wait()
	return results
}

func runOne(ctx context.Context, eng Engine, image []byte, update UpdateFunc) (text *string) {
	defer func() {
		if r := recover(); r != nil {
			update("error", fmt.Sprintf("%s panicked: %v", eng.Name(), r))
			text = nil
		}
	}()

	update("processing", fmt.Sprintf("Running %s...", eng.Name()))

	out, err := eng.Extract(ctx, image)
	if err != nil {
		update("error", fmt.Sprintf("%s failed: %v", eng.Name(), err))
		return nil
	}

	out = strings.TrimSpace(out)
	update("info", fmt.Sprintf("%s completed: %d characters", eng.Name(), len(out)))
	if out == "" {
		return nil
	}
	return &out
}

// Combine concatenates all non-empty engine outputs with Separator,
// preserving engine order. Returns "" when every engine came back empty;
// the caller treats that as an extraction failure.
func Combine(results []EngineResult) string {
	var parts []string
	for _, r := range results {
		if r.Text != nil && strings.TrimSpace(*r.Text) != "" {
			parts = append(parts, *r.Text)
		}
	}
	return strings.Join(parts, Separator)
}
