package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/deniz/checklens/internal/domain"
)

// UpdateFunc receives per-model progress notifications during the fan-out.
type UpdateFunc func(status, message string, details map[string]interface{})

// AnalyzeAll sends the same prompt to every model concurrently and waits
// for all of them. Unsuitable models are rejected without a network call.
// Each model's failure (timeout, non-2xx, bad JSON, panic) is recorded on
// its own result element and never cancels or corrupts a sibling call.
// Results preserve the order of the input model list.
func (c *Client) AnalyzeAll(ctx context.Context, baseURL string, models []string, prompt string, extraDeny []string, update UpdateFunc) []domain.ModelAnalysis {
	if update == nil {
		update = func(string, string, map[string]interface{}) {}
	}

	update("processing", fmt.Sprintf("Starting parallel processing of %d models", len(models)), nil)

	results := make([]domain.ModelAnalysis, len(models))
	var wg sync.WaitGroup
	for i, model := range models {
		wg.Add(1)
		go func(i int, model string) {
			defer wg.Done()
			results[i] = c.analyzeOne(ctx, baseURL, model, prompt, extraDeny, update)
		}(i, model)
	}
	wg.Wait()

	successful := 0
	for _, r := range results {
		if r.Error == nil {
			successful++
		}
	}
	update("success", "All models processed", map[string]interface{}{
		"total_models": len(models),
		"successful":   successful,
		"success_rate": fmt.Sprintf("%d/%d", successful, len(models)),
	})

	return results
}

func (c *Client) analyzeOne(ctx context.Context, baseURL, model, prompt string, extraDeny []string, update UpdateFunc) (out domain.ModelAnalysis) {
	out.ModelName = model
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("model %s panicked: %v", model, r)
			update("error", msg, nil)
			out.Analysis = nil
			out.Error = &msg
		}
	}()

	update("processing", fmt.Sprintf("Calling model: %s", model), nil)

	if ok, matched := Suitable(model, extraDeny...); !ok {
		msg := fmt.Sprintf("Model '%s' is not suitable for check analysis (matched '%s')", model, matched)
		update("error", msg, nil)
		out.Error = &msg
		return out
	}

	raw, err := c.Generate(ctx, baseURL, model, prompt)
	if err != nil {
		msg := err.Error()
		update("error", fmt.Sprintf("Model %s failed: %s", model, msg), nil)
		out.Error = &msg
		return out
	}

	update("info", fmt.Sprintf("Model %s responded", model), map[string]interface{}{
		"response_length": len(raw),
	})

	analysis, err := ExtractJSON(raw)
	if err != nil {
		var msg string
		if len(raw) > 50 && !strings.HasPrefix(strings.TrimSpace(raw), "{") {
			msg = "Invalid JSON: model returned plain text instead of JSON; it may not support structured output"
		} else {
			msg = fmt.Sprintf("JSON parsing failed: %v", err)
		}
		update("error", fmt.Sprintf("Model %s returned invalid JSON", model), map[string]interface{}{
			"error": msg,
		})
		out.Error = &msg
		return out
	}

	update("success", fmt.Sprintf("Model %s returned valid JSON analysis", model), nil)
	out.Analysis = analysis
	return out
}
