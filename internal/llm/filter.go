package llm

import "strings"

// Default denylist tables for the model suitability check. This is a plain
// substring classification over the model name, not a capability probe;
// false positives and negatives are accepted.

// visionModels only do visual analysis and do not return structured JSON.
var visionModels = []string{"llava", "bakllava", "moondream", "llava-phi3", "llava-llama3"}

// codeModels generate code, not document analysis.
var codeModels = []string{"codellama", "codegemma", "starcoder", "codeqwen", "phind-codellama"}

// embeddingModels only produce embeddings.
var embeddingModels = []string{"nomic-embed", "all-minilm", "mxbai-embed", "snowflake-arctic-embed"}

// specializedModels are math/reasoning models known not to follow the JSON
// format reliably.
var specializedModels = []string{"mathstral", "nous-hermes2-mixtral", "wizard-math"}

// sizeMarkers flag models too small for structured document analysis.
var sizeMarkers = []string{"1b", "0.5b", "512m", "256m"}

// Suitable reports whether the named model can be used for check analysis.
// The match is case-insensitive; when rejected, the matched denylist entry
// is returned. extra entries extend the built-in category tables.
func Suitable(name string, extra ...string) (bool, string) {
	lower := strings.ToLower(name)

	denied := make([]string, 0, len(visionModels)+len(codeModels)+len(embeddingModels)+len(specializedModels)+len(extra))
	denied = append(denied, visionModels...)
	denied = append(denied, codeModels...)
	denied = append(denied, embeddingModels...)
	denied = append(denied, specializedModels...)
	denied = append(denied, extra...)

	for _, entry := range denied {
		if entry != "" && strings.Contains(lower, strings.ToLower(entry)) {
			return false, entry
		}
	}

	for _, marker := range sizeMarkers {
		if strings.Contains(lower, marker) {
			return false, marker
		}
	}

	return true, ""
}

// FilterModels returns the subset of models that pass the suitability
// check.
func FilterModels(models []Model, extra ...string) []Model {
	var out []Model
	for _, m := range models {
		if ok, _ := Suitable(m.Name, extra...); ok {
			out = append(out, m)
		}
	}
	return out
}
