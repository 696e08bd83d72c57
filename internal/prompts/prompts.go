package prompts

import (
	"fmt"
	"os"
	"strings"
)

// OCRTextPlaceholder is the substitution marker in analysis prompt
// templates.
const OCRTextPlaceholder = "${ocr_text}"

// CheckAnalysisPrompt is the built-in template asking a model to structure
// raw check OCR text into a validated JSON analysis. OCR output from
// multiple engines is concatenated into the placeholder, separated by
// ---OCR SEPARATION--- markers.
const CheckAnalysisPrompt = `You are a bank check analysis expert. Below is raw OCR text extracted from a scanned bank check by multiple OCR engines. The engines disagree on some characters; cross-check the variants against each other.

OCR text:
${ocr_text}

Extract the check fields and respond with ONLY a JSON object, no extra text before or after. Use null for any field that cannot be determined.

{
  "bank_name": "issuing bank name",
  "branch": "branch name or code",
  "amount_numeric": "amount in digits, e.g. 1250.00",
  "amount_text": "amount written out in words",
  "currency": "TRY, USD, EUR, ...",
  "date": "check date in YYYY-MM-DD",
  "payee": "pay-to-the-order-of name",
  "drawer": "account holder / signer name",
  "iban": "IBAN if printed",
  "account_number": "account number",
  "check_number": "check serial number",
  "amounts_match": true,
  "confidence": "high | medium | low",
  "notes": "inconsistencies between OCR variants, suspected misreads"
}`

// Build substitutes the OCR text into the template.
func Build(template, ocrText string) string {
	return strings.ReplaceAll(template, OCRTextPlaceholder, ocrText)
}

// LoadTemplate reads a prompt template override from disk and validates
// that it carries the substitution placeholder.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	tmpl := string(data)
	if !strings.Contains(tmpl, OCRTextPlaceholder) {
		return "", fmt.Errorf("prompt template %s is missing the %s placeholder", path, OCRTextPlaceholder)
	}
	return tmpl, nil
}
