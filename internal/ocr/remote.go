package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteEngine calls an OCR sidecar service over HTTP. EasyOCR and
// PaddleOCR have no Go bindings, so they run as small Python services
// exposing a single /extract endpoint.
type RemoteEngine struct {
	name      string
	client    *resty.Client
	endpoint  string
	languages []string
}

type remoteRequest struct {
	Image     string   `json:"image"` // base64-encoded image bytes
	Languages []string `json:"languages,omitempty"`
}

type remoteResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// NewRemoteEngine constructs an HTTP-backed engine. baseURL points at the
// sidecar root; the engine posts to baseURL/extract.
func NewRemoteEngine(name, baseURL string, languages []string, timeout time.Duration) *RemoteEngine {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &RemoteEngine{
		name:      name,
		client:    client,
		endpoint:  baseURL + "/extract",
		languages: languages,
	}
}

func (e *RemoteEngine) Name() string { return e.name }

// Extract posts the image to the sidecar and returns its text.
func (e *RemoteEngine) Extract(ctx context.Context, image []byte) (string, error) {
	req := remoteRequest{
		Image:     base64.StdEncoding.EncodeToString(image),
		Languages: e.languages,
	}

	var resp remoteResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(e.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call %s service: %w", e.name, err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return "", fmt.Errorf("%s service returned HTTP %d: %s", e.name, httpResp.StatusCode(), string(httpResp.Body()))
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%s service error: %s", e.name, resp.Error)
	}
	return resp.Text, nil
}
