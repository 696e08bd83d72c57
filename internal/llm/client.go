package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to an Ollama-compatible model server. Two underlying HTTP
// clients carry the different timeout budgets: model listing is a cheap
// metadata call, generation can legitimately run for minutes.
type Client struct {
	generate *resty.Client
	list     *resty.Client
	baseURL  string
}

// ClientConfig holds Ollama client configuration.
type ClientConfig struct {
	BaseURL         string
	GenerateTimeout time.Duration
	ListTimeout     time.Duration
}

// NewClient creates a new Ollama client.
func NewClient(cfg *ClientConfig) *Client {
	genTimeout := cfg.GenerateTimeout
	if genTimeout <= 0 {
		genTimeout = 180 * time.Second
	}
	listTimeout := cfg.ListTimeout
	if listTimeout <= 0 {
		listTimeout = 10 * time.Second
	}

	gen := resty.New()
	gen.SetHeader("Content-Type", "application/json")
	gen.SetTimeout(genTimeout)

	list := resty.New()
	list.SetHeader("Content-Type", "application/json")
	list.SetTimeout(listTimeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &Client{generate: gen, list: list, baseURL: baseURL}
}

// ResolveBaseURL returns the per-request endpoint override when set,
// otherwise the configured default.
func (c *Client) ResolveBaseURL(override string) string {
	if override != "" {
		return override
	}
	return c.baseURL
}

// Model is one descriptor returned by the Ollama tags endpoint.
type Model struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

// ListModels fetches the installed models from baseURL/api/tags.
func (c *Client) ListModels(ctx context.Context, baseURL string) ([]Model, error) {
	var resp tagsResponse
	httpResp, err := c.list.R().
		SetContext(ctx).
		SetResult(&resp).
		Get(baseURL + "/api/tags")

	if err != nil {
		return nil, fmt.Errorf("failed to reach model server at %s: %w", baseURL, err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, fmt.Errorf("model server at %s returned HTTP %d: %s", baseURL, httpResp.StatusCode(), string(httpResp.Body()))
	}
	return resp.Models, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate sends one non-streaming generation request asking for
// JSON-formatted output and returns the raw response text.
func (c *Client) Generate(ctx context.Context, baseURL, model, prompt string) (string, error) {
	req := generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	}

	var resp generateResponse
	httpResp, err := c.generate.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(baseURL + "/api/generate")

	if err != nil {
		return "", fmt.Errorf("failed to call model %s: %w", model, err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return "", fmt.Errorf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if resp.Error != "" {
		return "", fmt.Errorf("model server error: %s", resp.Error)
	}
	return resp.Response, nil
}
