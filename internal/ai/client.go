// Package ai adapts an external text-generation service into a filing
// classifier, with chunking for long documents and tolerant response parsing.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClientConfig configures the generation endpoint.
type ClientConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to an Ollama-compatible /api/generate endpoint.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient builds a Client. A nil httpClient gets a default bounded by the
// configured timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends one prompt and returns the raw response text.
func (c *Client) Generate(ctx context.Context, prompt string, numPredict int) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: 0.1,
			NumPredict:  numPredict,
			TopP:        0.9,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("generate returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.Response, nil
}
