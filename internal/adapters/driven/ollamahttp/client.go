// Package ollamahttp is the HTTP client shared by the Ollama embedding and
// LLM adapters.
package ollamahttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// DefaultBaseURL is where a local Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// Client calls one Ollama server.
type Client struct {
	http    *http.Client
	baseURL string

	// unavailable is wrapped into errors that mean the server or model
	// is missing, as opposed to a failed request.
	unavailable error
}

// New returns a client for baseURL, or DefaultBaseURL when empty.
// unavailable is the domain error reported for an unreachable server or
// a model that is not pulled.
func New(baseURL string, timeout time.Duration, unavailable error) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		unavailable: unavailable,
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends in as JSON to path and decodes the reply into out.
// model only decorates the not-found error.
func (c *Client) Post(ctx context.Context, path, model string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama: read response: %w", err)
	}

	msg := errorMessage(data)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("ollama: %w: model %s not found: %s", c.unavailable, model, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("ollama: %w: %s", domain.ErrRateLimited, msg)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, msg)
	}

	// Ollama can answer 200 with an error field when generation fails mid-way.
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("ollama error: %s", apiErr.Error)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ping lists local models, which needs no inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("ollama: %w: %v", c.unavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, errorMessage(data))
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a reply, or returns the raw text.
func errorMessage(data []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(string(data))
}
