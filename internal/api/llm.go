// internal/api/llm.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CompletionRequest is the request body for the hosted text-generation
// service (Anthropic-style messages API).
type CompletionRequest struct {
	Model       string              `json:"model"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
	System      string              `json:"system,omitempty"`
	Messages    []CompletionMessage `json:"messages"`
}

// CompletionMessage is one conversational turn.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse is the response body; text arrives as content blocks.
type CompletionResponse struct {
	Content []CompletionContent `json:"content"`
	Error   *CompletionError    `json:"error,omitempty"`
}

// CompletionContent is one block of response content.
type CompletionContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CompletionError is the error object returned on non-2xx responses.
type CompletionError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// LLMConfig parameterizes the completion client.
type LLMConfig struct {
	URL         string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// LLMClient talks to the hosted text-generation service.
type LLMClient struct {
	cfg        LLMConfig
	httpClient *http.Client
}

// NewLLM creates a completion client.
func NewLLM(cfg LLMConfig) *LLMClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &LLMClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Complete sends a system instruction plus one user message and returns
// the concatenated text of the response content blocks.
func (c *LLMClient) Complete(ctx context.Context, system, user string) (string, error) {
	body := CompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		System:      system,
		Messages: []CompletionMessage{
			{Role: "user", Content: user},
		},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out CompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("completion returned status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("completion returned status %d", resp.StatusCode)
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("completion response contained no text")
	}
	return sb.String(), nil
}
