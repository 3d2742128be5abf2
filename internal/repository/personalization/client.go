package personalization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"card-assistant-backend/internal/domain"
)

// ErrNotConfigured is returned when no service URL is set.
var ErrNotConfigured = errors.New("personalization service not configured")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

var _ domain.PersonalizationClient = (*Client)(nil)

type askRequest struct {
	Question string                        `json:"question"`
	Context  domain.ExternalContextPayload `json:"context"`
}

func (c *Client) Ask(ctx context.Context, question string, payload domain.ExternalContextPayload) (*domain.Answer, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(askRequest{Question: question, Context: payload})
	if err != nil {
		return nil, fmt.Errorf("encode ask request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ask request: %w", errors.Join(domain.ErrNetwork, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ask response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ask failed: status=%d: %w", resp.StatusCode, domain.ErrProvider)
	}

	var answer domain.Answer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, fmt.Errorf("decode ask response: %w", err)
	}
	return &answer, nil
}
