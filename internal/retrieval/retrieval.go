// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package retrieval talks to the external vector-search service that
// supplies medical reference passages for answer grounding. Ranking and
// indexing live entirely in that service.
package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/medexa/gateway/internal/config"
)

// Passage is one retrieved reference snippet.
type Passage struct {
	ID    string  `json:"id,omitempty"`
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

// Searcher finds reference passages for a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Passage, error)
}

// Client is the HTTP Searcher implementation.
type Client struct {
	endpoint string
	apiKey   string
	topK     int
	timeout  time.Duration
	client   *http.Client
}

// NewClient builds a retrieval client from configuration.
func NewClient(rc config.RetrievalConfig) *Client {
	return &Client{
		endpoint: rc.Endpoint,
		apiKey:   rc.APIKey,
		topK:     rc.TopK,
		timeout:  rc.SearchTimeout(),
		client:   &http.Client{Timeout: rc.SearchTimeout()},
	}
}

// TopK returns the configured default passage count.
func (c *Client) TopK() int { return c.topK }

// Search posts the query to the search service and returns the ranked
// passages. topK <= 0 uses the configured default.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	if topK <= 0 {
		topK = c.topK
	}

	payload, err := json.Marshal(map[string]any{
		"query": query,
		"top_k": topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search service returned status %d", resp.StatusCode)
	}

	var out struct {
		Passages []Passage `json:"passages"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out.Passages, nil
}

// Noop is a Searcher that always returns no passages. It stands in when
// retrieval is disabled in configuration.
type Noop struct{}

// Search implements Searcher.
func (Noop) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	return nil, nil
}
