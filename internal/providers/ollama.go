// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/medexa/gateway/internal/config"
	"github.com/medexa/gateway/internal/router"
)

// Ollama provides integration with locally running Ollama instances.
// It communicates over HTTP with the Ollama chat API (default
// http://localhost:11434). Images ride on the user message's "images"
// field, which llava-class models accept.
type Ollama struct {
	name        string
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// NewOllama creates an adapter for a local Ollama server.
func NewOllama(cfg config.ProviderConfig) *Ollama {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		name:        cfg.Name,
		baseURL:     baseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

// Identifier implements router.Provider.
func (o *Ollama) Identifier() string { return o.name }

// Invoke implements router.Provider.
func (o *Ollama) Invoke(ctx context.Context, req router.Request) (*router.Response, error) {
	messages := make([]map[string]any, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	for _, m := range req.History {
		messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
	}

	userMsg := map[string]any{"role": "user", "content": req.Text}
	if len(req.Image) > 0 {
		if req.Text == "" {
			userMsg["content"] = "Analyze this image"
		}
		userMsg["images"] = []string{base64.StdEncoding.EncodeToString(req.Image)}
	}
	messages = append(messages, userMsg)

	ollamaReq := map[string]any{
		"model":    o.model,
		"messages": messages,
		"stream":   false,
	}
	if o.temperature > 0 {
		ollamaReq["options"] = map[string]any{"temperature": o.temperature}
	}

	reqBody, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusErr{code: resp.StatusCode, msg: truncate(string(body), 512)}
	}

	var ollamaResp struct {
		Model   string `json:"model"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Done            bool `json:"done"`
		PromptEvalCount int  `json:"prompt_eval_count"`
		EvalCount       int  `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("parse ollama response: %w", err)
	}
	if strings.TrimSpace(ollamaResp.Message.Content) == "" {
		return nil, fmt.Errorf("malformed response: empty message content")
	}

	return &router.Response{
		Content:          ollamaResp.Message.Content,
		Model:            ollamaResp.Model,
		PromptTokens:     ollamaResp.PromptEvalCount,
		CompletionTokens: ollamaResp.EvalCount,
	}, nil
}
