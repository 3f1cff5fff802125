// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package providers implements the outbound adapters behind the router's
// Provider interface, one per external LLM endpoint family.
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
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/medexa/gateway/internal/config"
	"github.com/medexa/gateway/internal/router"
)

// statusErr carries a non-2xx upstream status through the error chain.
type statusErr struct {
	code int
	msg  string
}

func (e statusErr) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("status %d: %s", e.code, e.msg)
	}
	return fmt.Sprintf("status %d", e.code)
}

func (e statusErr) StatusCode() int { return e.code }

// chatMessage is one OpenAI chat message. Content is either a string or, for
// multimodal requests, a slice of content parts.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// OpenAICompat is a stateless adapter for OpenAI-compatible providers
// (OpenRouter and friends). It executes POST {base}/chat/completions with
// bearer auth and supports multimodal content parts for vision requests.
type OpenAICompat struct {
	name        string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

// NewOpenAICompat creates an adapter bound to one configured endpoint.
func NewOpenAICompat(cfg config.ProviderConfig) *OpenAICompat {
	return &OpenAICompat{
		name:        cfg.Name,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		// Per-attempt deadlines come from the router's context; the client
		// timeout is only a backstop.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Identifier implements router.Provider.
func (p *OpenAICompat) Identifier() string { return p.name }

// Invoke implements router.Provider.
func (p *OpenAICompat) Invoke(ctx context.Context, req router.Request) (*router.Response, error) {
	payload, err := p.buildPayload(req)
	if err != nil {
		return nil, err
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	httpReq.Header.Set("User-Agent", "medexa-gateway")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		// Surface the context error so timeouts classify correctly.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer func() {
		if errClose := httpResp.Body.Close(); errClose != nil {
			log.Errorf("openai compat adapter: close response body error: %v", errClose)
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.Debugf("openai compat adapter %s: error status %d: %s", p.name, httpResp.StatusCode, truncate(string(body), 512))
		return nil, statusErr{code: httpResp.StatusCode, msg: truncate(string(body), 512)}
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return nil, fmt.Errorf("malformed response: missing choices.0.message.content")
	}

	return &router.Response{
		Content:          content.String(),
		Model:            gjson.GetBytes(body, "model").String(),
		PromptTokens:     int(gjson.GetBytes(body, "usage.prompt_tokens").Int()),
		CompletionTokens: int(gjson.GetBytes(body, "usage.completion_tokens").Int()),
	}, nil
}

func (p *OpenAICompat) buildPayload(req router.Request) ([]byte, error) {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		text := req.Text
		if strings.TrimSpace(text) == "" {
			text = "Analyze this image"
		}
		encoded := base64.StdEncoding.EncodeToString(req.Image)
		messages = append(messages, chatMessage{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: text},
				{Type: "image_url", ImageURL: &imageURL{URL: fmt.Sprintf("data:%s;base64,%s", mime, encoded)}},
			},
		})
	} else {
		messages = append(messages, chatMessage{Role: "user", Content: req.Text})
	}

	payload, err := json.Marshal(map[string]any{
		"model":    p.model,
		"messages": messages,
		"stream":   false,
	})
	if err != nil {
		return nil, err
	}
	if p.temperature > 0 {
		payload, _ = sjson.SetBytes(payload, "temperature", p.temperature)
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
