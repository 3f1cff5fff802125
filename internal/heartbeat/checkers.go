// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package heartbeat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medexa/gateway/internal/config"
)

// slowCheckThreshold marks a successful but sluggish probe as degraded.
const slowCheckThreshold = 2 * time.Second

// HTTPChecker probes a provider's listing endpoint over HTTP. A reachable
// endpoint that returns an error status counts as degraded; a transport
// failure counts as unavailable.
type HTTPChecker struct {
	name    string
	url     string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// NewChecker builds a checker for one configured provider. OpenAI-compatible
// providers are probed via their models listing; Ollama via its tags listing.
func NewChecker(pc config.ProviderConfig, timeout time.Duration) *HTTPChecker {
	var url string
	switch pc.Type {
	case config.ProviderTypeOllama:
		base := pc.BaseURL
		if base == "" {
			base = "http://localhost:11434"
		}
		url = strings.TrimSuffix(base, "/") + "/api/tags"
	default:
		url = strings.TrimSuffix(pc.BaseURL, "/") + "/models"
	}

	return &HTTPChecker{
		name:    pc.Name,
		url:     url,
		apiKey:  pc.APIKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name this checker handles.
func (c *HTTPChecker) Name() string { return c.name }

// Check probes the provider endpoint and classifies the result.
func (c *HTTPChecker) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Provider:  c.name,
		LastCheck: time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		status.Status = StatusUnavailable
		status.ErrorMessage = err.Error()
		return status
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Status = StatusUnavailable
		status.ErrorMessage = err.Error()
		return status
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if status.ResponseTime > slowCheckThreshold {
			status.Status = StatusDegraded
			status.ErrorMessage = fmt.Sprintf("slow health check: %s", status.ResponseTime.Round(time.Millisecond))
		} else {
			status.Status = StatusHealthy
		}
	default:
		status.Status = StatusDegraded
		status.ErrorMessage = fmt.Sprintf("health check returned status %d", resp.StatusCode)
	}
	return status
}
