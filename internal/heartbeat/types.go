// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package heartbeat provides background health monitoring for the
// configured model providers. Results are observability only: they feed
// the health endpoint and the logs, never the routing order.
package heartbeat

import (
	"context"
	"time"
)

// ProviderStatus represents the health status of a provider.
type ProviderStatus string

const (
	// StatusHealthy indicates the provider responded normally.
	StatusHealthy ProviderStatus = "healthy"

	// StatusDegraded indicates the provider responded but with issues,
	// for example a slow check or a non-fatal error status.
	StatusDegraded ProviderStatus = "degraded"

	// StatusUnavailable indicates the provider could not be reached.
	StatusUnavailable ProviderStatus = "unavailable"

	// StatusUnknown indicates no check has completed yet.
	StatusUnknown ProviderStatus = "unknown"
)

// HealthStatus is the last observed health of a single provider.
type HealthStatus struct {
	Provider     string         `json:"provider"`
	Status       ProviderStatus `json:"status"`
	LastCheck    time.Time      `json:"last_check"`
	ResponseTime time.Duration  `json:"response_time"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Checker performs a health probe against one provider.
type Checker interface {
	// Name returns the provider name this checker handles.
	Name() string

	// Check probes the provider and returns its current status. The
	// returned status is never nil, even on error.
	Check(ctx context.Context) *HealthStatus
}
