// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package heartbeat

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/medexa/gateway/internal/config"
)

// Monitor runs periodic health checks against all registered checkers and
// keeps the last observed status per provider.
type Monitor struct {
	interval time.Duration
	checkers []Checker

	mu       sync.RWMutex
	statuses map[string]*HealthStatus

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewMonitor creates a monitor with checkers built from the configured
// providers.
func NewMonitor(cfg *config.Config) *Monitor {
	checkers := make([]Checker, 0, len(cfg.Providers))
	statuses := make(map[string]*HealthStatus, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		checkers = append(checkers, NewChecker(pc, cfg.Heartbeat.CheckTimeout()))
		statuses[pc.Name] = &HealthStatus{Provider: pc.Name, Status: StatusUnknown}
	}
	return &Monitor{
		interval: cfg.Heartbeat.CheckInterval(),
		checkers: checkers,
		statuses: statuses,
		done:     make(chan struct{}),
	}
}

// Start launches the background check loop. An initial check runs
// immediately so the health endpoint has data before the first tick.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("heartbeat monitor already running")
	}
	m.running = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	log.Infof("Heartbeat monitor started (interval %s, %d providers)", m.interval, len(m.checkers))

	go func() {
		defer close(m.done)
		m.CheckAll(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CheckAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop halts the check loop and waits for it to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	<-m.done
	log.Info("Heartbeat monitor stopped")
}

// CheckAll probes every provider concurrently and records the results.
func (m *Monitor) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, checker := range m.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			m.record(c.Check(ctx))
		}(checker)
	}
	wg.Wait()
}

// Status returns the last observed status for one provider.
func (m *Monitor) Status(provider string) (*HealthStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[provider]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// Statuses returns a snapshot of all provider statuses.
func (m *Monitor) Statuses() map[string]*HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*HealthStatus, len(m.statuses))
	for name, s := range m.statuses {
		cp := *s
		out[name] = &cp
	}
	return out
}

func (m *Monitor) record(status *HealthStatus) {
	m.mu.Lock()
	prev := m.statuses[status.Provider]
	m.statuses[status.Provider] = status
	m.mu.Unlock()

	if prev == nil || prev.Status == status.Status {
		return
	}
	entry := log.WithFields(log.Fields{
		"provider": status.Provider,
		"from":     prev.Status,
		"to":       status.Status,
	})
	switch status.Status {
	case StatusHealthy:
		entry.Info("Provider health transition")
	default:
		entry.Warnf("Provider health transition: %s", status.ErrorMessage)
	}
}
