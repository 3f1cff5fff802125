// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package router

import (
	"context"
	"sort"
	"time"
)

// DefaultAttemptTimeout bounds a single provider attempt when the spec does
// not configure its own timeout.
const DefaultAttemptTimeout = 60 * time.Second

// Router walks a priority-ordered provider list and returns the first
// successful response. It holds no per-request state: the spec list is
// read-only after construction and the stats tracker is thread-safe, so
// concurrent Route calls need no locking.
type Router struct {
	specs []ProviderSpec
	stats *StatsTracker
}

// New creates a router over the given provider specs. The slice is copied and
// sorted by priority (lower first); ties keep their configured order.
func New(specs []ProviderSpec, stats *StatsTracker) *Router {
	if stats == nil {
		stats = NewStatsTracker()
	}
	ordered := make([]ProviderSpec, len(specs))
	copy(ordered, specs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return &Router{specs: ordered, stats: stats}
}

// Specs returns the priority-ordered provider specs.
func (r *Router) Specs() []ProviderSpec { return r.specs }

// Stats returns the tracker recording per-provider outcomes.
func (r *Router) Stats() *StatsTracker { return r.stats }

// Route selects and calls a provider for the request.
//
// Candidates are the capability-matching specs in priority order; each is
// tried at most once with a bounded per-attempt timeout. The first success
// wins. When every candidate fails the returned error is *ExhaustedError
// carrying the ordered failure trail; when no candidate exists it is
// ErrNoCapableProvider and no outbound call is made; when the parent context
// is cancelled mid-flight it is *CancelledError and remaining candidates are
// skipped.
func (r *Router) Route(ctx context.Context, req Request) (*Result, error) {
	if req.Empty() {
		return nil, ErrEmptyRequest
	}

	need := req.RequiredCapability()
	candidates := make([]*ProviderSpec, 0, len(r.specs))
	for i := range r.specs {
		if r.specs[i].Supports(need) {
			candidates = append(candidates, &r.specs[i])
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCapableProvider
	}

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Err: err}
	}

	trail := make([]Attempt, 0, len(candidates))
	for i, spec := range candidates {
		timeout := spec.Timeout
		if timeout <= 0 {
			timeout = DefaultAttemptTimeout
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		resp, err := spec.Provider.Invoke(attemptCtx, req)
		latency := time.Since(start)
		cancel()

		if err == nil && resp != nil {
			r.stats.Record(spec.Name, true, latency, "")
			trail = append(trail, Attempt{Provider: spec.Name, Latency: latency})
			return &Result{
				Provider: spec.Name,
				Response: resp,
				Attempts: i + 1,
				Trail:    trail,
			}, nil
		}

		// The whole operation was aborted externally; do not try the rest.
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.stats.Record(spec.Name, false, latency, "cancelled")
			return nil, &CancelledError{Provider: spec.Name, Err: ctxErr}
		}

		if err == nil {
			err = errMalformedResponse
		}
		r.stats.Record(spec.Name, false, latency, failureReason(err))
		trail = append(trail, Attempt{
			Provider: spec.Name,
			Err:      &ProviderError{Provider: spec.Name, Err: err},
			Latency:  latency,
		})
	}

	return nil, &ExhaustedError{Trail: trail}
}
