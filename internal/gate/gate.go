// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gate implements the emergency keyword gate. Incoming questions
// are scanned against a configurable keyword list before any model is
// called; a hit short-circuits the pipeline with an emergency directive.
package gate

import (
	"sort"
	"strings"
	"sync"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Trigger is the sentinel returned to clients when the gate fires or a
// model answer opens with an emergency escalation.
const Trigger = "TRIGGER_EMERGENCY"

// DefaultKeywords covers the symptom phrases that always bypass the
// model pipeline. Matching is case-insensitive substring search.
var DefaultKeywords = []string{
	"chest pain",
	"choking",
	"stroke",
	"bleeding",
	"unconscious",
	"difficulty breathing",
	"can't breathe",
	"shortness of breath",
}

// Gate matches questions against an emergency keyword list. The list can
// be swapped at runtime; matching is safe for concurrent use.
type Gate struct {
	mu       sync.RWMutex
	machine  *goahocorasick.Machine
	keywords []string
}

// New builds a gate from the given keywords. An empty list falls back to
// DefaultKeywords.
func New(keywords []string) (*Gate, error) {
	g := &Gate{}
	if err := g.Reload(keywords); err != nil {
		return nil, err
	}
	return g, nil
}

// Reload replaces the keyword list atomically. In-flight Match calls keep
// using the previous list.
func (g *Gate) Reload(keywords []string) error {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	seen := make(map[string]struct{}, len(keywords))
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		cleaned = append(cleaned, kw)
	}
	// The double-array trie requires its dictionary in lexicographic order.
	sort.Strings(cleaned)

	dict := make([][]rune, len(cleaned))
	for i, kw := range cleaned {
		dict[i] = []rune(kw)
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(dict); err != nil {
		return err
	}

	g.mu.Lock()
	g.machine = machine
	g.keywords = cleaned
	g.mu.Unlock()
	return nil
}

// Keywords returns a copy of the active keyword list.
func (g *Gate) Keywords() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.keywords))
	copy(out, g.keywords)
	return out
}

// Match reports whether text contains an emergency keyword, returning the
// first keyword hit.
func (g *Gate) Match(text string) (string, bool) {
	g.mu.RLock()
	machine := g.machine
	g.mu.RUnlock()
	if machine == nil || text == "" {
		return "", false
	}

	terms := machine.MultiPatternSearch([]rune(strings.ToLower(text)), true)
	if len(terms) == 0 {
		return "", false
	}
	return string(terms[0].Word), true
}

// Escalates reports whether a model answer itself declares an emergency.
// Answers that open with "emergency" (after trimming) are escalated to the
// same trigger as a keyword hit.
func Escalates(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "emergency")
}
