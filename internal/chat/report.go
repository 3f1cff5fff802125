// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chat

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/medexa/gateway/internal/prompt"
	"github.com/medexa/gateway/internal/router"
)

// Report is the structured medical report produced from clinical notes.
// Medications and Advice keep their raw JSON shape since models return
// them as either strings or arrays.
type Report struct {
	Summary     string          `json:"summary"`
	Diagnosis   string          `json:"diagnosis"`
	Medications json.RawMessage `json:"medications"`
	Advice      json.RawMessage `json:"advice"`
	FollowUp    string          `json:"follow_up"`

	Provider string `json:"-"`
	Attempts int    `json:"-"`
}

// GenerateReport turns free-form clinical notes into a structured report.
func (p *Pipeline) GenerateReport(ctx context.Context, clinicalNotes string) (*Report, error) {
	if strings.TrimSpace(clinicalNotes) == "" {
		return nil, fmt.Errorf("no clinical notes provided")
	}

	res, err := p.router.Route(ctx, router.Request{
		Text: prompt.ReportGenerator(clinicalNotes),
	})
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(res.Response.Content)
	if err != nil {
		return nil, fmt.Errorf("model returned unusable report: %w", err)
	}

	var report Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	report.Provider = res.Provider
	report.Attempts = res.Attempts
	return &report, nil
}

// extractJSON pulls the JSON object out of a model answer, tolerating
// markdown code fences and surrounding prose.
func extractJSON(answer string) (string, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in answer")
	}
	candidate := answer[start : end+1]
	if !gjson.Valid(candidate) {
		return "", fmt.Errorf("invalid JSON in answer")
	}
	return candidate, nil
}
