// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chat orchestrates one inbound patient message: emergency gate,
// reference retrieval, history window, model routing, and escalation of
// emergency answers.
package chat

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/medexa/gateway/internal/gate"
	"github.com/medexa/gateway/internal/history"
	"github.com/medexa/gateway/internal/prompt"
	"github.com/medexa/gateway/internal/retrieval"
	"github.com/medexa/gateway/internal/router"
)

// Outcome is the result of one pipeline run.
type Outcome struct {
	// Escalated reports that the message tripped the emergency path,
	// either by keyword or by the model's own answer.
	Escalated bool

	// Keyword is the gate keyword that fired, empty when the model
	// escalated or no escalation happened.
	Keyword string

	// Answer is the assistant reply. On escalation it holds the
	// emergency trigger sentinel.
	Answer string

	// Provider is the provider that produced the answer, empty on a
	// keyword escalation (no model was called).
	Provider string

	// Attempts is the number of providers tried, zero on a keyword
	// escalation.
	Attempts int
}

// Pipeline wires the gate, retrieval, history, and router together.
type Pipeline struct {
	gate     *gate.Gate
	searcher retrieval.Searcher
	history  *history.Store
	router   *router.Router
	topK     int
}

// New assembles a pipeline. searcher may be retrieval.Noop when retrieval
// is disabled.
func New(g *gate.Gate, searcher retrieval.Searcher, store *history.Store, r *router.Router, topK int) *Pipeline {
	return &Pipeline{
		gate:     g,
		searcher: searcher,
		history:  store,
		router:   r,
		topK:     topK,
	}
}

// Ask runs one patient message through the pipeline. An image switches to
// the vision path, which bypasses retrieval and history context.
func (p *Pipeline) Ask(ctx context.Context, sessionID, text string, image []byte, imageMIME string) (*Outcome, error) {
	if kw, hit := p.gate.Match(text); hit {
		return &Outcome{Escalated: true, Keyword: kw, Answer: gate.Trigger}, nil
	}

	req := router.Request{Text: text, Image: image, ImageMIME: imageMIME}
	if len(image) == 0 {
		window, err := p.history.Recent(ctx, sessionID)
		if err != nil {
			log.Warnf("History lookup failed for session %s: %v", sessionID, err)
		}
		req.History = window

		passages, err := p.searcher.Search(ctx, p.standaloneQuestion(ctx, text, window), p.topK)
		if err != nil {
			// Answer without references rather than failing the chat.
			log.Warnf("Reference retrieval failed, answering without context: %v", err)
		}
		req.System = prompt.MedicalQA(passages)
	}

	res, err := p.router.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	answer := res.Response.Content

	if gate.Escalates(answer) {
		return &Outcome{
			Escalated: true,
			Answer:    gate.Trigger,
			Provider:  res.Provider,
			Attempts:  res.Attempts,
		}, nil
	}

	question := text
	if question == "" && len(image) > 0 {
		question = "Image uploaded"
	}
	p.remember(ctx, sessionID, question, answer)

	return &Outcome{
		Answer:   answer,
		Provider: res.Provider,
		Attempts: res.Attempts,
	}, nil
}

// AnalyzeReport runs a lab report image through the pathologist prompt.
func (p *Pipeline) AnalyzeReport(ctx context.Context, image []byte, imageMIME string) (*Outcome, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no report provided")
	}

	res, err := p.router.Route(ctx, router.Request{
		Text:      prompt.LabPathologist,
		Image:     image,
		ImageMIME: imageMIME,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Answer:   res.Response.Content,
		Provider: res.Provider,
		Attempts: res.Attempts,
	}, nil
}

// CheckInteractions analyzes a medication list, given as text or as a
// prescription image, for drug-drug interactions.
func (p *Pipeline) CheckInteractions(ctx context.Context, medications string, image []byte, imageMIME string) (*Outcome, error) {
	if medications == "" && len(image) == 0 {
		return nil, fmt.Errorf("no medication data provided")
	}
	data := medications
	if data == "" {
		data = "See attached prescription image."
	}

	res, err := p.router.Route(ctx, router.Request{
		Text:      prompt.InteractionCheck(data),
		Image:     image,
		ImageMIME: imageMIME,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Answer:   res.Response.Content,
		Provider: res.Provider,
		Attempts: res.Attempts,
	}, nil
}

// standaloneQuestion rewrites a follow-up question against the chat
// history so the vector query does not search on bare pronouns. First
// turns and rewrite failures fall back to the raw question.
func (p *Pipeline) standaloneQuestion(ctx context.Context, text string, window []router.Message) string {
	if len(window) == 0 {
		return text
	}

	res, err := p.router.Route(ctx, router.Request{
		Text:    text,
		System:  prompt.Contextualizer,
		History: window,
	})
	if err != nil {
		log.Warnf("Question rewrite failed, searching on raw question: %v", err)
		return text
	}
	rewritten := strings.TrimSpace(res.Response.Content)
	if rewritten == "" {
		return text
	}
	return rewritten
}

func (p *Pipeline) remember(ctx context.Context, sessionID, question, answer string) {
	if sessionID == "" {
		return
	}
	if err := p.history.Append(ctx, sessionID, "user", question); err != nil {
		log.Warnf("Failed to store user turn for session %s: %v", sessionID, err)
		return
	}
	if err := p.history.Append(ctx, sessionID, "assistant", answer); err != nil {
		log.Warnf("Failed to store assistant turn for session %s: %v", sessionID, err)
	}
}
