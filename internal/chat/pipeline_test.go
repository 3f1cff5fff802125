// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medexa/gateway/internal/config"
	"github.com/medexa/gateway/internal/gate"
	"github.com/medexa/gateway/internal/history"
	"github.com/medexa/gateway/internal/retrieval"
	"github.com/medexa/gateway/internal/router"
)

type fakeProvider struct {
	answer string
	calls  int
	last   router.Request
}

func (f *fakeProvider) Identifier() string { return "fake" }

func (f *fakeProvider) Invoke(ctx context.Context, req router.Request) (*router.Response, error) {
	f.calls++
	f.last = req
	return &router.Response{Content: f.answer, Model: "fake-model"}, nil
}

type fakeSearcher struct {
	passages  []retrieval.Passage
	calls     int
	lastQuery string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, topK int) ([]retrieval.Passage, error) {
	f.calls++
	f.lastQuery = query
	return f.passages, nil
}

func newTestPipeline(t *testing.T, answer string) (*Pipeline, *fakeProvider, *fakeSearcher, *history.Store) {
	t.Helper()

	provider := &fakeProvider{answer: answer}
	specs := []router.ProviderSpec{{
		Name:         "primary",
		Capabilities: []router.Capability{router.CapabilityText, router.CapabilityVision},
		Priority:     1,
		Timeout:      5 * time.Second,
		Provider:     provider,
	}}
	r := router.New(specs, router.NewStatsTracker())

	g, err := gate.New(nil)
	require.NoError(t, err)

	store, err := history.Open(context.Background(), config.HistoryConfig{
		DBPath:      filepath.Join(t.TempDir(), "history.db"),
		MaxMessages: 6,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	searcher := &fakeSearcher{passages: []retrieval.Passage{
		{ID: "doc-1", Text: "Normal fasting glucose is 70-100 mg/dL."},
	}}

	return New(g, searcher, store, r, 3), provider, searcher, store
}

func TestPipeline_KeywordEscalation(t *testing.T) {
	p, provider, searcher, _ := newTestPipeline(t, "should never be called")

	out, err := p.Ask(context.Background(), "sess-1", "I have chest pain and feel dizzy", nil, "")
	require.NoError(t, err)

	assert.True(t, out.Escalated)
	assert.Equal(t, "chest pain", out.Keyword)
	assert.Equal(t, gate.Trigger, out.Answer)
	assert.Zero(t, provider.calls, "no model call on keyword escalation")
	assert.Zero(t, searcher.calls, "no retrieval on keyword escalation")
}

func TestPipeline_TextPath(t *testing.T) {
	p, provider, searcher, store := newTestPipeline(t, "Your glucose level is within the normal range.")

	out, err := p.Ask(context.Background(), "sess-1", "is a glucose of 92 normal?", nil, "")
	require.NoError(t, err)

	assert.False(t, out.Escalated)
	assert.Equal(t, "Your glucose level is within the normal range.", out.Answer)
	assert.Equal(t, "primary", out.Provider)
	assert.Equal(t, 1, out.Attempts)

	assert.Equal(t, 1, searcher.calls)
	assert.Contains(t, provider.last.System, "Normal fasting glucose", "retrieved passage stuffed into system prompt")
	assert.Empty(t, provider.last.Image)

	window, err := store.Recent(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "user", window[0].Role)
	assert.Equal(t, "assistant", window[1].Role)
}

func TestPipeline_HistoryFlowsIntoNextTurn(t *testing.T) {
	p, provider, _, _ := newTestPipeline(t, "A follow-up answer.")

	_, err := p.Ask(context.Background(), "sess-1", "what is hypertension?", nil, "")
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "sess-1", "how is it treated?", nil, "")
	require.NoError(t, err)

	require.Len(t, provider.last.History, 2)
	assert.Equal(t, "what is hypertension?", provider.last.History[0].Content)
}

type scriptedProvider struct {
	answers []string
	reqs    []router.Request
}

func (s *scriptedProvider) Identifier() string { return "scripted" }

func (s *scriptedProvider) Invoke(ctx context.Context, req router.Request) (*router.Response, error) {
	s.reqs = append(s.reqs, req)
	i := len(s.reqs) - 1
	if i >= len(s.answers) {
		i = len(s.answers) - 1
	}
	return &router.Response{Content: s.answers[i], Model: "scripted-model"}, nil
}

func TestPipeline_FollowUpSearchesOnStandaloneQuestion(t *testing.T) {
	provider := &scriptedProvider{answers: []string{
		"How is hypertension treated?",
		"With lifestyle changes and medication.",
	}}
	r := router.New([]router.ProviderSpec{{
		Name:         "primary",
		Capabilities: []router.Capability{router.CapabilityText, router.CapabilityVision},
		Priority:     1,
		Timeout:      5 * time.Second,
		Provider:     provider,
	}}, router.NewStatsTracker())

	g, err := gate.New(nil)
	require.NoError(t, err)

	store, err := history.Open(context.Background(), config.HistoryConfig{
		DBPath:      filepath.Join(t.TempDir(), "history.db"),
		MaxMessages: 6,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Append(context.Background(), "sess-1", "user", "what is hypertension?"))
	require.NoError(t, store.Append(context.Background(), "sess-1", "assistant", "It is chronically elevated blood pressure."))

	searcher := &fakeSearcher{}
	p := New(g, searcher, store, r, 3)

	out, err := p.Ask(context.Background(), "sess-1", "how is it treated?", nil, "")
	require.NoError(t, err)

	require.Len(t, provider.reqs, 2, "rewrite call plus answer call")
	assert.Contains(t, provider.reqs[0].System, "standalone question")
	assert.Equal(t, "how is it treated?", provider.reqs[0].Text)
	assert.Equal(t, "How is hypertension treated?", searcher.lastQuery,
		"vector query uses the rewritten question, not the pronoun")
	assert.Equal(t, "With lifestyle changes and medication.", out.Answer)
}

func TestPipeline_FirstTurnSkipsRewrite(t *testing.T) {
	p, provider, searcher, _ := newTestPipeline(t, "An answer.")

	_, err := p.Ask(context.Background(), "sess-1", "what is anemia?", nil, "")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls, "no rewrite without history")
	assert.Equal(t, "what is anemia?", searcher.lastQuery)
}

func TestPipeline_ModelEscalation(t *testing.T) {
	p, _, _, store := newTestPipeline(t, "EMERGENCY: these symptoms need immediate care, call 911.")

	out, err := p.Ask(context.Background(), "sess-1", "my arm is numb and my jaw hurts", nil, "")
	require.NoError(t, err)

	assert.True(t, out.Escalated)
	assert.Empty(t, out.Keyword)
	assert.Equal(t, gate.Trigger, out.Answer)
	assert.Equal(t, "primary", out.Provider)

	window, err := store.Recent(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, window, "escalated turns are not stored")
}

func TestPipeline_VisionPathSkipsRetrieval(t *testing.T) {
	p, provider, searcher, _ := newTestPipeline(t, "The scan shows no abnormality.")

	img := []byte{0xFF, 0xD8, 0xFF}
	out, err := p.Ask(context.Background(), "sess-1", "what does this X-ray show?", img, "image/jpeg")
	require.NoError(t, err)

	assert.False(t, out.Escalated)
	assert.Zero(t, searcher.calls, "vision path bypasses retrieval")
	assert.Equal(t, img, provider.last.Image)
	assert.Empty(t, provider.last.System)
	assert.Empty(t, provider.last.History)
}

func TestPipeline_ImageTurnStoresPlaceholder(t *testing.T) {
	p, _, _, store := newTestPipeline(t, "The scan shows no abnormality.")

	_, err := p.Ask(context.Background(), "sess-1", "", []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	require.NoError(t, err)

	window, err := store.Recent(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "Image uploaded", window[0].Content)
	assert.Equal(t, "user", window[0].Role)
}

func TestPipeline_AnalyzeReport(t *testing.T) {
	p, provider, _, _ := newTestPipeline(t, "All values within reference ranges.")

	_, err := p.AnalyzeReport(context.Background(), nil, "")
	assert.Error(t, err, "image is required")

	out, err := p.AnalyzeReport(context.Background(), []byte{0x01}, "image/png")
	require.NoError(t, err)
	assert.Contains(t, provider.last.Text, "Laboratory Pathologist")
	assert.Equal(t, "All values within reference ranges.", out.Answer)
}

func TestPipeline_CheckInteractions(t *testing.T) {
	p, provider, _, _ := newTestPipeline(t, "🟢 LOW/NO RISK")

	_, err := p.CheckInteractions(context.Background(), "", nil, "")
	assert.Error(t, err, "medications or image required")

	_, err = p.CheckInteractions(context.Background(), "aspirin, warfarin", nil, "")
	require.NoError(t, err)
	assert.Contains(t, provider.last.Text, "aspirin, warfarin")
	assert.Contains(t, provider.last.Text, "Clinical Pharmacologist")

	_, err = p.CheckInteractions(context.Background(), "", []byte{0x01}, "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, provider.last.Text, "attached prescription image")
}

func TestPipeline_GenerateReport(t *testing.T) {
	answer := "Here is the report:\n```json\n" +
		`{"summary": "Viral infection", "diagnosis": "Influenza A",
		  "medications": [{"name": "oseltamivir", "dosage": "75mg", "timing": "twice daily"}],
		  "advice": ["Bed rest for 3 days"], "follow_up": "In one week"}` +
		"\n```"
	p, _, _, _ := newTestPipeline(t, answer)

	_, err := p.GenerateReport(context.Background(), "   ")
	assert.Error(t, err, "notes are required")

	report, err := p.GenerateReport(context.Background(), "fever 39C, body aches, positive flu test")
	require.NoError(t, err)
	assert.Equal(t, "Viral infection", report.Summary)
	assert.Equal(t, "Influenza A", report.Diagnosis)
	assert.Equal(t, "In one week", report.FollowUp)
	assert.Equal(t, "primary", report.Provider)
}

func TestExtractJSON(t *testing.T) {
	_, err := extractJSON("no json here")
	assert.Error(t, err)

	_, err = extractJSON("{broken")
	assert.Error(t, err)

	raw, err := extractJSON("prose before {\"a\": 1} prose after")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, raw)
}
