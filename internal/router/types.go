// Package router provides priority-ordered fallback routing between LLM providers.
// Given a request and its required capability, it walks the configured provider
// list in preference order and returns the first successful response, recording
// per-provider outcomes for availability tracking.
package router

import (
	"context"
	"strings"
	"time"
)

// Capability is an input modality a provider accepts.
type Capability string

const (
	// CapabilityText indicates the provider accepts plain text prompts.
	CapabilityText Capability = "text"

	// CapabilityVision indicates the provider accepts image inputs.
	CapabilityVision Capability = "vision"
)

// ParseCapability normalizes a configuration string into a Capability.
// Unknown values return false.
func ParseCapability(s string) (Capability, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return CapabilityText, true
	case "vision":
		return CapabilityVision, true
	}
	return "", false
}

// Response is the payload returned by a provider on success.
type Response struct {
	// Content is the assistant text produced by the model.
	Content string

	// Model is the upstream model that produced the response, when reported.
	Model string

	// PromptTokens and CompletionTokens carry usage when the provider reports it.
	PromptTokens     int
	CompletionTokens int
}

// Provider is the uniform call interface implemented by one adapter per
// external LLM endpoint. The router depends only on this interface.
type Provider interface {
	// Identifier returns the provider name used in logs and results.
	Identifier() string

	// Invoke performs a single bounded call. Implementations must honor ctx
	// cancellation and return typed errors for non-success statuses.
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// ProviderSpec is one configured LLM endpoint with its declared capabilities
// and priority rank. Specs are built once at startup and never mutated.
type ProviderSpec struct {
	// Name is the unique provider identifier (e.g. "openrouter-gemma").
	Name string

	// Capabilities is the set of input modalities this provider accepts.
	Capabilities []Capability

	// Priority is the preference rank; lower values are tried first.
	Priority int

	// Timeout bounds a single attempt against this provider.
	Timeout time.Duration

	// Provider is the live adapter that performs the outbound call.
	Provider Provider
}

// Supports reports whether the spec declares the given capability.
func (s *ProviderSpec) Supports(cap Capability) bool {
	for _, c := range s.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Request is one inbound inference request. It is created per routing call
// and discarded after the response.
type Request struct {
	// Text is the user message or fully rendered prompt.
	Text string

	// System is an optional system prompt sent ahead of the user message.
	System string

	// Image is an optional raw image blob. When present the request requires
	// the vision capability.
	Image []byte

	// ImageMIME is the MIME type of Image (defaults to image/jpeg).
	ImageMIME string

	// History carries prior conversation turns for context, oldest first.
	History []Message
}

// Message is a single prior conversation turn.
type Message struct {
	Role    string
	Content string
}

// RequiredCapability derives the capability this request needs: vision when an
// image is attached, text otherwise.
func (r *Request) RequiredCapability() Capability {
	if len(r.Image) > 0 {
		return CapabilityVision
	}
	return CapabilityText
}

// Empty reports whether the request carries no payload at all.
func (r *Request) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && len(r.Image) == 0
}

// Attempt records the outcome of one provider attempt.
type Attempt struct {
	// Provider is the name of the provider that was tried.
	Provider string

	// Err is the failure that caused advancement; nil for the winning attempt.
	Err error

	// Latency is how long the attempt took.
	Latency time.Duration
}

// Result is the outcome of routing one request. It is returned to the caller
// and not persisted.
type Result struct {
	// Provider is the name of the provider that produced the response.
	Provider string

	// Response is the successful payload.
	Response *Response

	// Attempts is the number of providers tried, including the winner.
	Attempts int

	// Trail holds the per-attempt outcomes in priority order.
	Trail []Attempt
}
