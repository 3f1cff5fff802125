// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package history

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens with the cl100k_base encoding. The codec is
// built lazily on first use; if it cannot be built the counter falls back
// to a word-based estimate.
type TokenCounter struct {
	once  sync.Once
	codec tokenizer.Codec
}

// NewTokenCounter returns an uninitialized counter.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Count returns the token count for text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			c.codec = codec
		}
	})
	if c.codec == nil {
		// Rough estimate used by most chat stacks when no codec is available.
		return len(strings.Fields(text)) * 4 / 3
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return len(strings.Fields(text)) * 4 / 3
	}
	return len(ids)
}
