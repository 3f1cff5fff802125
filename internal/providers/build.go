// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"fmt"

	"github.com/medexa/gateway/internal/config"
	"github.com/medexa/gateway/internal/router"
)

// Build constructs the ordered provider spec list from configuration.
// The returned slice is handed to the router once and never mutated.
func Build(cfg *config.Config) ([]router.ProviderSpec, error) {
	specs := make([]router.ProviderSpec, 0, len(cfg.Providers))
	for i := range cfg.Providers {
		pc := cfg.Providers[i]

		var adapter router.Provider
		switch pc.Type {
		case config.ProviderTypeOpenAICompat:
			adapter = NewOpenAICompat(pc)
		case config.ProviderTypeOllama:
			adapter = NewOllama(pc)
		default:
			return nil, fmt.Errorf("provider %q: unknown type %q", pc.Name, pc.Type)
		}

		caps := make([]router.Capability, 0, len(pc.Capabilities))
		for _, raw := range pc.Capabilities {
			c, ok := router.ParseCapability(raw)
			if !ok {
				return nil, fmt.Errorf("provider %q: unknown capability %q", pc.Name, raw)
			}
			caps = append(caps, c)
		}

		specs = append(specs, router.ProviderSpec{
			Name:         pc.Name,
			Capabilities: caps,
			Priority:     pc.Priority,
			Timeout:      pc.AttemptTimeout(),
			Provider:     adapter,
		})
	}
	return specs, nil
}
