package router

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// providerModel is the generated shape of one configured provider.
type providerModel struct {
	Caps  int // 0 = text, 1 = vision, 2 = both
	Fails bool
}

func (m providerModel) capabilities() []Capability {
	switch m.Caps {
	case 0:
		return []Capability{CapabilityText}
	case 1:
		return []Capability{CapabilityVision}
	default:
		return []Capability{CapabilityText, CapabilityVision}
	}
}

func (m providerModel) supports(c Capability) bool {
	for _, have := range m.capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// TestProperty_RoutingOutcomes checks the routing contract over arbitrary
// provider lists: the earliest capable succeeding provider always wins, a
// request with no capable provider makes zero calls, and exhaustion carries
// exactly one trail entry per capable provider.
func TestProperty_RoutingOutcomes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genModels := gen.SliceOf(gen.IntRange(0, 5)).Map(func(raw []int) []providerModel {
		models := make([]providerModel, len(raw))
		for i, v := range raw {
			models[i] = providerModel{Caps: v % 3, Fails: v >= 3}
		}
		return models
	})

	properties.Property("earliest capable success wins, exhaustion trail is complete", prop.ForAll(
		func(models []providerModel, wantVision bool) bool {
			specs := make([]ProviderSpec, len(models))
			fakes := make([]*fakeProvider, len(models))
			for i, m := range models {
				name := fmt.Sprintf("p%d", i)
				fp := &fakeProvider{name: name, resp: &Response{Content: name}}
				if m.Fails {
					fp.err = errors.New("scripted failure")
					fp.resp = nil
				}
				fakes[i] = fp
				specs[i] = ProviderSpec{
					Name:         name,
					Capabilities: m.capabilities(),
					Priority:     i,
					Timeout:      time.Second,
					Provider:     fp,
				}
			}

			req := Request{Text: "q"}
			need := CapabilityText
			if wantVision {
				req.Image = []byte{0x01}
				need = CapabilityVision
			}

			capable := make([]int, 0, len(models))
			winner := -1
			for i, m := range models {
				if !m.supports(need) {
					continue
				}
				capable = append(capable, i)
				if winner == -1 && !m.Fails {
					winner = i
				}
			}

			r := New(specs, nil)
			res, err := r.Route(context.Background(), req)

			switch {
			case len(capable) == 0:
				if !errors.Is(err, ErrNoCapableProvider) {
					return false
				}
				for _, fp := range fakes {
					if fp.calls != 0 {
						return false
					}
				}
				return true
			case winner >= 0:
				if err != nil || res.Provider != fmt.Sprintf("p%d", winner) {
					return false
				}
				// Attempts counts capable providers up to and including the winner.
				attempts := 0
				for _, idx := range capable {
					attempts++
					if idx == winner {
						break
					}
				}
				return res.Attempts == attempts
			default:
				var ex *ExhaustedError
				if !errors.As(err, &ex) {
					return false
				}
				return len(ex.Trail) == len(capable)
			}
		},
		genModels,
		gen.Bool(),
	))

	properties.TestingRun(t)
}
