package provider

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultOrder is the provider priority used when the caller does not pin
// one. Earlier entries resolve faster and fail cleaner in practice.
var DefaultOrder = []string{
	"LoadX",
	"VOE",
	"Vidmoly",
	"Filemoon",
	"Luluvdo",
	"Doodstream",
	"Vidoza",
	"SpeedFiles",
	"Streamtape",
}

// lookupThreshold is the minimum Jaro-Winkler similarity for a fuzzy
// provider-name match.
const lookupThreshold = 0.85

// Registry holds the known providers in race priority order.
type Registry struct {
	order     []string
	canonical map[string]string // lowercased name -> canonical name
}

// NewRegistry creates a registry with the given priority order, or
// DefaultOrder when order is empty.
func NewRegistry(order []string) *Registry {
	if len(order) == 0 {
		order = DefaultOrder
	}
	r := &Registry{
		order:     make([]string, len(order)),
		canonical: make(map[string]string, len(order)),
	}
	copy(r.order, order)
	for _, name := range order {
		r.canonical[strings.ToLower(name)] = name
	}
	return r
}

// Order returns the priority order. The slice is a copy; callers may not
// mutate registry state.
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup maps a user-supplied provider name to its canonical form.
// Matching is case-insensitive with a fuzzy fallback, so "voe" and
// "Streamtap" both resolve. Misses return ErrUnknownProvider.
func (r *Registry) Lookup(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownProvider)
	}

	if canonical, ok := r.canonical[strings.ToLower(trimmed)]; ok {
		return canonical, nil
	}

	bestScore := 0.0
	best := ""
	for _, candidate := range r.order {
		score := float64(edlib.JaroWinklerSimilarity(strings.ToLower(trimmed), strings.ToLower(candidate)))
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore >= lookupThreshold {
		return best, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}
