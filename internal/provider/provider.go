// Package provider handles resolving playable items to direct media links
// through external video hosts.
package provider

import (
	"context"

	"github.com/fetcharr/fetcharr/internal/media"
)

// Resolver extracts a direct media link from one host. Implementations live
// in the extractor layer; the queue treats them as black boxes that may fail
// or block until the context is done.
type Resolver interface {
	Resolve(ctx context.Context, item *media.PlayableItem, provider, language string) (string, error)
}

// Resolution is the outcome of a successful provider race.
type Resolution struct {
	Link     string
	Provider string
}
