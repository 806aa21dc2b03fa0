// Package media models the playable items the queue downloads.
package media

import (
	"context"
	"fmt"
)

// Kind distinguishes series episodes from movies.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindMovie   Kind = "movie"
)

// PlayableItem is a single downloadable unit: one episode or one movie.
// The resolution fields are scratch state filled in by provider extractors
// and cleared between attempts.
type PlayableItem struct {
	Kind    Kind
	Title   string
	Season  int
	Episode int
	URL     string // source page URL

	// Resolution state, populated by a Resolver. Partial values left behind
	// by a failed attempt must not leak into the next one.
	DirectLink   string
	EmbedLink    string
	RedirectLink string
}

// ResetResolution clears any partial resolution state so the next provider
// attempt (or the transfer itself) starts clean.
func (i *PlayableItem) ResetResolution() {
	i.DirectLink = ""
	i.EmbedLink = ""
	i.RedirectLink = ""
}

// Label returns a human-readable description used in status messages.
func (i *PlayableItem) Label() string {
	if i.Kind == KindEpisode && i.Episode > 0 {
		return fmt.Sprintf("%s - Episode %d (Season %d)", i.Title, i.Episode, i.Season)
	}
	return i.Title
}

// Grouper turns raw URLs into typed playable items. It is owned by the
// scraping layer; the queue only consumes it.
type Grouper interface {
	Group(ctx context.Context, urls []string) ([]*PlayableItem, error)
}
