package media

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Patterns for streaming-site episode paths, e.g.
// /anime/stream/solo-leveling/staffel-1/episode-7 or .../season-2/episode-3.
var (
	seasonPattern  = regexp.MustCompile(`(?i)(?:staffel|season)-(\d+)`)
	episodePattern = regexp.MustCompile(`(?i)(?:episode|folge)-(\d+)`)
	moviePattern   = regexp.MustCompile(`(?i)(?:filme?|movie)-?(\d*)`)
)

// URLGrouper derives playable items from streaming-site URL structure alone,
// without fetching anything. Site scrapers can replace it with a richer
// implementation; the queue only needs the Grouper interface.
type URLGrouper struct{}

// NewURLGrouper creates a URL-structure based grouper.
func NewURLGrouper() *URLGrouper {
	return &URLGrouper{}
}

// Group parses each URL into a PlayableItem. An unparseable URL fails the
// whole group; a batch should not silently shrink.
func (g *URLGrouper) Group(_ context.Context, urls []string) ([]*PlayableItem, error) {
	items := make([]*PlayableItem, 0, len(urls))
	for _, raw := range urls {
		item, err := g.parse(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (g *URLGrouper) parse(raw string) (*PlayableItem, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse item url %q: %w", raw, err)
	}
	if u.Host == "" || u.Path == "" {
		return nil, fmt.Errorf("parse item url %q: missing host or path", raw)
	}

	item := &PlayableItem{URL: raw, Title: titleFromPath(u.Path)}

	if m := episodePattern.FindStringSubmatch(u.Path); m != nil {
		item.Kind = KindEpisode
		item.Episode, _ = strconv.Atoi(m[1])
		item.Season = 1
		if sm := seasonPattern.FindStringSubmatch(u.Path); sm != nil {
			item.Season, _ = strconv.Atoi(sm[1])
		}
		return item, nil
	}

	// Movies carry no positional info beyond the slug.
	item.Kind = KindMovie
	return item, nil
}

// titleFromPath extracts a display title from the series/movie slug segment.
func titleFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	slug := ""
	for _, seg := range segments {
		if seg == "" || seg == "anime" || seg == "serie" || seg == "stream" {
			continue
		}
		if seasonPattern.MatchString(seg) || episodePattern.MatchString(seg) || moviePattern.MatchString(seg) {
			break
		}
		slug = seg
	}
	if slug == "" && len(segments) > 0 {
		slug = segments[len(segments)-1]
	}
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
