package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/provider"
)

// fakeGrouper derives one episode item per URL without any scraping.
type fakeGrouper struct {
	err error
}

func (g *fakeGrouper) Group(_ context.Context, urls []string) ([]*media.PlayableItem, error) {
	if g.err != nil {
		return nil, g.err
	}
	items := make([]*media.PlayableItem, 0, len(urls))
	for _, u := range urls {
		items = append(items, &media.PlayableItem{
			Kind:    media.KindEpisode,
			Title:   "Test Show",
			Season:  1,
			Episode: 1,
			URL:     u,
		})
	}
	return items, nil
}

type fakeResolver struct {
	link  string
	err   error
	calls atomic.Int64
}

func (r *fakeResolver) Resolve(_ context.Context, _ *media.PlayableItem, _, _ string) (string, error) {
	r.calls.Add(1)
	if r.err != nil {
		return "", r.err
	}
	if r.link == "" {
		return "https://cdn.example.com/video.mp4", nil
	}
	return r.link, nil
}

// fakeTransfer simulates the download engine. On success it writes one video
// file named after the item URL, so artifact verification passes. A non-nil
// gate blocks the transfer until the gate closes or the context ends.
type fakeTransfer struct {
	err    error
	gate   chan struct{}
	events []ProgressEvent

	started   atomic.Int64
	active    atomic.Int64
	maxActive atomic.Int64
}

func (f *fakeTransfer) Transfer(ctx context.Context, item *media.PlayableItem, destDir string, onProgress func(ProgressEvent) error) error {
	f.started.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		old := f.maxActive.Load()
		if cur <= old || f.maxActive.CompareAndSwap(old, cur) {
			break
		}
	}

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, ev := range f.events {
		if err := onProgress(ev); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	return writeArtifact(destDir, item)
}

// noWriteTransfer reports success without producing any output file.
type noWriteTransfer struct{}

func (noWriteTransfer) Transfer(_ context.Context, _ *media.PlayableItem, _ string, _ func(ProgressEvent) error) error {
	return nil
}

func writeArtifact(destDir string, item *media.PlayableItem) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s.mp4", filepath.Base(item.URL))
	return os.WriteFile(filepath.Join(destDir, name), []byte("video"), 0o644)
}

// newTestManager builds a Manager with fast scheduler ticks and fake
// collaborators for anything left nil in deps.
func newTestManager(t *testing.T, deps Deps, opts Options) *Manager {
	t.Helper()

	if deps.Resolver == nil {
		deps.Resolver = &fakeResolver{}
	}
	if deps.Providers == nil {
		deps.Providers = provider.NewRegistry(nil)
	}
	if deps.Grouper == nil {
		deps.Grouper = &fakeGrouper{}
	}
	if opts.DestRoot == "" {
		opts.DestRoot = t.TempDir()
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	if opts.ProviderTimeout == 0 {
		opts.ProviderTimeout = 200 * time.Millisecond
	}

	m := NewManager(deps, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, m.Shutdown(ctx))
	})
	return m
}

// testURLs returns n distinct item URLs.
func testURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/anime/stream/test-show/staffel-1/episode-%d", i+1)
	}
	return urls
}
