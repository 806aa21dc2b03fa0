// Package transfer executes downloads through yt-dlp.
package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/queue"
)

// progressInterval is how often yt-dlp reports download progress.
const progressInterval = 500 * time.Millisecond

// Engine drives yt-dlp as the download collaborator. It satisfies
// queue.Transferer and provider.Resolver: yt-dlp ships extractors for the
// hosts in the provider registry, so resolution is a simulated run that
// prints the direct media URL.
type Engine struct{}

// NewEngine creates a yt-dlp engine.
func NewEngine() *Engine {
	return &Engine{}
}

// EnsureInstalled downloads a managed yt-dlp binary when none is on PATH.
func EnsureInstalled(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// Transfer downloads the item's resolved link into destDir, feeding
// telemetry through onProgress. An onProgress error aborts the run.
func (e *Engine) Transfer(ctx context.Context, item *media.PlayableItem, destDir string, onProgress func(queue.ProgressEvent) error) error {
	link := item.DirectLink
	if link == "" {
		link = item.URL
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var aborted error
	dl := ytdlp.New().
		NoPlaylist().
		RestrictFilenames().
		Output(filepath.Join(destDir, outputTemplate(item)))

	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		ev := queue.ProgressEvent{
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
			Speed:           speedString(update),
		}
		if err := onProgress(ev); err != nil {
			aborted = err
			cancel()
		}
	})

	if _, err := dl.Run(runCtx, link); err != nil {
		if aborted != nil {
			return aborted
		}
		return fmt.Errorf("yt-dlp: %w", err)
	}
	if aborted != nil {
		return aborted
	}
	return nil
}

// Resolve extracts the direct media URL for a provider embed without
// downloading. It satisfies provider.Resolver.
func (e *Engine) Resolve(ctx context.Context, item *media.PlayableItem, providerName, language string) (string, error) {
	source := item.EmbedLink
	if source == "" {
		source = item.URL
	}

	res, err := ytdlp.New().
		Simulate().
		NoPlaylist().
		GetURL().
		Run(ctx, source)
	if err != nil {
		return "", fmt.Errorf("resolve %s via %s: %w", item.Label(), providerName, err)
	}

	link := firstLine(res.Stdout)
	if link == "" {
		return "", fmt.Errorf("resolve %s via %s: no url extracted", item.Label(), providerName)
	}
	return link, nil
}

// outputTemplate names artifacts by batch convention: season subdirectories
// for episodes, bare title for movies.
func outputTemplate(item *media.PlayableItem) string {
	if item.Kind == media.KindEpisode {
		return filepath.Join(
			fmt.Sprintf("Season %02d", item.Season),
			fmt.Sprintf("%s - S%02dE%02d.%%(ext)s", media.SanitizeTitle(item.Title), item.Season, item.Episode),
		)
	}
	return media.SanitizeTitle(item.Title) + ".%(ext)s"
}

// speedString formats throughput from the bytes downloaded since the run
// started. yt-dlp's own speed string is locked behind its template output.
func speedString(update ytdlp.ProgressUpdate) string {
	if update.Started.IsZero() {
		return ""
	}
	elapsed := time.Since(update.Started).Seconds()
	if elapsed <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1fMB/s", float64(update.DownloadedBytes)/elapsed/1024/1024)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
