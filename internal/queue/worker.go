package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/provider"
)

// videoExtensions are the artifact types counted when verifying that a
// transfer actually produced output.
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".webm": true,
	".mov": true, ".m4v": true, ".flv": true, ".wmv": true,
}

// runJob executes one dispatched job end to end: group, resolve, transfer,
// verify, retire. Every failure is converted into a terminal job state;
// nothing escapes to the scheduling loop.
func (m *Manager) runJob(ctx context.Context, j *Job) {
	defer m.workers.Done()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("worker panic", "job_id", j.ID, "panic", r)
			m.retire(j, StatusFailed, fmt.Sprintf("internal error: %v", r))
		}
	}()

	m.log.Info("job started", "job_id", j.ID, "url", j.ItemURL, "index", j.ItemIndex)

	items, err := m.deps.Grouper.Group(ctx, []string{j.ItemURL})
	if err == nil && len(items) != 1 {
		err = fmt.Errorf("expected one playable item, got %d", len(items))
	}
	if err != nil {
		if m.finishCancelled(j) {
			return
		}
		m.retire(j, StatusFailed, fmt.Sprintf("failed to process item URL: %v", err))
		return
	}
	item := items[0]

	link, providerName, err := m.resolveLink(ctx, j, item)
	if err != nil {
		if m.finishCancelled(j) {
			return
		}
		m.retire(j, StatusFailed, err.Error())
		return
	}
	item.DirectLink = link
	m.log.Info("link resolved", "job_id", j.ID, "provider", providerName)

	destDir := filepath.Join(m.opts.DestRoot, media.SanitizeTitle(j.BatchTitle))
	before := countArtifacts(destDir)

	bridge := m.newBridge(j, item.Label())
	m.setMessage(j, fmt.Sprintf("Downloading %s", item.Label()))

	err = m.deps.Transfer.Transfer(ctx, item, destDir, bridge.Update)
	if m.finishCancelled(j) {
		return
	}
	if err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			m.retire(j, StatusCancelled, "")
			return
		}
		m.retire(j, StatusFailed, fmt.Sprintf("transfer failed: %v", err))
		return
	}

	// The engine's return value is the primary success signal; the artifact
	// count guards against engines that exit clean without writing anything.
	if countArtifacts(destDir) <= before {
		m.retire(j, StatusFailed, ErrNoArtifact.Error())
		return
	}

	m.retire(j, StatusCompleted, "")
}

// resolveLink produces a direct media link, either through the pinned
// provider or by racing the registry order.
func (m *Manager) resolveLink(ctx context.Context, j *Job, item *media.PlayableItem) (link, providerName string, err error) {
	if j.Provider != "" {
		m.setMessage(j, fmt.Sprintf("Resolving via %s...", j.Provider))
		attemptCtx, cancel := context.WithTimeout(ctx, m.opts.ProviderTimeout)
		defer cancel()

		link, err = m.deps.Resolver.Resolve(attemptCtx, item, j.Provider, j.Language)
		if err == nil && link == "" {
			err = fmt.Errorf("provider %s returned no link", j.Provider)
		}
		if err != nil {
			return "", "", fmt.Errorf("resolve via %s: %w", j.Provider, err)
		}
		return link, j.Provider, nil
	}

	res, err := provider.Race(ctx, m.deps.Resolver, item, j.Language,
		m.deps.Providers.Order(), m.opts.ProviderTimeout,
		func(msg string) { m.setMessage(j, msg) })
	if err != nil {
		return "", "", fmt.Errorf("resolve: %w", err)
	}
	return res.Link, res.Provider, nil
}

// finishCancelled retires the job as cancelled if its flag was set,
// reporting whether it did.
func (m *Manager) finishCancelled(j *Job) bool {
	if !j.CancelRequested() {
		return false
	}
	m.retire(j, StatusCancelled, "")
	return true
}

// countArtifacts counts video files under dir, recursively. A missing
// directory counts as zero.
func countArtifacts(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are not artifacts
		}
		if !d.IsDir() && videoExtensions[strings.ToLower(filepath.Ext(path))] {
			count++
		}
		return nil
	})
	return count
}
