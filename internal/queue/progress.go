package queue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ProgressEvent is one low-level telemetry tick from the transfer engine.
// Engines rarely fill every field; the bridge picks the best signal present.
type ProgressEvent struct {
	Percent         string // e.g. "42.3%", engine-formatted
	DownloadedBytes int64
	TotalBytes      int64
	FragmentIndex   int
	FragmentCount   int
	Speed           string
	ETA             string
}

// itemPercent derives a percentage from the event. Resolution order: the
// explicit percent string, then byte counts, then fragment counts. Returns
// false when the event carries no usable signal yet.
func (ev ProgressEvent) itemPercent() (float64, bool) {
	if s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(ev.Percent), "%")); s != "" {
		if pct, err := strconv.ParseFloat(s, 64); err == nil {
			return clampPercent(pct), true
		}
	}
	if ev.TotalBytes > 0 {
		return clampPercent(float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * 100), true
	}
	if ev.FragmentCount > 0 {
		return clampPercent(float64(ev.FragmentIndex) / float64(ev.FragmentCount) * 100), true
	}
	return 0, false
}

func clampPercent(pct float64) float64 {
	return min(100, max(0, pct))
}

// ansiCodes matches terminal color escapes that engines leak into their
// speed/ETA strings.
var ansiCodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return strings.TrimSpace(ansiCodes.ReplaceAllString(s, ""))
}

// Bridge adapts the engine's high-frequency progress stream into job-level
// percentages. It is also the single cancellation point during a transfer:
// every event checks the owning job's flag and aborts with ErrCancelled.
//
// A bridge belongs to one worker goroutine; it is not safe for concurrent
// use.
type Bridge struct {
	m     *Manager
	job   *Job
	label string

	// completedItems/totalItems generalize the batch formula. With one item
	// per job they are 0 and 1 until the transfer finishes.
	completedItems int
	totalItems     int

	last float64 // highest percentage reported so far
}

func (m *Manager) newBridge(j *Job, label string) *Bridge {
	return &Bridge{m: m, job: j, label: label, totalItems: 1}
}

// Update consumes one progress event. Reported item percentages are
// monotonic: an event that computes lower than the last report is dropped
// (multi-stream engines emit out-of-order ticks).
func (b *Bridge) Update(ev ProgressEvent) error {
	if b.job.CancelRequested() {
		return ErrCancelled
	}

	pct, ok := ev.itemPercent()
	if !ok || pct < b.last {
		return nil
	}
	b.last = pct

	msg := fmt.Sprintf("Downloading %s - %.1f%%", b.label, pct)
	if speed := stripANSI(ev.Speed); speed != "" {
		msg += " | Speed: " + speed
	}
	if eta := stripANSI(ev.ETA); eta != "" {
		msg += " | ETA: " + eta
	}

	b.m.updateProgress(b.job, pct, b.batchPercent(pct), msg)
	return nil
}

// batchPercent folds the current item's fraction into the batch total:
// (completed + itemPct/100) / total * 100.
func (b *Bridge) batchPercent(itemPct float64) float64 {
	if b.totalItems == 0 {
		return 0
	}
	return clampPercent((float64(b.completedItems) + itemPct/100) / float64(b.totalItems) * 100)
}
