package queue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/metrics"
	"github.com/fetcharr/fetcharr/internal/provider"
)

// Transferer performs the actual download of a resolved item. It is owned by
// the download engine; onProgress is invoked per telemetry tick and its
// error return aborts the transfer.
type Transferer interface {
	Transfer(ctx context.Context, item *media.PlayableItem, destDir string, onProgress func(ProgressEvent) error) error
}

// Deps are the collaborators a Manager drives. Resolver, Providers, Transfer
// and Grouper are required; History and Metrics are optional.
type Deps struct {
	Resolver  provider.Resolver
	Providers *provider.Registry
	Transfer  Transferer
	Grouper   media.Grouper
	History   *History
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Options tune a Manager.
type Options struct {
	DestRoot        string        // destination root; jobs write under per-batch subdirectories
	MaxConcurrent   int           // parallel transfer limit, default 3
	HistorySize     int           // completed-history ring capacity, default 10
	PollInterval    time.Duration // scheduler idle sleep, default 2s
	ProviderTimeout time.Duration // per-attempt resolution deadline, default 5s
}

// Snapshot is a point-in-time, consistent view of the queue.
type Snapshot struct {
	Active    []JobView `json:"active"`
	Completed []JobView `json:"completed"`
}

// Manager owns the job table, the scheduling loop, and the completed-history
// ring. Construct one per process and pass it around; there is no package
// singleton.
type Manager struct {
	deps Deps
	opts Options
	log  *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	jobs      map[int64]*Job
	completed []JobView
	nextID    int64
	running   int
	maxConc   int
	started   bool
	stopped   bool
	stopCh    chan struct{}
	schedDone chan struct{}
	workers   sync.WaitGroup
}

// NewManager creates a queue manager. The scheduling loop starts lazily on
// the first Submit.
func NewManager(deps Deps, opts Options) *Manager {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 3
	}
	if opts.HistorySize < 1 {
		opts.HistorySize = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 5 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		deps:       deps,
		opts:       opts,
		log:        deps.Logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		jobs:       make(map[int64]*Job),
		maxConc:    opts.MaxConcurrent,
		stopCh:     make(chan struct{}),
		schedDone:  make(chan struct{}),
	}
}

// Submit creates one queued job per item URL, in input order, and returns
// the job IDs in the same order. providerName may be empty or "auto" for
// auto-resolution; anything else must match a registered provider. Submit
// never touches the network.
func (m *Manager) Submit(batchTitle string, itemURLs []string, language, providerName string) ([]int64, error) {
	if len(itemURLs) == 0 {
		return nil, ErrEmptyBatch
	}

	pinned := ""
	if name := strings.TrimSpace(providerName); name != "" && !strings.EqualFold(name, "auto") {
		canonical, err := m.deps.Providers.Lookup(name)
		if err != nil {
			return nil, err
		}
		pinned = canonical
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	ids := make([]int64, 0, len(itemURLs))
	now := time.Now()
	for i, url := range itemURLs {
		m.nextID++
		job := &Job{
			ID:         m.nextID,
			BatchTitle: batchTitle,
			ItemURL:    url,
			ItemIndex:  i + 1,
			Language:   language,
			Provider:   pinned,
			Status:     StatusQueued,
			CreatedAt:  now,
		}
		m.jobs[job.ID] = job
		ids = append(ids, job.ID)
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.ensureScheduler()
	m.deps.Metrics.JobsSubmitted(len(ids))
	m.log.Info("batch submitted", "title", batchTitle, "items", len(ids), "provider", providerName)
	return ids, nil
}

// Status returns a consistent snapshot: active holds queued and running jobs
// in ID order, completed the retained history in insertion order.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	active := make([]JobView, 0, len(ids))
	for _, id := range ids {
		active = append(active, m.jobs[id].View())
	}
	return Snapshot{Active: active, Completed: slices.Clone(m.completed)}
}

// Counts reports the number of queued and running jobs.
func (m *Manager) Counts() (queued, running int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Status == StatusQueued {
			queued++
		}
	}
	return queued, m.running
}

// Cancel requests cancellation of a job. A queued job is removed
// immediately; a running one is flagged and the worker observes the flag at
// its next progress tick (advisory, not preemptive). Returns false for
// unknown or already-terminal jobs, so a second Cancel of the same job
// reports failure.
func (m *Manager) Cancel(id int64) bool {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return false
	}

	switch j.Status {
	case StatusQueued:
		delete(m.jobs, id)
		m.updateGaugesLocked()
		m.mu.Unlock()
		m.deps.Metrics.JobFinished(string(StatusCancelled))
		m.log.Info("cancelled queued job", "job_id", id)
		return true
	case StatusRunning:
		j.cancelled.Store(true)
		if j.cancelRun != nil {
			j.cancelRun()
		}
		m.mu.Unlock()
		m.log.Info("cancelling running job", "job_id", id)
		return true
	default:
		m.mu.Unlock()
		return false
	}
}

// SetMaxConcurrent adjusts the concurrency limit. It takes effect on the
// next scheduler pass: raising it admits more queued jobs, lowering it stops
// admission until running jobs drain below the new limit.
func (m *Manager) SetMaxConcurrent(n int) error {
	if n < 1 {
		return fmt.Errorf("max concurrent must be at least 1, got %d", n)
	}
	m.mu.Lock()
	m.maxConc = n
	m.mu.Unlock()
	m.log.Info("concurrency limit changed", "max_concurrent", n)
	return nil
}

// MaxConcurrent returns the current concurrency limit.
func (m *Manager) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxConc
}

// RestoreCompleted seeds the history ring, oldest first. Used at startup to
// replay the journal; not safe once jobs are running.
func (m *Manager) RestoreCompleted(views []JobView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range views {
		m.pushCompletedLocked(v)
	}
}

// Shutdown stops admitting work, flags all running jobs to cancel, and
// waits for in-flight workers until ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	started := m.started
	for _, j := range m.jobs {
		if j.Status == StatusRunning {
			j.cancelled.Store(true)
		}
	}
	m.mu.Unlock()

	if started {
		close(m.stopCh)
	}
	m.baseCancel()

	done := make(chan struct{})
	go func() {
		if started {
			<-m.schedDone
		}
		m.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.log.Info("queue manager stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain queue: %w", ctx.Err())
	}
}

// ensureScheduler starts the scheduling loop once.
func (m *Manager) ensureScheduler() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true
	go m.run()
	m.log.Info("queue processor started", "max_concurrent", m.maxConc)
}

// run is the scheduling loop: a single goroutine that polls for free slots.
// Workers never block it; its only suspension point is the idle sleep.
func (m *Manager) run() {
	defer close(m.schedDone)
	for {
		m.dispatch()
		select {
		case <-m.stopCh:
			return
		case <-time.After(m.opts.PollInterval):
		}
	}
}

// dispatch admits up to the free slot count of queued jobs, FIFO by ID.
// Each admitted job transitions to running before its worker launches, so a
// racing Status never sees a job both queued and dispatched.
func (m *Manager) dispatch() {
	type launch struct {
		job *Job
		ctx context.Context
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	slots := m.maxConc - m.running
	if slots <= 0 {
		m.mu.Unlock()
		return
	}

	ids := make([]int64, 0, len(m.jobs))
	for id, j := range m.jobs {
		if j.Status == StatusQueued {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > slots {
		ids = ids[:slots]
	}

	launches := make([]launch, 0, len(ids))
	now := time.Now()
	for _, id := range ids {
		j := m.jobs[id]
		j.Status = StatusRunning
		started := now
		j.StartedAt = &started
		j.StatusMessage = "Starting download..."
		ctx, cancel := context.WithCancel(m.baseCtx)
		j.cancelRun = cancel
		m.running++
		launches = append(launches, launch{job: j, ctx: ctx})
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	for _, l := range launches {
		m.workers.Add(1)
		go m.runJob(l.ctx, l.job)
	}
	if len(launches) > 0 {
		m.log.Debug("dispatched jobs", "count", len(launches))
	}
}

// setMessage updates a live job's status message.
func (m *Manager) setMessage(j *Job, msg string) {
	m.mu.Lock()
	if _, ok := m.jobs[j.ID]; ok {
		j.StatusMessage = msg
	}
	m.mu.Unlock()
}

// updateProgress applies a progress-bridge report to a live running job.
func (m *Manager) updateProgress(j *Job, itemPct, batchPct float64, msg string) {
	m.mu.Lock()
	if _, ok := m.jobs[j.ID]; ok && j.Status == StatusRunning {
		j.ItemProgress = clampPercent(itemPct)
		j.BatchProgress = clampPercent(batchPct)
		j.StatusMessage = msg
	}
	m.mu.Unlock()
}

// retire moves a job to its terminal state and into the history ring,
// atomically with respect to Status. The journal write happens outside the
// lock and is best-effort.
func (m *Manager) retire(j *Job, status Status, errMsg string) {
	m.mu.Lock()
	if _, ok := m.jobs[j.ID]; !ok {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	j.Status = status
	j.FinishedAt = &now
	switch status {
	case StatusCompleted:
		j.ItemProgress = 100
		j.BatchProgress = 100
		j.StatusMessage = fmt.Sprintf("Completed %s", j.BatchTitle)
		j.ErrorMessage = ""
	case StatusFailed:
		j.ErrorMessage = errMsg
		j.StatusMessage = errMsg
	case StatusCancelled:
		j.ErrorMessage = "Cancelled by user"
		j.StatusMessage = "Cancelled by user"
	}
	delete(m.jobs, j.ID)
	m.running--
	view := j.View()
	m.pushCompletedLocked(view)
	m.updateGaugesLocked()
	m.mu.Unlock()

	if m.deps.History != nil {
		if err := m.deps.History.Record(view); err != nil {
			m.log.Error("history record failed", "job_id", j.ID, "error", err)
		}
	}
	m.deps.Metrics.JobFinished(string(status))
	if status == StatusFailed {
		m.log.Warn("job failed", "job_id", j.ID, "error", errMsg)
	} else {
		m.log.Info("job finished", "job_id", j.ID, "status", status)
	}
}

// pushCompletedLocked appends to the history ring, evicting oldest first.
func (m *Manager) pushCompletedLocked(v JobView) {
	m.completed = append(m.completed, v)
	if excess := len(m.completed) - m.opts.HistorySize; excess > 0 {
		m.completed = append(m.completed[:0:0], m.completed[excess:]...)
	}
}

// updateGaugesLocked refreshes the queued/running gauges.
func (m *Manager) updateGaugesLocked() {
	queued := 0
	for _, j := range m.jobs {
		if j.Status == StatusQueued {
			queued++
		}
	}
	m.deps.Metrics.SetQueued(queued)
	m.deps.Metrics.SetRunning(m.running)
}
