package queue

import (
	"database/sql"
	"fmt"
	"time"
)

// historySchema journals terminal jobs so completed history survives
// restarts. The ring in memory stays authoritative for Status.
const historySchema = `
CREATE TABLE IF NOT EXISTS job_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id INTEGER NOT NULL,
	batch_title TEXT NOT NULL,
	item_url TEXT NOT NULL,
	item_index INTEGER NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	batch_progress REAL NOT NULL DEFAULT 0,
	item_progress REAL NOT NULL DEFAULT 0,
	status_message TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	started_at DATETIME,
	finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_job_history_finished_at ON job_history(finished_at);
`

// History persists finished jobs to sqlite. Writes are best-effort; the
// manager logs and continues on failure.
type History struct {
	db *sql.DB
}

// NewHistory creates the journal, applying its schema.
func NewHistory(db *sql.DB) (*History, error) {
	if _, err := db.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record journals one terminal job.
func (h *History) Record(v JobView) error {
	_, err := h.db.Exec(`
		INSERT INTO job_history (job_id, batch_title, item_url, item_index, language, provider,
			status, batch_progress, item_progress, status_message, error_message,
			created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.BatchTitle, v.ItemURL, v.ItemIndex, v.Language, v.Provider,
		v.Status, v.BatchProgress, v.ItemProgress, v.StatusMessage, v.ErrorMessage,
		v.CreatedAt, nullableTime(v.StartedAt), nullableTime(v.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job history: %w", err)
	}
	return nil
}

// Recent returns up to limit most recently journaled jobs in insertion
// order (oldest first), ready to seed the history ring.
func (h *History) Recent(limit int) ([]JobView, error) {
	rows, err := h.db.Query(`
		SELECT job_id, batch_title, item_url, item_index, language, provider,
			status, batch_progress, item_progress, status_message, error_message,
			created_at, started_at, finished_at
		FROM job_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query job history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var views []JobView
	for rows.Next() {
		var v JobView
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.BatchTitle, &v.ItemURL, &v.ItemIndex, &v.Language, &v.Provider,
			&v.Status, &v.BatchProgress, &v.ItemProgress, &v.StatusMessage, &v.ErrorMessage,
			&v.CreatedAt, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan job history: %w", err)
		}
		if startedAt.Valid {
			t := startedAt.Time
			v.StartedAt = &t
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			v.FinishedAt = &t
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job history: %w", err)
	}

	// Newest-first from the query; reverse into insertion order.
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return views, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
