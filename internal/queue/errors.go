package queue

import "errors"

// Sentinel errors for the queue package.
var (
	// ErrEmptyBatch is returned by Submit when the item list is empty.
	ErrEmptyBatch = errors.New("batch contains no items")

	// ErrJobNotFound is returned when a job ID is unknown or already retired.
	ErrJobNotFound = errors.New("job not found")

	// ErrCancelled aborts an in-flight transfer when the owning job's
	// cancellation flag is observed. It marks the job cancelled, not failed.
	ErrCancelled = errors.New("job cancelled")

	// ErrNoArtifact is returned when a transfer reports success but no new
	// file appeared in the destination directory.
	ErrNoArtifact = errors.New("transfer produced no new artifact")

	// ErrShutdown is returned by Submit after Shutdown has been called.
	ErrShutdown = errors.New("queue manager is shut down")
)
