package queue

import (
	"encoding/json"
	"time"
)

// Backoff types supported for retry scheduling.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Backoff describes the retry delay policy of a job.
type Backoff struct {
	Type  string        `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Job is a unit of queued work tagged with the app installation and the
// logical chat it belongs to.
type Job struct {
	ID           string          `json:"id"`
	Queue        string          `json:"queue"`
	App          string          `json:"app"`
	Session      string          `json:"session"`
	Event        string          `json:"event"`
	Payload      json.RawMessage `json:"payload"`
	AttemptsMade int             `json:"attempts_made"`
	MaxAttempts  int             `json:"max_attempts"`
	Backoff      Backoff         `json:"backoff"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
}

// AttemptNumber returns the 1-based number of the attempt currently running
// (or about to run).
func (j *Job) AttemptNumber() int {
	return j.AttemptsMade + 1
}

// HasBeenRetried reports whether the job is past its first attempt.
func (j *Job) HasBeenRetried() bool {
	return j.AttemptNumber() > 1
}

// NextAttemptDelay computes the delay before the next attempt. The second
// return is false when there is no next attempt (final attempt, or no backoff
// configured) and the job will dead-letter on failure.
func NextAttemptDelay(j *Job) (time.Duration, bool) {
	if j.AttemptNumber() >= j.MaxAttempts {
		return 0, false
	}
	switch j.Backoff.Type {
	case BackoffFixed:
		return j.Backoff.Delay, true
	case BackoffExponential:
		delay := j.Backoff.Delay
		for i := 1; i < j.AttemptNumber(); i++ {
			delay *= 2
		}
		return delay, true
	default:
		return 0, false
	}
}
