package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/desertthunder/playsum/internal/shared"
)

// Status is the lifecycle state of a background [Job].
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed}

// IsTerminal reports whether no further transitions can happen.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the job is still queued or being processed.
func IsActive(s Status) bool {
	return s == StatusPending || s == StatusRunning
}

// ParseStatus converts a wire value into a [Status].
func ParseStatus(value string) (Status, error) {
	for _, s := range Statuses {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown job status %q", shared.ErrInvalidInput, value)
}

func (s Status) String() string {
	return string(s)
}

// Job is a server-tracked summarization task.
type Job struct {
	ID           string
	Status       Status
	SourceURL    string
	ErrorMessage mo.Option[string]
	CreatedAt    time.Time
	StartedAt    mo.Option[time.Time]
	CompletedAt  mo.Option[time.Time]
}

// IsTerminal reports whether the job has completed or failed.
func (j Job) IsTerminal() bool { return IsTerminal(j.Status) }

// IsActive reports whether the job is pending or running.
func (j Job) IsActive() bool { return IsActive(j.Status) }

// Validate checks the lifecycle invariants of the record:
//   - a pending job has not started
//   - completedAt is set iff the status is terminal
//   - an error message only accompanies a failed job
func (j Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: job id is empty", shared.ErrInvalidInput)
	}
	if _, err := ParseStatus(string(j.Status)); err != nil {
		return err
	}
	if j.Status == StatusPending && j.StartedAt.IsPresent() {
		return fmt.Errorf("%w: pending job %s has a start time", shared.ErrInvalidInput, j.ID)
	}
	if j.IsTerminal() != j.CompletedAt.IsPresent() {
		return fmt.Errorf("%w: job %s is %s but completed_at presence is %t",
			shared.ErrInvalidInput, j.ID, j.Status, j.CompletedAt.IsPresent())
	}
	if j.ErrorMessage.IsPresent() && j.Status != StatusFailed {
		return fmt.Errorf("%w: job %s is %s but carries an error message", shared.ErrInvalidInput, j.ID, j.Status)
	}
	return nil
}

type jobWire struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	PlaylistURL  string     `json:"playlist_url"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// MarshalJSON encodes the job with the server's field names; absent options become null.
func (j Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(jobWire{
		ID:           j.ID,
		Status:       j.Status,
		PlaylistURL:  j.SourceURL,
		ErrorMessage: j.ErrorMessage.ToPointer(),
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt.ToPointer(),
		CompletedAt:  j.CompletedAt.ToPointer(),
	})
}

// UnmarshalJSON decodes a server job record. Unknown statuses are rejected.
func (j *Job) UnmarshalJSON(data []byte) error {
	var w jobWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	status, err := ParseStatus(string(w.Status))
	if err != nil {
		return err
	}

	*j = Job{
		ID:           w.ID,
		Status:       status,
		SourceURL:    w.PlaylistURL,
		ErrorMessage: mo.PointerToOption(w.ErrorMessage),
		CreatedAt:    w.CreatedAt,
		StartedAt:    mo.PointerToOption(w.StartedAt),
		CompletedAt:  mo.PointerToOption(w.CompletedAt),
	}
	return nil
}

// JobIndex returns the position of the job with id in jobs, or -1.
func JobIndex(jobs []Job, id string) int {
	for i, j := range jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}
