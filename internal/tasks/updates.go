package tasks

import (
	"fmt"

	"github.com/desertthunder/playsum/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SubmitURL Phase = iota
	SubmitDone
	SubmitFailed
	SubmitSkipped
	PollJob
)

func (p Phase) String() string {
	switch p {
	case SubmitURL:
		return "submit_url"
	case SubmitDone:
		return "submit_done"
	case SubmitFailed:
		return "submit_failed"
	case SubmitSkipped:
		return "submit_skipped"
	case PollJob:
		return "poll_job"
	default:
		return ""
	}
}

func submittingUpdate(step, total int, url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitURL,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Submitting %s...", step, total, url),
	}
}

func submittedUpdate(step, total int, res SubmitResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.URL)
	switch {
	case res.JobID != "":
		msg += fmt.Sprintf(" (job %s)", res.JobID)
	case res.ConversationID != "":
		msg += fmt.Sprintf(" (conversation %s)", res.ConversationID)
	}
	return ProgressUpdate{Phase: SubmitDone, Step: step, Total: total, Message: msg, Data: res}
}

func submitFailedUpdate(step, total int, res SubmitResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.URL, res.Err),
		Data:    res,
	}
}

func submitSkippedUpdate(step, total int, url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitSkipped,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s skipped (job limit reached)", step, total, url),
	}
}

func polledUpdate(job models.Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PollJob,
		Message: fmt.Sprintf("Job %s is %s", job.ID, job.Status),
		Data:    job,
	}
}
