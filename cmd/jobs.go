package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/formatter"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/repositories"
	"github.com/desertthunder/playsum/internal/shared"
	"github.com/desertthunder/playsum/internal/tasks"
)

func requireID(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return id, nil
}

// filterJobs selects a status view by name. "" and "all" return every job.
func filterJobs(views tasks.JobViews, status string) ([]models.Job, error) {
	switch status {
	case "", "all":
		return views.All, nil
	case "active":
		return views.Active, nil
	}

	s, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: --status %q", shared.ErrInvalidArgument, status)
	}
	switch s {
	case models.StatusPending:
		return views.Pending, nil
	case models.StatusRunning:
		return views.Running, nil
	case models.StatusCompleted:
		return views.Completed, nil
	default:
		return views.Failed, nil
	}
}

// JobsList prints the job collection, optionally filtered by status.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	views, err := r.jobs.List(ctx)
	if err != nil {
		return err
	}
	jobs, err := filterJobs(views, cmd.String("status"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if jobs == nil {
			jobs = []models.Job{}
		}
		return r.writeJSON(jobs, true)
	}

	if len(jobs) == 0 {
		r.writePlain("No jobs found.\n")
		return nil
	}
	if err := formatter.JobsTable(r.output, jobs, time.Now()); err != nil {
		return fmt.Errorf("failed to render jobs: %w", err)
	}
	r.writePlain("%d active • %d completed • %d failed\n", len(views.Active), len(views.Completed), len(views.Failed))
	return nil
}

// JobsGet prints one job fetched from the server.
func (r *Runner) JobsGet(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	job, err := r.gateway.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch job %s: %w", id, err)
	}
	r.jobs.UpdateJob(job)

	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}

	r.writePlainHeader("Job " + job.ID)
	r.writePlain("Status:    %s\n", job.Status)
	r.writePlain("Playlist:  %s\n", job.SourceURL)
	r.writePlain("Created:   %s\n", job.CreatedAt.Local().Format(time.DateTime))
	r.writePlain("Elapsed:   %s\n", formatter.Elapsed(job, time.Now()))
	if msg, ok := job.ErrorMessage.Get(); ok {
		r.writePlain("Error:     %s\n", msg)
	}
	return nil
}

// JobsClaim converts a completed job into a conversation.
func (r *Runner) JobsClaim(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	return r.claimJob(ctx, id, false)
}

// JobsRetry resets a failed job, optionally waiting for the new attempt.
func (r *Runner) JobsRetry(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	wait := cmd.Bool("wait")
	if wait {
		r.live.Store(true)
		defer r.live.Store(false)
	}

	job, err := r.tracker.Retry(ctx, id)
	if err != nil {
		return err
	}
	r.rememberJob(job.ID)
	r.writePlain("✓ Job %s is %s again\n", job.ID, job.Status)

	if !wait {
		r.poller.Clear()
		return nil
	}
	return r.waitForJob(ctx, job.ID, false, false)
}

// JobsDelete deletes a job.
func (r *Runner) JobsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.jobs.Delete(ctx, id); err != nil {
		return err
	}
	r.writePlain("✓ Deleted job %s\n", id)
	return nil
}

// JobsWatch polls a job until it completes or fails. Without an id the last submitted job is watched.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		last, err := r.lastJob()
		if err != nil {
			return err
		}
		id = last
	}

	r.live.Store(true)
	defer r.live.Store(false)

	r.tracker.Watch(ctx, id)
	return r.waitForJob(ctx, id, cmd.Bool("claim"), false)
}

func (r *Runner) lastJob() (string, error) {
	if r.prefs == nil {
		return "", fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}
	id, err := r.prefs.Get(repositories.LastJobKey)
	if errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("%w: job id (no job has been submitted yet)", shared.ErrMissingArgument)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
