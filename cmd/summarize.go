package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/formatter"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/services"
	"github.com/desertthunder/playsum/internal/shared"
)

// Summarize submits one playlist.
//
// Anonymous callers get the summary inline. Signed-in callers get a background job, which is
// polled to completion with --wait and converted into a conversation with --claim.
func (r *Runner) Summarize(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: playlist URL", shared.ErrMissingArgument)
	}
	claim := cmd.Bool("claim")
	wait := cmd.Bool("wait") || claim
	asJSON := cmd.Bool("json")

	r.logger.Info("summarize requested", "url", url)

	if wait {
		r.live.Store(!asJSON)
		defer r.live.Store(false)
	}

	resp, err := r.tracker.Submit(ctx, url)
	if err != nil {
		var timeout *services.PublicTimeoutError
		if errors.As(err, &timeout) {
			return fmt.Errorf("%w (run 'playsum auth login' to summarize long playlists in the background)", err)
		}
		return err
	}

	if asJSON {
		if err := r.writeJSON(resp, true); err != nil {
			return err
		}
	}

	return resp.Match(
		func(summary models.SummaryResult) error {
			if asJSON {
				return nil
			}
			r.printSummary(summary)
			return nil
		},
		func(job models.Job) error {
			r.rememberJob(job.ID)
			if !asJSON {
				r.writePlain("✓ Job %s queued for %s\n", job.ID, job.SourceURL)
			}
			if !wait {
				r.poller.Clear()
				if !asJSON {
					r.writePlain("Run 'playsum jobs watch %s' to follow it.\n", job.ID)
				}
				return nil
			}
			return r.waitForJob(ctx, job.ID, claim, asJSON)
		},
	)
}

func (r *Runner) printSummary(summary models.SummaryResult) {
	title := "Untitled playlist"
	if summary.PlaylistTitle != nil && *summary.PlaylistTitle != "" {
		title = *summary.PlaylistTitle
	}
	r.writePlainHeader(title)
	r.writePlain("Videos:       %d\n", summary.VideoCount)
	r.writePlain("Conversation: %s\n\n", summary.ConversationID)
	r.writePlain("%s\n", summary.SummaryMarkdown)
}

// waitForJob blocks on the tracked job and reports its outcome. The poller must already track id.
func (r *Runner) waitForJob(ctx context.Context, id string, claim, asJSON bool) error {
	if !asJSON {
		r.writePlain("Waiting for job %s...\n", id)
	}
	job, err := r.poller.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for job %s: %w", id, err)
	}

	if job.Status == models.StatusFailed {
		if asJSON {
			r.writeJSON(job, true)
		}
		return fmt.Errorf("job %s failed: %s", job.ID, job.ErrorMessage.OrElse("unknown error"))
	}

	if !claim {
		if asJSON {
			return r.writeJSON(job, true)
		}
		r.writePlain("✓ Job %s completed in %s\n", job.ID, formatter.Elapsed(job, time.Now()))
		r.writePlain("Run 'playsum jobs claim %s' to open it as a conversation.\n", job.ID)
		return nil
	}

	return r.claimJob(ctx, job.ID, asJSON)
}

func (r *Runner) claimJob(ctx context.Context, id string, asJSON bool) error {
	claimed, err := r.jobs.Claim(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to claim job %s: %w", id, err)
	}
	r.tracker.Select(claimed.ConversationID())

	if asJSON {
		return r.writeJSON(claimed, true)
	}
	r.writePlain("✓ Job %s claimed as conversation %s\n", id, claimed.ConversationID())
	if summary := claimed.Conversation.Summary; summary != "" {
		r.writePlainHeader(claimed.Conversation.DisplayTitle())
		r.writePlain("%s\n", summary)
	}
	return nil
}
