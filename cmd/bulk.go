package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/tasks"
)

// Bulk submits every playlist URL in a file. Blank lines and lines starting with # are ignored.
func (r *Runner) Bulk(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	urls, err := readURLs(path)
	if err != nil {
		return err
	}

	r.logger.Info("bulk submission", "file", path, "count", len(urls))
	asJSON := cmd.Bool("json")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if asJSON || update.Phase == tasks.SubmitURL {
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.submitter.BulkSubmit(ctx, progressCh, urls, tasks.BulkSubmitOpts{
		NumWorkers: cmd.Int("workers"),
		OnJob: func(job models.Job) {
			r.jobs.AddJob(job)
			r.rememberJob(job.ID)
		},
	})
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	if asJSON {
		if werr := r.writeJSON(bulkJSON(result), true); werr != nil {
			return werr
		}
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Bulk Submission Complete!")
	r.writePlain("Submitted: %d/%d\n", result.Submitted, result.Total)
	if result.Failed > 0 {
		r.writePlain("Failed:    %d\n", result.Failed)
	}
	if result.Skipped > 0 {
		r.writePlain("Skipped:   %d (job limit reached; resubmit once jobs finish)\n", result.Skipped)
	}
	return err
}

type bulkResultJSON struct {
	URL            string `json:"url"`
	JobID          string `json:"job_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	Error          string `json:"error,omitempty"`
}

func bulkJSON(result *tasks.BulkSubmitResult) map[string]any {
	rows := make([]bulkResultJSON, 0, len(result.Results))
	for _, res := range result.Results {
		row := bulkResultJSON{URL: res.URL, JobID: res.JobID, ConversationID: res.ConversationID, Skipped: res.Skipped}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		rows = append(rows, row)
	}
	return map[string]any{
		"total":     result.Total,
		"submitted": result.Submitted,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
		"results":   rows,
	}
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return urls, nil
}
