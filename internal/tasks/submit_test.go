package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/services"
	"github.com/desertthunder/playsum/internal/shared"
	tu "github.com/desertthunder/playsum/internal/testing"
)

func jobLimitError(limit int) error {
	return &services.JobLimitError{
		APIError: services.APIError{Status: http.StatusTooManyRequests, Message: "job limit reached"},
		Limit:    limit,
	}
}

func asyncFor(id string) models.SubmitResponse {
	return models.NewAsyncResponse(job(id, models.StatusPending))
}

func TestValidatePlaylistURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"https playlist", "https://www.youtube.com/playlist?list=PL1", "https://www.youtube.com/playlist?list=PL1", true},
		{"trims whitespace", "  http://youtube.com/playlist?list=PL2\n", "http://youtube.com/playlist?list=PL2", true},
		{"empty", "   ", "", false},
		{"missing scheme", "youtube.com/playlist?list=PL1", "", false},
		{"wrong scheme", "ftp://youtube.com/playlist", "", false},
		{"missing host", "https:///playlist", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidatePlaylistURL(tc.input)
			if !tc.ok {
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSubmitter(t *testing.T) {
	ctx := context.Background()
	const url = "https://www.youtube.com/playlist?list=PL1"

	t.Run("returns the inline summary for anonymous callers", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.NewSyncResponse(models.SummaryResult{ConversationID: "c1", VideoCount: 4}), nil
		}}
		s := NewSubmitter(gw, 10, quietLogger())

		resp, err := s.Submit(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, models.ModeSync, resp.Mode())
		summary, ok := resp.Sync()
		require.True(t, ok)
		assert.Equal(t, "c1", summary.ConversationID)
		_, ok = resp.Async()
		assert.False(t, ok)
	})

	t.Run("rejects invalid URLs without a request", func(t *testing.T) {
		gw := &tu.MockGateway{}
		s := NewSubmitter(gw, 10, quietLogger())

		_, err := s.Submit(ctx, "not a url")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Zero(t, gw.Calls("Summarize"))
	})

	t.Run("fails fast once the client budget is spent", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return asyncFor("j1"), nil
		}}
		s := NewSubmitter(gw, 1, quietLogger())

		_, err := s.Submit(ctx, url)
		require.NoError(t, err)
		_, err = s.Submit(ctx, url)
		assert.ErrorIs(t, err, shared.ErrRateLimited)
		assert.ErrorContains(t, err, services.RateLimitedMessage)
		assert.Equal(t, 1, gw.Calls("Summarize"))
	})

	t.Run("surfaces the job limit with its count", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.SubmitResponse{}, jobLimitError(3)
		}}
		s := NewSubmitter(gw, 10, quietLogger())

		_, err := s.Submit(ctx, url)
		var limitErr *services.JobLimitError
		require.True(t, errors.As(err, &limitErr))
		assert.Equal(t, 3, limitErr.Limit)
		assert.ErrorIs(t, err, shared.ErrJobLimit)
		assert.Contains(t, err.Error(), "3 jobs in progress")
	})

	t.Run("surfaces the public timeout", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.SubmitResponse{}, &services.PublicTimeoutError{
				APIError: services.APIError{Status: http.StatusRequestTimeout, Message: "sign in to summarize long playlists"},
			}
		}}
		s := NewSubmitter(gw, 10, quietLogger())

		_, err := s.Submit(ctx, url)
		assert.ErrorIs(t, err, shared.ErrPublicTimeout)
		var timeoutErr *services.PublicTimeoutError
		assert.True(t, errors.As(err, &timeoutErr))
	})

	t.Run("SubmitWait waits for the budget", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return asyncFor("j1"), nil
		}}
		s := NewSubmitter(gw, 1, quietLogger())
		_, err := s.SubmitWait(ctx, url)
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = s.SubmitWait(cctx, url)
		assert.Error(t, err)
		assert.Equal(t, 1, gw.Calls("Summarize"))
	})
}

func TestBulkSubmit(t *testing.T) {
	ctx := context.Background()
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.youtube.com/playlist?list=PL%d", i)
	}

	t.Run("submits every URL", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return asyncFor("job-" + u[len(u)-1:]), nil
		}}
		s := NewSubmitter(gw, 1000, quietLogger())

		var created []string
		onJob := make(chan string, len(urls))
		res, err := s.BulkSubmit(ctx, nil, urls, BulkSubmitOpts{NumWorkers: 3, OnJob: func(j models.Job) { onJob <- j.ID }})
		require.NoError(t, err)
		close(onJob)
		for id := range onJob {
			created = append(created, id)
		}

		assert.Equal(t, 5, res.Total)
		assert.Equal(t, 5, res.Submitted)
		assert.Zero(t, res.Failed)
		assert.Zero(t, res.Skipped)
		assert.Len(t, created, 5)
		for i, r := range res.Results {
			assert.Equal(t, urls[i], r.URL)
			assert.Equal(t, fmt.Sprintf("job-%d", i), r.JobID)
		}
	})

	t.Run("records conversations for sync responses", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.NewSyncResponse(models.SummaryResult{ConversationID: "c-" + u[len(u)-1:]}), nil
		}}
		s := NewSubmitter(gw, 1000, quietLogger())

		res, err := s.BulkSubmit(ctx, nil, urls[:2], BulkSubmitOpts{})
		require.NoError(t, err)
		assert.Equal(t, "c-0", res.Results[0].ConversationID)
		assert.Equal(t, "c-1", res.Results[1].ConversationID)
		assert.Empty(t, res.Results[0].JobID)
	})

	t.Run("stops at the job limit and skips the rest", func(t *testing.T) {
		calls := 0
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			calls++
			if calls > 2 {
				return models.SubmitResponse{}, jobLimitError(3)
			}
			return asyncFor(fmt.Sprintf("j%d", calls)), nil
		}}
		s := NewSubmitter(gw, 1000, quietLogger())
		prog := make(chan ProgressUpdate, 100)

		res, err := s.BulkSubmit(ctx, prog, urls, BulkSubmitOpts{NumWorkers: 1})
		require.NoError(t, err)
		close(prog)

		assert.Equal(t, 2, res.Submitted)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, 2, res.Skipped)
		assert.Equal(t, 3, gw.Calls("Summarize"))
		assert.ErrorIs(t, res.Results[2].Err, shared.ErrJobLimit)
		assert.True(t, res.Results[3].Skipped)
		assert.True(t, res.Results[4].Skipped)

		phases := map[Phase]int{}
		for u := range prog {
			phases[u.Phase]++
			if u.Phase == SubmitSkipped {
				assert.True(t, strings.HasSuffix(u.Message, "skipped (job limit reached)"))
			}
		}
		assert.Equal(t, 2, phases[SubmitDone])
		assert.Equal(t, 1, phases[SubmitFailed])
		assert.Equal(t, 2, phases[SubmitSkipped])
	})

	t.Run("counts ordinary failures without stopping", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			if strings.HasSuffix(u, "PL1") {
				return models.SubmitResponse{}, shared.ErrServiceUnavailable
			}
			return asyncFor("ok"), nil
		}}
		s := NewSubmitter(gw, 1000, quietLogger())

		res, err := s.BulkSubmit(ctx, nil, append([]string{"bad url"}, urls...), BulkSubmitOpts{NumWorkers: 2})
		require.NoError(t, err)
		assert.Equal(t, 6, res.Total)
		assert.Equal(t, 4, res.Submitted)
		assert.Equal(t, 2, res.Failed)
		assert.Zero(t, res.Skipped)
		assert.ErrorIs(t, res.Results[0].Err, shared.ErrInvalidInput)
	})

	t.Run("requires at least one URL", func(t *testing.T) {
		s := NewSubmitter(&tu.MockGateway{}, 10, quietLogger())
		_, err := s.BulkSubmit(ctx, nil, nil, BulkSubmitOpts{})
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})

	t.Run("reports cancellation", func(t *testing.T) {
		gw := &tu.MockGateway{SummarizeFn: func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return asyncFor("j"), nil
		}}
		s := NewSubmitter(gw, 1000, quietLogger())
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res, err := s.BulkSubmit(cctx, nil, urls, BulkSubmitOpts{})
		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, res)
		assert.Equal(t, 5, res.Total)
	})
}
