package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/services"
	"github.com/desertthunder/playsum/internal/shared"
)

// ValidatePlaylistURL checks that raw is an absolute http(s) URL and returns it trimmed.
func ValidatePlaylistURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: playlist URL is empty", shared.ErrInvalidInput)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: playlist URL must use http or https", shared.ErrInvalidInput)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: playlist URL has no host", shared.ErrInvalidInput)
	}
	return raw, nil
}

// NewPerMinuteLimiter allows perMinute events per minute with a burst of perMinute.
func NewPerMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// Submitter validates, throttles, and sends summarize requests.
type Submitter struct {
	gateway SubmitGateway
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewSubmitter creates a submitter allowing perMinute requests per minute.
func NewSubmitter(gateway SubmitGateway, perMinute int, logger *log.Logger) *Submitter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Submitter{
		gateway: gateway,
		limiter: NewPerMinuteLimiter(perMinute),
		logger:  shared.WithLogger(logger, "component", "submit"),
	}
}

// Submit sends one URL. It fails fast with [shared.ErrRateLimited] when the client budget is spent.
//
// Server failures are classified by the gateway into [services.PublicTimeoutError], [services.JobLimitError],
// and [services.APIError].
func (s *Submitter) Submit(ctx context.Context, rawURL string) (models.SubmitResponse, error) {
	u, err := ValidatePlaylistURL(rawURL)
	if err != nil {
		return models.SubmitResponse{}, err
	}
	if !s.limiter.Allow() {
		return models.SubmitResponse{}, fmt.Errorf("%w: %s", shared.ErrRateLimited, services.RateLimitedMessage)
	}
	return s.send(ctx, u)
}

// SubmitWait is like Submit but waits for the client budget instead of failing.
func (s *Submitter) SubmitWait(ctx context.Context, rawURL string) (models.SubmitResponse, error) {
	u, err := ValidatePlaylistURL(rawURL)
	if err != nil {
		return models.SubmitResponse{}, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return models.SubmitResponse{}, err
	}
	return s.send(ctx, u)
}

func (s *Submitter) send(ctx context.Context, u string) (models.SubmitResponse, error) {
	resp, err := s.gateway.Summarize(ctx, u)
	if err != nil {
		s.logger.Warn("submit failed", "url", u, "err", err)
		return models.SubmitResponse{}, err
	}
	s.logger.Info("submitted playlist", "url", u, "mode", resp.Mode())
	return resp, nil
}

// BulkSubmitOpts contains configuration for bulk submissions.
type BulkSubmitOpts struct {
	NumWorkers int                  // Concurrent workers (default: 3, max: 10)
	OnJob      func(job models.Job) // Called for every job created in async mode
}

// SubmitResult is the outcome for one URL of a bulk submission.
type SubmitResult struct {
	URL            string
	JobID          string
	ConversationID string
	Skipped        bool
	Err            error
}

// BulkSubmitResult summarizes a bulk submission. Results are in input order.
type BulkSubmitResult struct {
	Total     int
	Submitted int
	Failed    int
	Skipped   int
	Results   []SubmitResult
}

// BulkSubmit submits urls concurrently under the shared rate limiter.
//
// Once the server reports the concurrent job limit, no further URLs are sent and the rest are reported as skipped.
func (s *Submitter) BulkSubmit(ctx context.Context, prog chan<- ProgressUpdate, urls []string, opts BulkSubmitOpts) (*BulkSubmitResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no playlist URLs given", shared.ErrMissingArgument)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	total := len(urls)
	results := make([]SubmitResult, total)
	for i, u := range urls {
		results[i] = SubmitResult{URL: u, Skipped: true}
	}

	var (
		mu        sync.Mutex
		completed int
		limited   bool
	)

	queue := make(chan int)
	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				mu.Lock()
				stop := limited
				mu.Unlock()
				if stop {
					continue
				}

				res := s.submitOne(ctx, urls[i], opts)

				mu.Lock()
				var limitErr *services.JobLimitError
				if errors.As(res.Err, &limitErr) {
					limited = true
				}
				results[i] = res
				completed++
				step := completed
				mu.Unlock()

				if res.Err != nil {
					sendProgress(prog, submitFailedUpdate(step, total, res))
				} else {
					sendProgress(prog, submittedUpdate(step, total, res))
				}
			}
		}()
	}

dispatch:
	for i, u := range urls {
		mu.Lock()
		stop := limited
		mu.Unlock()
		if stop {
			break
		}

		sendProgress(prog, submittingUpdate(i+1, total, u))
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- i:
		}
	}
	close(queue)
	wg.Wait()

	out := &BulkSubmitResult{Total: total, Results: results}
	for i, r := range results {
		switch {
		case r.Skipped:
			out.Skipped++
			sendProgress(prog, submitSkippedUpdate(i+1, total, r.URL))
		case r.Err != nil:
			out.Failed++
		default:
			out.Submitted++
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Submitter) submitOne(ctx context.Context, u string, opts BulkSubmitOpts) SubmitResult {
	res := SubmitResult{URL: u}

	resp, err := s.SubmitWait(ctx, u)
	if err != nil {
		res.Err = err
		return res
	}

	res.Err = resp.Match(
		func(summary models.SummaryResult) error {
			res.ConversationID = summary.ConversationID
			return nil
		},
		func(job models.Job) error {
			res.JobID = job.ID
			if opts.OnJob != nil {
				opts.OnJob(job)
			}
			return nil
		},
	)
	return res
}
