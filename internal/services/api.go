// API service for the playlist summarization server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultPrefix  = "/api/v1"

	// RequestIDHeader carries a per-request uuid for correlating client and server logs.
	RequestIDHeader = "X-Request-ID"
)

// APIOpts configures an [APIService].
type APIOpts struct {
	BaseURL string
	// Prefix is prepended to resource paths (jobs, summarize, conversations, chat), not to account paths.
	Prefix     string
	HTTPClient *http.Client
	Tokens     oauth2.TokenSource
	// JobLimit is reported by [JobLimitError].
	JobLimit int
	Logger   *log.Logger
}

// APIService makes requests to the summarization server.
type APIService struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	jobLimit   int
	logger     *log.Logger
}

// NewAPIService creates a new API service instance.
func NewAPIService(opts APIOpts) *APIService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &APIService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		prefix:     "/" + strings.Trim(opts.Prefix, "/"),
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		jobLimit:   opts.JobLimit,
		logger:     shared.WithLogger(opts.Logger, "component", "api"),
	}
}

// request describes one API call.
type request struct {
	method   string
	path     string
	query    url.Values
	body     any
	form     url.Values
	kind     endpointKind
	resource bool
}

func (a *APIService) endpoint(r request) string {
	u := a.baseURL
	if r.resource {
		u += a.prefix
	}
	u += r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u
}

// Authenticated reports whether a bearer token is available.
func (a *APIService) Authenticated() bool {
	tok, err := a.token()
	return err == nil && tok != nil
}

// token returns nil without error for anonymous callers.
func (a *APIService) token() (*oauth2.Token, error) {
	if a.tokens == nil {
		return nil, nil
	}
	tok, err := a.tokens.Token()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load access token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, nil
	}
	return tok, nil
}

// do sends r and decodes a 2xx JSON body into result. Empty and 204 responses leave result untouched.
func (a *APIService) do(ctx context.Context, r request, result any) error {
	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, a.endpoint(r), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	tok, err := a.token()
	if err != nil {
		return err
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	a.logger.Debug("request", "method", r.method, "path", r.path, "request_id", requestID, "authenticated", tok != nil)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classifyError(r.kind, resp.StatusCode, data, requestID, a.jobLimit)
		a.logger.Debug("request failed", "method", r.method, "path", r.path, "status", resp.StatusCode, "request_id", requestID, "err", apiErr)
		return apiErr
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

// ListJobs returns the caller's jobs, newest first.
func (a *APIService) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := a.do(ctx, request{method: http.MethodGet, path: "/jobs", resource: true}, &jobs); err != nil {
		return nil, err
	}
	for _, j := range jobs {
		a.checkJob(j)
	}
	return jobs, nil
}

// GetJob returns one job. It fails with [shared.ErrNotFound] once the job is claimed or expired.
func (a *APIService) GetJob(ctx context.Context, id string) (models.Job, error) {
	var job models.Job
	err := a.do(ctx, request{method: http.MethodGet, path: "/jobs/" + url.PathEscape(id), resource: true}, &job)
	if err != nil {
		return models.Job{}, err
	}
	a.checkJob(job)
	return job, nil
}

// ClaimJob converts a completed job into a conversation. The server deletes the job on success.
func (a *APIService) ClaimJob(ctx context.Context, id string) (models.JobClaim, error) {
	var claim models.JobClaim
	err := a.do(ctx, request{
		method: http.MethodPost, path: "/jobs/" + url.PathEscape(id) + "/claim", resource: true, kind: endpointJobMutation,
	}, &claim)
	return claim, err
}

// RetryJob resets a failed job to pending.
func (a *APIService) RetryJob(ctx context.Context, id string) (models.Job, error) {
	var job models.Job
	err := a.do(ctx, request{
		method: http.MethodPost, path: "/jobs/" + url.PathEscape(id) + "/retry", resource: true, kind: endpointJobMutation,
	}, &job)
	return job, err
}

// DeleteJob removes a pending or failed job.
func (a *APIService) DeleteJob(ctx context.Context, id string) error {
	return a.do(ctx, request{
		method: http.MethodDelete, path: "/jobs/" + url.PathEscape(id), resource: true, kind: endpointJobMutation,
	}, nil)
}

// Summarize submits a playlist URL. Anonymous callers receive a sync summary, authenticated callers a job.
func (a *APIService) Summarize(ctx context.Context, playlistURL string) (models.SubmitResponse, error) {
	var resp models.SubmitResponse
	err := a.do(ctx, request{
		method: http.MethodPost, path: "/summarize", resource: true, kind: endpointSummarize,
		body: map[string]string{"url": playlistURL},
	}, &resp)
	if err != nil {
		return models.SubmitResponse{}, err
	}
	if resp.Mode() == "" {
		return models.SubmitResponse{}, fmt.Errorf("%w: empty summarize response", shared.ErrAPIRequest)
	}
	return resp, nil
}

// checkJob logs records that break lifecycle invariants; the server stays the source of truth.
func (a *APIService) checkJob(j models.Job) {
	if err := j.Validate(); err != nil {
		a.logger.Warn("server returned inconsistent job", "id", j.ID, "err", err)
	}
}
