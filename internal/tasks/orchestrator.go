package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
)

// JobViews partitions a job collection by status. Every view is derived from All.
type JobViews struct {
	All       []models.Job
	Pending   []models.Job
	Running   []models.Job
	Completed []models.Job
	Failed    []models.Job
	// Active is Pending followed by Running.
	Active []models.Job
}

// Categorize builds the status views of jobs, preserving order within each view.
func Categorize(jobs []models.Job) JobViews {
	v := JobViews{All: jobs}
	for _, j := range jobs {
		switch j.Status {
		case models.StatusPending:
			v.Pending = append(v.Pending, j)
		case models.StatusRunning:
			v.Running = append(v.Running, j)
		case models.StatusCompleted:
			v.Completed = append(v.Completed, j)
		case models.StatusFailed:
			v.Failed = append(v.Failed, j)
		}
	}
	v.Active = append(append([]models.Job{}, v.Pending...), v.Running...)
	return v
}

// HasActive reports whether any job is pending or running.
func (v JobViews) HasActive() bool {
	return len(v.Active) > 0
}

// OrchestratorOpts configures an [Orchestrator].
type OrchestratorOpts struct {
	Gateway   JobGateway
	Store     *cache.Store
	Scheduler Scheduler
	// RefreshInterval is how often the job list is refetched while a job is active.
	RefreshInterval time.Duration
	Logger          *log.Logger
}

// Orchestrator owns the cached job collection under [cache.JobsKey] and the mutations on it.
type Orchestrator struct {
	gateway   JobGateway
	store     *cache.Store
	scheduler Scheduler
	interval  time.Duration
	logger    *log.Logger

	mu          sync.Mutex
	ctx         context.Context
	unsubscribe func()
	cancelTimer func() bool
}

// NewOrchestrator creates an orchestrator over store.
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		gateway:   opts.Gateway,
		store:     opts.Store,
		scheduler: opts.Scheduler,
		interval:  opts.RefreshInterval,
		logger:    shared.WithLogger(opts.Logger, "component", "orchestrator"),
	}
}

func (o *Orchestrator) fetchJobs(ctx context.Context) ([]models.Job, error) {
	return o.gateway.ListJobs(ctx)
}

// List fetches the job collection from the server, caches it, and returns its views.
func (o *Orchestrator) List(ctx context.Context) (JobViews, error) {
	jobs, err := cache.FetchAs(ctx, o.store, cache.JobsKey, 0, o.fetchJobs)
	if err != nil {
		return JobViews{}, fmt.Errorf("failed to list jobs: %w", err)
	}
	return Categorize(jobs), nil
}

// Views returns the views of the cached collection without a request.
func (o *Orchestrator) Views() JobViews {
	jobs, _ := cache.GetAs[[]models.Job](o.store, cache.JobsKey)
	return Categorize(jobs)
}

// AddJob puts a newly created job at the front of the cached collection.
// A job that is already cached is replaced in place.
func (o *Orchestrator) AddJob(job models.Job) {
	cache.UpdateAs(o.store, cache.JobsKey, func(old []models.Job, _ bool) ([]models.Job, bool) {
		if i := models.JobIndex(old, job.ID); i >= 0 {
			return replaceAt(old, i, job), true
		}
		return append([]models.Job{job}, old...), true
	})
}

// UpdateJob replaces the cached job with the same id. It does nothing when the job or the collection is not cached.
func (o *Orchestrator) UpdateJob(job models.Job) {
	cache.UpdateAs(o.store, cache.JobsKey, func(old []models.Job, ok bool) ([]models.Job, bool) {
		if !ok {
			return nil, false
		}
		i := models.JobIndex(old, job.ID)
		if i < 0 {
			return nil, false
		}
		return replaceAt(old, i, job), true
	})
}

func (o *Orchestrator) removeJob(id string) {
	cache.UpdateAs(o.store, cache.JobsKey, func(old []models.Job, ok bool) ([]models.Job, bool) {
		if !ok || models.JobIndex(old, id) < 0 {
			return nil, false
		}
		return withoutJob(old, id), true
	})
}

// Claim converts a completed job into a conversation.
//
// The cache changes only after the server confirms: the job is removed and the conversation list is marked stale.
// On failure the cache is untouched.
func (o *Orchestrator) Claim(ctx context.Context, id string) (models.JobClaim, error) {
	claim, err := o.gateway.ClaimJob(ctx, id)
	if err != nil {
		return models.JobClaim{}, fmt.Errorf("failed to claim job %s: %w", id, err)
	}

	o.removeJob(id)
	o.store.Remove(cache.JobKey(id))
	o.store.InvalidatePrefix(cache.ConversationsKey)
	o.logger.Info("claimed job", "id", id, "conversation", claim.ConversationID())
	return claim, nil
}

// Retry resets a failed job and replaces the cached record with the returned pending one.
// The caller tracks the job again.
func (o *Orchestrator) Retry(ctx context.Context, id string) (models.Job, error) {
	job, err := o.gateway.RetryJob(ctx, id)
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to retry job %s: %w", id, err)
	}

	o.UpdateJob(job)
	o.store.Set(cache.JobKey(id), job)
	o.logger.Info("retried job", "id", id, "status", job.Status)
	return job, nil
}

// Delete removes the job from the cache before asking the server. When the server refuses, the collection is
// restored to exactly what it was when Delete was called.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	err := cache.Optimistic(o.store, cache.JobsKey,
		func(old []models.Job, ok bool) ([]models.Job, bool) {
			if !ok || models.JobIndex(old, id) < 0 {
				return nil, false
			}
			return withoutJob(old, id), true
		},
		func() error { return o.gateway.DeleteJob(ctx, id) },
	)
	if err != nil {
		o.logger.Warn("delete failed, cache restored", "id", id, "err", err)
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}

	o.store.Remove(cache.JobKey(id))
	o.logger.Info("deleted job", "id", id)
	return nil
}

// Start enables background refresh: while the cached collection holds an active job it is refetched every
// refresh interval. Refresh stops by itself once no job is active and resumes when one appears.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.unsubscribe != nil {
		o.mu.Unlock()
		return
	}
	o.ctx = ctx
	o.unsubscribe = o.store.Subscribe(o.onJobsEvent, cache.JobsKey)
	o.mu.Unlock()

	o.reschedule()
}

// Stop disables background refresh.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	if o.cancelTimer != nil {
		o.cancelTimer()
		o.cancelTimer = nil
	}
}

// Refreshing reports whether a background refresh is scheduled.
func (o *Orchestrator) Refreshing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelTimer != nil
}

func (o *Orchestrator) onJobsEvent(cache.Event) {
	o.reschedule()
}

// reschedule arms or disarms the refresh timer according to the cached collection.
func (o *Orchestrator) reschedule() {
	active := o.Views().HasActive()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe == nil {
		return
	}

	switch {
	case active && o.cancelTimer == nil:
		o.cancelTimer = o.scheduler.After(o.interval, o.refresh)
	case !active && o.cancelTimer != nil:
		o.cancelTimer()
		o.cancelTimer = nil
		o.logger.Debug("no active jobs, background refresh stopped")
	}
}

func (o *Orchestrator) refresh() {
	o.mu.Lock()
	o.cancelTimer = nil
	ctx := o.ctx
	running := o.unsubscribe != nil
	o.mu.Unlock()
	if !running {
		return
	}

	if _, err := cache.FetchAs(ctx, o.store, cache.JobsKey, 0, o.fetchJobs); err != nil {
		o.logger.Warn("background refresh failed", "err", err)
	}
	o.reschedule()
}

// replaceAt returns a copy of jobs with index i set to job.
func replaceAt(jobs []models.Job, i int, job models.Job) []models.Job {
	out := slices.Clone(jobs)
	out[i] = job
	return out
}

// withoutJob returns a copy of jobs without id.
func withoutJob(jobs []models.Job, id string) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.ID != id {
			out = append(out, j)
		}
	}
	return out
}
