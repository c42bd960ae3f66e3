package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
)

// PollState is the lifecycle of the [Poller]'s current session.
type PollState int

const (
	PollIdle PollState = iota
	PollPolling
	PollSettled
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollPolling:
		return "polling"
	case PollSettled:
		return "settled"
	default:
		return ""
	}
}

// Callbacks are notified about the tracked job.
//
// OnStatusChange, OnComplete and OnFailed fire once per distinct observed status. OnError fires for every
// failed poll.
type Callbacks struct {
	OnStatusChange func(models.Job)
	OnComplete     func(models.Job)
	OnFailed       func(models.Job)
	OnError        func(id string, err error)
}

// JobUpdater receives jobs whose status changed. Implemented by [Orchestrator].
type JobUpdater interface {
	UpdateJob(job models.Job)
}

// PollerOpts configures a [Poller].
type PollerOpts struct {
	Gateway   JobReader
	Store     *cache.Store
	Updater   JobUpdater
	Scheduler Scheduler
	Interval  time.Duration
	Callbacks Callbacks
	// Progress receives a [PollJob] update for every response.
	Progress chan<- ProgressUpdate
	Logger   *log.Logger
}

// session is one tracked job id. A session is never reused once replaced.
type session struct {
	id         string
	state      PollState
	lastStatus models.Status
	job        *models.Job
	err        error

	ctx    context.Context
	stop   context.CancelFunc
	cancel func() bool
	done   chan struct{}
}

func (s *session) finish(state PollState) {
	s.end(state)
	close(s.done)
}

// end stops the session without releasing waiters.
func (s *session) end(state PollState) {
	s.state = state
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stop()
}

// Poller repeatedly fetches one tracked job until it reaches a terminal status.
//
// Requests within a session never overlap: the next request is scheduled only after the previous response
// was handled. Responses that arrive after the session was cleared or replaced are discarded.
type Poller struct {
	gateway   JobReader
	store     *cache.Store
	updater   JobUpdater
	scheduler Scheduler
	interval  time.Duration
	callbacks Callbacks
	progress  chan<- ProgressUpdate
	logger    *log.Logger

	mu      sync.Mutex
	current *session
}

// NewPoller creates an idle poller.
func NewPoller(opts PollerOpts) *Poller {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Poller{
		gateway:   opts.Gateway,
		store:     opts.Store,
		updater:   opts.Updater,
		scheduler: opts.Scheduler,
		interval:  opts.Interval,
		callbacks: opts.Callbacks,
		progress:  opts.Progress,
		logger:    shared.WithLogger(opts.Logger, "component", "poller"),
	}
}

// Track starts polling id. The first request is issued immediately.
//
// Tracking the id that is already being polled is a no-op. Tracking a settled id starts a fresh session,
// which is how a retried job is followed again.
func (p *Poller) Track(ctx context.Context, id string) {
	p.mu.Lock()
	if cur := p.current; cur != nil && cur.id == id && cur.state == PollPolling {
		p.mu.Unlock()
		return
	}
	p.clearLocked()

	sctx, stop := context.WithCancel(ctx)
	s := &session{id: id, state: PollPolling, ctx: sctx, stop: stop, done: make(chan struct{})}
	p.current = s
	s.cancel = p.scheduler.After(0, func() { p.tick(s) })
	p.mu.Unlock()

	p.logger.Debug("tracking job", "id", id)
}

// Clear stops tracking. An in-flight response for the cleared session is discarded.
func (p *Poller) Clear() {
	p.mu.Lock()
	p.clearLocked()
	p.mu.Unlock()
}

func (p *Poller) clearLocked() {
	s := p.current
	if s == nil {
		return
	}
	if s.state == PollPolling {
		s.finish(PollIdle)
	}
	p.current = nil
}

// State returns the state of the current session.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return PollIdle
	}
	return p.current.state
}

// TrackedID returns the id being tracked, or "".
func (p *Poller) TrackedID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.id
}

// Job returns the last observed record of the tracked job.
func (p *Poller) Job() (models.Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.job == nil {
		return models.Job{}, false
	}
	return *p.current.job, true
}

// Wait blocks until the current session settles and returns the final job.
// It fails when nothing is tracked, when tracking is cleared, or when the job disappears.
func (p *Poller) Wait(ctx context.Context) (models.Job, error) {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()
	if s == nil {
		return models.Job{}, fmt.Errorf("%w: no job is being tracked", shared.ErrInvalidState)
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return models.Job{}, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case s.err != nil:
		return models.Job{}, s.err
	case s.state != PollSettled || s.job == nil:
		return models.Job{}, fmt.Errorf("tracking of job %s was cleared", s.id)
	}
	return *s.job, nil
}

func (p *Poller) tick(s *session) {
	p.mu.Lock()
	if p.current != s || s.state != PollPolling {
		p.mu.Unlock()
		return
	}
	s.cancel = nil
	p.mu.Unlock()

	job, err := p.gateway.GetJob(s.ctx, s.id)

	p.mu.Lock()
	if p.current != s || s.state != PollPolling {
		p.mu.Unlock()
		p.logger.Debug("discarding response for stale session", "id", s.id)
		return
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.err = err
			s.finish(PollSettled)
			p.mu.Unlock()
			p.logger.Warn("tracked job no longer exists", "id", s.id)
		} else {
			s.cancel = p.scheduler.After(p.interval, func() { p.tick(s) })
			p.mu.Unlock()
			p.logger.Warn("poll failed", "id", s.id, "err", err)
		}
		if p.callbacks.OnError != nil {
			p.callbacks.OnError(s.id, err)
		}
		return
	}

	changed := job.Status != s.lastStatus
	s.lastStatus = job.Status
	s.job = &job
	if models.IsTerminal(job.Status) {
		// Waiters are released once the callbacks for the final status have run.
		s.end(PollSettled)
		defer close(s.done)
	} else {
		s.cancel = p.scheduler.After(p.interval, func() { p.tick(s) })
	}
	p.mu.Unlock()

	p.logger.Debug("polled job", "id", job.ID, "status", job.Status, "changed", changed)
	if p.store != nil {
		p.store.Set(cache.JobKey(job.ID), job)
	}
	sendProgress(p.progress, polledUpdate(job))

	if !changed {
		return
	}
	if p.updater != nil {
		p.updater.UpdateJob(job)
	}
	if p.callbacks.OnStatusChange != nil {
		p.callbacks.OnStatusChange(job)
	}
	switch job.Status {
	case models.StatusCompleted:
		if p.callbacks.OnComplete != nil {
			p.callbacks.OnComplete(job)
		}
	case models.StatusFailed:
		if p.callbacks.OnFailed != nil {
			p.callbacks.OnFailed(job)
		}
	}
}
