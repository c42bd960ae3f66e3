package tasks

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
	tu "github.com/desertthunder/playsum/internal/testing"
)

var created = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	return cache.NewStore(cache.StoreOpts{Logger: quietLogger()})
}

func job(id string, status models.Status) models.Job {
	return models.Job{
		ID:        id,
		Status:    status,
		SourceURL: "https://www.youtube.com/playlist?list=" + id,
		CreatedAt: created,
	}
}

func ids(jobs []models.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

// fixture wires the job components against a mock gateway and a manual clock.
type fixture struct {
	gateway *tu.MockGateway
	sched   *tu.ManualScheduler
	store   *cache.Store
	jobs    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gateway: &tu.MockGateway{}, sched: tu.NewManualScheduler(), store: newStore(t)}
	f.jobs = NewOrchestrator(OrchestratorOpts{
		Gateway:         f.gateway,
		Store:           f.store,
		Scheduler:       f.sched,
		RefreshInterval: 10 * time.Second,
		Logger:          quietLogger(),
	})
	return f
}

func (f *fixture) poller(cb Callbacks) *Poller {
	return NewPoller(PollerOpts{
		Gateway:   f.gateway,
		Store:     f.store,
		Updater:   f.jobs,
		Scheduler: f.sched,
		Interval:  5 * time.Second,
		Callbacks: cb,
		Logger:    quietLogger(),
	})
}

// recorder collects callback invocations.
type recorder struct {
	mu       sync.Mutex
	changes  []models.Status
	complete []string
	failed   []string
	errs     []error
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStatusChange: func(j models.Job) {
			r.mu.Lock()
			r.changes = append(r.changes, j.Status)
			r.mu.Unlock()
		},
		OnComplete: func(j models.Job) {
			r.mu.Lock()
			r.complete = append(r.complete, j.ID)
			r.mu.Unlock()
		},
		OnFailed: func(j models.Job) {
			r.mu.Lock()
			r.failed = append(r.failed, j.ID)
			r.mu.Unlock()
		},
		OnError: func(_ string, err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

// memorySessions is an in-memory [SessionStore].
type memorySessions struct {
	tok   *oauth2.Token
	email string
}

func (m *memorySessions) Token() (*oauth2.Token, error) {
	if m.tok == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return m.tok, nil
}

func (m *memorySessions) Save(tok *oauth2.Token, email string) error {
	m.tok, m.email = tok, email
	return nil
}

func (m *memorySessions) Clear() error {
	m.tok, m.email = nil, ""
	return nil
}
