package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/repositories"
	"github.com/desertthunder/playsum/internal/services"
	"github.com/desertthunder/playsum/internal/shared"
	"github.com/desertthunder/playsum/internal/tasks"
)

// Gateway is the summarization API as used by the CLI. Implemented by [services.APIService].
type Gateway interface {
	tasks.JobGateway
	tasks.SubmitGateway
	tasks.ConversationGateway
	tasks.AuthGateway
}

// Preferences stores small client-side settings. Implemented by repositories.PreferenceRepository.
type Preferences interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config        *shared.Config
	configPath    string
	gateway       Gateway
	sessions      tasks.SessionStore
	prefs         Preferences
	store         *cache.Store
	jobs          *tasks.Orchestrator
	poller        *tasks.Poller
	submitter     *tasks.Submitter
	tracker       *tasks.Tracker
	conversations *tasks.Conversations
	auth          *tasks.Auth
	scheduler     tasks.Scheduler
	httpClient    *http.Client
	logger        *log.Logger
	output        io.Writer

	// live enables printing status changes of the tracked job.
	live atomic.Bool
	// outMu serializes writes from poller callbacks and command actions.
	outMu sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Gateway     Gateway
	Sessions    tasks.SessionStore
	Preferences Preferences
	Scheduler   tasks.Scheduler
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Sessions == nil {
		opts.Sessions = noSessions{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = tasks.TimerScheduler{}
	}
	if opts.Gateway == nil {
		opts.Gateway = services.NewAPIService(services.APIOpts{
			BaseURL:    opts.Config.API.BaseURL,
			Prefix:     opts.Config.API.Prefix,
			HTTPClient: opts.HTTPClient,
			Tokens:     opts.Sessions,
			JobLimit:   opts.Config.Jobs.MaxConcurrent,
			Logger:     opts.Logger,
		})
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		gateway:    opts.Gateway,
		sessions:   opts.Sessions,
		prefs:      opts.Preferences,
		scheduler:  opts.Scheduler,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.wire()
	return r
}

// wire builds the job components over a fresh cache store.
func (r *Runner) wire() {
	cfg := r.config
	scheduler := r.scheduler
	r.store = cache.NewStore(cache.StoreOpts{Logger: r.logger})
	r.jobs = tasks.NewOrchestrator(tasks.OrchestratorOpts{
		Gateway:         r.gateway,
		Store:           r.store,
		Scheduler:       scheduler,
		RefreshInterval: cfg.PollInterval(),
		Logger:          r.logger,
	})
	r.poller = tasks.NewPoller(tasks.PollerOpts{
		Gateway:   r.gateway,
		Store:     r.store,
		Updater:   r.jobs,
		Scheduler: scheduler,
		Interval:  cfg.PollInterval(),
		Callbacks: tasks.Callbacks{
			OnStatusChange: r.reportStatus,
			OnError: func(id string, err error) {
				r.logger.Warn("poll failed", "id", id, "err", err)
			},
		},
		Logger: r.logger,
	})
	r.submitter = tasks.NewSubmitter(r.gateway, cfg.RateLimits.SummarizePerMinute, r.logger)
	r.tracker = tasks.NewTracker(r.submitter, r.jobs, r.poller, r.store)
	r.conversations = tasks.NewConversations(tasks.ConversationsOpts{
		Gateway:       r.gateway,
		Store:         r.store,
		StaleTime:     cfg.ConversationsStaleTime(),
		ChatPerMinute: cfg.RateLimits.ChatPerMinute,
		Logger:        r.logger,
	})
	r.auth = tasks.NewAuth(r.gateway, r.sessions, r.store, r.poller, r.logger)
}

// SetLogger replaces the logger, e.g. to keep logs out of the TUI. The job components are rebuilt
// with the new logger, so it must be called before any of them run.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.wire()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, summarizeCommand, bulkCommand, jobsCommand, conversationsCommand, chatCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) reportStatus(job models.Job) {
	if !r.live.Load() {
		return
	}
	r.writePlain("  job %s is %s\n", job.ID, job.Status)
}

// rememberJob stores id as the default for `jobs watch`.
func (r *Runner) rememberJob(id string) {
	if r.prefs == nil {
		return
	}
	if err := r.prefs.Set(repositories.LastJobKey, id); err != nil {
		r.logger.Warn("failed to remember job", "id", id, "err", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// noSessions is used when no session database is available. The CLI then runs anonymously.
type noSessions struct{}

func (noSessions) Token() (*oauth2.Token, error) { return nil, shared.ErrNotAuthenticated }

func (noSessions) Save(*oauth2.Token, string) error {
	return fmt.Errorf("%w: no session database; run 'playsum setup' first", shared.ErrMissingConfig)
}

func (noSessions) Clear() error { return nil }
