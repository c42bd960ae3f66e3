package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/repositories"
	"github.com/desertthunder/playsum/internal/services"
	"github.com/desertthunder/playsum/internal/shared"
	"github.com/desertthunder/playsum/internal/tasks"
	tu "github.com/desertthunder/playsum/internal/testing"
)

var created = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testJob(id string, status models.Status) models.Job {
	j := models.Job{
		ID:        id,
		Status:    status,
		SourceURL: "https://www.youtube.com/playlist?list=" + id,
		CreatedAt: created,
	}
	if status != models.StatusPending {
		j.StartedAt = mo.Some(created.Add(time.Second))
	}
	if models.IsTerminal(status) {
		j.CompletedAt = mo.Some(created.Add(time.Minute))
	}
	return j
}

type memSessions struct {
	tok   *oauth2.Token
	email string
}

func (m *memSessions) Token() (*oauth2.Token, error) {
	if m.tok == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return m.tok, nil
}

func (m *memSessions) Save(tok *oauth2.Token, email string) error {
	m.tok, m.email = tok, email
	return nil
}

func (m *memSessions) Clear() error {
	m.tok, m.email = nil, ""
	return nil
}

type memPrefs map[string]string

func (m memPrefs) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return v, nil
}

func (m memPrefs) Set(key, value string) error {
	m[key] = value
	return nil
}

type harness struct {
	runner   *Runner
	gateway  *tu.MockGateway
	sessions *memSessions
	prefs    memPrefs
	output   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	config := shared.DefaultConfig()
	config.Jobs.PollIntervalMS = 1

	h := &harness{
		gateway:  &tu.MockGateway{},
		sessions: &memSessions{},
		prefs:    memPrefs{},
		output:   &bytes.Buffer{},
	}
	h.runner = NewRunner(RunnerOpts{
		Config:      config,
		Gateway:     h.gateway,
		Sessions:    h.sessions,
		Preferences: h.prefs,
		Logger:      shared.NewLogger(io.Discard),
		Output:      h.output,
	})
	return h
}

func (h *harness) run(args ...string) error {
	app := &cli.Command{
		Name:      "playsum",
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Commands:  h.runner.register(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.Run(ctx, append([]string{"playsum"}, args...))
}

func (h *harness) expectOutput(t *testing.T, parts ...string) {
	t.Helper()
	out := h.output.String()
	for _, p := range parts {
		if !strings.Contains(out, p) {
			t.Errorf("expected output to contain %q, got:\n%s", p, out)
		}
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			gateway := &tu.MockGateway{}
			sessions := &memSessions{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/path/to/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Gateway:    gateway,
				Sessions:   sessions,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/path/to/config.toml" {
				t.Errorf("expected configPath to be set, got %q", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.gateway != gateway {
				t.Error("expected gateway to be set")
			}
			if runner.sessions != sessions {
				t.Error("expected sessions to be set")
			}
		})

		t.Run("wires every job component", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Gateway: &tu.MockGateway{}})

			if runner.store == nil || runner.jobs == nil || runner.poller == nil || runner.submitter == nil ||
				runner.tracker == nil || runner.conversations == nil || runner.auth == nil {
				t.Fatal("expected all components to be wired")
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config")
			}
			if runner.logger == nil {
				t.Error("expected default logger")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected default http client")
			}
			if _, ok := runner.gateway.(*services.APIService); !ok {
				t.Errorf("expected API service gateway, got %T", runner.gateway)
			}
			if _, ok := runner.sessions.(noSessions); !ok {
				t.Errorf("expected anonymous sessions, got %T", runner.sessions)
			}
		})
	})

	t.Run("SetLogger rebuilds components", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Gateway: &tu.MockGateway{}})
		store := runner.store
		logger := shared.NewLogger(io.Discard)

		runner.SetLogger(logger)

		if runner.logger != logger {
			t.Error("expected logger to be replaced")
		}
		if runner.store == store {
			t.Error("expected a fresh store")
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "summarize", "bulk", "jobs", "conversations", "chat", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("expected command %q at index %d, got %q", want[i], i, cmd.Name)
			}
		}
	})

	t.Run("noSessions", func(t *testing.T) {
		s := noSessions{}
		if _, err := s.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if err := s.Save(&oauth2.Token{AccessToken: "t"}, "a@b.c"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
		if err := s.Clear(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestSummarize(t *testing.T) {
	url := "https://www.youtube.com/playlist?list=PL1"

	t.Run("prints an inline summary for anonymous callers", func(t *testing.T) {
		h := newHarness(t)
		title := "Go Talks"
		h.gateway.SummarizeFn = func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.NewSyncResponse(models.SummaryResult{
				PlaylistTitle:   &title,
				VideoCount:      4,
				SummaryMarkdown: "## Highlights",
				ConversationID:  "c1",
			}), nil
		}

		if err := h.run("summarize", url); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "Go Talks", "Videos:       4", "c1", "## Highlights")
		if got := h.runner.tracker.Current().ConversationID; got != "c1" {
			t.Errorf("expected conversation c1 to be selected, got %q", got)
		}
		if _, ok := h.prefs[repositories.LastJobKey]; ok {
			t.Error("expected no job to be remembered")
		}
	})

	t.Run("suggests signing in when the public budget is exceeded", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.SummarizeFn = func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.SubmitResponse{}, &services.PublicTimeoutError{
				APIError: services.APIError{Status: http.StatusRequestTimeout, Message: "playlist too long"},
			}
		}

		err := h.run("summarize", url)

		if !errors.Is(err, shared.ErrPublicTimeout) {
			t.Fatalf("expected ErrPublicTimeout, got %v", err)
		}
		if !strings.Contains(err.Error(), "auth login") {
			t.Errorf("expected sign-in hint, got %v", err)
		}
	})

	t.Run("queues a job and remembers it", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.SummarizeFn = func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.NewAsyncResponse(testJob("j1", models.StatusPending)), nil
		}
		h.gateway.GetJobFn = tu.JobSequence(testJob("j1", models.StatusPending))

		if err := h.run("summarize", url); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "Job j1 queued", "playsum jobs watch j1")
		if got := h.prefs[repositories.LastJobKey]; got != "j1" {
			t.Errorf("expected last job j1, got %q", got)
		}
		if views := h.runner.jobs.Views(); len(views.All) != 1 {
			t.Errorf("expected job to be registered, got %d jobs", len(views.All))
		}
	})

	t.Run("waits for the job with --wait", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.SummarizeFn = func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.NewAsyncResponse(testJob("j1", models.StatusPending)), nil
		}
		h.gateway.GetJobFn = tu.JobSequence(
			testJob("j1", models.StatusRunning),
			testJob("j1", models.StatusCompleted),
		)

		if err := h.run("summarize", "--wait", url); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "job j1 is running", "job j1 is completed", "Job j1 completed in 59s")
		if h.runner.live.Load() {
			t.Error("expected live output to be switched off")
		}
	})

	t.Run("claims the finished job with --claim", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.SummarizeFn = func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.NewAsyncResponse(testJob("j1", models.StatusPending)), nil
		}
		h.gateway.GetJobFn = tu.JobSequence(testJob("j1", models.StatusCompleted))
		h.gateway.ClaimJobFn = func(ctx context.Context, id string) (models.JobClaim, error) {
			return models.JobClaim{Conversation: models.ConversationDetail{ID: "c9", Summary: "Three talks on generics."}}, nil
		}

		if err := h.run("summarize", "--claim", url); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "claimed as conversation c9", "Three talks on generics.")
		if got := h.runner.tracker.Current().ConversationID; got != "c9" {
			t.Errorf("expected conversation c9 to be selected, got %q", got)
		}
	})

	t.Run("returns the failure of a waited job", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.SummarizeFn = func(ctx context.Context, u string) (models.SubmitResponse, error) {
			return models.NewAsyncResponse(testJob("j1", models.StatusPending)), nil
		}
		failed := testJob("j1", models.StatusFailed)
		failed.ErrorMessage = mo.Some("transcripts unavailable")
		h.gateway.GetJobFn = tu.JobSequence(failed)

		err := h.run("summarize", "--wait", url)

		if err == nil || !strings.Contains(err.Error(), "transcripts unavailable") {
			t.Fatalf("expected job failure, got %v", err)
		}
	})

	t.Run("requires a URL", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("summarize"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
		if h.gateway.Calls("Summarize") != 0 {
			t.Error("expected no request")
		}
	})
}

func TestBulk(t *testing.T) {
	t.Run("submits every listed URL", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "urls.txt")
		content := "# weekly\nhttps://www.youtube.com/playlist?list=A\n\nhttps://www.youtube.com/playlist?list=B\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		h.gateway.SummarizeFn = func(ctx context.Context, u string) (models.SubmitResponse, error) {
			id := u[strings.LastIndex(u, "=")+1:]
			return models.NewAsyncResponse(testJob(id, models.StatusPending)), nil
		}

		if err := h.run("bulk", "--file", path, "--workers", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "Submitted: 2/2", "(job A)", "(job B)")
		if got := h.gateway.Calls("Summarize"); got != 2 {
			t.Errorf("expected 2 submissions, got %d", got)
		}
		if views := h.runner.jobs.Views(); len(views.All) != 2 {
			t.Errorf("expected 2 registered jobs, got %d", len(views.All))
		}
	})

	t.Run("reports JSON results", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "urls.txt")
		if err := os.WriteFile(path, []byte("not a url\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := h.run("bulk", "--file", path, "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out struct {
			Total   int              `json:"total"`
			Failed  int              `json:"failed"`
			Results []bulkResultJSON `json:"results"`
		}
		if err := json.Unmarshal(h.output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON output, got %v: %s", err, h.output.String())
		}
		if out.Total != 1 || out.Failed != 1 || out.Results[0].Error == "" {
			t.Errorf("expected one failed result, got %+v", out)
		}
	})

	t.Run("fails for a missing file", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("bulk", "--file", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("fails for a file without URLs", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "urls.txt")
		if err := os.WriteFile(path, []byte("# nothing yet\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := h.run("bulk", "--file", path); !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestJobs(t *testing.T) {
	listed := func() ([]models.Job, error) {
		failed := testJob("j3", models.StatusFailed)
		failed.ErrorMessage = mo.Some("quota exceeded")
		return []models.Job{testJob("j1", models.StatusRunning), testJob("j2", models.StatusCompleted), failed}, nil
	}

	t.Run("list", func(t *testing.T) {
		t.Run("renders a table with counts", func(t *testing.T) {
			h := newHarness(t)
			h.gateway.ListJobsFn = func(ctx context.Context) ([]models.Job, error) { return listed() }

			if err := h.run("jobs", "list"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			h.expectOutput(t, "j1", "j2", "j3", "quota exceeded", "1 active • 1 completed • 1 failed")
		})

		t.Run("filters by status", func(t *testing.T) {
			h := newHarness(t)
			h.gateway.ListJobsFn = func(ctx context.Context) ([]models.Job, error) { return listed() }

			if err := h.run("jobs", "list", "--status", "failed", "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var jobs []models.Job
			if err := json.Unmarshal(h.output.Bytes(), &jobs); err != nil {
				t.Fatalf("expected JSON output, got %v", err)
			}
			if len(jobs) != 1 || jobs[0].ID != "j3" {
				t.Errorf("expected only j3, got %+v", jobs)
			}
		})

		t.Run("rejects an unknown status", func(t *testing.T) {
			h := newHarness(t)
			h.gateway.ListJobsFn = func(ctx context.Context) ([]models.Job, error) { return listed() }

			if err := h.run("jobs", "list", "--status", "stuck"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("prints a notice when empty", func(t *testing.T) {
			h := newHarness(t)
			h.gateway.ListJobsFn = func(ctx context.Context) ([]models.Job, error) { return nil, nil }

			if err := h.run("jobs", "list"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			h.expectOutput(t, "No jobs found.")
		})
	})

	t.Run("get prints the job", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.GetJobFn = tu.JobSequence(testJob("j2", models.StatusCompleted))

		if err := h.run("jobs", "get", "j2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.expectOutput(t, "Job j2", "Status:    completed", "Elapsed:   59s")
	})

	t.Run("get requires an id", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("jobs", "get"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("claim reports the conversation", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.ClaimJobFn = func(ctx context.Context, id string) (models.JobClaim, error) {
			return models.JobClaim{Conversation: models.ConversationDetail{ID: "c2"}}, nil
		}

		if err := h.run("jobs", "claim", "j2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.expectOutput(t, "Job j2 claimed as conversation c2")
	})

	t.Run("claim surfaces an invalid state", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.ClaimJobFn = func(ctx context.Context, id string) (models.JobClaim, error) {
			return models.JobClaim{}, shared.ErrInvalidState
		}

		if err := h.run("jobs", "claim", "j1"); !errors.Is(err, shared.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("retry resets the job without waiting", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.RetryJobFn = func(ctx context.Context, id string) (models.Job, error) {
			return testJob(id, models.StatusPending), nil
		}
		h.gateway.GetJobFn = tu.JobSequence(testJob("j3", models.StatusPending))

		if err := h.run("jobs", "retry", "j3"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "Job j3 is pending again")
		if state := h.runner.poller.State(); state != tasks.PollIdle {
			t.Errorf("expected poller to be idle, got %v", state)
		}
		if got := h.prefs[repositories.LastJobKey]; got != "j3" {
			t.Errorf("expected last job j3, got %q", got)
		}
	})

	t.Run("retry --wait follows the new attempt", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.RetryJobFn = func(ctx context.Context, id string) (models.Job, error) {
			return testJob(id, models.StatusPending), nil
		}
		h.gateway.GetJobFn = tu.JobSequence(testJob("j3", models.StatusRunning), testJob("j3", models.StatusCompleted))

		if err := h.run("jobs", "retry", "--wait", "j3"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.expectOutput(t, "job j3 is running", "Job j3 completed")
	})

	t.Run("delete removes the job", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.DeleteJobFn = func(ctx context.Context, id string) error { return nil }

		if err := h.run("jobs", "delete", "j1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.expectOutput(t, "Deleted job j1")
		if got := h.gateway.Calls("DeleteJob"); got != 1 {
			t.Errorf("expected 1 delete request, got %d", got)
		}
	})

	t.Run("watch", func(t *testing.T) {
		t.Run("defaults to the last submitted job", func(t *testing.T) {
			h := newHarness(t)
			h.prefs[repositories.LastJobKey] = "j7"
			h.gateway.GetJobFn = func(ctx context.Context, id string) (models.Job, error) {
				return testJob(id, models.StatusCompleted), nil
			}

			if err := h.run("jobs", "watch"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			h.expectOutput(t, "Waiting for job j7", "Job j7 completed")
		})

		t.Run("fails without an id or a remembered job", func(t *testing.T) {
			h := newHarness(t)

			if err := h.run("jobs", "watch"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Fatalf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("fails when the job disappears", func(t *testing.T) {
			h := newHarness(t)
			h.gateway.GetJobFn = func(ctx context.Context, id string) (models.Job, error) {
				return models.Job{}, shared.ErrNotFound
			}

			if err := h.run("jobs", "watch", "gone"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})
}

func TestConversations(t *testing.T) {
	title := "Go Talks"
	playlist := "https://www.youtube.com/playlist?list=PL1"
	detail := models.ConversationDetail{
		ID:          "c1",
		Title:       &title,
		PlaylistURL: &playlist,
		Summary:     "Talks about generics.",
		CreatedAt:   created,
		UpdatedAt:   created,
		Messages: []models.Message{
			{ID: 1, Role: models.RoleUser, Content: "Which talk is best?", CreatedAt: created},
			{ID: 2, Role: models.RoleModel, Content: "The second one.", CreatedAt: created},
		},
	}

	t.Run("list renders a table", func(t *testing.T) {
		h := newHarness(t)
		var gotLimit, gotOffset int
		h.gateway.ListConversationsFn = func(ctx context.Context, limit, offset int) ([]models.Conversation, error) {
			gotLimit, gotOffset = limit, offset
			return []models.Conversation{detail.Row()}, nil
		}

		if err := h.run("conversations", "list", "--limit", "5", "--offset", "10"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotLimit != 5 || gotOffset != 10 {
			t.Errorf("expected page 5/10, got %d/%d", gotLimit, gotOffset)
		}
		h.expectOutput(t, "c1", "Go Talks")
	})

	t.Run("list rejects an oversized page", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("conversations", "list", "--limit", "500"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("show prints summary and chat", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.GetConversationFn = func(ctx context.Context, id string) (models.ConversationDetail, error) {
			return detail, nil
		}

		if err := h.run("conversations", "show", "c1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "# Go Talks", "Talks about generics.", "Which talk is best?", "The second one.")
		if got := h.runner.tracker.Current().ConversationID; got != "c1" {
			t.Errorf("expected c1 to be selected, got %q", got)
		}
	})

	t.Run("export writes a file", func(t *testing.T) {
		h := newHarness(t)
		dir := t.TempDir()
		h.gateway.GetConversationFn = func(ctx context.Context, id string) (models.ConversationDetail, error) {
			return detail, nil
		}

		if err := h.run("conversations", "export", "--format", "text", "--output", dir, "c1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		path := filepath.Join(dir, "c1.txt")
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "You: Which talk is best?") {
			t.Errorf("expected chat in export, got %q", content)
		}
		h.expectOutput(t, "Exported Go Talks to "+path)
	})

	t.Run("export rejects an unknown format", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("conversations", "export", "--format", "pdf", "c1"); err == nil {
			t.Fatal("expected error")
		}
		if h.gateway.Calls("GetConversation") != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("delete and claim", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.DeleteConversationFn = func(ctx context.Context, id string) error { return nil }
		h.gateway.ClaimConversationFn = func(ctx context.Context, id string) error { return nil }

		if err := h.run("conversations", "delete", "c1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := h.run("conversations", "claim", "c2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.expectOutput(t, "Deleted conversation c1", "Conversation c2 now belongs to your account")
	})
}

func TestChat(t *testing.T) {
	t.Run("prints the reply", func(t *testing.T) {
		h := newHarness(t)
		var rag bool
		h.gateway.ChatFn = func(ctx context.Context, id, message string, useRAG bool) (models.ChatReply, error) {
			rag = useRAG
			return models.ChatReply{Response: "Watch the second talk."}, nil
		}

		if err := h.run("chat", "--rag", "c1", "Which talk first?"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		h.expectOutput(t, "Watch the second talk.")
		if !rag {
			t.Error("expected retrieval to be requested")
		}
	})

	t.Run("requires a message", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("chat", "c1"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Fatalf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("login stores the token", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.LoginFn = func(ctx context.Context, email, password string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "secret", TokenType: "bearer"}, nil
		}

		if err := h.run("auth", "login", "--email", "dev@example.com", "--password", "hunter2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if h.sessions.tok == nil || h.sessions.tok.AccessToken != "secret" {
			t.Error("expected token to be saved")
		}
		if h.sessions.email != "dev@example.com" {
			t.Errorf("expected email to be saved, got %q", h.sessions.email)
		}
		h.expectOutput(t, "Signed in as dev@example.com")
	})

	t.Run("login rejects a malformed email", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("auth", "login", "--email", "nope", "--password", "x"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if h.gateway.Calls("Login") != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("status without a session", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.expectOutput(t, "Not signed in")
		if h.gateway.Calls("CurrentUser") != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("status with a session", func(t *testing.T) {
		h := newHarness(t)
		h.sessions.tok = &oauth2.Token{AccessToken: "secret"}
		h.gateway.CurrentUserFn = func(ctx context.Context) (models.User, error) {
			return models.User{ID: "u1", Email: "dev@example.com", IsActive: true}, nil
		}

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.expectOutput(t, "Email:    dev@example.com", "ID:       u1")
	})

	t.Run("logout clears the token", func(t *testing.T) {
		h := newHarness(t)
		h.sessions.tok = &oauth2.Token{AccessToken: "secret"}

		if err := h.run("auth", "logout"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if h.sessions.tok != nil {
			t.Error("expected token to be cleared")
		}
		h.expectOutput(t, "Signed out")
	})
}

func TestSetup(t *testing.T) {
	t.Run("creates config and database", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		h := newHarness(t)

		if err := h.run("setup", "--config", "config.toml"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "playsum.db"))
		h.expectOutput(t, "Setup complete")
	})

	t.Run("keeps an existing config", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		custom := "[database]\npath = \"custom.db\"\n"
		if err := os.WriteFile("config.toml", []byte(custom), 0644); err != nil {
			t.Fatal(err)
		}
		h := newHarness(t)

		if err := h.run("setup", "--config", "config.toml"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := tu.MustReadFile(t, "config.toml"); got != custom {
			t.Errorf("expected config to be untouched, got %q", got)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "custom.db"))
	})
}
