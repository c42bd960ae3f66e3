package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/playsum/internal/cache"
	"github.com/desertthunder/playsum/internal/formatter"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	JobsView ViewState = iota
	DetailView
	ConfirmDeleteView
	SubmitView
)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	jobs        *tasks.Orchestrator
	tracker     *tasks.Tracker
	events      chan struct{}
	unsubscribe func()
	width       int
	height      int
	list        list.Model
	input       textinput.Model
	selected    models.Job
	flash       string
	err         error
	help        help.Model
	keys        keyMap
	now         func() time.Time
}

// NewModel creates the dashboard. It subscribes to the job collection in store until [Model.Close].
func NewModel(ctx context.Context, jobs *tasks.Orchestrator, tracker *tasks.Tracker, store *cache.Store) *Model {
	input := textinput.New()
	input.Placeholder = "https://www.youtube.com/playlist?list=..."
	input.CharLimit = 500

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Summarization Jobs"
	l.SetShowHelp(false)

	m := &Model{
		ctx:     ctx,
		view:    JobsView,
		jobs:    jobs,
		tracker: tracker,
		events:  make(chan struct{}, 1),
		list:    l,
		input:   input,
		help:    help.New(),
		keys:    newKeyMap(),
		now:     time.Now,
	}
	m.unsubscribe = store.Subscribe(func(cache.Event) {
		select {
		case m.events <- struct{}{}:
		default:
		}
	}, cache.JobsKey)
	return m
}

// Close stops listening to the cache.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init loads the job collection and starts listening for cache changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchJobs(), m.waitForChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case JobsView:
			return m.handleJobsKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		case SubmitView:
			return m.handleSubmitKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgJobsFetched:
		data := msg.data.(jobsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		return m, m.setJobs(data.views.All)

	case MsgJobsChanged:
		cmd := m.setJobs(m.jobs.Views().All)
		return m, tea.Batch(cmd, m.waitForChange())

	case MsgActionDone:
		data := msg.data.(actionDone)
		m.setFlash(data.status, data.err)
		return m, nil

	case MsgSubmitted:
		data := msg.data.(submitted)
		if data.err != nil {
			m.setFlash("", data.err)
			return m, nil
		}
		m.setFlash(describeSubmit(data.resp), nil)
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case DetailView:
		return m.renderDetail()
	case ConfirmDeleteView:
		return m.renderConfirm()
	case SubmitView:
		return m.renderSubmit()
	default:
		return m.renderJobs()
	}
}

func (m *Model) handleJobsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.submit):
		m.view = SubmitView
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchJobs()
	}

	if job, ok := m.selectedJob(); ok {
		switch {
		case key.Matches(msg, m.keys.enter):
			m.selected = job
			m.view = DetailView
			return m, nil
		case key.Matches(msg, m.keys.claim), key.Matches(msg, m.keys.retry),
			key.Matches(msg, m.keys.remove), key.Matches(msg, m.keys.watch):
			return m, m.jobAction(msg, job)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = JobsView
		return m, nil
	}
	return m, m.jobAction(msg, m.selected)
}

// jobAction maps c/r/d/w to an operation on job.
func (m *Model) jobAction(msg tea.KeyMsg, job models.Job) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.claim):
		if job.Status != models.StatusCompleted {
			m.setFlash("Only completed jobs can be claimed", nil)
			return nil
		}
		m.view = JobsView
		return m.claim(job.ID)
	case key.Matches(msg, m.keys.retry):
		if job.Status != models.StatusFailed {
			m.setFlash("Only failed jobs can be retried", nil)
			return nil
		}
		return m.retry(job.ID)
	case key.Matches(msg, m.keys.remove):
		m.selected = job
		m.view = ConfirmDeleteView
		return nil
	case key.Matches(msg, m.keys.watch):
		m.tracker.Watch(m.ctx, job.ID)
		m.setFlash(fmt.Sprintf("Watching job %s", job.ID), nil)
		return nil
	}
	return nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = JobsView
		return m, m.delete(m.selected.ID)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = JobsView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSubmitKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.view = JobsView
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		url := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.view = JobsView
		if url == "" {
			return m, nil
		}
		m.setFlash(fmt.Sprintf("Submitting %s...", url), nil)
		return m, m.submit(url)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) selectedJob() (models.Job, bool) {
	item, ok := m.list.SelectedItem().(jobItem)
	if !ok {
		return models.Job{}, false
	}
	return item.job, true
}

func (m *Model) setJobs(jobs []models.Job) tea.Cmd {
	now := m.now()
	items := make([]list.Item, len(jobs))
	for i, j := range jobs {
		items[i] = jobItem{job: j, now: now}
	}
	if m.view == DetailView {
		if i := models.JobIndex(jobs, m.selected.ID); i >= 0 {
			m.selected = jobs[i]
		}
	}
	m.err = nil
	return m.list.SetItems(items)
}

func (m *Model) setFlash(status string, err error) {
	m.flash = status
	m.err = err
}

func describeSubmit(resp models.SubmitResponse) string {
	if summary, ok := resp.Sync(); ok {
		return fmt.Sprintf("Summary ready: conversation %s (%d videos)", summary.ConversationID, summary.VideoCount)
	}
	if job, ok := resp.Async(); ok {
		return fmt.Sprintf("Job %s queued", job.ID)
	}
	return ""
}

func (m *Model) fetchJobs() tea.Cmd {
	return func() tea.Msg {
		views, err := m.jobs.List(m.ctx)
		return jobsFetchedMsg(views, err)
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.events:
			return jobsChangedMsg()
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) claim(id string) tea.Cmd {
	return func() tea.Msg {
		claim, err := m.jobs.Claim(m.ctx, id)
		if err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Claimed job %s as conversation %s", id, claim.ConversationID()), nil)
	}
}

func (m *Model) retry(id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.tracker.Retry(m.ctx, id); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Retrying job %s", id), nil)
	}
}

func (m *Model) delete(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.jobs.Delete(m.ctx, id); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Deleted job %s", id), nil)
	}
}

func (m *Model) submit(url string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.tracker.Submit(m.ctx, url)
		return submittedMsg(resp, err)
	}
}

func (m *Model) renderStatus() string {
	var lines []string

	v := m.jobs.Views()
	lines = append(lines, styles.help.Render(fmt.Sprintf("%d active • %d completed • %d failed",
		len(v.Active), len(v.Completed), len(v.Failed))))

	if sel := m.tracker.Current(); sel.JobID != "" {
		lines = append(lines, styles.label.Render(fmt.Sprintf("Tracking %s (%s)", sel.JobID, sel.State)))
	}
	if m.err != nil {
		lines = append(lines, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.flash != "" {
		lines = append(lines, styles.ok.Render(m.flash))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderJobs() string {
	helpView := m.help.View(m.keys)
	return fmt.Sprintf("%s\n\n%s\n\n%s", m.list.View(), m.renderStatus(), helpView)
}

func (m *Model) renderDetail() string {
	j := m.selected
	title := styles.title.Render(fmt.Sprintf("Job %s", j.ID))

	var b strings.Builder
	fmt.Fprintf(&b, "Status:    %s\n", styles.status(j.Status).Render(string(j.Status)))
	fmt.Fprintf(&b, "Playlist:  %s\n", j.SourceURL)
	fmt.Fprintf(&b, "Created:   %s\n", j.CreatedAt.Local().Format(time.RFC3339))
	if t, ok := j.StartedAt.Get(); ok {
		fmt.Fprintf(&b, "Started:   %s\n", t.Local().Format(time.RFC3339))
	}
	if t, ok := j.CompletedAt.Get(); ok {
		fmt.Fprintf(&b, "Finished:  %s\n", t.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Elapsed:   %s\n", formatter.Elapsed(j, m.now()))
	if msg, ok := j.ErrorMessage.Get(); ok {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(msg))
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	switch j.Status {
	case models.StatusCompleted:
		helpKeys = append([]key.Binding{m.keys.claim, m.keys.remove}, helpKeys...)
	case models.StatusFailed:
		helpKeys = append([]key.Binding{m.keys.retry, m.keys.remove}, helpKeys...)
	default:
		helpKeys = append([]key.Binding{m.keys.watch}, helpKeys...)
	}

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, b.String(), m.renderStatus(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Delete job %s?", m.selected.ID))
	info := fmt.Sprintf("\nPlaylist: %s\nStatus: %s\n", m.selected.SourceURL, m.selected.Status)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSubmit() string {
	title := styles.title.Render("Summarize a playlist")
	helpView := m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		m.keys.back,
	})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}
