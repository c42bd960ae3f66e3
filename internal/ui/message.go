package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobsFetched MsgKind = iota
	MsgJobsChanged
	MsgActionDone
	MsgSubmitted
)

type jobsFetched struct {
	views tasks.JobViews
	err   error
}

// jobsFetchedMsg is the constructor for [MsgJobsFetched]
func jobsFetchedMsg(views tasks.JobViews, err error) Msg {
	return Msg{kind: MsgJobsFetched, data: jobsFetched{views, err}}
}

// jobsChangedMsg is the constructor for [MsgJobsChanged]. It carries no data; the model rereads the cache.
func jobsChangedMsg() Msg {
	return Msg{kind: MsgJobsChanged}
}

type actionDone struct {
	status string
	err    error
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{status, err}}
}

type submitted struct {
	resp models.SubmitResponse
	err  error
}

// submittedMsg is the constructor for [MsgSubmitted]
func submittedMsg(resp models.SubmitResponse, err error) Msg {
	return Msg{kind: MsgSubmitted, data: submitted{resp, err}}
}
