package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/playsum/internal/formatter"
	"github.com/desertthunder/playsum/internal/models"
)

var _ list.Item = jobItem{}

// jobItem wraps [models.Job] to implement [list.Item].
type jobItem struct {
	job models.Job
	now time.Time
}

func (i jobItem) FilterValue() string { return i.job.SourceURL }
func (i jobItem) Title() string {
	return fmt.Sprintf("%s %s", styles.status(i.job.Status).Render(fmt.Sprintf("[%s]", i.job.Status)), i.job.SourceURL)
}
func (i jobItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.job.ID, i.job.CreatedAt.Local().Format("Jan 2 15:04"))
	if elapsed := formatter.Elapsed(i.job, i.now); elapsed != "-" {
		desc = fmt.Sprintf("%s • %s", desc, elapsed)
	}
	if msg, ok := i.job.ErrorMessage.Get(); ok {
		desc = fmt.Sprintf("%s • %s", desc, msg)
	}
	return desc
}
