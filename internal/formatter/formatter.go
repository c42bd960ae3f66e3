// package formatter renders jobs and conversations for the terminal and exports summaries (Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/shared"
)

const timeLayout = "2006-01-02 15:04"

// Format is an export file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatMarkdown, FormatText, FormatJSON}

// ParseFormat accepts a format name or its file extension.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, name)
}

// Extension returns the file extension used for f.
func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatJSON:
		return ".json"
	default:
		return ".md"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

// Elapsed returns how long the job ran, or has been running as of now.
func Elapsed(job models.Job, now time.Time) string {
	start, ok := job.StartedAt.Get()
	if !ok {
		return "-"
	}
	end := job.CompletedAt.OrElse(now)
	return end.Sub(start).Round(time.Second).String()
}

// JobsTable writes jobs as a table with columns: ID, Status, Playlist, Created, Elapsed, Error
func JobsTable(w io.Writer, jobs []models.Job, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Status", "Playlist", "Created", "Elapsed", "Error")

	for _, job := range jobs {
		if err := table.Append(
			job.ID,
			string(job.Status),
			job.SourceURL,
			formatTime(job.CreatedAt),
			Elapsed(job, now),
			job.ErrorMessage.OrElse("-"),
		); err != nil {
			return fmt.Errorf("failed to append job row: %w", err)
		}
	}

	return table.Render()
}

// ConversationsTable writes conversation rows with columns: ID, Title, Updated, Snippet
func ConversationsTable(w io.Writer, convs []models.Conversation) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Title", "Updated", "Snippet")

	for _, c := range convs {
		snippet := "-"
		if c.SummarySnippet != nil && *c.SummarySnippet != "" {
			snippet = truncate(*c.SummarySnippet, 60)
		}
		if err := table.Append(c.ID, c.DisplayTitle(), formatTime(c.UpdatedAt), snippet); err != nil {
			return fmt.Errorf("failed to append conversation row: %w", err)
		}
	}

	return table.Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ExportToMarkdown converts a conversation to Markdown with the summary followed by the chat history
func ExportToMarkdown(c models.ConversationDetail) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", c.DisplayTitle())
	if c.PlaylistURL != nil && *c.PlaylistURL != "" {
		fmt.Fprintf(&buf, "**Playlist**: %s\n", *c.PlaylistURL)
	}
	fmt.Fprintf(&buf, "**Created**: %s\n\n", formatTime(c.CreatedAt))

	buf.WriteString("## Summary\n\n")
	buf.WriteString(strings.TrimSpace(c.Summary))
	buf.WriteString("\n")

	if len(c.Messages) > 0 {
		buf.WriteString("\n## Chat\n")
		for _, m := range c.Messages {
			fmt.Fprintf(&buf, "\n**%s** (%s):\n\n%s\n", roleLabel(m.Role), formatTime(m.CreatedAt), strings.TrimSpace(m.Content))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a conversation to plain text format
func ExportToText(c models.ConversationDetail) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Conversation: %s\n", c.DisplayTitle())
	if c.PlaylistURL != nil && *c.PlaylistURL != "" {
		fmt.Fprintf(&buf, "Playlist: %s\n", *c.PlaylistURL)
	}
	fmt.Fprintf(&buf, "Messages: %d\n\n", len(c.Messages))
	buf.WriteString(strings.TrimSpace(c.Summary))
	buf.WriteString("\n")

	for _, m := range c.Messages {
		fmt.Fprintf(&buf, "\n%s: %s\n", roleLabel(m.Role), strings.TrimSpace(m.Content))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a conversation to indented JSON
func ExportToJSON(c models.ConversationDetail) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return append(data, '\n'), nil
}

func roleLabel(r models.Role) string {
	if r == models.RoleModel {
		return "Assistant"
	}
	return "You"
}

// Export renders c in format f.
func Export(c models.ConversationDetail, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return ExportToMarkdown(c)
	case FormatText:
		return ExportToText(c)
	case FormatJSON:
		return ExportToJSON(c)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
}

// WriteExport writes c to path in format f and returns the path written.
//
// Defaults to {conversation.ID}{ext} in the current directory. When path is a directory the default name is
// placed inside it.
func WriteExport(c models.ConversationDetail, f Format, path string) (string, error) {
	name := c.ID + f.Extension()
	switch {
	case path == "":
		path = name
	case isDir(path):
		path = filepath.Join(path, name)
	}

	data, err := Export(c, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
