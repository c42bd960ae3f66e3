package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/formatter"
	"github.com/desertthunder/playsum/internal/models"
	"github.com/desertthunder/playsum/internal/tasks"
)

// ConversationsList prints one page of conversations.
func (r *Runner) ConversationsList(ctx context.Context, cmd *cli.Command) error {
	page := tasks.Page{Limit: cmd.Int("limit"), Offset: cmd.Int("offset")}
	convs, err := r.conversations.List(ctx, page)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if convs == nil {
			convs = []models.Conversation{}
		}
		return r.writeJSON(convs, true)
	}

	if len(convs) == 0 {
		r.writePlain("No conversations found.\n")
		return nil
	}
	if err := formatter.ConversationsTable(r.output, convs); err != nil {
		return fmt.Errorf("failed to render conversations: %w", err)
	}
	return nil
}

// ConversationsShow prints a conversation with its summary and chat history.
func (r *Runner) ConversationsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}

	detail, err := r.conversations.Get(ctx, id)
	if err != nil {
		return err
	}
	r.tracker.Select(detail.ID)

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}

	out, err := formatter.ExportToMarkdown(detail)
	if err != nil {
		return err
	}
	return r.writePlain("%s", out)
}

// ConversationsDelete deletes a conversation.
func (r *Runner) ConversationsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.conversations.Delete(ctx, id); err != nil {
		return err
	}
	r.writePlain("✓ Deleted conversation %s\n", id)
	return nil
}

// ConversationsClaim attaches a conversation created anonymously to the signed-in account.
func (r *Runner) ConversationsClaim(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.conversations.Claim(ctx, id); err != nil {
		return err
	}
	r.writePlain("✓ Conversation %s now belongs to your account\n", id)
	return nil
}

// ConversationsExport writes a conversation to a file in the chosen format.
func (r *Runner) ConversationsExport(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	detail, err := r.conversations.Get(ctx, id)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(detail, format, cmd.String("output"))
	if err != nil {
		return fmt.Errorf("failed to export conversation %s: %w", id, err)
	}

	r.logger.Info("exported conversation", "id", id, "format", format, "path", path)
	r.writePlain("✓ Exported %s to %s\n", detail.DisplayTitle(), path)
	return nil
}
