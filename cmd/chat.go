package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/shared"
)

// Chat sends a follow-up question about a conversation and prints the answer.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	message := cmd.StringArg("message")
	if message == "" {
		return fmt.Errorf("%w: message", shared.ErrMissingArgument)
	}

	reply, err := r.conversations.Chat(ctx, id, message, cmd.Bool("rag"))
	if err != nil {
		return err
	}
	r.tracker.Select(id)

	r.writePlain("%s\n", reply.Response)
	return nil
}
