// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

// setupCommand initializes the config file and the session database.
func setupCommand(r *Runner) *cli.Command {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the session database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   configPath,
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles account operations
func authCommand(r *Runner) *cli.Command {
	credentials := []cli.Flag{
		&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("PLAYSUM_PASSWORD")},
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in; summaries then run as background jobs",
				Flags:  credentials,
				Action: r.AuthLogin,
			},
			{
				Name:   "register",
				Usage:  "Create an account",
				Flags:  credentials,
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in account",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// summarizeCommand submits a single playlist
func summarizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "summarize",
		Aliases: []string{"sum"},
		Usage:   "Summarize a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Wait for a background job to finish"},
			&cli.BoolFlag{Name: "claim", Usage: "Claim the finished job as a conversation (implies --wait)"},
			jsonFlag(),
		},
		Action: r.Summarize,
	}
}

// bulkCommand submits many playlists
func bulkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bulk",
		Usage: "Summarize every playlist URL listed in a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "File with one playlist URL per line", Required: true},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent submissions (max 10)", Value: 3},
			jsonFlag(),
		},
		Action: r.Bulk,
	}
}

// jobsCommand handles background job operations
func jobsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:  "jobs",
		Usage: "Manage background summarization jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List jobs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Only show jobs with this status (pending, running, completed, failed, active)"},
					jsonFlag(),
				},
				Action: r.JobsList,
			},
			{
				Name:      "get",
				Usage:     "Show one job",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.JobsGet,
			},
			{
				Name:      "claim",
				Usage:     "Convert a completed job into a conversation",
				Arguments: idArg,
				Action:    r.JobsClaim,
			},
			{
				Name:      "retry",
				Usage:     "Retry a failed job",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Wait for the job to finish"},
				},
				Action: r.JobsRetry,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a job",
				Arguments: idArg,
				Action:    r.JobsDelete,
			},
			{
				Name:      "watch",
				Usage:     "Poll a job until it finishes (defaults to the last submitted job)",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "claim", Usage: "Claim the job when it completes"},
				},
				Action: r.JobsWatch,
			},
		},
	}
}

// conversationsCommand handles conversation operations
func conversationsCommand(r *Runner) *cli.Command {
	idArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:    "conversations",
		Aliases: []string{"conv"},
		Usage:   "Browse and manage conversations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List conversations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Page size (1-100)", Value: 20},
					&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
					jsonFlag(),
				},
				Action: r.ConversationsList,
			},
			{
				Name:      "show",
				Usage:     "Show a conversation with its summary and chat",
				Arguments: idArg,
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.ConversationsShow,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a conversation",
				Arguments: idArg,
				Action:    r.ConversationsDelete,
			},
			{
				Name:      "claim",
				Usage:     "Attach an anonymous conversation to your account",
				Arguments: idArg,
				Action:    r.ConversationsClaim,
			},
			{
				Name:      "export",
				Usage:     "Export a conversation to a file",
				Arguments: idArg,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "markdown, text or json", Value: "markdown"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file or directory"},
				},
				Action: r.ConversationsExport,
			},
		},
	}
}

// chatCommand sends a follow-up question
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Ask a follow-up question about a summarized playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
			&cli.StringArg{Name: "message"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "rag", Usage: "Answer from retrieved transcript passages"},
		},
		Action: r.Chat,
	}
}

// tuiCommand returns the top-level TUI command for the interactive job dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive job dashboard",
		Action:  r.TUI,
	}
}
