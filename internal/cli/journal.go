package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fragio/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Path    string
	Session string
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the statement journal written by serve",
		Long: `Without --session, list the sessions recorded in the journal in the
order they first appeared. With --session, print that session's statements
in execution order.

Examples:
  fragio journal --path ./journal.db
  fragio journal --path ./journal.db --session 3f1c... --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "path to the journal database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to print")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	j, err := journal.Open(opts.Path)
	if err != nil {
		return out.Fail(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if opts.Session == "" {
		sessions, err := j.Sessions(ctx)
		if err != nil {
			return out.Fail(ExitFailure, "failed to list sessions", err)
		}
		if opts.Format == "json" {
			return out.Success(sessions)
		}
		for _, s := range sessions {
			fmt.Fprintln(w, s)
		}
		return nil
	}

	records, err := j.ReadSession(ctx, opts.Session)
	if err != nil {
		return out.Fail(ExitFailure, "failed to read session", err)
	}
	if opts.Format == "json" {
		return out.Success(records)
	}
	for _, r := range records {
		status := r.Status
		if r.Status == journal.StatusError {
			status = r.ErrorCode
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s", r.Seq, r.Operation, status, r.Query)
		if len(r.BindTypes) > 0 {
			fmt.Fprintf(w, "\t[%s]", strings.Join(r.BindTypes, " "))
		}
		fmt.Fprintln(w)
	}
	return nil
}
