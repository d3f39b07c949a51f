package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botloom/botloom/internal/flow"
)

// CommentOptions holds flags for the comment command.
type CommentOptions struct {
	*RootOptions
	Actor string
	Body  string
}

// NewCommentCommand creates the comment command.
func NewCommentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "comment <interaction-id>",
		Short: "List or add comments on an interaction",
		Long: `Without --body, list an interaction's comments oldest first. With
--body, append a comment (requires --actor).

Example:
  botloom comment --db ./bots.db 0197a2...
  botloom comment --db ./bots.db --actor bob --body "tighten this copy" 0197a2...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Body != "" {
				return runAddComment(cmd, opts, args[0])
			}
			return runListComments(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user id (required with --body)")
	cmd.Flags().StringVar(&opts.Body, "body", "", "comment text to append")

	return cmd
}

func runAddComment(cmd *cobra.Command, opts *CommentOptions, id string) error {
	f := formatter(cmd, opts.RootOptions)

	if opts.Actor == "" {
		return NewExitError(ExitCommandError, "--actor is required with --body")
	}

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := svc.AddComment(cmd.Context(), id, opts.Body, flow.Actor{ID: opts.Actor})
	if err != nil {
		return reportDomainError(f, err)
	}
	return f.Successf(c, "comment %s added", c.ID)
}

func runListComments(cmd *cobra.Command, opts *CommentOptions, id string) error {
	f := formatter(cmd, opts.RootOptions)

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	comments, err := svc.Comments(cmd.Context(), id)
	if err != nil {
		return reportDomainError(f, err)
	}

	if f.Format == "json" {
		return f.Success(comments)
	}
	if len(comments) == 0 {
		fmt.Fprintln(f.Writer, "no comments")
		return nil
	}
	for _, c := range comments {
		fmt.Fprintf(f.Writer, "%s  %s  %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Author, c.Body)
	}
	return nil
}
