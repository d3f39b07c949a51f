package cli

import (
	"github.com/spf13/cobra"

	"github.com/botloom/botloom/internal/flow"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Actor   string
	Cascade bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <interaction-id>",
		Short: "Soft-delete an interaction",
		Long: `Soft-delete an interaction. While other live drafts still reference
it the delete is rejected with the blocking set; --cascade first
rewrites those drafts to drop the references, then deletes.

Example:
  botloom delete --db ./bots.db --actor alice 0197a2...
  botloom delete --db ./bots.db --actor alice --cascade 0197a2...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user id (required)")
	cmd.Flags().BoolVar(&opts.Cascade, "cascade", false, "repair referencing drafts before deleting")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runDelete(cmd *cobra.Command, opts *DeleteOptions, id string) error {
	f := formatter(cmd, opts.RootOptions)

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := svc.Delete(cmd.Context(), id, opts.Cascade, flow.Actor{ID: opts.Actor})
	if err != nil {
		return reportDomainError(f, err)
	}

	if len(res.RepairedSources) > 0 {
		return f.Successf(res, "deleted %s, repaired %d referencing drafts", res.DeletedID, len(res.RepairedSources))
	}
	return f.Successf(res, "deleted %s", res.DeletedID)
}
