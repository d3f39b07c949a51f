package cli

import (
	"github.com/spf13/cobra"

	"github.com/botloom/botloom/internal/flow"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	Actor   string
	Version int64
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish <interaction-id>",
		Short: "Promote an interaction's draft to its published snapshot",
		Long: `Publish an interaction: the draft content becomes the published
snapshot. The version flag is the optimistic token; a stale token is
rejected with a conflict.

Example:
  botloom publish --db ./bots.db --actor alice --version 3 0197a2...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user id (required)")
	cmd.Flags().Int64Var(&opts.Version, "version", 0, "expected current version (required)")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

func runPublish(cmd *cobra.Command, opts *PublishOptions, id string) error {
	f := formatter(cmd, opts.RootOptions)

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := svc.Publish(cmd.Context(), id, opts.Version, flow.Actor{ID: opts.Actor})
	if err != nil {
		return reportDomainError(f, err)
	}
	return f.Successf(rec, "published %s (%s) at version %d", rec.ID, rec.Name, rec.Version)
}
