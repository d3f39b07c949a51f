package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// PendingOptions holds flags for the pending command.
type PendingOptions struct {
	*RootOptions
	Workspace string
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PendingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pending [bot-id]",
		Short: "Show interactions awaiting publication",
		Long: `List a bot's interactions whose draft has diverged from the
published snapshot, or summarize pending counts per bot across a
workspace.

Example:
  botloom pending --db ./bots.db support-bot
  botloom pending --db ./bots.db --workspace ws-main`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runPendingList(cmd, opts, args[0])
			}
			if opts.Workspace == "" {
				return NewExitError(ExitCommandError, "either a bot id argument or --workspace is required")
			}
			return runPendingSummary(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Workspace, "workspace", "", "summarize pending counts across a workspace")

	return cmd
}

func runPendingList(cmd *cobra.Command, opts *PendingOptions, botID string) error {
	f := formatter(cmd, opts.RootOptions)

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	pending, err := svc.PendingPublication(cmd.Context(), botID)
	if err != nil {
		return reportDomainError(f, err)
	}

	if f.Format == "json" {
		return f.Success(pending)
	}
	if len(pending) == 0 {
		fmt.Fprintln(f.Writer, "nothing pending")
		return nil
	}
	for i := range pending {
		ix := &pending[i]
		fmt.Fprintf(f.Writer, "%s  v%-3d  %-20s  %s\n", ix.ID, ix.Version, ix.State(), ix.Name)
	}
	return nil
}

func runPendingSummary(cmd *cobra.Command, opts *PendingOptions) error {
	f := formatter(cmd, opts.RootOptions)

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	summary, err := svc.PendingSummary(cmd.Context(), opts.Workspace)
	if err != nil {
		return reportDomainError(f, err)
	}

	if f.Format == "json" {
		return f.Success(summary)
	}
	if len(summary) == 0 {
		fmt.Fprintln(f.Writer, "nothing pending")
		return nil
	}
	bots := make([]string, 0, len(summary))
	for bot := range summary {
		bots = append(bots, bot)
	}
	sort.Strings(bots)
	for _, bot := range bots {
		fmt.Fprintf(f.Writer, "%-30s  %d pending\n", bot, summary[bot])
	}
	return nil
}
