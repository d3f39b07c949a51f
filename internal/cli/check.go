package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <bot-id>",
		Short: "Scan a bot's published graph for consistency findings",
		Long: `Scan the published snapshots of a bot and report every finding:
goto targets that are missing or deleted, and trigger tokens that are
malformed or claimed by more than one published interaction.

Exits 1 when findings exist, 0 when the graph is clean.

Example:
  botloom check --db ./bots.db support-bot`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command, opts *RootOptions, botID string) error {
	f := formatter(cmd, opts)

	svc, closeStore, err := openService(opts)
	if err != nil {
		return err
	}
	defer closeStore()

	issues, err := svc.PublishErrors(cmd.Context(), botID)
	if err != nil {
		return reportDomainError(f, err)
	}

	if f.Format == "json" {
		if err := f.Success(issues); err != nil {
			return err
		}
	} else if len(issues) == 0 {
		fmt.Fprintln(f.Writer, "published graph is clean")
	} else {
		for _, issue := range issues {
			fmt.Fprintln(f.Writer, issue.String())
		}
	}

	if len(issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d findings", len(issues)))
	}
	return nil
}
