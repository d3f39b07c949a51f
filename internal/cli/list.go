package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botloom/botloom/internal/flow"
	"github.com/botloom/botloom/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	State          string
	NameContains   string
	IncludeDeleted bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <bot-id>",
		Short: "List a bot's interactions",
		Long: `List a bot's interactions in creation order.

Example:
  botloom list --db ./bots.db support-bot
  botloom list --db ./bots.db support-bot --state pending_publication`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", "filter by lifecycle state (draft_only|synced|pending_publication|deleted)")
	cmd.Flags().StringVar(&opts.NameContains, "name", "", "filter by name substring")
	cmd.Flags().BoolVar(&opts.IncludeDeleted, "deleted", false, "include soft-deleted interactions")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions, botID string) error {
	f := formatter(cmd, opts.RootOptions)

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	filter := store.Filter{
		NameContains:   opts.NameContains,
		State:          flow.State(opts.State),
		IncludeDeleted: opts.IncludeDeleted,
	}
	items, err := svc.List(cmd.Context(), botID, filter)
	if err != nil {
		return reportDomainError(f, err)
	}

	if f.Format == "json" {
		return f.Success(items)
	}

	if len(items) == 0 {
		fmt.Fprintln(f.Writer, "no interactions")
		return nil
	}
	var b strings.Builder
	for i := range items {
		ix := &items[i]
		fmt.Fprintf(&b, "%s  v%-3d  %-20s  %s\n", ix.ID, ix.Version, ix.State(), ix.Name)
	}
	fmt.Fprint(f.Writer, b.String())
	return nil
}
