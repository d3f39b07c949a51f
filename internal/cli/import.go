package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botloom/botloom/internal/compiler"
	"github.com/botloom/botloom/internal/flow"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Actor string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <definition.cue>",
		Short: "Import a CUE bot definition as draft interactions",
		Long: `Compile a CUE bot definition and create its interactions as drafts.

Goto targets written against interaction names are resolved to the ids
assigned during the import.

Example:
  botloom import --db ./bots.db --actor alice ./support.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user id (required)")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, path string) error {
	f := formatter(cmd, opts.RootOptions)

	def, err := compiler.CompileFile(path)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			_ = f.Error(ErrCodeCompileFailed, compileErr.Error(), nil)
			return WrapExitError(ExitFailure, ErrCodeCompileFailed, err)
		}
		return WrapExitError(ExitCommandError, fmt.Sprintf("read definition %s", path), err)
	}
	f.VerboseLog("compiled %s: bot %s, %d interactions", path, def.BotID, len(def.Interactions))

	svc, closeStore, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := compiler.Import(cmd.Context(), svc, def, flow.Actor{ID: opts.Actor})
	if err != nil {
		return reportDomainError(f, err)
	}

	return f.Successf(res, "imported %d interactions into bot %s", len(res.Created), res.BotID)
}
