package main

import (
	"qmllink/internal/output"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Link the project and report problems",
		Long: `Parse every QML and JavaScript document, link all imports and report
parse, qmldir and import diagnostics. Exits with status 1 when an error is
reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			res, err := a.Check(ctx)
			if err != nil {
				return err
			}
			if err := opts.render(cmd, a.Paths.ProjectRoot, func(w *output.Writer) error {
				return w.Diagnostics(res.Diagnostics)
			}); err != nil {
				return err
			}
			if res.HasErrors() {
				return errProblems
			}
			return nil
		},
	}
}
