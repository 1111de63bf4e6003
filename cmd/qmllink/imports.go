package main

import (
	"qmllink/internal/output"

	"github.com/spf13/cobra"
)

func newImportsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "imports",
		Short: "Show the import graph of the project",
		Long: `List the explicit imports of every QML document after linking. Use
--format dot or --format mermaid to draw the graph; unresolved imports are
highlighted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			edges, err := a.Imports(ctx)
			if err != nil {
				return err
			}
			return opts.render(cmd, a.Paths.ProjectRoot, func(w *output.Writer) error {
				return w.Imports(edges)
			})
		},
	}
}
