package main

import (
	"qmllink/internal/output"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent usage searches",
		Long:  "List the usage searches recorded for this project, newest first. Requires [history] enabled = true.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			rows, err := a.History(ctx, limit)
			if err != nil {
				return err
			}
			return opts.render(cmd, a.Paths.ProjectRoot, func(w *output.Writer) error {
				return w.Searches(rows)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of searches to show (0 for all)")
	return cmd
}
