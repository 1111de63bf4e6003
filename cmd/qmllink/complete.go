package main

import (
	"qmllink/internal/output"

	"github.com/spf13/cobra"
)

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	var (
		offset int
		stdin  bool
		value  bool
	)
	cmd := &cobra.Command{
		Use:   "complete <file[:line[:column]]>",
		Short: "List completion candidates at a position",
		Long: `List the names visible at the position, most specific scope first. After a
dot the members of the expression before it are listed. With --value the
expression under the position is resolved instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[0], offset)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, _, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)
			if stdin {
				if err := readBuffer(a, cmd.InOrStdin(), pos.Path); err != nil {
					return err
				}
			}

			if value {
				v, err := a.ValueAt(ctx, pos)
				if err != nil {
					return err
				}
				return opts.render(cmd, a.Paths.ProjectRoot, func(w *output.Writer) error {
					return w.Value(v)
				})
			}
			res, err := a.Complete(ctx, pos)
			if err != nil {
				return err
			}
			return opts.render(cmd, a.Paths.ProjectRoot, func(w *output.Writer) error {
				return w.Completions(res)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", -1, "Byte offset in the file, used when no line is given")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read unsaved content of the file from stdin")
	cmd.Flags().BoolVar(&value, "value", false, "Resolve the expression under the position")
	return cmd
}
