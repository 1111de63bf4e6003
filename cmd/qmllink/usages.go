package main

import (
	"qmllink/internal/output"

	"github.com/spf13/cobra"
)

func newUsagesCmd(opts *rootOptions) *cobra.Command {
	var (
		offset int
		stdin  bool
	)
	cmd := &cobra.Command{
		Use:   "usages <file[:line[:column]]>",
		Short: "Find every usage of the symbol at a position",
		Long: `Resolve the name under the position and list every place in the project
that refers to the same definition. Type names find type usages.

Examples:
  qmllink usages Main.qml:12:9
  qmllink usages Main.qml --offset 240
  cat Main.qml | qmllink usages Main.qml:12:9 --stdin`,
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

			report, err := a.Usages(ctx, pos)
			if err != nil {
				return err
			}
			return opts.render(cmd, a.Paths.ProjectRoot, func(w *output.Writer) error {
				return w.Usages(report)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", -1, "Byte offset in the file, used when no line is given")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read unsaved content of the file from stdin")
	return cmd
}
