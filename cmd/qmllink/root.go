package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"qmllink/internal/core/app"
	"qmllink/internal/core/config"
	"qmllink/internal/core/errors"
	"qmllink/internal/core/ports"
	"qmllink/internal/output"
	"qmllink/internal/shared/util"

	"github.com/spf13/cobra"
)

// errProblems makes the process exit with status 1 without printing an
// error, after the problems themselves were reported.
var errProblems = stderrors.New("problems found")

type rootOptions struct {
	configPath string
	envFile    string
	verbose    bool
	format     string
	outPath    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "qmllink",
		Short: "QML/JavaScript semantic model and link resolver",
		Long: `qmllink loads the QML and JavaScript documents of a project, links their
imports and resolves names through the QML scope chain.

Examples:
  qmllink check
  qmllink usages Main.qml:12:9
  qmllink complete Main.qml --offset 240
  qmllink imports --format dot --out build/imports.dot`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	cmd.SetVersionTemplate("qmllink version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default: "+config.DefaultFile+" in the project root)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before QMLLINK_* overrides")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&opts.format, "format", "f", "text", "Output format (text, tsv, json, dot, mermaid)")
	flags.StringVarP(&opts.outPath, "out", "o", "", "Write output to a file instead of stdout")

	cmd.AddCommand(
		newCheckCmd(opts),
		newUsagesCmd(opts),
		newCompleteCmd(opts),
		newImportsCmd(opts),
		newWatchCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// loadConfig resolves the config file, applies env overrides and returns
// the config with the directory relative paths are anchored at.
func (o *rootOptions) loadConfig() (*config.Config, string, string, error) {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return nil, "", "", err
	}

	path := o.configPath
	if path == "" {
		root, err := config.DetectProjectRoot([]string{"."})
		if err != nil {
			return nil, "", "", err
		}
		path = filepath.Join(root, config.DefaultFile)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", "", errors.Wrap(err, errors.CodeValidationError, "invalid config path")
	}

	cfg, err := config.Load(abs)
	switch {
	case err == nil:
	case o.configPath == "" && errors.IsCode(err, errors.CodeNotFound):
		slog.Debug("no config file, using defaults", "path", abs)
		cfg = config.Default()
		abs = ""
	default:
		return nil, "", "", err
	}

	config.ApplyEnvOverrides(cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, "", "", errors.Wrap(stderrors.Join(errs...), errors.CodeValidationError, "invalid configuration after environment overrides")
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(base) {
		if b, err := filepath.Abs(base); err == nil {
			base = b
		}
	}
	return cfg, base, abs, nil
}

// openApp builds and loads the app. configFile is empty when defaults
// are in use.
func (o *rootOptions) openApp(ctx context.Context) (*app.App, string, error) {
	cfg, base, configFile, err := o.loadConfig()
	if err != nil {
		return nil, "", err
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		return nil, "", err
	}
	if errs := config.ValidatePaths(paths); len(errs) > 0 {
		return nil, "", errors.Wrap(stderrors.Join(errs...), errors.CodeValidationError, "invalid paths")
	}

	a, err := app.New(ctx, cfg, paths)
	if err != nil {
		return nil, "", err
	}
	if err := a.Load(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, "", err
	}
	return a, configFile, nil
}

// render runs fn against a writer for the selected format and sends the
// result to --out or stdout.
func (o *rootOptions) render(cmd *cobra.Command, root string, fn func(*output.Writer) error) error {
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := fn(output.NewWriter(&buf, format, root)); err != nil {
		return err
	}
	if o.outPath != "" {
		if err := util.WriteFileWithDirs(o.outPath, buf.Bytes(), 0o644); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to write output"), errors.CtxPath, o.outPath)
		}
		slog.Info("wrote output", "path", o.outPath, "bytes", buf.Len())
		return nil
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// parsePosition accepts "file", "file:line" or "file:line:column". A
// non-negative offset flag is used when no line is given.
func parsePosition(arg string, offset int) (ports.Position, error) {
	pos := ports.Position{Path: arg}
	parts := strings.Split(arg, ":")
	var nums []int
	for len(parts) > 1 && len(nums) < 2 {
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			break
		}
		nums = append([]int{n}, nums...)
		parts = parts[:len(parts)-1]
	}
	pos.Path = strings.Join(parts, ":")
	switch len(nums) {
	case 2:
		pos.Line, pos.Column = nums[0], nums[1]
	case 1:
		pos.Line, pos.Column = nums[0], 1
	}
	if pos.Line < 0 || pos.Column < 0 {
		return pos, errors.New(errors.CodeValidationError, fmt.Sprintf("invalid position %q", arg))
	}
	if pos.Line == 0 {
		if offset < 0 {
			return pos, errors.New(errors.CodeValidationError, "a line or --offset is required")
		}
		pos.Offset = offset
	}
	abs, err := filepath.Abs(pos.Path)
	if err != nil {
		return pos, errors.Wrap(err, errors.CodeValidationError, "invalid path")
	}
	pos.Path = abs
	return pos, nil
}

// readBuffer installs stdin as the unsaved content of path.
func readBuffer(a *app.App, in io.Reader, path string) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to read stdin")
	}
	a.SetBuffer(path, data)
	return nil
}

func closeApp(ctx context.Context, a *app.App) {
	if err := a.Close(ctx); err != nil {
		slog.Warn("failed to close", "error", err)
	}
}
