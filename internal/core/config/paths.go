package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the configured locations made absolute.
type ResolvedPaths struct {
	ProjectRoot string
	Roots       []string
	ImportPaths []string
	Catalogues  []string
	HistoryPath string
}

// ResolvePaths anchors relative paths at base, which is normally the
// directory holding the config file. An empty base falls back to the
// detected project root of cwd.
func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		root, err := DetectProjectRoot([]string{"."})
		if err != nil {
			return ResolvedPaths{}, err
		}
		base = root
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve base %q: %w", base, err)
	}

	resolveAll := func(values []string) []string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, ResolveRelative(abs, v))
		}
		return out
	}

	return ResolvedPaths{
		ProjectRoot: filepath.Clean(abs),
		Roots:       resolveAll(cfg.Workspace.Roots),
		ImportPaths: resolveAll(cfg.Workspace.ImportPaths),
		Catalogues:  resolveAll(cfg.Types.Catalogues),
		HistoryPath: ResolveRelative(abs, cfg.History.Path),
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate looking for a project
// marker and falls back to the working directory.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFile,
		".qmllink",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
