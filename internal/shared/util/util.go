package util

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// NormalizePatternPath cleans a path into the slash form patterns match against.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// HasPathPrefix returns true when path equals prefix or is contained within prefix.
func HasPathPrefix(path, prefix string) bool {
	path = NormalizePatternPath(path)
	prefix = NormalizePatternPath(prefix)
	if path == "" || prefix == "" {
		return path == prefix
	}
	if path == prefix || prefix == "/" {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// ContainsPathSeparator returns true when value includes either slash separator.
func ContainsPathSeparator(value string) bool {
	return strings.Contains(value, "/") || strings.Contains(value, "\\")
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WriteFileWithDirs creates parent directories (0755) and writes the file with perm.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}

type pattern struct {
	g        glob.Glob
	fullPath bool
}

// Matcher decides which directories and files are skipped. Patterns
// without a separator match the base name; patterns with one match the
// whole slash-normalized path.
type Matcher struct {
	dirs  []pattern
	files []pattern
}

func NewMatcher(excludeDirs, excludeFiles []string) (*Matcher, error) {
	dirs, err := compilePatterns(excludeDirs)
	if err != nil {
		return nil, err
	}
	files, err := compilePatterns(excludeFiles)
	if err != nil {
		return nil, err
	}
	return &Matcher{dirs: dirs, files: files}, nil
}

func compilePatterns(patterns []string) ([]pattern, error) {
	out := make([]pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		full := ContainsPathSeparator(raw)
		var (
			g   glob.Glob
			err error
		)
		if full {
			g, err = glob.Compile(NormalizePatternPath(raw), '/')
		} else {
			g, err = glob.Compile(raw)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, pattern{g: g, fullPath: full})
	}
	return out, nil
}

func matchAny(patterns []pattern, p string) bool {
	if len(patterns) == 0 {
		return false
	}
	base := filepath.Base(p)
	norm := NormalizePatternPath(p)
	for _, pat := range patterns {
		if pat.fullPath {
			if matchSuffix(pat.g, norm) {
				return true
			}
			continue
		}
		if pat.g.Match(base) {
			return true
		}
	}
	return false
}

// matchSuffix matches g against p and each trailing part of p that starts
// after a separator, so relative patterns apply below any root.
func matchSuffix(g glob.Glob, p string) bool {
	for {
		if g.Match(p) {
			return true
		}
		i := strings.IndexByte(p, '/')
		if i < 0 {
			return false
		}
		p = p[i+1:]
	}
}

func (m *Matcher) ExcludeDir(path string) bool {
	if m == nil {
		return false
	}
	return matchAny(m.dirs, path)
}

func (m *Matcher) ExcludeFile(path string) bool {
	if m == nil {
		return false
	}
	return matchAny(m.files, path)
}
