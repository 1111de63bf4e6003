package document

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/interp"
)

// LibraryComponent is a type declared in a qmldir manifest.
type LibraryComponent struct {
	TypeName  string
	Version   ComponentVersion
	FileName  string
	Internal  bool
	Singleton bool
}

// Path returns the component file relative to dir.
func (c LibraryComponent) Path(dir string) string {
	return filepath.Join(dir, c.FileName)
}

// IsScript reports whether the entry names a JavaScript resource.
func (c LibraryComponent) IsScript() bool {
	return strings.EqualFold(filepath.Ext(c.FileName), ".js")
}

type LibraryPlugin struct {
	Name string
	Path string
}

// LibraryInfo is a parsed qmldir manifest.
type LibraryInfo struct {
	Dir        string
	Module     string
	Components []LibraryComponent
	Plugins    []LibraryPlugin
	TypeInfos  []string
}

// ParseLibraryInfo parses the qmldir manifest of dir. Malformed lines are
// skipped and reported as warnings.
func ParseLibraryInfo(dir string, data []byte) (*LibraryInfo, []Diagnostic) {
	dir = filepath.Clean(dir)
	info := &LibraryInfo{Dir: dir}
	manifest := filepath.Join(dir, "qmldir")

	var diags []Diagnostic
	warn := func(line int, format string, args ...any) {
		diags = append(diags, Diagnostic{
			Path:     manifest,
			Severity: Warning,
			Message:  fmt.Sprintf(format, args...),
			Loc:      lineLocation(line),
		})
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "module":
			if len(fields) != 2 {
				warn(lineNo, "module expects one argument")
				continue
			}
			info.Module = fields[1]
		case "plugin":
			if len(fields) < 2 || len(fields) > 3 {
				warn(lineNo, "plugin expects a name and an optional path")
				continue
			}
			p := LibraryPlugin{Name: fields[1]}
			if len(fields) == 3 {
				p.Path = fields[2]
			}
			info.Plugins = append(info.Plugins, p)
		case "typeinfo":
			if len(fields) != 2 {
				warn(lineNo, "typeinfo expects one argument")
				continue
			}
			info.TypeInfos = append(info.TypeInfos, fields[1])
		case "internal":
			if len(fields) != 3 {
				warn(lineNo, "internal expects a type name and a file")
				continue
			}
			info.Components = append(info.Components, LibraryComponent{
				TypeName: fields[1],
				FileName: fields[2],
				Internal: true,
			})
		case "singleton":
			if len(fields) != 4 {
				warn(lineNo, "singleton expects a type name, a version and a file")
				continue
			}
			v, ok := interp.ParseVersion(fields[2])
			if !ok || !v.IsValid() {
				warn(lineNo, "invalid version %q", fields[2])
				continue
			}
			info.Components = append(info.Components, LibraryComponent{
				TypeName:  fields[1],
				Version:   v,
				FileName:  fields[3],
				Singleton: true,
			})
		default:
			if len(fields) != 3 {
				warn(lineNo, "expected \"TypeName Version File\"")
				continue
			}
			v, ok := interp.ParseVersion(fields[1])
			if !ok || !v.IsValid() {
				warn(lineNo, "invalid version %q", fields[1])
				continue
			}
			info.Components = append(info.Components, LibraryComponent{
				TypeName: fields[0],
				Version:  v,
				FileName: fields[2],
			})
		}
	}
	return info, diags
}

func lineLocation(line int) ast.SourceLocation {
	return ast.SourceLocation{StartLine: line, StartColumn: 1}
}

// ComponentsFor returns, per type name, the entry with the highest version
// not above v. Internal entries are excluded. An invalid v selects the
// highest version of every type.
func (l *LibraryInfo) ComponentsFor(v ComponentVersion) []LibraryComponent {
	best := make(map[string]LibraryComponent)
	for _, c := range l.Components {
		if c.Internal {
			continue
		}
		if v.IsValid() && !c.Version.LessOrEqual(v) {
			continue
		}
		if cur, ok := best[c.TypeName]; ok && c.Version.Compare(cur.Version) <= 0 {
			continue
		}
		best[c.TypeName] = c
	}
	out := make([]LibraryComponent, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}

// LocalComponents returns every entry visible to documents inside the
// library directory itself, internal ones included.
func (l *LibraryInfo) LocalComponents() []LibraryComponent {
	byName := make(map[string]LibraryComponent)
	for _, c := range l.Components {
		if cur, ok := byName[c.TypeName]; ok && c.Version.Compare(cur.Version) <= 0 {
			continue
		}
		byName[c.TypeName] = c
	}
	out := make([]LibraryComponent, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}

// ProvidesVersion reports whether some component exists at or below v.
func (l *LibraryInfo) ProvidesVersion(v ComponentVersion) bool {
	for _, c := range l.Components {
		if !c.Internal && c.Version.LessOrEqual(v) {
			return true
		}
	}
	return false
}
