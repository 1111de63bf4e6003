// Package link resolves the imports of every document in a snapshot and
// records the resulting type and JavaScript import scopes on a
// scope.Context.
package link

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/bind"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/scope"
)

// Sink receives diagnostics as they are produced.
type Sink func(document.Diagnostic)

type cacheKey struct {
	kind    scope.ImportKind
	name    string
	version string
}

// issue is a diagnostic not yet placed in a document. Cached imports are
// shared between documents, so placement happens per import statement.
type issue struct {
	severity document.Severity
	message  string
}

type cached struct {
	object      *interp.ObjectValue
	libraryPath string
	issues      []issue
}

// Link links one snapshot into one Context. It is not safe for concurrent
// use; run it to completion before cloning the Context for workers.
type Link struct {
	ctx         *scope.Context
	snapshot    document.Snapshot
	importPaths []string
	arena       *interp.Arena
	cache       map[cacheKey]cached
}

// New prepares a link pass. Import paths are searched in order for
// `A/B/qmldir` when a library import is not an engine package.
func New(ctx *scope.Context, snapshot document.Snapshot, importPaths []string) *Link {
	paths := make([]string, 0, len(importPaths))
	for _, p := range importPaths {
		if p != "" {
			paths = append(paths, filepath.Clean(p))
		}
	}
	return &Link{
		ctx:         ctx,
		snapshot:    snapshot,
		importPaths: paths,
		arena:       interp.NewArena(),
		cache:       make(map[cacheKey]cached),
	}
}

// Run links every QML document of the snapshot and reports diagnostics to
// sink, which may be nil. It returns the number of documents linked.
func (l *Link) Run(sink Sink) int {
	linked := 0
	for _, doc := range l.snapshot.Documents() {
		if doc.QmlProgram() == nil {
			continue
		}
		for _, d := range l.linkDocument(doc) {
			if sink != nil {
				sink(d)
			}
		}
		linked++
	}
	slog.Debug("linked snapshot", "documents", linked, "import_cache", len(l.cache))
	return linked
}

// RunDocument links the whole snapshot and returns the diagnostics that
// belong to doc.
func (l *Link) RunDocument(doc *document.Document) []document.Diagnostic {
	var out []document.Diagnostic
	l.Run(func(d document.Diagnostic) {
		if doc != nil && d.Path == doc.Path() {
			out = append(out, d)
		}
	})
	return out
}

func (l *Link) linkDocument(doc *document.Document) []document.Diagnostic {
	types := l.arena.New("Types", interp.KindScope)
	jsImports := l.arena.New("JSImports", interp.KindScope)
	imps := scope.NewImports(types, jsImports)

	var diags []document.Diagnostic
	add := func(imp scope.Import, ds []document.Diagnostic) {
		imps.Append(imp)
		diags = append(diags, ds...)
		if imp.Object == nil {
			return
		}
		if imp.Kind == scope.FileImport && isScript(imp.Name) {
			if imp.As != "" {
				jsImports.SetMember(imp.As, imp.Object)
			}
			return
		}
		l.importObject(types, imp.Object, imp.As)
	}

	add(l.defaultImport())
	add(l.implicitDirectoryImport(doc))
	for _, info := range doc.Bind().Imports() {
		switch info.Kind {
		case bind.FileImport, bind.DirectoryImport:
			add(l.importFileOrDirectory(doc, info))
		case bind.LibraryImport:
			add(l.importNonFile(doc, info))
		}
	}
	l.ctx.SetImports(doc.Path(), imps)
	return diags
}

// importObject copies the members of source into target. With a
// qualifier the members go into a namespace stored under that name, so
// `import X as Y` exposes `Y.Name` and several imports may share Y.
func (l *Link) importObject(target, source *interp.ObjectValue, qualifier string) {
	if qualifier != "" {
		v, _ := target.Member(qualifier)
		ns := interp.AsObject(v)
		if ns == nil || ns.Kind() != interp.KindNamespace {
			ns = l.newNamespace(qualifier)
			target.SetMember(qualifier, ns)
		}
		target = ns
	}
	for _, name := range source.MemberNames() {
		v, _ := source.Member(name)
		target.SetMember(name, v)
	}
}

func (l *Link) lookupCache(key cacheKey, build func() cached) cached {
	if c, ok := l.cache[key]; ok {
		return c
	}
	c := build()
	l.cache[key] = c
	return c
}

func (l *Link) newNamespace(name string) *interp.ObjectValue {
	return l.arena.New(name, interp.KindNamespace)
}

func (l *Link) defaultImport() (scope.Import, []document.Diagnostic) {
	imp := scope.Import{Kind: scope.DefaultImport, Name: interp.DefaultPackage}
	c := l.lookupCache(cacheKey{kind: scope.DefaultImport, name: interp.DefaultPackage}, func() cached {
		pkg, ok := l.ctx.Engine().Package(interp.DefaultPackage)
		if !ok {
			return cached{}
		}
		ns := l.newNamespace(interp.DefaultPackage)
		for _, e := range pkg.Types(interp.ComponentVersion{}) {
			ns.SetMember(e.Name, e.Object)
		}
		return cached{object: ns}
	})
	imp.Object = c.object
	return imp, nil
}

func (l *Link) implicitDirectoryImport(doc *document.Document) (scope.Import, []document.Diagnostic) {
	dir := doc.Dir()
	imp := scope.Import{Kind: scope.ImplicitDirectoryImport, Name: dir}
	c := l.lookupCache(cacheKey{kind: scope.ImplicitDirectoryImport, name: dir}, func() cached {
		ns := l.newNamespace(dir)
		l.loadDirectoryDocuments(ns, dir)
		if lib, ok := l.snapshot.Library(dir); ok {
			for _, is := range l.loadQmldirComponents(ns, lib.LocalComponents(), lib) {
				slog.Debug("implicit import", "dir", dir, "warning", is.message)
			}
		}
		return cached{object: ns}
	})
	imp.Object = c.object
	return imp, nil
}

// loadDirectoryDocuments adds every QML component of dir by its file name.
func (l *Link) loadDirectoryDocuments(ns *interp.ObjectValue, dir string) int {
	n := 0
	for _, other := range l.snapshot.DocumentsInDirectory(dir) {
		root := other.Bind().RootObject()
		if other.ComponentName() == "" || root == nil {
			continue
		}
		ns.SetMember(other.ComponentName(), root)
		n++
	}
	return n
}

// loadQmldirComponents adds the listed qmldir components and reports
// entries whose file is not in the snapshot.
func (l *Link) loadQmldirComponents(ns *interp.ObjectValue, components []document.LibraryComponent, lib *document.LibraryInfo) []issue {
	var issues []issue
	for _, comp := range components {
		path := comp.Path(lib.Dir)
		other, ok := l.snapshot.Document(path)
		if !ok || other.Bind().RootObject() == nil {
			issues = append(issues, issue{document.Warning,
				fmt.Sprintf("component %s of library %s not found: %s", comp.TypeName, lib.Dir, path)})
			continue
		}
		ns.SetMember(comp.TypeName, other.Bind().RootObject())
	}
	return issues
}

func (l *Link) importFileOrDirectory(doc *document.Document, info bind.ImportInfo) (scope.Import, []document.Diagnostic) {
	imp := scope.Import{Name: info.Name, Version: info.Version, As: info.As, Node: info.Node}
	if info.Kind == bind.DirectoryImport {
		imp.Kind = scope.DirectoryImport
		c := l.lookupCache(cacheKey{kind: scope.DirectoryImport, name: info.Name, version: info.VersionText}, func() cached {
			ns := l.newNamespace(info.Name)
			found := l.loadDirectoryDocuments(ns, info.Name) > 0
			var issues []issue
			if lib, ok := l.snapshot.Library(info.Name); ok {
				found = true
				issues = l.loadQmldirComponents(ns, lib.ComponentsFor(info.Version), lib)
			}
			if !found {
				return cached{issues: []issue{{document.Warning, fmt.Sprintf("directory not found: %s", info.Name)}}}
			}
			return cached{object: ns, issues: issues}
		})
		imp.Object = c.object
		return imp, place(c.issues, info.Node, doc.Path())
	}

	imp.Kind = scope.FileImport
	other, ok := l.snapshot.Document(info.Name)
	if !ok {
		return imp, place([]issue{{document.Error, fmt.Sprintf("file not found: %s", info.Name)}}, info.Node, doc.Path())
	}
	root := other.Bind().RootObject()
	if root == nil {
		return imp, nil
	}
	if isScript(info.Name) {
		if info.As == "" {
			return imp, place([]issue{{document.Error, "JavaScript file import requires a qualifier"}}, info.Node, doc.Path())
		}
		imp.Object = root
		return imp, nil
	}
	c := l.lookupCache(cacheKey{kind: scope.FileImport, name: info.Name}, func() cached {
		ns := l.newNamespace(info.Name)
		ns.SetMember(other.ComponentName(), root)
		return cached{object: ns}
	})
	imp.Object = c.object
	return imp, nil
}

// importNonFile resolves `import A.B 1.0` against the engine packages and
// then the qmldir manifests found under the import paths.
func (l *Link) importNonFile(doc *document.Document, info bind.ImportInfo) (scope.Import, []document.Diagnostic) {
	imp := scope.Import{Kind: scope.LibraryImport, Name: info.Name, Version: info.Version, As: info.As, Node: info.Node}
	if !info.Version.IsValid() {
		return imp, place([]issue{{document.Error, fmt.Sprintf("library import %s requires a version", info.Name)}}, info.Node, doc.Path())
	}

	c := l.lookupCache(cacheKey{kind: scope.LibraryImport, name: info.Name, version: info.Version.String()}, func() cached {
		if pkg, ok := l.ctx.Engine().Package(info.Name); ok {
			if !pkg.HasVersion(info.Version) {
				return cached{issues: []issue{{document.Error,
					fmt.Sprintf("package %s does not provide version %s", info.Name, info.Version)}}}
			}
			ns := l.newNamespace(info.Name)
			for _, e := range pkg.Types(info.Version) {
				ns.SetMember(e.Name, e.Object)
			}
			return cached{object: ns}
		}

		rel := filepath.Join(strings.Split(info.Name, ".")...)
		for _, importPath := range l.importPaths {
			dir := filepath.Join(importPath, rel)
			lib, ok := l.snapshot.Library(dir)
			if !ok {
				continue
			}
			var issues []issue
			if !lib.ProvidesVersion(info.Version) {
				issues = append(issues, issue{document.Warning,
					fmt.Sprintf("library %s does not provide version %s", info.Name, info.Version)})
			}
			ns := l.newNamespace(info.Name)
			issues = append(issues, l.loadQmldirComponents(ns, lib.ComponentsFor(info.Version), lib)...)
			return cached{object: ns, libraryPath: dir, issues: issues}
		}
		return cached{issues: []issue{{document.Error, fmt.Sprintf("package not found: %s", info.Name)}}}
	})
	imp.Object = c.object
	imp.LibraryPath = c.libraryPath
	return imp, place(c.issues, info.Node, doc.Path())
}

// place turns issues into diagnostics on an import statement of the
// document at path.
func place(issues []issue, node *ast.UiImport, path string) []document.Diagnostic {
	if len(issues) == 0 {
		return nil
	}
	out := make([]document.Diagnostic, len(issues))
	for i, is := range issues {
		out[i] = document.Diagnostic{Path: path, Severity: is.severity, Message: is.message}
		if node != nil {
			out[i].Loc = importLocation(node)
		}
	}
	return out
}

func importLocation(node *ast.UiImport) ast.SourceLocation {
	switch {
	case node.FileNameToken.IsValid():
		return node.FileNameToken
	case len(node.ImportURI) > 0:
		return node.ImportURI[0].Token
	}
	return node.ImportToken
}

func isScript(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".js")
}
