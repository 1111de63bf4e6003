package scope

import (
	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/interp"
)

// ImportKind classifies a resolved import.
type ImportKind int

const (
	FileImport ImportKind = iota
	DirectoryImport
	LibraryImport
	// ImplicitDirectoryImport is the document's own directory.
	ImplicitDirectoryImport
	// DefaultImport is the engine's default package.
	DefaultImport
)

func (k ImportKind) String() string {
	switch k {
	case FileImport:
		return "file"
	case DirectoryImport:
		return "directory"
	case LibraryImport:
		return "library"
	case ImplicitDirectoryImport:
		return "implicit-directory"
	case DefaultImport:
		return "default"
	}
	return "unknown"
}

// Import is one import after linking.
type Import struct {
	Kind ImportKind
	// Name is an absolute path for file and directory imports and a dotted
	// URI for library imports.
	Name    string
	Version interp.ComponentVersion
	As      string
	// LibraryPath is the directory a library import was found in. Empty
	// for engine packages.
	LibraryPath string
	// Object holds the names the import contributes. Nil when resolution
	// failed.
	Object *interp.ObjectValue
	Node   *ast.UiImport
}

// Valid reports whether the import resolved to something.
func (i Import) Valid() bool { return i.Object != nil }

// Imports is the linked import list of one document together with the
// scopes materialised from it.
type Imports struct {
	list      []Import
	types     *interp.ObjectValue
	jsImports *interp.ObjectValue
}

// NewImports wraps the type scope and JavaScript import scope a link
// pass fills in.
func NewImports(types, jsImports *interp.ObjectValue) *Imports {
	return &Imports{types: types, jsImports: jsImports}
}

func (i *Imports) Append(imp Import) { i.list = append(i.list, imp) }

// All returns the imports in resolution order, implicit imports first.
func (i *Imports) All() []Import {
	out := make([]Import, len(i.list))
	copy(out, i.list)
	return out
}

func (i *Imports) Len() int { return len(i.list) }

// TypeScope maps visible type names (and import qualifiers) to objects.
func (i *Imports) TypeScope() *interp.ObjectValue { return i.types }

// JSImportScope holds the namespaces of imported JavaScript files.
func (i *Imports) JSImportScope() *interp.ObjectValue { return i.jsImports }

// Provider returns the import that contributes name to the type scope.
// When several imports provide it the last one wins, matching the
// lookup order of the merged scope.
func (i *Imports) Provider(name string) (Import, bool) {
	for k := len(i.list) - 1; k >= 0; k-- {
		imp := i.list[k]
		if imp.Object == nil {
			continue
		}
		if imp.As != "" {
			if imp.As == name {
				return imp, true
			}
			continue
		}
		if _, ok := imp.Object.Member(name); ok {
			return imp, true
		}
	}
	return Import{}, false
}
