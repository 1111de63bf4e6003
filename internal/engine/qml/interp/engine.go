package interp

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"qmllink/internal/core/errors"
)

// DefaultPackage is imported implicitly by every QML document.
const DefaultPackage = "<default>"

// Export is one type made available by a package at a version.
type Export struct {
	Name    string
	Version ComponentVersion
	Object  *ObjectValue
}

// Package is an importable library known to the engine.
type Package struct {
	Name     string
	versions []ComponentVersion
	exports  []Export
}

// Versions lists the declared versions, lowest first.
func (p *Package) Versions() []ComponentVersion {
	out := make([]ComponentVersion, len(p.versions))
	copy(out, p.versions)
	return out
}

// HasVersion reports whether v can be imported: some declared version has
// the same major and a minor at least as high.
func (p *Package) HasVersion(v ComponentVersion) bool {
	for _, have := range p.versions {
		if have.Major == v.Major && v.Minor <= have.Minor {
			return true
		}
	}
	return false
}

// Types returns the exports visible when importing version v, sorted by
// name. Exports from a different major version are excluded; an invalid v
// returns everything.
func (p *Package) Types(v ComponentVersion) []Export {
	var out []Export
	for _, e := range p.exports {
		if v.IsValid() && (e.Version.Major != v.Major || v.Minor < e.Version.Minor) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Engine owns the global object and the built-in type system. It is built
// once and read-only afterwards, so a single engine can be shared by any
// number of goroutines.
type Engine struct {
	arena *Arena

	global            *ObjectValue
	objectPrototype   *ObjectValue
	functionPrototype *ObjectValue
	arrayPrototype    *ObjectValue
	stringPrototype   *ObjectValue
	numberPrototype   *ObjectValue
	booleanPrototype  *ObjectValue

	packages map[string]*Package
	types    map[string]*ObjectValue
}

// NewEngine builds an engine from the embedded catalogue plus any extra
// catalogues. Later catalogues add packages and may redefine types.
func NewEngine(extra ...*Catalogue) (*Engine, error) {
	e := &Engine{
		arena:    NewArena(),
		packages: make(map[string]*Package),
		types:    make(map[string]*ObjectValue),
	}
	e.initPrototypes()

	catalogues := append([]*Catalogue{builtins()}, extra...)
	var specs []TypeSpec
	for _, c := range catalogues {
		if c == nil {
			continue
		}
		for _, p := range c.Packages {
			e.addPackage(p)
		}
		specs = append(specs, c.Types...)
	}
	if err := e.buildTypes(specs); err != nil {
		return nil, err
	}
	e.initGlobal(catalogues)
	return e, nil
}

func (e *Engine) initPrototypes() {
	e.objectPrototype = e.arena.New("Object", KindPlain)
	for _, m := range []string{"toString", "toLocaleString", "valueOf", "hasOwnProperty", "isPrototypeOf", "propertyIsEnumerable"} {
		e.objectPrototype.SetMember(m, e.function(m, Undefined))
	}
	e.objectPrototype.SetMember("constructor", Undefined)

	e.functionPrototype = e.arena.New("Function", KindPlain)
	e.functionPrototype.SetPrototype(e.objectPrototype)
	for _, m := range []string{"call", "apply", "bind"} {
		e.functionPrototype.SetMember(m, e.function(m, Undefined))
	}
	e.functionPrototype.SetMember("length", Number)

	e.arrayPrototype = e.arena.New("Array", KindPlain)
	e.arrayPrototype.SetPrototype(e.objectPrototype)
	e.arrayPrototype.SetMember("length", Number)
	for _, m := range []string{"concat", "join", "pop", "push", "reverse", "shift", "slice", "sort", "splice", "unshift", "indexOf", "lastIndexOf", "every", "some", "forEach", "map", "filter", "reduce"} {
		e.arrayPrototype.SetMember(m, e.function(m, Undefined))
	}

	e.stringPrototype = e.arena.New("String", KindPlain)
	e.stringPrototype.SetPrototype(e.objectPrototype)
	e.stringPrototype.SetMember("length", Number)
	for _, m := range []string{"charAt", "charCodeAt", "concat", "indexOf", "lastIndexOf", "localeCompare", "match", "replace", "search", "slice", "split", "substring", "toLowerCase", "toUpperCase", "trim", "arg"} {
		e.stringPrototype.SetMember(m, e.function(m, String))
	}

	e.numberPrototype = e.arena.New("Number", KindPlain)
	e.numberPrototype.SetPrototype(e.objectPrototype)
	for _, m := range []string{"toFixed", "toExponential", "toPrecision"} {
		e.numberPrototype.SetMember(m, e.function(m, String))
	}

	e.booleanPrototype = e.arena.New("Boolean", KindPlain)
	e.booleanPrototype.SetPrototype(e.objectPrototype)
}

func (e *Engine) function(name string, returns Value) *ObjectValue {
	fn := e.arena.NewFunction(name, returns)
	fn.SetPrototype(e.functionPrototype)
	return fn
}

func (e *Engine) addPackage(spec PackageSpec) {
	pkg, ok := e.packages[spec.Name]
	if !ok {
		pkg = &Package{Name: spec.Name}
		e.packages[spec.Name] = pkg
	}
	for _, raw := range spec.Versions {
		v, _ := ParseVersion(raw)
		dup := false
		for _, have := range pkg.versions {
			if have.Compare(v) == 0 {
				dup = true
				break
			}
		}
		if !dup {
			pkg.versions = append(pkg.versions, v)
		}
	}
	sort.Slice(pkg.versions, func(i, j int) bool { return pkg.versions[i].Compare(pkg.versions[j]) < 0 })
}

func (e *Engine) buildTypes(specs []TypeSpec) error {
	// Later definitions win; keep the position of the first.
	var order []string
	byName := make(map[string]TypeSpec)
	for _, spec := range specs {
		if _, seen := byName[spec.Name]; !seen {
			order = append(order, spec.Name)
		}
		byName[spec.Name] = spec
	}

	for _, name := range order {
		obj := e.arena.New(name, KindMetaType)
		e.types[name] = obj
	}

	for _, name := range order {
		spec := byName[name]
		obj := e.types[name]

		switch {
		case spec.Prototype == "":
			obj.SetPrototype(e.objectPrototype)
		case e.types[spec.Prototype] != nil:
			obj.SetPrototype(e.types[spec.Prototype])
		default:
			return errors.New(errors.CodeValidationError,
				fmt.Sprintf("type %s: unknown prototype %s", name, spec.Prototype))
		}

		props := make([]string, 0, len(spec.Properties))
		for prop := range spec.Properties {
			props = append(props, prop)
		}
		sort.Strings(props)
		for _, prop := range props {
			obj.SetMember(prop, e.PropertyValue(spec.Properties[prop]))
			obj.SetMember(SignalHandlerName(prop+"Changed"), e.function(prop+"Changed", Undefined))
		}
		for _, sig := range spec.Signals {
			obj.SetMember(sig, e.function(sig, Undefined))
			obj.SetMember(SignalHandlerName(sig), e.function(sig, Undefined))
		}
		for _, m := range spec.Methods {
			obj.SetMember(m, e.function(m, Undefined))
		}

		for i, raw := range spec.Exports {
			pkgName, version, err := parseExport(raw)
			if err != nil {
				return errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("type %s", name))
			}
			if i == 0 {
				obj.SetPackageName(pkgName)
			}
			pkg, ok := e.packages[pkgName]
			if !ok {
				return errors.New(errors.CodeValidationError,
					fmt.Sprintf("type %s: export to undeclared package %s", name, pkgName))
			}
			pkg.exports = append(pkg.exports, Export{Name: name, Version: version, Object: obj})
		}
	}
	return nil
}

func (e *Engine) initGlobal(catalogues []*Catalogue) {
	e.global = e.arena.New("Global", KindScope)
	e.global.SetPrototype(e.objectPrototype)
	e.global.SetMember("undefined", Undefined)
	e.global.SetMember("NaN", Number)
	e.global.SetMember("Infinity", Number)

	instances := map[string]*ObjectValue{
		"Array":    e.arrayPrototype,
		"String":   e.stringPrototype,
		"Number":   e.numberPrototype,
		"Boolean":  e.booleanPrototype,
		"Function": e.functionPrototype,
	}
	for _, c := range catalogues {
		if c == nil {
			continue
		}
		for _, name := range c.Global.Functions {
			e.global.SetMember(name, e.function(name, Undefined))
		}
		for _, name := range c.Global.Constructors {
			proto, ok := instances[name]
			if !ok {
				proto = e.arena.New(name, KindPlain)
				proto.SetPrototype(e.objectPrototype)
				instances[name] = proto
			}
			instance := e.arena.New(name, KindPlain)
			instance.SetPrototype(proto)
			ctor := e.function(name, instance)
			ctor.SetMember("prototype", proto)
			e.global.SetMember(name, ctor)
		}
		names := make([]string, 0, len(c.Global.Objects))
		for name := range c.Global.Objects {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			obj := e.arena.New(name, KindPlain)
			obj.SetPrototype(e.objectPrototype)
			for _, fn := range c.Global.Objects[name] {
				obj.SetMember(fn, e.function(fn, Undefined))
			}
			e.global.SetMember(name, obj)
		}
	}
}

// PropertyValue maps a declared property type to the value a lookup of
// that property yields. Object types resolve to their meta type.
func (e *Engine) PropertyValue(typeName string) Value {
	if v, ok := PrimitiveForType(typeName); ok {
		return v
	}
	if t, ok := e.types[typeName]; ok {
		return t
	}
	return Undefined
}

// PrimitiveForType maps QML basic type names to primitive values.
func PrimitiveForType(typeName string) (Value, bool) {
	switch typeName {
	case "real", "int", "double", "number", "enumeration":
		return Number, true
	case "bool", "boolean":
		return Boolean, true
	case "string", "url", "color", "date", "time":
		return String, true
	case "variant", "var", "alias", "point", "rect", "size", "vector3d":
		return Undefined, true
	}
	return nil, false
}

// SignalHandlerName turns `clicked` into `onClicked`.
func SignalHandlerName(signal string) string {
	if signal == "" {
		return ""
	}
	runes := []rune(signal)
	runes[0] = unicode.ToUpper(runes[0])
	return "on" + string(runes)
}

func (e *Engine) Global() *ObjectValue            { return e.global }
func (e *Engine) ObjectPrototype() *ObjectValue   { return e.objectPrototype }
func (e *Engine) FunctionPrototype() *ObjectValue { return e.functionPrototype }
func (e *Engine) ArrayPrototype() *ObjectValue    { return e.arrayPrototype }
func (e *Engine) StringPrototype() *ObjectValue   { return e.stringPrototype }
func (e *Engine) NumberPrototype() *ObjectValue   { return e.numberPrototype }
func (e *Engine) BooleanPrototype() *ObjectValue  { return e.booleanPrototype }

// Package returns a library package by name.
func (e *Engine) Package(name string) (*Package, bool) {
	p, ok := e.packages[name]
	return p, ok
}

// PackageNames lists known packages in sorted order.
func (e *Engine) PackageNames() []string {
	out := make([]string, 0, len(e.packages))
	for name := range e.packages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MetaType returns a catalogue type by name regardless of package.
func (e *Engine) MetaType(name string) (*ObjectValue, bool) {
	t, ok := e.types[name]
	return t, ok
}

// PrototypeFor returns the prototype used when a primitive value is
// accessed as an object.
func (e *Engine) PrototypeFor(v Value) *ObjectValue {
	switch v := v.(type) {
	case *StringValue:
		return e.stringPrototype
	case *NumberValue:
		return e.numberPrototype
	case *BooleanValue:
		return e.booleanPrototype
	case *ObjectValue:
		return v
	}
	return nil
}

// NewObject allocates an object from arena with the engine's
// Object prototype.
func (e *Engine) NewObject(arena *Arena, className string, kind ObjectKind) *ObjectValue {
	obj := arena.New(className, kind)
	obj.SetPrototype(e.objectPrototype)
	return obj
}

// IsLibraryType reports whether o is a catalogue type named name from one
// of the given packages.
func IsLibraryType(o *ObjectValue, name string, packages ...string) bool {
	if o == nil || o.kind != KindMetaType || o.className != name {
		return false
	}
	for _, p := range packages {
		if strings.EqualFold(o.packageName, p) {
			return true
		}
	}
	return false
}
