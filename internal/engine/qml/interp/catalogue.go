package interp

import (
	_ "embed"
	"fmt"
	"strings"

	"qmllink/internal/core/errors"

	"github.com/BurntSushi/toml"
)

//go:embed builtins.toml
var builtinCatalogue string

// Catalogue is the TOML description of packages, types and JavaScript
// globals an Engine is built from.
type Catalogue struct {
	Packages []PackageSpec `toml:"package"`
	Types    []TypeSpec    `toml:"type"`
	Global   GlobalSpec    `toml:"global"`
}

type PackageSpec struct {
	Name     string   `toml:"name"`
	Versions []string `toml:"versions"`
}

type TypeSpec struct {
	Name       string            `toml:"name"`
	Prototype  string            `toml:"prototype"`
	Exports    []string          `toml:"exports"`
	Properties map[string]string `toml:"properties"`
	Signals    []string          `toml:"signals"`
	Methods    []string          `toml:"methods"`
}

type GlobalSpec struct {
	Functions    []string            `toml:"functions"`
	Constructors []string            `toml:"constructors"`
	Objects      map[string][]string `toml:"objects"`
}

// ParseCatalogue decodes and validates a catalogue document.
func ParseCatalogue(data string) (*Catalogue, error) {
	var c Catalogue
	if _, err := toml.Decode(data, &c); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "failed to decode type catalogue")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogueFile reads an additional catalogue from disk.
func LoadCatalogueFile(path string) (*Catalogue, error) {
	var c Catalogue
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeParse, "failed to decode type catalogue"),
			errors.CtxPath, path,
		)
	}
	if err := c.validate(); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &c, nil
}

func (c *Catalogue) validate() error {
	for _, p := range c.Packages {
		if strings.TrimSpace(p.Name) == "" {
			return errors.New(errors.CodeValidationError, "package without name")
		}
		for _, v := range p.Versions {
			if ver, ok := ParseVersion(v); !ok || !ver.IsValid() {
				return errors.New(errors.CodeValidationError, fmt.Sprintf("package %s: invalid version %q", p.Name, v))
			}
		}
	}
	for _, t := range c.Types {
		if strings.TrimSpace(t.Name) == "" {
			return errors.New(errors.CodeValidationError, "type without name")
		}
		for _, exp := range t.Exports {
			if _, _, err := parseExport(exp); err != nil {
				return errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("type %s", t.Name))
			}
		}
	}
	return nil
}

func parseExport(s string) (string, ComponentVersion, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return "", ComponentVersion{}, fmt.Errorf("export %q must be \"Package Version\"", s)
	}
	v, ok := ParseVersion(fields[1])
	if !ok || !v.IsValid() {
		return "", ComponentVersion{}, fmt.Errorf("export %q has invalid version", s)
	}
	return fields[0], v, nil
}

func builtins() *Catalogue {
	c, err := ParseCatalogue(builtinCatalogue)
	if err != nil {
		panic(fmt.Sprintf("embedded type catalogue: %v", err))
	}
	return c
}
