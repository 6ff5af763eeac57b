// Package load reads model declarations and the raw metadata tags attached to them.
//
// A declaration is one model class: a fully-qualified name, class-level tag
// text, and an ordered list of accessors with their own tag text. Sources
// produce declarations; Scan turns the raw tag text into ordered Tag values.
package load

import (
	"sort"
	"strings"
)

// Declaration represents a model class declaration as provided by a Source.
type Declaration struct {
	// Name is the fully-qualified class name: "<package path>.<Short>".
	Name string `json:"name" yaml:"name"`
	// Pos is the position of the declaration, e.g. "user.go:12:6".
	Pos string `json:"pos,omitempty" yaml:"pos,omitempty"`
	// Tags holds the class-level raw tag text, one entry per marker.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Accessors holds the mapped accessors in source order.
	Accessors []*Accessor `json:"accessors,omitempty" yaml:"accessors,omitempty"`
}

// Accessor represents one declared accessor and its raw tag text.
type Accessor struct {
	Name string `json:"name" yaml:"name"`
	Tag  string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Pos  string `json:"pos,omitempty" yaml:"pos,omitempty"`
}

// Short returns the class name without its package path.
func (d *Declaration) Short() string {
	return ShortName(d.Name)
}

// Package returns the package path of the class, or "" if the name is unqualified.
func (d *Declaration) Package() string {
	return PackageOf(d.Name)
}

// ShortName returns the part of a class name after the package path.
func ShortName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 && i > strings.LastIndex(name, "/") {
		return name[i+1:]
	}
	return name
}

// PackageOf returns the package path of a class name.
func PackageOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 && i > strings.LastIndex(name, "/") {
		return name[:i]
	}
	return ""
}

// Qualify joins a package path and a short class name.
func Qualify(pkg, short string) string {
	if pkg == "" {
		return short
	}
	return pkg + "." + short
}

// Source enumerates model declarations.
type Source interface {
	Declarations() ([]*Declaration, error)
}

// Declarations is an in-memory Source.
type Declarations []*Declaration

// Declarations returns the declarations sorted by name.
func (d Declarations) Declarations() ([]*Declaration, error) {
	out := make([]*Declaration, len(d))
	copy(out, d)
	sortDeclarations(out)
	return out, nil
}

// Multi combines several sources into one. Declarations are returned sorted by name.
type Multi []Source

// Declarations returns the declarations of all sources.
func (m Multi) Declarations() ([]*Declaration, error) {
	var out []*Declaration
	for _, s := range m {
		decls, err := s.Declarations()
		if err != nil {
			return nil, err
		}
		out = append(out, decls...)
	}
	sortDeclarations(out)
	return out, nil
}

func sortDeclarations(decls []*Declaration) {
	sort.SliceStable(decls, func(i, j int) bool {
		return decls[i].Name < decls[j].Name
	})
}
