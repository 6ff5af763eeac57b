package load

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const (
	// StructTagKey is the struct tag key holding accessor tags.
	StructTagKey = "model"
	// MarkerPrefix starts a class-level tag line in a type's doc comment:
	//
	//	// +model:table(users)
	//	type User struct { ... }
	MarkerPrefix = "+model:"
)

// GoSource reads declarations from parsed Go files. Every struct type with a
// class marker or at least one field tagged with `model:"..."` is a declaration,
// and its tagged fields are the accessors.
type GoSource struct {
	// Package is the import path used to qualify class names.
	Package string
	fset    *token.FileSet
	files   []*ast.File
}

// NewGoSource returns a source over already parsed files.
func NewGoSource(pkg string, fset *token.FileSet, files ...*ast.File) *GoSource {
	return &GoSource{Package: pkg, fset: fset, files: files}
}

// ParseGoFiles parses the given files and returns a source over them.
func ParseGoFiles(pkg string, paths ...string) (*GoSource, error) {
	fset := token.NewFileSet()
	files := make([]*ast.File, 0, len(paths))
	for _, p := range paths {
		f, err := parser.ParseFile(fset, p, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("load: parse %s: %w", p, err)
		}
		files = append(files, f)
	}
	return NewGoSource(pkg, fset, files...), nil
}

// ParseGoDir parses the non-test Go files of a directory.
func ParseGoDir(pkg, dir string) (*GoSource, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, err
	}
	var keep []string
	for _, p := range paths {
		if !strings.HasSuffix(p, "_test.go") {
			keep = append(keep, p)
		}
	}
	sort.Strings(keep)
	return ParseGoFiles(pkg, keep...)
}

// ParseGoSource parses a single file from memory. src follows the rules of parser.ParseFile.
func ParseGoSource(pkg, filename string, src any) (*GoSource, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("load: parse %s: %w", filename, err)
	}
	return NewGoSource(pkg, fset, f), nil
}

// Declarations implements Source.
func (s *GoSource) Declarations() ([]*Declaration, error) {
	var decls []*Declaration
	for _, f := range s.files {
		for _, d := range f.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				decl, err := s.declaration(ts, st, doc)
				if err != nil {
					return nil, err
				}
				if decl != nil {
					decls = append(decls, decl)
				}
			}
		}
	}
	sortDeclarations(decls)
	return decls, nil
}

func (s *GoSource) declaration(ts *ast.TypeSpec, st *ast.StructType, doc *ast.CommentGroup) (*Declaration, error) {
	d := &Declaration{
		Name: Qualify(s.Package, ts.Name.Name),
		Pos:  s.pos(ts.Pos()),
		Tags: markers(doc),
	}
	for _, field := range st.Fields.List {
		if field.Tag == nil || len(field.Names) == 0 {
			continue
		}
		raw, err := strconv.Unquote(field.Tag.Value)
		if err != nil {
			return nil, fmt.Errorf("load: %s: invalid struct tag: %w", s.pos(field.Tag.Pos()), err)
		}
		text, ok := reflect.StructTag(raw).Lookup(StructTagKey)
		if !ok {
			continue
		}
		for _, name := range field.Names {
			d.Accessors = append(d.Accessors, &Accessor{
				Name: name.Name,
				Tag:  text,
				Pos:  s.pos(name.Pos()),
			})
		}
	}
	if len(d.Tags) == 0 && len(d.Accessors) == 0 {
		return nil, nil
	}
	return d, nil
}

func (s *GoSource) pos(p token.Pos) string {
	if s.fset == nil || !p.IsValid() {
		return ""
	}
	return s.fset.Position(p).String()
}

// markers returns the class-level tag text of a doc comment.
func markers(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var tags []string
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if rest, ok := strings.CutPrefix(text, MarkerPrefix); ok {
			tags = append(tags, strings.TrimSpace(rest))
		}
	}
	return tags
}
