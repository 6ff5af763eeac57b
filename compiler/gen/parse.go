package gen

import (
	"errors"
	"fmt"
	"go/token"
	"sort"
	"strings"

	"github.com/syssam/actorgen/compiler/load"
)

// Parse turns one declaration into a model. Relationship targets are kept as
// written; Resolve binds them. Parsing is pure: the same declaration always
// yields structurally equal models.
func Parse(decl *load.Declaration) (*Model, error) {
	scanned, err := load.Scan(decl)
	if err != nil {
		var te *load.TagError
		if errors.As(err, &te) {
			return nil, NewParseError(decl.Name, te.Accessor, "malformed tag", err)
		}
		return nil, NewParseError(decl.Name, "", "", err)
	}
	p := &parser{decl: decl, names: make(map[string]string), columns: make(map[string]string)}
	return p.parse(scanned)
}

// ParseAll parses every declaration independently. Failures are keyed by
// class name and never stop the other declarations.
func ParseAll(decls []*load.Declaration) ([]*Model, map[string]error) {
	var (
		models   []*Model
		failures map[string]error
	)
	for _, d := range decls {
		m, err := Parse(d)
		if err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[d.Name] = errors.Join(failures[d.Name], err)
			continue
		}
		models = append(models, m)
	}
	sort.SliceStable(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, failures
}

type parser struct {
	decl *load.Declaration
	// names and columns map to the accessor that claimed them.
	names   map[string]string
	columns map[string]string
}

func (p *parser) errorf(accessor, format string, args ...any) error {
	return NewParseError(p.decl.Name, accessor, fmt.Sprintf(format, args...), nil)
}

func (p *parser) parse(s *load.Scanned) (*Model, error) {
	m := &Model{
		Name: p.decl.Name,
		Pos:  p.decl.Pos,
	}
	if err := p.classTags(m, s.Tags); err != nil {
		return nil, err
	}
	for _, a := range s.Accessors {
		if err := p.accessor(m, a); err != nil {
			return nil, err
		}
	}
	switch {
	case len(m.Properties) == 0 && len(m.Drafts) == 0:
		return nil, p.errorf("", "no mapped accessors")
	case len(m.Properties) > 0 && m.ID == nil:
		return nil, p.errorf("", "no identifier")
	}
	if err := p.validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// isName reports if s is usable as part of a Go identifier. Keywords are
// fine: names are always prefixed or capitalized in generated code.
func isName(s string) bool {
	return token.IsIdentifier(s) || token.IsKeyword(s)
}

// validate checks the names that end up in generated Go code and SQL text.
func (p *parser) validate(m *Model) error {
	if !isName(m.Short()) {
		return p.errorf("", "invalid class name %q", m.Short())
	}
	if !IsSQLIdentifier(m.Table) {
		return p.errorf("", "invalid table name %q", m.Table)
	}
	for _, prop := range m.Properties {
		if !isName(prop.Name) {
			return p.errorf(prop.Accessor, "invalid property name %q", prop.Name)
		}
		if !IsSQLIdentifier(prop.Column) {
			return p.errorf(prop.Accessor, "invalid column name %q", prop.Column)
		}
	}
	for _, d := range m.Drafts {
		if !isName(d.Property) {
			return p.errorf(d.Accessor, "invalid property name %q", d.Property)
		}
		for _, name := range []string{d.Column, d.InverseColumn} {
			if name != "" && !IsSQLIdentifier(name) {
				return p.errorf(d.Accessor, "invalid column name %q", name)
			}
		}
		if d.Table != "" && !IsSQLIdentifier(d.Table) {
			return p.errorf(d.Accessor, "invalid table name %q", d.Table)
		}
	}
	return nil
}

func (p *parser) classTags(m *Model, tags []load.Tag) error {
	for _, t := range tags {
		if t.Name != load.TagTable {
			continue
		}
		if m.Table != "" {
			return p.errorf("", "multiple table tags")
		}
		args, err := t.ParseArgs()
		if err != nil {
			return NewParseError(p.decl.Name, "", "malformed table tag", err)
		}
		name, err := nameArg(args, "name")
		if err != nil {
			return NewParseError(p.decl.Name, "", "table", err)
		}
		if name == "" {
			return p.errorf("", "empty table name")
		}
		m.Table = name
	}
	if m.Table == "" {
		m.Table = TableName(m.Short())
	}
	return nil
}

// accessorTags groups the recognised tags of one accessor.
type accessorTags struct {
	id, column, enum, rel *load.Tag
}

func (p *parser) group(a load.ScannedAccessor) (*accessorTags, error) {
	g := &accessorTags{}
	for i := range a.Tags {
		t := &a.Tags[i]
		var slot **load.Tag
		switch t.Name {
		case load.TagID:
			slot = &g.id
		case load.TagColumn:
			slot = &g.column
		case load.TagEnum:
			slot = &g.enum
		case load.TagManyToOne, load.TagOneToMany, load.TagManyToMany:
			if g.rel != nil {
				return nil, p.errorf(a.Name, "multiple relationship tags (%s, %s)", g.rel.Name, t.Name)
			}
			slot = &g.rel
		default:
			continue
		}
		if *slot != nil {
			return nil, p.errorf(a.Name, "duplicate %s tag", t.Name)
		}
		*slot = t
	}
	if g.rel != nil && (g.id != nil || g.column != nil || g.enum != nil) {
		return nil, p.errorf(a.Name, "relationship tag %s cannot be combined with id, column or enum", g.rel.Name)
	}
	return g, nil
}

func (p *parser) accessor(m *Model, a load.ScannedAccessor) error {
	g, err := p.group(a)
	if err != nil {
		return err
	}
	switch {
	case g.rel != nil:
		d, err := p.draft(a, g.rel)
		if err != nil {
			return err
		}
		if err := p.claimName(a.Name, d.Property); err != nil {
			return err
		}
		m.Drafts = append(m.Drafts, d)
	case g.id != nil || g.column != nil || g.enum != nil:
		prop, err := p.property(a, g)
		if err != nil {
			return err
		}
		if prop.Identifier {
			if m.ID != nil {
				return p.errorf(a.Name, "multiple identifiers (%s, %s)", m.ID.Name, prop.Name)
			}
			m.ID = prop
		}
		if err := p.claimName(a.Name, prop.Name); err != nil {
			return err
		}
		if other, ok := p.columns[prop.Column]; ok {
			return p.errorf(a.Name, "duplicate column %q (also mapped by %s)", prop.Column, other)
		}
		p.columns[prop.Column] = a.Name
		m.Properties = append(m.Properties, prop)
	}
	return nil
}

func (p *parser) claimName(accessor, name string) error {
	if other, ok := p.names[name]; ok {
		return p.errorf(accessor, "duplicate property name %q (also declared by %s)", name, other)
	}
	p.names[name] = accessor
	return nil
}

func (p *parser) property(a load.ScannedAccessor, g *accessorTags) (*Property, error) {
	prop := &Property{
		Name:       PropertyName(a.Name),
		Accessor:   a.Name,
		Type:       TypePlain,
		Identifier: g.id != nil,
	}
	prop.Column = snake(prop.Name)
	for _, t := range []*load.Tag{g.id, g.column} {
		if t == nil {
			continue
		}
		args, err := t.ParseArgs()
		if err != nil {
			return nil, NewParseError(p.decl.Name, a.Name, "malformed "+t.Name+" tag", err)
		}
		if err := p.columnArgs(a.Name, prop, args); err != nil {
			return nil, err
		}
	}
	if g.enum != nil {
		if prop.Type != TypePlain && prop.Type != TypeEnum {
			return nil, p.errorf(a.Name, "enum values on a property of type %s", prop.Type)
		}
		values, err := p.enumValues(a.Name, g.enum)
		if err != nil {
			return nil, err
		}
		prop.Type, prop.Enum = TypeEnum, values
	}
	if prop.Type == TypeEnum && len(prop.Enum) == 0 {
		return nil, p.errorf(a.Name, "enum property without values")
	}
	return prop, nil
}

func (p *parser) columnArgs(accessor string, prop *Property, args load.Args) error {
	name, err := nameArg(args, "name")
	if err != nil {
		return NewParseError(p.decl.Name, accessor, "column", err)
	}
	// The bare "notnull" flag is positional too.
	if name != "" && !strings.EqualFold(name, "notnull") {
		prop.Column = name
	}
	if v, ok := args.Lookup("type"); ok {
		t := PropertyType(strings.ToLower(v.Text))
		if v.IsList || !t.Valid() {
			return p.errorf(accessor, "unknown type %q", v.Text)
		}
		prop.Type = t
	}
	notNull, err := args.Flag("notnull")
	if err != nil {
		return NewParseError(p.decl.Name, accessor, "", err)
	}
	prop.NotNull = prop.NotNull || notNull
	return nil
}

func (p *parser) enumValues(accessor string, t *load.Tag) ([]string, error) {
	args, err := t.ParseArgs()
	if err != nil {
		return nil, NewParseError(p.decl.Name, accessor, "malformed enum tag", err)
	}
	var (
		values []string
		seen   = make(map[string]bool)
	)
	add := func(v load.Value) {
		for _, s := range v.Strings() {
			if !seen[s] {
				seen[s] = true
				values = append(values, s)
			}
		}
	}
	for _, v := range args.Positional() {
		add(v)
	}
	if v, ok := args.Lookup("values"); ok {
		add(v)
	}
	if len(values) == 0 {
		return nil, p.errorf(accessor, "enum tag without values")
	}
	return values, nil
}

func (p *parser) draft(a load.ScannedAccessor, t *load.Tag) (*Draft, error) {
	args, err := t.ParseArgs()
	if err != nil {
		return nil, NewParseError(p.decl.Name, a.Name, "malformed "+t.Name+" tag", err)
	}
	d := &Draft{
		Property: PropertyName(a.Name),
		Accessor: a.Name,
	}
	switch t.Name {
	case load.TagManyToOne:
		d.Kind = ManyToOne
	case load.TagOneToMany:
		d.Kind = OneToMany
	default:
		d.Kind = ManyToMany
	}
	target, err := nameArg(args, "target")
	if err != nil {
		return nil, NewParseError(p.decl.Name, a.Name, t.Name, err)
	}
	if target == "" || strings.EqualFold(target, "notnull") {
		return nil, p.errorf(a.Name, "%s without a target class", t.Name)
	}
	d.Target = target
	d.Column = stringArg(args, "column")
	d.Inverse = stringArg(args, "inverse")
	switch d.Kind {
	case ManyToOne:
		if d.NotNull, err = args.Flag("notnull"); err != nil {
			return nil, NewParseError(p.decl.Name, a.Name, "", err)
		}
	case ManyToMany:
		d.Table = stringArg(args, "table")
		d.InverseColumn = stringArg(args, "inverse_column")
	}
	return d, nil
}

// nameArg returns the first positional argument, or the value of key.
func nameArg(args load.Args, key string) (string, error) {
	if v, ok := args.Lookup(key); ok {
		if v.IsList {
			return "", fmt.Errorf("%s must be a single value", key)
		}
		return strings.TrimSpace(v.Text), nil
	}
	if pos := args.Positional(); len(pos) > 0 {
		if pos[0].IsList {
			return "", fmt.Errorf("%s must be a single value", key)
		}
		return strings.TrimSpace(pos[0].Text), nil
	}
	return "", nil
}

func stringArg(args load.Args, key string) string {
	v, ok := args.Lookup(key)
	if !ok || v.IsList {
		return ""
	}
	return strings.TrimSpace(v.Text)
}
