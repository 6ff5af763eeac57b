package gen

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/syssam/actorgen/compiler/load"
)

// Graph is a resolved model set. It owns the canonical links; the
// relationships of its models reference them.
type Graph struct {
	// Models are the successfully resolved models, sorted by name.
	Models []*Model
	// Links are the canonical relationships in resolution order.
	Links []*Link
	// Failed holds the resolution failures by class name.
	Failed map[string]error

	all map[string]*Model
}

// Model returns the model with the given name. Failed models are looked up
// too, so links to them can still be rendered.
func (g *Graph) Model(name string) (*Model, bool) {
	m, ok := g.all[name]
	return m, ok
}

// Err returns the joined failures in class name order, or nil.
func (g *Graph) Err() error {
	if len(g.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(g.Failed))
	for name := range g.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, g.Failed[name])
	}
	return errors.Join(errs...)
}

// Resolve binds the relationship drafts of the models into canonical links and
// per-model views. Inputs are never mutated: the graph holds copies. Failures
// are per model; the returned graph holds every model that resolved, and the
// error joins the failures.
//
// Resolution recomputes views from drafts, so resolving the models of a graph
// again yields an equal graph.
func Resolve(models []*Model) (*Graph, error) {
	r := &resolver{
		byName:  make(map[string]*Model, len(models)),
		byShort: make(map[string][]*Model),
		refs:    make(map[string][]*ref),
		errs:    make(map[string][]error),
		claimed: make(map[string]map[string]bool),
	}
	r.index(models)
	r.lookup()
	r.pairExplicit()
	r.pairImplicit()
	r.link()
	g := r.graph()
	return g, g.Err()
}

// ref is a draft with its resolved target.
type ref struct {
	owner  *Model
	draft  *Draft
	target *Model
	// paired is set once the ref is consumed by a pair or an error.
	paired  bool
	partner *ref
	view    *Relationship
}

// pending is one logical relationship: a mirrored pair or a one-sided declaration.
type pending struct {
	a, b *ref
}

type resolver struct {
	models  []*Model
	byName  map[string]*Model
	byShort map[string][]*Model
	refs    map[string][]*ref
	order   []*ref
	errs    map[string][]error
	claimed map[string]map[string]bool
	pending []*pending
	links   []*Link
	implied map[string][]*Relationship
}

func (r *resolver) fail(err *ResolutionError, models ...*Model) {
	seen := make(map[string]bool)
	for _, m := range models {
		if m == nil || seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		r.errs[m.Name] = append(r.errs[m.Name], err)
	}
}

func (r *resolver) failed(name string) bool {
	return len(r.errs[name]) > 0
}

// index is the first pass: copy and index the models.
func (r *resolver) index(models []*Model) {
	sorted := make([]*Model, 0, len(models))
	for _, m := range models {
		sorted = append(sorted, m.unresolved())
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, m := range sorted {
		if _, ok := r.byName[m.Name]; ok {
			r.errs[m.Name] = append(r.errs[m.Name], NewResolutionError(m.Name, "", "", "duplicate class declaration"))
			continue
		}
		r.byName[m.Name] = m
		short := m.Short()
		r.byShort[short] = append(r.byShort[short], m)
		r.models = append(r.models, m)
		names := make(map[string]bool, len(m.Properties)+len(m.Drafts))
		for _, p := range m.Properties {
			names[p.Name] = true
		}
		for _, d := range m.Drafts {
			names[d.Property] = true
		}
		r.claimed[m.Name] = names
	}
}

// lookup binds every draft to its target model.
func (r *resolver) lookup() {
	for _, m := range r.models {
		for _, d := range m.Drafts {
			target, err := r.target(m, d)
			if err != nil {
				r.fail(err, m)
				continue
			}
			rf := &ref{owner: m, draft: d, target: target}
			r.refs[m.Name] = append(r.refs[m.Name], rf)
			r.order = append(r.order, rf)
		}
	}
}

// target resolves a class name as written: fully-qualified first, then in the
// declaring package, then by unique short name.
func (r *resolver) target(m *Model, d *Draft) (*Model, *ResolutionError) {
	if t, ok := r.byName[d.Target]; ok {
		return t, nil
	}
	unknown := NewResolutionError(m.Name, d.Property, d.Target, "unknown related entity")
	if load.PackageOf(d.Target) != "" {
		return nil, unknown
	}
	if t, ok := r.byName[load.Qualify(m.Package(), d.Target)]; ok {
		return t, nil
	}
	switch c := r.byShort[d.Target]; len(c) {
	case 0:
		return nil, unknown
	case 1:
		return c[0], nil
	default:
		names := make([]string, len(c))
		for i, t := range c {
			names[i] = t.Name
		}
		err := NewResolutionError(m.Name, d.Property, d.Target, "ambiguous related entity")
		err.Cause = fmt.Errorf("candidates: %s", strings.Join(names, ", "))
		return nil, err
	}
}

// mirrors reports if b can be the declaration mirroring a.
func mirrors(a, b *ref) bool {
	return b.target == a.owner && a.target == b.owner && b.draft.Kind == a.draft.Kind.Inverse()
}

// pairExplicit pairs drafts naming their mirror with inverse=.
func (r *resolver) pairExplicit() {
	for _, a := range r.order {
		d := a.draft
		if a.paired || d.Inverse == "" {
			continue
		}
		var b *ref
		for _, c := range r.refs[a.target.Name] {
			if c.draft.Property == d.Inverse {
				b = c
				break
			}
		}
		switch {
		case b == nil:
			r.fail(NewResolutionError(a.owner.Name, d.Property, d.Target, fmt.Sprintf("unknown inverse property %q", d.Inverse)), a.owner)
		case b == a:
			r.fail(NewResolutionError(a.owner.Name, d.Property, d.Target, "relationship cannot be its own inverse"), a.owner)
		case !mirrors(a, b):
			r.fail(NewResolutionError(a.owner.Name, d.Property, d.Target, fmt.Sprintf("inverse property %q is not a mirrored %s", d.Inverse, d.Kind.Inverse())), a.owner)
		case b.draft.Inverse != "" && b.draft.Inverse != d.Property:
			r.fail(NewResolutionError(a.owner.Name, d.Property, d.Target, "conflicting inverse declarations"), a.owner, b.owner)
			b.paired = true
		case b.paired:
			r.fail(NewResolutionError(a.owner.Name, d.Property, d.Target, fmt.Sprintf("inverse property %q is already paired", d.Inverse)), a.owner)
		default:
			r.pair(a, b)
			continue
		}
		a.paired = true
	}
}

func (r *resolver) pair(a, b *ref) {
	a.paired, b.paired = true, true
	a.partner, b.partner = b, a
}

// pairImplicit pairs the remaining drafts when exactly one candidate exists on
// each side. Self-referencing many-to-many drafts are only paired explicitly.
func (r *resolver) pairImplicit() {
	type group struct{ left, right []*ref }
	var (
		keys   []string
		groups = make(map[string]*group)
	)
	for _, rf := range r.order {
		if rf.paired {
			continue
		}
		var key string
		left := true
		switch rf.draft.Kind {
		case ManyToOne:
			key = "fk:" + rf.owner.Name + "->" + rf.target.Name
		case OneToMany:
			key, left = "fk:"+rf.target.Name+"->"+rf.owner.Name, false
		case ManyToMany:
			if rf.owner == rf.target {
				continue
			}
			lo, hi := rf.owner.Name, rf.target.Name
			if hi < lo {
				lo, hi = hi, lo
			}
			key, left = "m2m:"+lo+"<>"+hi, rf.owner.Name == lo
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			keys = append(keys, key)
		}
		if left {
			g.left = append(g.left, rf)
		} else {
			g.right = append(g.right, rf)
		}
	}
	for _, key := range keys {
		g := groups[key]
		if len(g.left) == 1 && len(g.right) == 1 {
			r.pair(g.left[0], g.right[0])
		}
	}
}

// link computes the canonical links and attaches the views.
func (r *resolver) link() {
	seen := make(map[*ref]bool)
	for _, rf := range r.order {
		if seen[rf] || r.consumedByError(rf) {
			continue
		}
		p := &pending{a: rf, b: rf.partner}
		seen[rf] = true
		if p.b != nil {
			seen[p.b] = true
		}
		r.pending = append(r.pending, p)
	}
	type built struct {
		p    *pending
		link *Link
	}
	var links []built
	// fks maps a foreign key column of a table to the relationship using it,
	// tables a link table to the relationship using it.
	fks := make(map[string]string)
	tables := make(map[string]string)
	for _, p := range r.pending {
		var (
			l   *Link
			err *ResolutionError
		)
		if p.a.draft.Kind == ManyToMany {
			l, err = r.linkTable(p)
		} else {
			l, err = r.foreignKey(p)
		}
		if err == nil && l.Kind == ManyToOne {
			key := l.Many.Model + "." + l.Column
			if prev, ok := fks[key]; ok {
				err = NewResolutionError(p.a.owner.Name, p.a.draft.Property, p.a.draft.Target,
					fmt.Sprintf("foreign key column %q is already used by %s", l.Column, prev))
			} else {
				fks[key] = p.a.owner.Short() + "." + p.a.draft.Property
			}
		}
		if err == nil && l.Kind == ManyToMany {
			if prev, ok := tables[l.Table]; ok {
				err = NewResolutionError(p.a.owner.Name, p.a.draft.Property, p.a.draft.Target,
					fmt.Sprintf("link table %q is already used by %s", l.Table, prev))
			} else {
				tables[l.Table] = p.a.owner.Short() + "." + p.a.draft.Property
			}
		}
		if err != nil {
			owners := []*Model{p.a.owner}
			if p.b != nil {
				owners = append(owners, p.b.owner)
			}
			r.fail(err, owners...)
			continue
		}
		links = append(links, built{p: p, link: l})
	}
	// Declared views first, so implied names never take a declared one.
	for _, b := range links {
		for _, rf := range []*ref{b.p.a, b.p.b} {
			if rf != nil {
				rf.view = r.declaredView(rf, b.link)
			}
		}
	}
	r.implied = make(map[string][]*Relationship)
	for _, b := range links {
		r.impliedView(b.p, b.link)
		r.links = append(r.links, b.link)
	}
}

// consumedByError reports if the ref was set aside by a pairing error.
func (r *resolver) consumedByError(rf *ref) bool {
	return rf.paired && rf.partner == nil
}

func (r *resolver) foreignKey(p *pending) (*Link, *ResolutionError) {
	many, one := p.a, p.b
	if many.draft.Kind == OneToMany {
		many, one = one, many
	}
	var manyModel, oneModel *Model
	if many != nil {
		manyModel, oneModel = many.owner, many.target
	} else {
		manyModel, oneModel = one.target, one.owner
	}
	l := &Link{
		Kind: ManyToOne,
		Many: End{Model: manyModel.Name, Implied: many == nil},
		One:  End{Model: oneModel.Name, Implied: one == nil},
	}
	var explicit []string
	if many != nil {
		l.Many.Property = many.draft.Property
		l.NotNull = many.draft.NotNull
		explicit = append(explicit, many.draft.Column)
	}
	if one != nil {
		l.One.Property = one.draft.Property
		explicit = append(explicit, one.draft.Column)
	}
	column, ok := agree(explicit...)
	if !ok {
		first := p.a.draft
		return nil, NewResolutionError(p.a.owner.Name, first.Property, first.Target, "conflicting foreign key columns")
	}
	switch {
	case column != "":
	case manyModel == oneModel && many != nil:
		column = snake(many.draft.Property) + "_id"
	default:
		column = Singular(oneModel.Table) + "_id"
	}
	l.Column = column
	return l, nil
}

func (r *resolver) linkTable(p *pending) (*Link, *ResolutionError) {
	left, right := p.a, p.b
	switch {
	case right == nil:
		// One-sided: the declared end is left unless the target sorts first.
		if left.target.Name < left.owner.Name {
			left, right = nil, left
		}
	case left.owner.Name > right.owner.Name,
		left.owner == right.owner && left.draft.Property > right.draft.Property:
		left, right = right, left
	}
	var lm, rm *Model
	if left != nil {
		lm, rm = left.owner, left.target
	} else {
		lm, rm = right.target, right.owner
	}
	l := &Link{
		Kind:  ManyToMany,
		Left:  End{Model: lm.Name, Implied: left == nil},
		Right: End{Model: rm.Name, Implied: right == nil},
	}
	var (
		tables           []string
		leftCol, rightCol []string
	)
	if left != nil {
		l.Left.Property = left.draft.Property
		tables = append(tables, left.draft.Table)
		leftCol = append(leftCol, left.draft.Column)
		rightCol = append(rightCol, left.draft.InverseColumn)
	}
	if right != nil {
		l.Right.Property = right.draft.Property
		tables = append(tables, right.draft.Table)
		rightCol = append(rightCol, right.draft.Column)
		leftCol = append(leftCol, right.draft.InverseColumn)
	}
	first := p.a.draft
	conflict := func(msg string) *ResolutionError {
		return NewResolutionError(p.a.owner.Name, first.Property, first.Target, msg)
	}
	var ok bool
	if l.Table, ok = agree(tables...); !ok {
		return nil, conflict("conflicting link table names")
	}
	if l.LeftColumn, ok = agree(leftCol...); !ok {
		return nil, conflict("conflicting link column names")
	}
	if l.RightColumn, ok = agree(rightCol...); !ok {
		return nil, conflict("conflicting link column names")
	}
	self := lm == rm
	if l.Table == "" {
		if self {
			l.Table = lm.Table + "_" + snake(l.Left.Property)
		} else {
			t := []string{lm.Table, rm.Table}
			sort.Strings(t)
			l.Table = strings.Join(t, "_")
		}
	}
	if l.LeftColumn == "" {
		l.LeftColumn = Singular(lm.Table) + "_id"
	}
	if l.RightColumn == "" {
		if self {
			l.RightColumn = Singular(snake(l.Left.Property)) + "_id"
		} else {
			l.RightColumn = Singular(rm.Table) + "_id"
		}
	}
	if l.LeftColumn == l.RightColumn {
		return nil, conflict(fmt.Sprintf("conflicting link column names: both columns are %q", l.LeftColumn))
	}
	return l, nil
}

// agree returns the single non-empty value, or false if several differ.
func agree(values ...string) (string, bool) {
	var v string
	for _, s := range values {
		switch {
		case s == "":
		case v == "":
			v = s
		case v != s:
			return "", false
		}
	}
	return v, true
}

func (r *resolver) declaredView(rf *ref, l *Link) *Relationship {
	v := &Relationship{
		Kind:     rf.draft.Kind,
		Property: rf.draft.Property,
		Target:   rf.target.Name,
		Link:     l,
	}
	if l.Kind == ManyToMany {
		v.Left = !l.Left.Implied && l.Left.Model == rf.owner.Name && l.Left.Property == rf.draft.Property
	}
	return v
}

// impliedView names and attaches the inverse view of a one-sided declaration.
func (r *resolver) impliedView(p *pending, l *Link) {
	if p.b != nil {
		return
	}
	d := p.a
	owner := d.target
	v := &Relationship{
		Kind:    d.draft.Kind.Inverse(),
		Target:  d.owner.Name,
		Implied: true,
		Link:    l,
	}
	base := lowerCamel(plural(d.owner.Short()))
	if v.Kind == ManyToOne {
		base = lowerCamel(d.owner.Short())
	}
	v.Property = r.claim(owner.Name, base, d.draft.Property)
	switch {
	case l.Kind == ManyToMany && l.Left.Implied:
		l.Left.Property, v.Left = v.Property, true
	case l.Kind == ManyToMany:
		l.Right.Property = v.Property
	case v.Kind == ManyToOne:
		l.Many.Property = v.Property
	default:
		l.One.Property = v.Property
	}
	r.implied[owner.Name] = append(r.implied[owner.Name], v)
}

// claim returns base, or base suffixed with By<Property> (and a counter) if
// the name is taken on the model.
func (r *resolver) claim(model, base, property string) string {
	names := r.claimed[model]
	name := base
	if names[name] {
		name = base + "By" + Pascal(property)
	}
	for i := 2; names[name]; i++ {
		name = base + "By" + Pascal(property) + strconv.Itoa(i)
	}
	names[name] = true
	return name
}

func (r *resolver) graph() *Graph {
	g := &Graph{all: make(map[string]*Model, len(r.models))}
	for _, m := range r.models {
		g.all[m.Name] = m
		for _, rf := range r.refs[m.Name] {
			if rf.view != nil {
				m.Relationships = append(m.Relationships, rf.view)
			}
		}
		m.Relationships = append(m.Relationships, r.implied[m.Name]...)
		for _, v := range m.Relationships {
			if v.Kind == ManyToMany {
				m.Collections = append(m.Collections, &Collection{
					Type:        v.Target,
					Property:    v.Property,
					Table:       v.LinkTable(),
					IDColumn:    v.OwnColumn(),
					ValueColumn: v.OtherColumn(),
				})
			}
		}
		if !r.failed(m.Name) {
			g.Models = append(g.Models, m)
		}
	}
	for _, l := range r.links {
		a, b := l.Many.Model, l.One.Model
		if l.Kind == ManyToMany {
			a, b = l.Left.Model, l.Right.Model
		}
		if !r.failed(a) || !r.failed(b) {
			g.Links = append(g.Links, l)
		}
	}
	for name, errs := range r.errs {
		if g.Failed == nil {
			g.Failed = make(map[string]error)
		}
		g.Failed[name] = errors.Join(errs...)
	}
	return g
}
