package builder

import (
	"strconv"
	"strings"

	"github.com/syssam/actorgen/compiler/gen"
	"github.com/syssam/actorgen/compiler/tmpl"
)

// Persister generates the <Model>Persister actor building the insert, update,
// delete and find statements of a model, and the link statements of its
// many-to-many relationships.
type Persister struct {
	base
}

// Name returns the driver name.
func (*Persister) Name() string { return "persister" }

// Actor returns the name of the generated type.
func (*Persister) Actor(m *gen.Model) string { return m.Short() + "Persister" }

// Build renders the persister of the model.
func (p *Persister) Build(_ *gen.Graph, m *gen.Model) (*gen.Artifact, error) {
	actor := p.Actor(m)
	cols := columns(m)
	idents := []string{m.Table}
	for _, c := range cols {
		idents = append(idents, c.Name)
	}
	if m.ID != nil {
		idents = append(idents, m.ID.Column)
	}
	links := p.links(m)
	for _, l := range links {
		idents = append(idents, l.table, l.own, l.other)
	}
	if err := check(p.Name(), m, actor, idents...); err != nil {
		return nil, err
	}

	ctx := p.context(m, actor)
	ctx["table"] = strconv.Quote(m.Table)
	ctx["columns"] = persisterColumns(cols)
	ctx["select"] = strconv.Quote(selectList(m, cols))
	if m.ID != nil {
		ctx["id"] = tmpl.Context{
			"column":   strconv.Quote(m.ID.Column),
			"property": strconv.Quote(m.ID.Name),
			"where":    strconv.Quote(" WHERE " + m.ID.Column + " = ?"),
		}
		var views []any
		for _, l := range links {
			views = append(views, l.context())
		}
		ctx["links"] = views
	}
	return p.render(p.Name(), persisterTemplate, m, actor, ctx)
}

type linkView struct {
	property          string
	method            string
	table, own, other string
	arg               string
}

func (l linkView) context() tmpl.Context {
	return tmpl.Context{
		"property": l.property,
		"method":   l.method,
		"arg":      l.arg,
		"insert":   strconv.Quote("INSERT INTO " + l.table + " (" + l.own + ", " + l.other + ") VALUES (?, ?)"),
		"delete":   strconv.Quote("DELETE FROM " + l.table + " WHERE " + l.own + " = ? AND " + l.other + " = ?"),
	}
}

// links returns the many-to-many views of the model, in relationship order.
func (*Persister) links(m *gen.Model) []linkView {
	var links []linkView
	for _, r := range m.Relationships {
		if r.Kind != gen.ManyToMany {
			continue
		}
		links = append(links, linkView{
			property: r.Property,
			method:   gen.Pascal(r.Property),
			table:    r.LinkTable(),
			own:      r.OwnColumn(),
			other:    r.OtherColumn(),
			arg:      gen.LowerCamel(gen.Pascal(gen.Singular(r.Property))) + "ID",
		})
	}
	return links
}

func persisterColumns(cols []column) []any {
	views := make([]any, len(cols))
	for i, c := range cols {
		views[i] = tmpl.Context{
			"column":   strconv.Quote(c.Name),
			"property": strconv.Quote(c.Property),
			"required": c.Required,
		}
	}
	return views
}

// selectList returns the qualified columns read by find statements.
func selectList(m *gen.Model, cols []column) string {
	var names []string
	if m.ID != nil {
		names = append(names, m.Table+"."+m.ID.Column)
	}
	for _, c := range cols {
		names = append(names, m.Table+"."+c.Name)
	}
	if len(names) == 0 {
		return m.Table + ".*"
	}
	return strings.Join(names, ", ")
}
