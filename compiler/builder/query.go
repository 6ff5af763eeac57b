package builder

import (
	"fmt"
	"strconv"

	"github.com/syssam/actorgen/compiler/gen"
	"github.com/syssam/actorgen/compiler/tmpl"
)

// Query generates the <Model>Query actor: a builder of SELECT statements with
// one filter per column and one join per relationship.
type Query struct {
	base
}

// Name returns the driver name.
func (*Query) Name() string { return "query" }

// Actor returns the name of the generated type.
func (*Query) Actor(m *gen.Model) string { return m.Short() + "Query" }

// Build renders the query builder of the model.
func (q *Query) Build(g *gen.Graph, m *gen.Model) (*gen.Artifact, error) {
	actor := q.Actor(m)
	cols := columns(m)
	idents := []string{m.Table}
	for _, c := range cols {
		idents = append(idents, c.Name)
	}
	if m.ID != nil {
		idents = append(idents, m.ID.Column)
	}
	joins := make([]any, 0, len(m.Relationships))
	for _, r := range m.Relationships {
		j, names, err := q.join(g, m, r)
		if err != nil {
			return nil, err
		}
		idents = append(idents, names...)
		joins = append(joins, j)
	}
	if err := check(q.Name(), m, actor, idents...); err != nil {
		return nil, err
	}

	ctx := q.context(m, actor)
	ctx["receiver"] = gen.Receiver(actor)
	ctx["table"] = strconv.Quote(m.Table)
	ctx["select"] = strconv.Quote(selectList(m, cols))
	ctx["wheres"] = q.wheres(m, cols)
	ctx["joins"] = joins
	return q.render(q.Name(), queryTemplate, m, actor, ctx)
}

// wheres returns one filter per column: the identifier first, then the
// insertable columns.
func (*Query) wheres(m *gen.Model, cols []column) []any {
	var wheres []any
	add := func(property, col string) {
		wheres = append(wheres, tmpl.Context{
			"method": "Where" + gen.Pascal(property),
			"column": col,
			"cond":   strconv.Quote(m.Table + "." + col + " = ?"),
		})
	}
	if m.ID != nil {
		add(m.ID.Name, m.ID.Column)
	}
	for _, c := range cols {
		add(c.Property, c.Name)
	}
	return wheres
}

// join returns the join descriptor of a relationship and the SQL names it
// embeds. The clauses depend on the side the foreign key lives on:
//
//	many-to-one:  JOIN users AS author ON author.id = posts.author_id
//	one-to-many:  JOIN posts AS posts ON posts.author_id = users.id
//	many-to-many: JOIN posts_tags AS tags_link ON tags_link.post_id = posts.id
//	              JOIN tags AS tags ON tags.id = tags_link.tag_id
func (q *Query) join(g *gen.Graph, m *gen.Model, r *gen.Relationship) (tmpl.Context, []string, error) {
	target, ok := g.Model(r.Target)
	if !ok {
		return nil, nil, gen.NewGenerationError(q.Name(), m.Name, "", fmt.Sprintf("relationship %q targets unknown model %q", r.Property, r.Target), nil)
	}
	alias := gen.Snake(r.Property)
	if alias == m.Table || reserved[alias] {
		alias = "rel_" + alias
	}
	ownID, targetID := idColumn(m), idColumn(target)
	var (
		clauses []string
		names   = []string{target.Table, alias, targetID}
	)
	switch r.Kind {
	case gen.ManyToOne:
		clauses = append(clauses, fmt.Sprintf("JOIN %s AS %s ON %s.%s = %s.%s", target.Table, alias, alias, targetID, m.Table, r.Column()))
		names = append(names, r.Column())
	case gen.OneToMany:
		clauses = append(clauses, fmt.Sprintf("JOIN %s AS %s ON %s.%s = %s.%s", target.Table, alias, alias, r.Column(), m.Table, ownID))
		names = append(names, r.Column())
	case gen.ManyToMany:
		link := alias + "_link"
		clauses = append(clauses,
			fmt.Sprintf("JOIN %s AS %s ON %s.%s = %s.%s", r.LinkTable(), link, link, r.OwnColumn(), m.Table, ownID),
			fmt.Sprintf("JOIN %s AS %s ON %s.%s = %s.%s", target.Table, alias, alias, targetID, link, r.OtherColumn()),
		)
		names = append(names, r.LinkTable(), r.OwnColumn(), r.OtherColumn())
	default:
		return nil, nil, gen.NewGenerationError(q.Name(), m.Name, "", fmt.Sprintf("relationship %q has unknown kind %s", r.Property, r.Kind), nil)
	}
	j := tmpl.Context{
		"method":   "Join" + gen.Pascal(r.Property),
		"property": r.Property,
		"kind":     r.Kind.String(),
		"target":   target.Short(),
		"alias":    alias,
		"clauses":  quoteAll(clauses),
	}
	if r.Implied {
		j["implied"] = true
	}
	return j, names, nil
}

// reserved are the keywords that PostgreSQL, MySQL or SQLite reject as an
// unquoted table alias.
var reserved = map[string]bool{
	"all": true, "and": true, "any": true, "array": true, "as": true, "asc": true,
	"between": true, "both": true, "by": true, "case": true, "cast": true, "check": true,
	"collate": true, "column": true, "constraint": true, "create": true, "cross": true,
	"current": true, "default": true, "delete": true, "desc": true, "distinct": true,
	"do": true, "else": true, "end": true, "except": true, "exists": true, "false": true,
	"fetch": true, "for": true, "foreign": true, "from": true, "full": true, "grant": true,
	"group": true, "having": true, "in": true, "index": true, "inner": true, "insert": true,
	"intersect": true, "interval": true, "into": true, "is": true, "join": true, "key": true,
	"leading": true, "left": true, "like": true, "limit": true, "natural": true, "not": true,
	"null": true, "offset": true, "on": true, "only": true, "or": true, "order": true,
	"outer": true, "primary": true, "references": true, "returning": true, "right": true,
	"row": true, "rows": true, "select": true, "set": true, "some": true, "table": true,
	"then": true, "to": true, "trailing": true, "true": true, "union": true, "unique": true,
	"update": true, "user": true, "using": true, "values": true, "when": true, "where": true,
	"window": true, "with": true,
}
