// Package builder holds the drivers turning resolved models into actor source
// files: a validator, a persister and a query builder per model, and an actor
// registry per graph.
//
// The per-model drivers render embedded templates through a shared
// tmpl.Cache. Each call builds a fresh context from the model, so a driver
// called twice with equal models returns byte-identical sources.
package builder

import (
	"embed"
	"fmt"
	"go/token"
	"path"
	"strconv"

	"github.com/syssam/actorgen/compiler/gen"
	"github.com/syssam/actorgen/compiler/tmpl"
)

// RuntimePkg is the import path of the package generated actors depend on.
const RuntimePkg = "github.com/syssam/actorgen"

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Template names.
const (
	validatorTemplate = "validator.tmpl"
	persisterTemplate = "persister.tmpl"
	queryTemplate     = "query.tmpl"
)

// Actor is a per-model driver that names the actor it generates.
type Actor interface {
	gen.Driver
	Actor(m *gen.Model) string
}

// Drivers is the set of actor drivers sharing one template cache.
type Drivers struct {
	Validator *Validator
	Persister *Persister
	Query     *Query
	Registry  *Registry

	cache *tmpl.Cache
}

// NewDrivers parses the embedded templates and returns the drivers writing
// into the given package. It panics if a template does not parse.
func NewDrivers(out gen.OutputConfig) *Drivers {
	if out.Package == "" {
		out.Package = "actors"
	}
	if out.Header == "" {
		out.Header = gen.DefaultHeader
	}
	cache := tmpl.NewCache()
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		text, err := templatesFS.ReadFile(path.Join("templates", e.Name()))
		if err != nil {
			panic(err)
		}
		cache.MustParse(e.Name(), string(text))
	}
	b := base{cache: cache, out: out}
	d := &Drivers{
		Validator: &Validator{base: b},
		Persister: &Persister{base: b},
		Query:     &Query{base: b},
		cache:     cache,
	}
	d.Registry = &Registry{out: out, actors: d.actors(), validator: d.Validator}
	return d
}

func (d *Drivers) actors() []Actor {
	return []Actor{d.Persister, d.Query, d.Validator}
}

// Models returns the per-model drivers.
func (d *Drivers) Models() []gen.Driver {
	return []gen.Driver{d.Persister, d.Query, d.Validator}
}

// Graph returns the graph-level drivers.
func (d *Drivers) Graph() []gen.GraphDriver {
	return []gen.GraphDriver{d.Registry}
}

// Options returns the pipeline options registering every driver.
func (d *Drivers) Options() []gen.Option {
	return []gen.Option{
		gen.WithDrivers(d.Models()...),
		gen.WithGraphDrivers(d.Graph()...),
	}
}

// Templates returns the names of the parsed templates.
func (d *Drivers) Templates() []string {
	return d.cache.Names()
}

// base is shared by the template drivers.
type base struct {
	cache *tmpl.Cache
	out   gen.OutputConfig
}

// context returns the values common to all templates.
func (b base) context(m *gen.Model, actor string) tmpl.Context {
	return tmpl.Context{
		"header":  b.out.Header,
		"package": b.out.Package,
		"runtime": strconv.Quote(RuntimePkg),
		"model":   m.Short(),
		"class":   m.Name,
		"actor":   actor,
		"name":    strconv.Quote(actor),
		"var":     gen.LowerCamel(actor),
		"table":   m.Table,
	}
}

// render renders the named template into the artifact of the actor.
func (b base) render(driver, name string, m *gen.Model, actor string, ctx tmpl.Context) (*gen.Artifact, error) {
	file := gen.Snake(actor) + ".go"
	out, err := b.cache.Render(name, ctx)
	if err != nil {
		return nil, gen.NewGenerationError(driver, m.Name, file, "render "+name, err)
	}
	return &gen.Artifact{
		Actor:  actor,
		Kind:   driver,
		Model:  m.Name,
		File:   file,
		Source: []byte(out),
	}, nil
}

// check validates the names a driver embeds in generated code.
func check(driver string, m *gen.Model, actor string, idents ...string) error {
	if !token.IsIdentifier(actor) {
		return gen.NewGenerationError(driver, m.Name, "", fmt.Sprintf("invalid actor name %q", actor), nil)
	}
	for _, id := range idents {
		if !gen.IsSQLIdentifier(id) {
			return gen.NewGenerationError(driver, m.Name, "", fmt.Sprintf("invalid SQL identifier %q", id), nil)
		}
	}
	return nil
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return quoted
}

// column is an insertable column of a model: a property, or the foreign key of
// a many-to-one relationship that no property maps.
type column struct {
	Name     string
	Property string
	Required bool
}

// columns returns the non-identifier columns of the model in declaration
// order, followed by the foreign key columns.
func columns(m *gen.Model) []column {
	var cols []column
	for _, p := range m.Fields() {
		cols = append(cols, column{Name: p.Column, Property: p.Name, Required: p.NotNull})
	}
	for _, r := range m.Relationships {
		if r.Kind != gen.ManyToOne || m.HasColumn(r.Column()) {
			continue
		}
		cols = append(cols, column{Name: r.Column(), Property: r.Property, Required: r.NotNull()})
	}
	return cols
}

// idColumn returns the identifier column of a model, "id" if it has none.
func idColumn(m *gen.Model) string {
	if m.ID != nil {
		return m.ID.Column
	}
	return "id"
}
