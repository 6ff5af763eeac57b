package builder

import (
	"bytes"
	"slices"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/actorgen/compiler/gen"
)

// Registry generates actors.go, the index of the generated package: the actor
// names and table of every model, the link tables, and a constructor of all
// validators keyed by class name.
type Registry struct {
	out       gen.OutputConfig
	actors    []Actor
	validator *Validator
}

// Name returns the driver name.
func (*Registry) Name() string { return "registry" }

// BuildGraph renders the registry of the graph.
func (r *Registry) BuildGraph(g *gen.Graph) (*gen.Artifact, error) {
	const file = "actors.go"
	f := jen.NewFile(r.out.Package)
	f.HeaderComment(r.out.Header)
	f.ImportName(RuntimePkg, "actorgen")

	f.Comment("Actors lists the generated actors of each model class.")
	f.Var().Id("Actors").Op("=").Map(jen.String()).Index().String().Values(jen.DictFunc(func(d jen.Dict) {
		for _, m := range g.Models {
			names := make([]jen.Code, len(r.actors))
			for i, a := range r.actors {
				names[i] = jen.Lit(a.Actor(m))
			}
			d[jen.Lit(m.Name)] = jen.Values(names...)
		}
	}))

	f.Comment("Tables maps each model class to its table.")
	f.Var().Id("Tables").Op("=").Map(jen.String()).String().Values(jen.DictFunc(func(d jen.Dict) {
		for _, m := range g.Models {
			d[jen.Lit(m.Name)] = jen.Lit(m.Table)
		}
	}))

	if tables := linkTables(g); len(tables) > 0 {
		f.Comment("LinkTables lists the link tables of the many-to-many relationships.")
		f.Var().Id("LinkTables").Op("=").Index().String().ValuesFunc(func(vals *jen.Group) {
			for _, t := range tables {
				vals.Lit(t)
			}
		})
	}

	f.Comment("Validators returns a validator for each model class.")
	f.Func().Id("Validators").Params().Map(jen.String()).Qual(RuntimePkg, "Validator").Block(
		jen.Return(jen.Map(jen.String()).Qual(RuntimePkg, "Validator").Values(jen.DictFunc(func(d jen.Dict) {
			for _, m := range g.Models {
				d[jen.Lit(m.Name)] = jen.Id(r.validator.Actor(m)).Values()
			}
		}))),
	)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, gen.NewGenerationError(r.Name(), "", file, "render registry", err)
	}
	return &gen.Artifact{
		Actor:  "Actors",
		Kind:   r.Name(),
		File:   file,
		Source: buf.Bytes(),
	}, nil
}

// linkTables returns the link tables between generated models, sorted.
func linkTables(g *gen.Graph) []string {
	var tables []string
	for _, l := range g.Links {
		if l.Kind != gen.ManyToMany {
			continue
		}
		if _, failed := g.Failed[l.Left.Model]; failed {
			continue
		}
		if _, failed := g.Failed[l.Right.Model]; !failed {
			tables = append(tables, l.Table)
		}
	}
	slices.Sort(tables)
	return slices.Compact(tables)
}
