package builder

import (
	"strconv"

	"github.com/syssam/actorgen/compiler/gen"
	"github.com/syssam/actorgen/compiler/tmpl"
)

// Validator generates the <Model>Validator actor. It emits one check per
// property, in declaration order, and a null check per required many-to-one
// relationship whose foreign key no property maps.
type Validator struct {
	base
}

// Name returns the driver name.
func (*Validator) Name() string { return "validator" }

// Actor returns the name of the generated type.
func (*Validator) Actor(m *gen.Model) string { return m.Short() + "Validator" }

// Build renders the validator of the model.
func (v *Validator) Build(_ *gen.Graph, m *gen.Model) (*gen.Artifact, error) {
	actor := v.Actor(m)
	if err := check(v.Name(), m, actor); err != nil {
		return nil, err
	}
	ctx := v.context(m, actor)
	ctx["checks"] = validatorChecks(m)
	return v.render(v.Name(), validatorTemplate, m, actor, ctx)
}

func validatorChecks(m *gen.Model) []any {
	var checks []any
	for _, p := range m.Fields() {
		c := tmpl.Context{
			"name":    strconv.Quote(p.Name),
			"notNull": p.NotNull,
			"type":    string(p.Type),
		}
		if p.IsEnum() {
			c["enum"] = quoteAll(p.Enum)
		}
		checks = append(checks, c)
	}
	for _, r := range m.Relationships {
		if r.Kind != gen.ManyToOne || !r.NotNull() || m.HasColumn(r.Column()) {
			continue
		}
		checks = append(checks, tmpl.Context{
			"name":    strconv.Quote(r.Property),
			"notNull": true,
			"type":    "relationship",
		})
	}
	return checks
}
