package gen

import (
	"fmt"

	"github.com/syssam/actorgen/compiler/load"
)

// PropertyType is the declared type tag of a property.
type PropertyType string

// Property type tags.
const (
	TypePlain PropertyType = "plain"
	TypeEmail PropertyType = "email"
	TypeDate  PropertyType = "date"
	TypeEnum  PropertyType = "enum"
)

// Valid reports if the type tag is known.
func (t PropertyType) Valid() bool {
	switch t {
	case TypePlain, TypeEmail, TypeDate, TypeEnum:
		return true
	}
	return false
}

// Kind is the variant of a relationship.
type Kind uint8

// Relationship kinds.
const (
	_ Kind = iota
	ManyToOne
	OneToMany
	ManyToMany
)

// String returns the tag name of the kind.
func (k Kind) String() string {
	switch k {
	case ManyToOne:
		return "ManyToOne"
	case OneToMany:
		return "OneToMany"
	case ManyToMany:
		return "ManyToMany"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Inverse returns the kind seen from the other end.
func (k Kind) Inverse() Kind {
	switch k {
	case ManyToOne:
		return OneToMany
	case OneToMany:
		return ManyToOne
	default:
		return k
	}
}

type (
	// Model is the structural description of one model class.
	Model struct {
		// Name is the fully-qualified class name.
		Name string
		// Table is the backing table.
		Table string
		// Properties are the scalar mapped attributes in declaration order,
		// including the identifier.
		Properties []*Property
		// ID points into Properties. Nil only for relationship-only models.
		ID *Property
		// Drafts are the relationships as declared.
		Drafts []*Draft
		// Relationships holds the resolved views. Empty until resolution.
		Relationships []*Relationship
		// Collections holds the list-valued mappings of the many-to-many views.
		Collections []*Collection
		// Pos is the declaration position, if known.
		Pos string
	}

	// Property is a scalar mapped attribute.
	Property struct {
		Name       string
		Column     string
		Accessor   string
		Type       PropertyType
		NotNull    bool
		Identifier bool
		// Enum holds the accepted values of TypeEnum properties.
		Enum []string
	}

	// Draft is a relationship as written on the declaring class, with its
	// target not yet resolved.
	Draft struct {
		Kind     Kind
		Property string
		Accessor string
		// Target is the related class name as written.
		Target string
		// Column is the explicit foreign key column (many-to-one, one-to-many), or
		// the link table column pointing at the declaring model (many-to-many).
		Column string
		// InverseColumn is the link table column pointing at the target.
		InverseColumn string
		// Table is the explicit link table.
		Table string
		// Inverse is the property name of the mirrored declaration on the target.
		Inverse string
		NotNull bool
	}
)

// Short returns the class name without its package path.
func (m *Model) Short() string { return load.ShortName(m.Name) }

// Package returns the package path of the class.
func (m *Model) Package() string { return load.PackageOf(m.Name) }

// Property returns the property with the given name.
func (m *Model) Property(name string) (*Property, bool) {
	for _, p := range m.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Draft returns the declared relationship with the given property name.
func (m *Model) Draft(name string) (*Draft, bool) {
	for _, d := range m.Drafts {
		if d.Property == name {
			return d, true
		}
	}
	return nil, false
}

// Relationship returns the resolved view with the given property name.
func (m *Model) Relationship(name string) (*Relationship, bool) {
	for _, r := range m.Relationships {
		if r.Property == name {
			return r, true
		}
	}
	return nil, false
}

// Fields returns the non-identifier properties.
func (m *Model) Fields() []*Property {
	fields := make([]*Property, 0, len(m.Properties))
	for _, p := range m.Properties {
		if !p.Identifier {
			fields = append(fields, p)
		}
	}
	return fields
}

// HasColumn reports if one of the properties is backed by the column.
func (m *Model) HasColumn(column string) bool {
	for _, p := range m.Properties {
		if p.Column == column {
			return true
		}
	}
	return false
}

// unresolved returns a copy of the model without resolved state. Properties
// and drafts are never mutated after parsing and are shared.
func (m *Model) unresolved() *Model {
	c := *m
	c.Relationships = nil
	c.Collections = nil
	return &c
}

// IsEnum reports if the property is enumerated.
func (p *Property) IsEnum() bool { return p.Type == TypeEnum }

type (
	// End is one participant of a Link.
	End struct {
		// Model is the fully-qualified class name.
		Model string
		// Property is the navigable property on that model.
		Property string
		// Implied is set when the end was not declared but derived from the
		// other end.
		Implied bool
	}

	// Link is the canonical representation of one logical relationship. It is
	// owned by the Graph and immutable after resolution.
	Link struct {
		// Kind is ManyToOne for foreign key links and ManyToMany for link tables.
		Kind Kind

		// Many holds the foreign key column on its table; One is referenced by it.
		Many, One End
		// Column is the foreign key column on the Many table.
		Column string
		// NotNull marks a required foreign key.
		NotNull bool

		// Table is the link table.
		Table string
		// Left is the end with the lexicographically smaller class name.
		Left, Right End
		// LeftColumn references Left's identifier; RightColumn references Right's.
		LeftColumn, RightColumn string
	}

	// Relationship is one model's navigable view of a Link.
	Relationship struct {
		Kind     Kind
		Property string
		// Target is the fully-qualified name of the related class.
		Target string
		// Implied is set for views derived from a one-sided declaration.
		Implied bool
		// Left is set for many-to-many views seen from the link's left end.
		Left bool
		// Link is the canonical relationship. Not owned by the view.
		Link *Link
	}

	// Collection is a list-valued mapping backed by a link table.
	Collection struct {
		// Type is the fully-qualified class name of the elements.
		Type string
		// Property is the owning property.
		Property string
		Table    string
		// IDColumn references the owning model.
		IDColumn string
		// ValueColumn references the element model.
		ValueColumn string
	}
)

// Column returns the foreign key column of a many-to-one or one-to-many view.
// For many-to-one it lives on the declaring table, for one-to-many on the target table.
func (r *Relationship) Column() string {
	if r.Kind == ManyToMany {
		return ""
	}
	return r.Link.Column
}

// NotNull reports if a foreign key relationship is required.
func (r *Relationship) NotNull() bool {
	return r.Kind != ManyToMany && r.Link.NotNull
}

// LinkTable returns the link table of a many-to-many view.
func (r *Relationship) LinkTable() string {
	if r.Kind != ManyToMany {
		return ""
	}
	return r.Link.Table
}

// OwnColumn returns the link table column referencing the viewing model.
func (r *Relationship) OwnColumn() string {
	switch {
	case r.Kind != ManyToMany:
		return ""
	case r.Left:
		return r.Link.LeftColumn
	default:
		return r.Link.RightColumn
	}
}

// OtherColumn returns the link table column referencing the target.
func (r *Relationship) OtherColumn() string {
	switch {
	case r.Kind != ManyToMany:
		return ""
	case r.Left:
		return r.Link.RightColumn
	default:
		return r.Link.LeftColumn
	}
}

// Inverse returns the property name of the view on the other end.
func (r *Relationship) Inverse() string {
	switch {
	case r.Kind == ManyToOne:
		return r.Link.One.Property
	case r.Kind == OneToMany:
		return r.Link.Many.Property
	case r.Left:
		return r.Link.Right.Property
	default:
		return r.Link.Left.Property
	}
}
