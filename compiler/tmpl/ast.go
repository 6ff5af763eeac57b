// Package tmpl implements the small substitution language the actor
// templates are written in.
//
// Directives are delimited by "{{" and "}}":
//
//	{{ model.name }}                      variable
//	{{ each fields as f }} ... {{ done }} iteration, binds f and loop.index/first/last
//	{{ if ISSET f.enum }} ... {{ elseif f.type == "date" }} ... {{ else }} ... {{ fi }}
//	{{ join columns ", " }}               list joining
//	{{# comment }}
//
// A "-" after "{{" or before "}}" trims the whitespace on that side.
package tmpl

import (
	"strconv"
	"strings"
)

// Template is a parsed template.
type Template struct {
	Name  string
	Nodes []Node
}

// Node is an element of a template tree. Every node records the 1-based
// line it starts on.
type Node interface {
	line() int
}

type (
	// Literal is a run of text outside directives.
	Literal struct {
		Text string
		Line int
	}

	// Var substitutes the value at Path.
	Var struct {
		Path Path
		Line int
	}

	// Each renders Body once per element of the sequence at Path.
	Each struct {
		Path  Path
		Alias string
		Body  []Node
		Line  int
	}

	// If renders the body of the first branch whose condition holds, or Else.
	If struct {
		Branches []*Branch
		Else     []Node
		HasElse  bool
		Line     int
	}

	// Branch is one if or elseif arm.
	Branch struct {
		Cond Cond
		Body []Node
		Line int
	}

	// Join renders the scalars of the sequence at Path separated by Sep.
	Join struct {
		Path Path
		Sep  string
		Line int
	}
)

func (n *Literal) line() int { return n.Line }
func (n *Var) line() int     { return n.Line }
func (n *Each) line() int    { return n.Line }
func (n *If) line() int      { return n.Line }
func (n *Join) line() int    { return n.Line }

// CondOp is the operator of a condition.
type CondOp uint8

// Condition operators.
const (
	OpIsSet CondOp = iota + 1
	OpNotSet
	OpEq
	OpNeq
)

// Cond is a branch condition: an existence check or a comparison of the
// formatted value at Path with a literal.
type Cond struct {
	Op    CondOp
	Path  Path
	Value string
}

// String returns the condition as written.
func (c Cond) String() string {
	switch c.Op {
	case OpIsSet:
		return "ISSET " + c.Path.String()
	case OpNotSet:
		return "NOT ISSET " + c.Path.String()
	case OpEq:
		return c.Path.String() + " == " + strconv.Quote(c.Value)
	default:
		return c.Path.String() + " != " + strconv.Quote(c.Value)
	}
}

// Segment is one step of a path: a key or a sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a value in a context, e.g. `model.fields[0]["name"]`.
type Path []Segment

// String returns the path in its dot/bracket form.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		switch {
		case s.IsIndex:
			b.WriteString("[")
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteString("]")
		case i == 0:
			b.WriteString(s.Key)
		case isIdent(s.Key):
			b.WriteString(".")
			b.WriteString(s.Key)
		default:
			b.WriteString("[")
			b.WriteString(strconv.Quote(s.Key))
			b.WriteString("]")
		}
	}
	return b.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
