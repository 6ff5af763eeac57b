package tmpl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// directiveLexer tokenizes the text between "{{" and "}}".
var directiveLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `==|!=`},
	{Name: "Punct", Pattern: `[.\[\]]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var directiveParser = participle.MustBuild[directive](
	participle.Lexer(directiveLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

// directive is the body of one "{{ ... }}".
type directive struct {
	Each   *eachExpr `  "each" @@`
	If     *condExpr `| "if" @@`
	ElseIf *condExpr `| "elseif" @@`
	Else   bool      `| @"else"`
	Done   bool      `| @"done"`
	Fi     bool      `| @"fi"`
	Join   *joinExpr `| "join" @@`
	Var    *pathExpr `| @@`
}

type eachExpr struct {
	Path  *pathExpr `@@`
	Alias string    `"as" @Ident`
}

type joinExpr struct {
	Path *pathExpr `@@`
	Sep  string    `@String`
}

type condExpr struct {
	IsSet   *issetExpr   `  @@`
	Compare *compareExpr `| @@`
}

type issetExpr struct {
	Not  bool      `@"NOT"? "ISSET"`
	Path *pathExpr `@@`
}

type compareExpr struct {
	Path  *pathExpr `@@`
	Op    string    `@Op`
	Value *literal  `@@`
}

type literal struct {
	Str *string `  @String`
	Raw *string `| @(Number | "true" | "false")`
}

type pathExpr struct {
	Head string     `@Ident`
	Rest []*segment `@@*`
}

type segment struct {
	Field string     `  "." @Ident`
	Index *indexExpr `| "[" @@ "]"`
}

type indexExpr struct {
	Int *int    `  @Number`
	Key *string `| @String`
}

func (p *pathExpr) path() Path {
	out := Path{{Key: p.Head}}
	for _, s := range p.Rest {
		switch {
		case s.Index == nil:
			out = append(out, Segment{Key: s.Field})
		case s.Index.Int != nil:
			out = append(out, Segment{Index: *s.Index.Int, IsIndex: true})
		default:
			out = append(out, Segment{Key: *s.Index.Key})
		}
	}
	return out
}

func (c *condExpr) cond() Cond {
	if c.IsSet != nil {
		op := OpIsSet
		if c.IsSet.Not {
			op = OpNotSet
		}
		return Cond{Op: op, Path: c.IsSet.Path.path()}
	}
	cond := Cond{Op: OpEq, Path: c.Compare.Path.path()}
	if c.Compare.Op == "!=" {
		cond.Op = OpNeq
	}
	if v := c.Compare.Value; v.Str != nil {
		cond.Value = *v.Str
	} else {
		cond.Value = *v.Raw
	}
	return cond
}
