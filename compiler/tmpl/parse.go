package tmpl

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Parse parses template text in a single left-to-right scan. name is used in
// error messages only.
func Parse(name, text string) (*Template, error) {
	p := &parser{name: name, text: text, line: 1}
	nodes, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Template{Name: name, Nodes: nodes}, nil
}

// Must panics if err is not nil. It is meant for templates that ship with the
// program.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	name string
	text string
	pos  int
	line int
	// trim is set when the previous directive ended with "-}}".
	trim  bool
	root  []Node
	stack []*frame
}

// frame is an open each or if block.
type frame struct {
	each *Each
	cond *If
	// body is where nodes are appended to.
	body *[]Node
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &TemplateSyntaxError{Name: p.name, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) body() *[]Node {
	if n := len(p.stack); n > 0 {
		return p.stack[n-1].body
	}
	return &p.root
}

func (p *parser) parse() ([]Node, error) {
	for p.pos < len(p.text) {
		open := strings.Index(p.text[p.pos:], openDelim)
		if open < 0 {
			p.literal(p.text[p.pos:], false)
			break
		}
		open += p.pos
		inner := open + len(openDelim)
		trimLeft := strings.HasPrefix(p.text[inner:], "-")
		p.literal(p.text[p.pos:open], trimLeft)
		if trimLeft {
			inner++
		}
		end, ok := closing(p.text, inner)
		if !ok {
			return nil, p.errorf(p.line, "unterminated directive")
		}
		body := p.text[inner:end]
		if p.trim = strings.HasSuffix(body, "-"); p.trim {
			body = body[:len(body)-1]
		}
		if err := p.directive(body); err != nil {
			return nil, err
		}
		p.line += strings.Count(p.text[open:end+len(closeDelim)], "\n")
		p.pos = end + len(closeDelim)
	}
	if n := len(p.stack); n > 0 {
		f := p.stack[n-1]
		if f.each != nil {
			return nil, p.errorf(f.each.Line, "unclosed each: missing done")
		}
		return nil, p.errorf(f.cond.Line, "unclosed if: missing fi")
	}
	return p.root, nil
}

// literal appends a text run, applying the trim markers on both sides.
func (p *parser) literal(text string, trimRight bool) {
	start := p.line
	p.line += strings.Count(text, "\n")
	if p.trim {
		trimmed := strings.TrimLeft(text, " \t\r\n")
		start += strings.Count(text[:len(text)-len(trimmed)], "\n")
		text = trimmed
		p.trim = false
	}
	if trimRight {
		text = strings.TrimRight(text, " \t\r\n")
	}
	if text == "" {
		return
	}
	body := p.body()
	*body = append(*body, &Literal{Text: text, Line: start})
}

// closing returns the index of the "}}" ending a directive that starts at
// from. Delimiters inside quoted strings do not count.
func closing(s string, from int) (int, bool) {
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(s[i:], closeDelim):
			return i, true
		}
	}
	return 0, false
}

func (p *parser) directive(body string) error {
	trimmed := strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(trimmed, "#"):
		return nil
	case trimmed == "":
		return p.errorf(p.line, "empty directive")
	}
	d, err := directiveParser.ParseString(p.name, body)
	if err != nil {
		return p.grammarError(body, err)
	}
	line := p.line
	switch {
	case d.Each != nil:
		each := &Each{Path: d.Each.Path.path(), Alias: d.Each.Alias, Line: line}
		p.push(&frame{each: each, body: &each.Body}, each)
	case d.If != nil:
		branch := &Branch{Cond: d.If.cond(), Line: line}
		cond := &If{Branches: []*Branch{branch}, Line: line}
		p.push(&frame{cond: cond, body: &branch.Body}, cond)
	case d.ElseIf != nil:
		f, err := p.openIf(line, "elseif")
		if err != nil {
			return err
		}
		branch := &Branch{Cond: d.ElseIf.cond(), Line: line}
		f.cond.Branches = append(f.cond.Branches, branch)
		f.body = &branch.Body
	case d.Else:
		f, err := p.openIf(line, "else")
		if err != nil {
			return err
		}
		f.cond.HasElse = true
		f.body = &f.cond.Else
	case d.Fi:
		if _, err := p.top(line, "fi", false); err != nil {
			return err
		}
		p.pop()
	case d.Done:
		if _, err := p.top(line, "done", true); err != nil {
			return err
		}
		p.pop()
	case d.Join != nil:
		body := p.body()
		*body = append(*body, &Join{Path: d.Join.Path.path(), Sep: d.Join.Sep, Line: line})
	default:
		body := p.body()
		*body = append(*body, &Var{Path: d.Var.path(), Line: line})
	}
	return nil
}

func (p *parser) push(f *frame, n Node) {
	body := p.body()
	*body = append(*body, n)
	p.stack = append(p.stack, f)
}

func (p *parser) pop() {
	p.stack = p.stack[:len(p.stack)-1]
}

// top returns the innermost open block if it is an each (wantEach) or an if.
func (p *parser) top(line int, keyword string, wantEach bool) (*frame, error) {
	n := len(p.stack)
	if n == 0 {
		if wantEach {
			return nil, p.errorf(line, "unmatched %s: no open each", keyword)
		}
		return nil, p.errorf(line, "unmatched %s: no open if", keyword)
	}
	f := p.stack[n-1]
	switch {
	case wantEach && f.each == nil:
		return nil, p.errorf(line, "unexpected %s: if opened at line %d is not closed", keyword, f.cond.Line)
	case !wantEach && f.cond == nil:
		return nil, p.errorf(line, "unexpected %s: each opened at line %d is not closed", keyword, f.each.Line)
	}
	return f, nil
}

// openIf returns the innermost if block, which must not have reached its else.
func (p *parser) openIf(line int, keyword string) (*frame, error) {
	f, err := p.top(line, keyword, false)
	if err != nil {
		return nil, err
	}
	if f.cond.HasElse {
		return nil, p.errorf(line, "unexpected %s after else", keyword)
	}
	return f, nil
}

// grammarError maps a directive parse failure to the template line.
func (p *parser) grammarError(body string, err error) error {
	line, msg := p.line, err.Error()
	if pe, ok := err.(participle.Error); ok {
		if pos := pe.Position(); pos.Line > 0 {
			line += pos.Line - 1
		}
		msg = pe.Message()
	}
	return &TemplateSyntaxError{
		Name:    p.name,
		Line:    line,
		Message: fmt.Sprintf("malformed directive %q: %s", strings.TrimSpace(body), msg),
		Cause:   err,
	}
}
