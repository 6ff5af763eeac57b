package tmpl

import (
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Context is the nested value structure a template is rendered against:
// maps with string keys, slices, structs and scalars. The engine never
// mutates it.
type Context map[string]any

// Render renders the template against ctx.
func Render(t *Template, ctx Context) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, ctx); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Execute renders the template against ctx into w.
func (t *Template) Execute(w io.Writer, ctx Context) error {
	r := &renderer{name: t.Name}
	var b strings.Builder
	if err := r.nodes(&b, t.Nodes, &scope{vars: ctx}); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// scope is one level of variable bindings; each iteration gets a child.
type scope struct {
	vars   map[string]any
	parent *scope
}

func (s *scope) lookup(name string) (any, bool) {
	for ; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

type renderer struct {
	name string
}

func (r *renderer) errorf(line int, path Path, format string, args ...any) error {
	return &SubstitutionError{Name: r.name, Line: line, Path: path.String(), Message: fmt.Sprintf(format, args...)}
}

func (r *renderer) nodes(b *strings.Builder, nodes []Node, s *scope) error {
	for _, n := range nodes {
		if err := r.node(b, n, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) node(b *strings.Builder, n Node, s *scope) error {
	switch n := n.(type) {
	case *Literal:
		b.WriteString(n.Text)
	case *Var:
		v, err := r.value(n.Path, n.Line, s)
		if err != nil {
			return err
		}
		text, ok := scalar(v)
		if !ok {
			return r.errorf(n.Line, n.Path, "%T is not printable", v)
		}
		b.WriteString(text)
	case *Each:
		return r.each(b, n, s)
	case *If:
		for _, br := range n.Branches {
			ok, err := r.cond(br.Cond, br.Line, s)
			if err != nil {
				return err
			}
			if ok {
				return r.nodes(b, br.Body, s)
			}
		}
		if n.HasElse {
			return r.nodes(b, n.Else, s)
		}
	case *Join:
		items, err := r.sequence(n.Path, n.Line, s)
		if err != nil {
			return err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			text, ok := scalar(item)
			if !ok {
				return r.errorf(n.Line, n.Path, "element %d (%T) is not a scalar", i, item)
			}
			parts[i] = text
		}
		b.WriteString(strings.Join(parts, n.Sep))
	default:
		return fmt.Errorf("tmpl: unexpected node %T", n)
	}
	return nil
}

func (r *renderer) each(b *strings.Builder, n *Each, s *scope) error {
	items, err := r.sequence(n.Path, n.Line, s)
	if err != nil {
		return err
	}
	for i, item := range items {
		child := &scope{
			vars: map[string]any{
				n.Alias: item,
				"loop": map[string]any{
					"index": i,
					"first": i == 0,
					"last":  i == len(items)-1,
				},
			},
			parent: s,
		}
		if err := r.nodes(b, n.Body, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) cond(c Cond, line int, s *scope) (bool, error) {
	switch c.Op {
	case OpIsSet, OpNotSet:
		v, ok := resolve(c.Path, s)
		set := ok && !isNil(v)
		return set == (c.Op == OpIsSet), nil
	}
	v, err := r.value(c.Path, line, s)
	if err != nil {
		return false, err
	}
	text, ok := scalar(v)
	if !ok {
		return false, r.errorf(line, c.Path, "%T cannot be compared", v)
	}
	return (text == c.Value) == (c.Op == OpEq), nil
}

// value resolves a path that must exist and be non-nil.
func (r *renderer) value(p Path, line int, s *scope) (any, error) {
	v, ok := resolve(p, s)
	switch {
	case !ok:
		return nil, r.errorf(line, p, "path does not resolve")
	case isNil(v):
		return nil, r.errorf(line, p, "value is nil")
	}
	return v, nil
}

// sequence resolves a path to the elements of a slice or array. A nil value
// is an empty sequence.
func (r *renderer) sequence(p Path, line int, s *scope) ([]any, error) {
	v, ok := resolve(p, s)
	if !ok {
		return nil, r.errorf(line, p, "path does not resolve")
	}
	if isNil(v) {
		return nil, nil
	}
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	default:
		return nil, r.errorf(line, p, "%T is not a sequence", v)
	}
}

// resolve walks the path from the innermost scope.
func resolve(p Path, s *scope) (any, bool) {
	if len(p) == 0 || p[0].IsIndex {
		return nil, false
	}
	v, ok := s.lookup(p[0].Key)
	if !ok {
		return nil, false
	}
	for _, seg := range p[1:] {
		if v, ok = step(v, seg); !ok {
			return nil, false
		}
	}
	return v, true
}

func step(v any, seg Segment) (any, bool) {
	if m, ok := v.(map[string]any); ok && !seg.IsIndex {
		x, ok := m[seg.Key]
		return x, ok
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch {
	case seg.IsIndex && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array):
		if seg.Index < 0 || seg.Index >= rv.Len() {
			return nil, false
		}
		return rv.Index(seg.Index).Interface(), true
	case seg.IsIndex:
		return nil, false
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		x := rv.MapIndex(reflect.ValueOf(seg.Key).Convert(rv.Type().Key()))
		if !x.IsValid() {
			return nil, false
		}
		return x.Interface(), true
	case rv.Kind() == reflect.Struct:
		f := rv.FieldByName(seg.Key)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// scalar formats printable values with fmt semantics.
func scalar(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(rv.Interface()), true
	}
	return "", false
}
