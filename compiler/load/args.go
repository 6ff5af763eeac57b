package load

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Value is a parsed tag argument value: a scalar or a bracketed list.
type Value struct {
	Text   string
	List   []string
	IsList bool
}

// Strings returns the list elements, or the scalar as a one-element list.
func (v Value) Strings() []string {
	if v.IsList {
		return v.List
	}
	return []string{v.Text}
}

// Bool interprets the value as a boolean.
func (v Value) Bool() (bool, error) {
	if v.IsList {
		return false, fmt.Errorf("expected a boolean, got a list")
	}
	return strconv.ParseBool(v.Text)
}

// Arg is one comma-separated tag argument. Key is empty for positional arguments.
type Arg struct {
	Key   string
	Value Value
}

// Args is the ordered argument list of a tag.
type Args []Arg

// Positional returns the positional arguments in order.
func (a Args) Positional() []Value {
	var out []Value
	for _, arg := range a {
		if arg.Key == "" {
			out = append(out, arg.Value)
		}
	}
	return out
}

// Lookup returns the last value for the given key. Keys are case-insensitive.
func (a Args) Lookup(key string) (Value, bool) {
	var (
		v     Value
		found bool
	)
	for _, arg := range a {
		if strings.EqualFold(arg.Key, key) {
			v, found = arg.Value, true
		}
	}
	return v, found
}

// Flag reports whether name was given as a bare positional word or as name=true.
func (a Args) Flag(name string) (bool, error) {
	if v, ok := a.Lookup(name); ok {
		b, err := v.Bool()
		if err != nil {
			return false, fmt.Errorf("argument %q: %w", name, err)
		}
		return b, nil
	}
	for _, v := range a.Positional() {
		if !v.IsList && strings.EqualFold(v.Text, name) {
			return true, nil
		}
	}
	return false, nil
}

var argsParser = participle.MustBuild[argList](
	participle.Lexer(tagLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

type argList struct {
	Args []*argNode `@@ ( ",":Punct @@ )*`
}

type argNode struct {
	Pos   lexer.Position
	Key   string    `( @Word "=":Punct )?`
	Value *argValue `@@`
}

type argValue struct {
	IsList bool     `  ( @"[":Punct`
	List   []string `    ( @(String | Word) ( ",":Punct @(String | Word) )* )? "]":Punct )`
	Text   string   `| @(String | Word)`
}

// ParseArgs parses a comma-separated argument string. Items are either
// "value" or "key=value"; values may be bare words, single or double quoted
// strings, or bracketed lists of such values.
func ParseArgs(raw string) (Args, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	list, err := argsParser.ParseString("", raw)
	if err != nil {
		return nil, tagError(raw, err, "unexpected end of arguments")
	}
	args := make(Args, 0, len(list.Args))
	for _, n := range list.Args {
		if n.Key != "" && !validName(n.Key) {
			return nil, &TagError{Text: raw, Offset: n.Pos.Offset, Message: fmt.Sprintf("invalid argument key %q", n.Key)}
		}
		v := Value{Text: n.Value.Text}
		if n.Value.IsList {
			v = Value{IsList: true, List: append([]string{}, n.Value.List...)}
		}
		args = append(args, Arg{Key: strings.ToLower(n.Key), Value: v})
	}
	return args, nil
}
