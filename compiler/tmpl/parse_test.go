package tmpl

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func path(keys ...string) Path {
	p := make(Path, len(keys))
	for i, k := range keys {
		p[i] = Segment{Key: k}
	}
	return p
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Node
	}{
		{
			name: "literal only",
			text: "plain text\n",
			want: []Node{&Literal{Text: "plain text\n", Line: 1}},
		},
		{
			name: "variable",
			text: "Hello {{ user.name }}!",
			want: []Node{
				&Literal{Text: "Hello ", Line: 1},
				&Var{Path: path("user", "name"), Line: 1},
				&Literal{Text: "!", Line: 1},
			},
		},
		{
			name: "brackets",
			text: `{{ rows[2]["first name"] }}`,
			want: []Node{
				&Var{Path: Path{{Key: "rows"}, {Index: 2, IsIndex: true}, {Key: "first name"}}, Line: 1},
			},
		},
		{
			name: "each",
			text: "{{ each items as it }}[{{ it }}]{{ done }}",
			want: []Node{
				&Each{Path: path("items"), Alias: "it", Line: 1, Body: []Node{
					&Literal{Text: "[", Line: 1},
					&Var{Path: path("it"), Line: 1},
					&Literal{Text: "]", Line: 1},
				}},
			},
		},
		{
			name: "if chain",
			text: "{{ if ISSET a }}A\n{{ elseif b == 'x' }}B\n{{ elseif NOT ISSET c }}C\n{{ else }}D\n{{ fi }}",
			want: []Node{
				&If{Line: 1, HasElse: true, Branches: []*Branch{
					{Cond: Cond{Op: OpIsSet, Path: path("a")}, Line: 1, Body: []Node{&Literal{Text: "A\n", Line: 1}}},
					{Cond: Cond{Op: OpEq, Path: path("b"), Value: "x"}, Line: 2, Body: []Node{&Literal{Text: "B\n", Line: 2}}},
					{Cond: Cond{Op: OpNotSet, Path: path("c")}, Line: 3, Body: []Node{&Literal{Text: "C\n", Line: 3}}},
				}, Else: []Node{&Literal{Text: "D\n", Line: 4}}},
			},
		},
		{
			name: "comparison literals",
			text: `{{ if n != 3 }}{{ fi }}{{ if ok == true }}{{ fi }}`,
			want: []Node{
				&If{Line: 1, Branches: []*Branch{{Cond: Cond{Op: OpNeq, Path: path("n"), Value: "3"}, Line: 1}}},
				&If{Line: 1, Branches: []*Branch{{Cond: Cond{Op: OpEq, Path: path("ok"), Value: "true"}, Line: 1}}},
			},
		},
		{
			name: "join",
			text: `{{ join columns ", " }}`,
			want: []Node{&Join{Path: path("columns"), Sep: ", ", Line: 1}},
		},
		{
			name: "delimiters in strings",
			text: `{{ join xs "}}" }}`,
			want: []Node{&Join{Path: path("xs"), Sep: "}}", Line: 1}},
		},
		{
			name: "comment",
			text: "a{{# ignored {{ }}b",
			want: []Node{&Literal{Text: "a", Line: 1}, &Literal{Text: "b", Line: 1}},
		},
		{
			name: "trim markers",
			text: "a  {{- x -}}  \n  b",
			want: []Node{
				&Literal{Text: "a", Line: 1},
				&Var{Path: path("x"), Line: 1},
				&Literal{Text: "b", Line: 2},
			},
		},
		{
			name: "line numbers",
			text: "one\ntwo {{ a }}\n{{ each xs as x }}\n{{ x }}{{ done }}",
			want: []Node{
				&Literal{Text: "one\ntwo ", Line: 1},
				&Var{Path: path("a"), Line: 2},
				&Literal{Text: "\n", Line: 2},
				&Each{Path: path("xs"), Alias: "x", Line: 3, Body: []Node{
					&Literal{Text: "\n", Line: 3},
					&Var{Path: path("x"), Line: 4},
				}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse("test", tt.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got.Nodes); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		line    int
		message string
	}{
		{name: "unterminated", text: "x\n{{ name", line: 2, message: "unterminated directive"},
		{name: "empty", text: "{{ }}", line: 1, message: "empty directive"},
		{name: "unclosed each", text: "a\n{{ each xs as x }}\n{{ x }}\n", line: 2, message: "unclosed each"},
		{name: "unclosed if", text: "{{ if ISSET a }}\n", line: 1, message: "unclosed if"},
		{name: "stray done", text: "a\nb\n{{ done }}", line: 3, message: "unmatched done"},
		{name: "stray fi", text: "{{ fi }}", line: 1, message: "unmatched fi"},
		{name: "stray else", text: "\n{{ else }}", line: 2, message: "unmatched else"},
		{name: "fi closes each", text: "{{ if ISSET a }}\n{{ each xs as x }}\n{{ fi }}", line: 3, message: "each opened at line 2"},
		{name: "done closes if", text: "{{ each xs as x }}{{ if ISSET x }}\n{{ done }}", line: 2, message: "if opened at line 1"},
		{name: "elseif after else", text: "{{ if ISSET a }}{{ else }}\n{{ elseif ISSET b }}{{ fi }}", line: 2, message: "after else"},
		{name: "double else", text: "{{ if ISSET a }}{{ else }}{{ else }}{{ fi }}", line: 1, message: "after else"},
		{name: "each without alias", text: "\n\n{{ each xs }}{{ done }}", line: 3, message: "malformed directive"},
		{name: "bad path", text: "{{ a.b[ }}", line: 1, message: "malformed directive"},
		{name: "missing literal", text: "{{ if x == }}{{ fi }}", line: 1, message: "malformed directive"},
		{name: "join without separator", text: "{{ join xs }}", line: 1, message: "malformed directive"},
		{name: "trailing tokens", text: "{{ a b }}", line: 1, message: "malformed directive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("broken.tmpl", tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax))
			assert.True(t, IsSyntaxError(err))
			var se *TemplateSyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "broken.tmpl", se.Name)
			assert.Equal(t, tt.line, se.Line)
			assert.Contains(t, se.Message, tt.message)
			assert.Contains(t, err.Error(), "broken.tmpl:")
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	const text = `{{# header }}
package {{ pkg }}
{{ each fields as f -}}
{{ if f.notNull == true }}{{ f.name }} required{{ elseif ISSET f.enum }}{{ join f.enum "|" }}{{ else }}-{{ fi }}
{{ done -}}
`
	first, err := Parse("fields", text)
	require.NoError(t, err)
	_, err = Render(first, Context{
		"pkg": "actors",
		"fields": []any{
			map[string]any{"name": "email", "notNull": true},
			map[string]any{"name": "status", "notNull": false, "enum": []string{"a", "b"}},
		},
	})
	require.NoError(t, err)
	second, err := Parse("fields", text)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-parse mismatch (-first +second):\n%s", diff)
	}
}

func TestPathString(t *testing.T) {
	p := Path{{Key: "a"}, {Key: "b"}, {Index: 0, IsIndex: true}, {Key: "first name"}}
	assert.Equal(t, `a.b[0]["first name"]`, p.String())
	assert.Equal(t, `ISSET a.b`, Cond{Op: OpIsSet, Path: path("a", "b")}.String())
	assert.Equal(t, `x != "y"`, Cond{Op: OpNeq, Path: path("x"), Value: "y"}.String())
}
