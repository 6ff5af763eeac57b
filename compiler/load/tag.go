package load

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Tag names recognised by Scan.
const (
	TagTable      = "table"
	TagID         = "id"
	TagColumn     = "column"
	TagEnum       = "enum"
	TagManyToOne  = "manytoone"
	TagOneToMany  = "onetomany"
	TagManyToMany = "manytomany"
)

var knownTags = map[string]bool{
	TagTable:      true,
	TagID:         true,
	TagColumn:     true,
	TagEnum:       true,
	TagManyToOne:  true,
	TagOneToMany:  true,
	TagManyToMany: true,
}

// IsKnownTag reports if the tag name is recognised by Scan.
func IsKnownTag(name string) bool { return knownTags[strings.ToLower(name)] }

// ErrMalformedTag is matched by every TagError.
var ErrMalformedTag = errors.New("load: malformed tag")

// TagError is returned for tag text that cannot be split into tags.
type TagError struct {
	Class    string // Declaration name, if known.
	Accessor string // Accessor name, empty for class-level tags.
	Text     string // The offending raw text.
	Offset   int    // Byte offset in Text.
	Message  string
}

// Error implements the error interface.
func (e *TagError) Error() string {
	var b strings.Builder
	b.WriteString("load: malformed tag")
	if e.Class != "" {
		b.WriteString(" on ")
		b.WriteString(e.Class)
		if e.Accessor != "" {
			b.WriteString(".")
			b.WriteString(e.Accessor)
		}
	}
	fmt.Fprintf(&b, " at offset %d in %q: %s", e.Offset, e.Text, e.Message)
	return b.String()
}

// Is reports whether the target matches ErrMalformedTag.
func (e *TagError) Is(target error) bool {
	return target == ErrMalformedTag
}

// Tag is one annotation token: a name and its raw, unparsed argument string.
type Tag struct {
	// Name is the lower-cased tag name.
	Name string
	// Args is the text between the parentheses, without them.
	Args string
	// HasArgs indicates the tag was written with parentheses.
	HasArgs bool
}

// String returns the tag in its canonical written form.
func (t Tag) String() string {
	if !t.HasArgs {
		return t.Name
	}
	return t.Name + "(" + t.Args + ")"
}

// ParseArgs parses the argument string of the tag.
func (t Tag) ParseArgs() (Args, error) {
	return ParseArgs(t.Args)
}

// tagLexer tokenizes tag text and tag arguments. Unterminated matches a quote
// the String rule could not close, so the grammar reports it instead of the lexer.
var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: stringPattern},
	{Name: "Word", Pattern: `[^\s,;=()\[\]"']+`},
	{Name: "Punct", Pattern: `[,;=()\[\]]`},
	{Name: "Unterminated", Pattern: `["']`},
})

const stringPattern = `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`

var quoted = regexp.MustCompile(`^(?:` + stringPattern + `)`)

// tagParser keeps strings quoted: the arguments of a tag are returned as written.
var tagParser = participle.MustBuild[tagList](
	participle.Lexer(tagLexer),
	participle.Elide("Whitespace"),
)

type tagList struct {
	Tags []*tagExpr `";"* ( @@ ( ";"+ @@? )* )?`
}

// tagExpr is one tag. A group without a name is kept for the error message.
type tagExpr struct {
	Pos  lexer.Position
	Name string    `  ( @Word`
	Args *tagGroup `    @@? ) | @@`
}

// tagGroup is a parenthesized group. Pos is the opening parenthesis and
// EndPos follows the closing one.
type tagGroup struct {
	Pos    lexer.Position
	Body   []*tagChunk `"(" @@* ")"`
	EndPos lexer.Position
}

type tagChunk struct {
	Group *tagGroup   `  @@`
	List  []*tagChunk `| "[" @@* "]"`
	Text  string      `| @(Word | String | "," | ";" | "=")`
}

// ScanTags splits raw tag text into tags. Tags are separated by ";" outside of
// quotes and brackets; each one is either "name" or "name(args)".
func ScanTags(raw string) ([]Tag, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	list, err := tagParser.ParseString("", raw)
	if err != nil {
		return nil, tagError(raw, err, "unterminated parenthesis group")
	}
	var tags []Tag
	for _, e := range list.Tags {
		if !validName(e.Name) {
			return nil, &TagError{Text: raw, Offset: e.Pos.Offset, Message: fmt.Sprintf("invalid tag name %q", e.Name)}
		}
		tag := Tag{Name: strings.ToLower(e.Name)}
		if g := e.Args; g != nil {
			tag.HasArgs = true
			tag.Args = strings.TrimSpace(raw[g.Pos.Offset+1 : g.EndPos.Offset-1])
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// tagError converts a parse failure on text into a TagError. eof is the
// message reported when text ends too early.
func tagError(text string, err error, eof string) *TagError {
	te := &TagError{Text: text, Message: err.Error()}
	var perr participle.Error
	if !errors.As(err, &perr) {
		return te
	}
	te.Offset, te.Message = perr.Position().Offset, perr.Message()
	rest := text[min(max(te.Offset, 0), len(text)):]
	switch {
	case strings.TrimSpace(rest) == "":
		te.Message = eof
	case rest[0] == ')' || rest[0] == ']':
		te.Message = fmt.Sprintf("unbalanced %q", rest[0])
	case (rest[0] == '"' || rest[0] == '\'') && !quoted.MatchString(rest):
		te.Message = "unterminated quoted string"
	}
	return te
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '-'):
		default:
			return false
		}
	}
	return true
}
