package gen

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

var (
	rules    = ruleset()
	acronyms = make(map[string]struct{})
)

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	// Common initialisms from golint.
	for _, w := range []string{
		"ACL", "API", "ASCII", "AWS", "CPU", "CSS", "DNS", "EOF", "GB", "GUID",
		"HCL", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "KB", "LHS", "MAC",
		"MB", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SQL", "SSH", "SSO",
		"TCP", "TLS", "TTL", "UDP", "UI", "UID", "URI", "URL", "UTF8", "UUID",
		"VM", "XML", "XMPP", "XSRF", "XSS",
	} {
		acronyms[w] = struct{}{}
		rules.AddAcronym(w)
	}
	return rules
}

// plural returns the plural form of a name.
func plural(name string) string {
	return rules.Pluralize(name)
}

// singular returns the singular form of a name.
func singular(name string) string {
	return rules.Singularize(name)
}

// pascalWords returns the given words in pascal case.
func pascalWords(words []string) string {
	for i, w := range words {
		upper := strings.ToUpper(w)
		if _, ok := acronyms[upper]; ok {
			words[i] = upper
		} else {
			words[i] = rules.Capitalize(w)
		}
	}
	return strings.Join(words, "")
}

// pascal converts the given snake_case (or kebab-case) name into PascalCase.
func pascal(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	return pascalWords(words)
}

// camel converts the given snake_case name into camelCase.
func camel(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	if len(words) == 0 {
		return ""
	}
	return strings.ToLower(words[0]) + pascalWords(words[1:])
}

// lowerCamel lower-cases the leading upper-case run of a Go identifier, keeping
// the last letter of an initialism when a lower-case letter follows it:
// "Email" => "email", "ID" => "id", "HTTPCode" => "httpCode", "UserID" => "userID".
func lowerCamel(s string) string {
	r := []rune(s)
	for i := 0; i < len(r) && unicode.IsUpper(r[i]); i++ {
		if i > 0 && i+1 < len(r) && unicode.IsLower(r[i+1]) {
			break
		}
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "UserInfo"), or next letter is also
		// a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// subject strips a leading accessor verb from a name: "GetEmail" => "Email",
// "IsActive" => "Active". Names like "Issue" or "Getter" are kept.
func subject(name string) string {
	for _, prefix := range []string{"Get", "get", "Is", "is"} {
		rest, ok := strings.CutPrefix(name, prefix)
		if ok && rest != "" && unicode.IsUpper([]rune(rest)[0]) {
			return rest
		}
	}
	return name
}

// PropertyName returns the property name of an accessor.
func PropertyName(accessor string) string {
	return lowerCamel(subject(accessor))
}

// TableName returns the default table name of a class: the snake-cased plural
// of its short name.
func TableName(short string) string {
	return snake(plural(short))
}

// Singular returns the singular form of a table name: "blog_posts" => "blog_post".
func Singular(table string) string {
	return singular(table)
}

// Snake converts a Go identifier to snake_case.
func Snake(s string) string {
	return snake(s)
}

// LowerCamel converts a Go identifier to an unexported one: "UserQuery" => "userQuery".
func LowerCamel(s string) string {
	return lowerCamel(s)
}

// Pascal converts a property or column name to an exported Go identifier.
func Pascal(s string) string {
	return pascal(snake(s))
}

// Receiver returns the receiver name of the given type.
//
//	[]T        => t
//	*User      => u
//	UserQuery  => uq
//	HTTPClient => hc
func Receiver(s string) string {
	s = strings.Trim(s, "[]*&0123456789")
	var b strings.Builder
	for _, w := range strings.Split(snake(s), "_") {
		if w != "" {
			b.WriteByte(w[0])
		}
	}
	return b.String()
}

// sqlIdent matches the table and column names embedded in generated string
// literals: a name, optionally qualified by a schema.
var sqlIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// IsSQLIdentifier reports if s can be used unquoted as a table or column name.
func IsSQLIdentifier(s string) bool {
	return sqlIdent.MatchString(s)
}
