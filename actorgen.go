// Package actorgen holds the runtime contract shared by generated actors.
//
// The generator in compiler/ emits three actors per model: a persister that
// builds SQL statements, a validator that checks records, and a query builder.
// The generated code depends only on the types of this package:
//
//	v := UserValidator{}
//	msgs := v.Validate(actorgen.Record{"email": "a@b.com"})
//	if len(msgs) > 0 {
//	    // reject
//	}
//
// Statements are returned to the caller; executing them is up to the
// persistence layer of the application.
package actorgen

import (
	"reflect"
	"strings"
)

// Record is the property-name keyed value set an actor works on.
type Record map[string]any

// Get returns the value of a property and whether it is present and non-nil.
func (r Record) Get(name string) (any, bool) {
	v, ok := r[name]
	if !ok || isNil(v) {
		return nil, false
	}
	return v, true
}

// Has reports whether the property is set to a non-nil value.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Statement is a parameterized SQL statement built by a persister or a query builder.
type Statement struct {
	SQL  string
	Args []any
}

// String returns the SQL text.
func (s Statement) String() string {
	return s.SQL
}

// Validator is implemented by every generated validator actor.
type Validator interface {
	Validate(Record) []string
}

// Placeholders returns n comma-separated "?" placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
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
