package actorgen

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"time"
)

// Rule checks one property of a record.
type Rule interface {
	// Property returns the name of the checked property.
	Property() string
	// Check returns a message and false when the record violates the rule.
	Check(Record) (string, bool)
}

// DateLayouts are the layouts accepted by the Date rule for string values.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	time.DateOnly,
}

// Check runs the rules in order and returns the messages of the failed ones.
// Once a property fails NotNull, the remaining rules of that property are skipped.
// A valid record yields an empty, non-nil slice.
func Check(r Record, rules ...Rule) []string {
	msgs := make([]string, 0)
	nulls := make(map[string]bool)
	for _, rule := range rules {
		if nulls[rule.Property()] {
			continue
		}
		msg, ok := rule.Check(r)
		if ok {
			continue
		}
		if _, isNull := rule.(notNull); isNull {
			nulls[rule.Property()] = true
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

type notNull string

// NotNull requires the property to be present and non-nil.
func NotNull(prop string) Rule { return notNull(prop) }

func (n notNull) Property() string { return string(n) }

func (n notNull) Check(r Record) (string, bool) {
	if r.Has(string(n)) {
		return "", true
	}
	return fmt.Sprintf("%s cannot be null", string(n)), false
}

// valueRule applies a check to non-nil values only.
type valueRule struct {
	prop  string
	valid func(any) bool
	msg   func(any) string
}

func (v valueRule) Property() string { return v.prop }

func (v valueRule) Check(r Record) (string, bool) {
	val, ok := r.Get(v.prop)
	if !ok {
		return "", true
	}
	val = indirect(val)
	if v.valid(val) {
		return "", true
	}
	return v.msg(val), false
}

// Email requires string values to be a bare e-mail address.
func Email(prop string) Rule {
	return valueRule{
		prop:  prop,
		valid: validEmail,
		msg:   func(v any) string { return fmt.Sprintf("'%v' is not a valid email.", v) },
	}
}

// Date requires values to be a time.Time or a string in one of DateLayouts.
func Date(prop string) Rule {
	return valueRule{
		prop:  prop,
		valid: validDate,
		msg:   func(v any) string { return fmt.Sprintf("'%v' is not a valid date.", v) },
	}
}

// OneOf requires the formatted value to be one of the accepted values.
func OneOf(prop string, accepted ...string) Rule {
	return valueRule{
		prop: prop,
		valid: func(v any) bool {
			s := fmt.Sprint(v)
			for _, a := range accepted {
				if s == a {
					return true
				}
			}
			return false
		},
		msg: func(v any) string {
			return fmt.Sprintf("'%v' is not a valid value for %s. Accepted values are: %s.", v, prop, strings.Join(accepted, ", "))
		},
	}
}

func validEmail(v any) bool {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// Reject display-name forms such as "Bob <bob@example.com>".
	return addr.Name == "" && addr.Address == strings.TrimSpace(s)
}

func validDate(v any) bool {
	switch v := v.(type) {
	case time.Time:
		return !v.IsZero()
	case string:
		for _, layout := range DateLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return true
			}
		}
	}
	return false
}

func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.Interface()
}
