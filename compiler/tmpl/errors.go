package tmpl

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the structured errors below.
var (
	// ErrSyntax indicates a malformed template.
	ErrSyntax = errors.New("tmpl: syntax error")
	// ErrSubstitution indicates a context missing a value the template requires.
	ErrSubstitution = errors.New("tmpl: substitution error")
)

// TemplateSyntaxError is returned by Parse for malformed template text.
type TemplateSyntaxError struct {
	Name    string
	Line    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TemplateSyntaxError) Error() string {
	return fmt.Sprintf("tmpl: %s:%d: syntax error: %s", e.Name, e.Line, e.Message)
}

// Unwrap returns the underlying error.
func (e *TemplateSyntaxError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrSyntax.
func (e *TemplateSyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// SubstitutionError is returned by Render when a path cannot be used as the
// directive on Line requires.
type SubstitutionError struct {
	Name    string
	Line    int
	Path    string
	Message string
}

// Error implements the error interface.
func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("tmpl: %s:%d: cannot substitute %q: %s", e.Name, e.Line, e.Path, e.Message)
}

// Is reports whether the target matches ErrSubstitution.
func (e *SubstitutionError) Is(target error) bool {
	return target == ErrSubstitution
}

// IsSyntaxError reports whether the error is a TemplateSyntaxError.
func IsSyntaxError(err error) bool {
	var syntaxErr *TemplateSyntaxError
	return errors.As(err, &syntaxErr)
}

// IsSubstitutionError reports whether the error is a SubstitutionError.
func IsSubstitutionError(err error) bool {
	var subErr *SubstitutionError
	return errors.As(err, &subErr)
}
