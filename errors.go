package actorgen

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors returned by generated actors.
var (
	// ErrMissingID is returned when a statement needs the identifier
	// of a record that does not carry one.
	ErrMissingID = errors.New("actorgen: record has no identifier")

	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("actorgen: invalid record")
)

// MissingIDError represents a statement that could not be built because
// the record has no identifier value.
type MissingIDError struct {
	actor  string
	column string
}

// Error returns the error string.
func (e *MissingIDError) Error() string {
	return fmt.Sprintf("actorgen: %s: record has no value for identifier column %q", e.actor, e.column)
}

// Is reports whether the target error matches MissingIDError.
// This allows errors.Is(missingIDErr, ErrMissingID) to return true.
func (e *MissingIDError) Is(err error) bool {
	return err == ErrMissingID
}

// Actor returns the name of the actor that built the statement.
func (e *MissingIDError) Actor() string {
	return e.actor
}

// NewMissingIDError returns a new MissingIDError.
func NewMissingIDError(actor, column string) *MissingIDError {
	return &MissingIDError{actor: actor, column: column}
}

// IsMissingID returns true if the error is a MissingIDError.
func IsMissingID(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingIDError
	return errors.As(err, &e) || errors.Is(err, ErrMissingID)
}

// ValidationError holds the messages produced by a validator for one record.
type ValidationError struct {
	Actor    string   // Actor that rejected the record
	Messages []string // Messages returned by Validate
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	switch len(e.Messages) {
	case 0:
		return fmt.Sprintf("actorgen: %s rejected record", e.Actor)
	case 1:
		return fmt.Sprintf("actorgen: %s rejected record: %s", e.Actor, e.Messages[0])
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "actorgen: %s rejected record:", e.Actor)
	for i, msg := range e.Messages {
		fmt.Fprintf(&sb, "\n  [%d] %s", i+1, msg)
	}
	return sb.String()
}

// Is reports whether the target error matches ValidationError.
func (e *ValidationError) Is(err error) bool {
	return err == ErrInvalidRecord
}

// NewValidationError returns a new ValidationError, or nil if there are no messages.
func NewValidationError(actor string, msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return &ValidationError{Actor: actor, Messages: msgs}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}
