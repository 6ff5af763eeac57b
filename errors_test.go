package actorgen_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/actorgen"
)

func TestMissingIDError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := actorgen.NewMissingIDError("UserPersister", "id")
		assert.Equal(t, `actorgen: UserPersister: record has no value for identifier column "id"`, err.Error())
		assert.Equal(t, "UserPersister", err.Actor())
	})

	t.Run("Is", func(t *testing.T) {
		err := actorgen.NewMissingIDError("UserPersister", "id")
		assert.True(t, errors.Is(err, actorgen.ErrMissingID))
	})

	t.Run("IsMissingID", func(t *testing.T) {
		err := actorgen.NewMissingIDError("PostPersister", "post_id")
		assert.True(t, actorgen.IsMissingID(err))

		// Wrapped error
		wrapped := fmt.Errorf("update: %w", err)
		assert.True(t, actorgen.IsMissingID(wrapped))

		// Sentinel error
		assert.True(t, actorgen.IsMissingID(actorgen.ErrMissingID))

		assert.False(t, actorgen.IsMissingID(errors.New("other error")))
		assert.False(t, actorgen.IsMissingID(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("No messages", func(t *testing.T) {
		assert.NoError(t, actorgen.NewValidationError("UserPersister", nil))
	})

	t.Run("Single message", func(t *testing.T) {
		err := actorgen.NewValidationError("UserPersister", []string{"email cannot be null"})
		require.Error(t, err)
		assert.Equal(t, "actorgen: UserPersister rejected record: email cannot be null", err.Error())
		assert.True(t, errors.Is(err, actorgen.ErrInvalidRecord))
	})

	t.Run("Multiple messages", func(t *testing.T) {
		err := actorgen.NewValidationError("UserPersister", []string{"a", "b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[1] a")
		assert.Contains(t, err.Error(), "[2] b")

		var verr *actorgen.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{"a", "b"}, verr.Messages)
	})

	t.Run("IsValidationError", func(t *testing.T) {
		err := actorgen.NewValidationError("UserPersister", []string{"x"})
		assert.True(t, actorgen.IsValidationError(fmt.Errorf("insert: %w", err)))
		assert.False(t, actorgen.IsValidationError(errors.New("other")))
		assert.False(t, actorgen.IsValidationError(nil))
	})
}
