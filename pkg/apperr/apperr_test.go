package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"NotFound", NotFound("no message found with id %s", "m1"), CodeNotFound},
		{"Conflict", Conflict("group username taken"), CodeConflict},
		{"InvalidArg", InvalidArg("bad flag"), CodeInvalidArgument},
		{"Internal", Internal("boom"), CodeInternal},
		{"PlainError", errors.New("boom"), CodeUnknown},
		{"Wrapped", fmt.Errorf("listing: %w", NotFound("gone")), CodeNotFound},
		{"Nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, "could not list messages", cause)

	assert.EqualError(t, err, "could not list messages: connection reset")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("gone")))
	assert.False(t, IsNotFound(Conflict("taken")))
	assert.False(t, IsNotFound(nil))
}
