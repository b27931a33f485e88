package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorDefaultsStatusToOK(t *testing.T) {
	err := NewError(ErrNotConnected)

	assert.Equal(t, ErrNotConnected, err.Code)
	assert.Equal(t, http.StatusOK, err.Status)
	assert.Equal(t, "Not connected to the chat server.", err.Message)
}

func TestNewErrorFormatsDetails(t *testing.T) {
	err := NewError(ErrMessageContentTooLong, 5000)

	assert.Equal(t, "Message is too long (max 5000 bytes).", err.Message)
}

func TestNewErrorUnknownCode(t *testing.T) {
	err := NewError(42)

	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestHasCodeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewError(ErrEmptyMessage))

	assert.True(t, HasCode(wrapped, ErrEmptyMessage))
	assert.False(t, HasCode(wrapped, ErrNotConnected))
	assert.False(t, HasCode(errors.New("plain"), ErrEmptyMessage))
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	coded := NewError(ErrNotSignedIn)
	assert.Same(t, coded, From(fmt.Errorf("wrap: %w", coded)))

	fallback := From(errors.New("boom"))
	require.NotNil(t, fallback)
	assert.Equal(t, ErrUnknown, fallback.Code)
}
