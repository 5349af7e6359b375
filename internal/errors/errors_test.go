package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesChain(t *testing.T) {
	assert.NoError(t, Wrap(nil, "noop"))

	err := Wrapf(ErrNotFound, "commitment %s", "c-1")
	assert.EqualError(t, err, "commitment c-1: not found")
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, Is(err, ErrNotFound))
}

func TestUserMessage(t *testing.T) {
	err := fmt.Errorf("%w: abandon c-1", ErrNotificationPending)
	assert.Equal(t, "The stakeholder has not been notified yet.", UserMessage(err))
	assert.Contains(t, Actionable(err), "--override")

	plain := stderrors.New("disk full")
	assert.Equal(t, "disk full", UserMessage(plain))
	assert.Empty(t, Actionable(plain))
	assert.Empty(t, UserMessage(nil))
}
