package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedSentinel(t *testing.T) {
	errDuplicate := Conflict("duplicate_thing")
	wrapped := fmt.Errorf("insert thing: %w", errDuplicate)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "duplicate_thing", CodeOf(wrapped))
	assert.True(t, errors.Is(wrapped, errDuplicate))
	assert.True(t, Is(wrapped, KindConflict))
}

func TestKindOfContextErrors(t *testing.T) {
	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
	assert.Equal(t, KindCancelled, KindOf(fmt.Errorf("loop: %w", context.DeadlineExceeded)))
	assert.Equal(t, "cancelled", CodeOf(context.Canceled))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestNewItemErrorHidesInternalMessage(t *testing.T) {
	item := NewItemError("42", errors.New("pq: connection reset"))
	assert.Equal(t, "42", item.ID)
	assert.Equal(t, KindInternal, item.Kind)
	assert.Equal(t, "internal error", item.Message)

	item = NewItemError("43", NotFound("student_not_found"))
	assert.Equal(t, KindNotFound, item.Kind)
	assert.Equal(t, "student_not_found", item.Code)
	assert.Equal(t, "student_not_found", item.Message)
}
