package attendance

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := Errorf(KindNotFound, "memory.CourseByCode", "course %s not found", "CS9")
	wrapped := E(KindUnknown, "attendance.Mark", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsRetryable(wrapped))
	assert.Equal(t, "attendance.Mark: memory.CourseByCode: course CS9 not found", wrapped.Error())
	assert.Equal(t, "course CS9 not found", Message(wrapped))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindStoreUnavailable, KindOf(errors.Wrap(E(KindStoreUnavailable, "x", nil), "outer")))
}

func TestCauseReachesDriverError(t *testing.T) {
	driver := errors.New("connection refused")
	err := E(KindUnknown, "attendance.Summary", E(KindStoreUnavailable, "postgres.Records", driver))
	assert.Equal(t, driver, errors.Cause(err))
	assert.True(t, IsRetryable(err))
}
