package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, CourseChanged("CS101")))
	require.NoError(t, q.Publish(ctx, CourseChanged("CS102")))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	for _, want := range []string{"CS101", "CS102"} {
		select {
		case msg := <-msgs:
			assert.Equal(t, TypeAttendanceChanged, msg.Type)
			assert.Equal(t, want, string(msg.Body))
			assert.False(t, msg.At.IsZero())
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok, "channel closes after cancel")
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemory_FullBufferDoesNotBlock(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, CourseChanged("CS101")))
	assert.ErrorIs(t, q.Publish(ctx, CourseChanged("CS101")), ErrFull)
}
