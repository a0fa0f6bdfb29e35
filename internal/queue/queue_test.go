package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriber_SendAndReceive(t *testing.T) {
	s := New[string]("sub-1", 4, 50*time.Millisecond, context.Background())
	defer s.Close()

	res := s.Send(context.Background(), "hello")
	assert.Equal(t, SendOK, res)

	select {
	case v := <-s.C():
		assert.Equal(t, "hello", v)
	default:
		t.Fatal("expected value in channel")
	}
	assert.Equal(t, int64(1), s.Sent())
}

func TestSubscriber_DropsWhenFullPastTimeout(t *testing.T) {
	s := New[int]("sub-2", 1, 20*time.Millisecond, context.Background())
	defer s.Close()

	require.Equal(t, SendOK, s.Send(context.Background(), 1))
	res := s.Send(context.Background(), 2)
	assert.Equal(t, SendDropped, res)
	assert.Equal(t, int64(1), s.Dropped())
}

func TestSubscriber_SendAfterCloseReturnsClosed(t *testing.T) {
	s := New[int]("sub-3", 4, 20*time.Millisecond, context.Background())
	s.Close()

	res := s.Send(context.Background(), 1)
	assert.Equal(t, SendClosed, res)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done() should be closed")
	}
}

func TestSubscriber_SendRespectsCallerContext(t *testing.T) {
	s := New[int]("sub-4", 1, time.Second, context.Background())
	defer s.Close()

	require.Equal(t, SendOK, s.Send(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.Send(ctx, 2)
	assert.Equal(t, SendClosed, res)
}
