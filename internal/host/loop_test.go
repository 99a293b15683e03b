package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInDueOrderThenPostingOrder(t *testing.T) {
	t.Parallel()

	loop := NewLoop("main")
	var order []string
	loop.Post(func() { order = append(order, "late") }, 20*time.Millisecond)
	loop.Post(func() { order = append(order, "first") }, 0)
	loop.Post(func() { order = append(order, "second") }, 0)

	require.NoError(t, loop.RunUntilIdle(context.Background()))
	assert.Equal(t, []string{"first", "second", "late"}, order)
	assert.Equal(t, 3, loop.Ran())
	assert.Equal(t, 0, loop.Pending())
}

func TestLoop_PostNeverRunsOnCallerTurn(t *testing.T) {
	t.Parallel()

	loop := NewLoop("main")
	ran := false
	loop.Post(func() { ran = true }, 0)

	assert.False(t, ran, "Post must only enqueue")
	assert.Equal(t, 1, loop.Pending())
	require.NoError(t, loop.RunUntilIdle(context.Background()))
	assert.True(t, ran)
}

func TestLoop_TasksPostedByTasksRunInSameDrain(t *testing.T) {
	t.Parallel()

	loop := NewLoop("main")
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 5 {
			loop.Post(tick, time.Millisecond)
		}
	}
	loop.Post(tick, 0)

	require.NoError(t, loop.RunUntilIdle(context.Background()))
	assert.Equal(t, 5, count)
}

func TestLoop_PanickingTaskDoesNotStopLoop(t *testing.T) {
	t.Parallel()

	loop := NewLoop("main")
	after := false
	loop.Post(func() { panic("boom") }, 0)
	loop.Post(func() { after = true }, 0)

	require.NoError(t, loop.RunUntilIdle(context.Background()))
	assert.True(t, after)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	loop := NewLoop("async")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	ran := make(chan struct{})
	loop.Post(func() { close(ran) }, 0)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("posted task did not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoop_RunUntilIdleHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	loop := NewLoop("main")
	loop.Post(func() {}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := loop.RunUntilIdle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, loop.Pending())
}
