package replication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRunsSubmittedJobs(t *testing.T) {
	e := newExecutor(4, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.run(ctx)

	done := make(chan struct{})
	require.NoError(t, e.submit(context.Background(), func(context.Context) error {
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
}

func TestExecutorReportsFirstHandlerError(t *testing.T) {
	e := newExecutor(4, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.run(ctx)

	wantErr := errors.New("handler exploded")
	require.NoError(t, e.submit(context.Background(), func(context.Context) error {
		return wantErr
	}))

	require.Eventually(t, func() bool {
		return e.failure() != nil
	}, time.Second, time.Millisecond)
}

func TestExecutorSubmitTimesOutUnderBackpressure(t *testing.T) {
	e := newExecutor(1, 10*time.Millisecond)

	// Fill the one queue slot without a running worker to drain it.
	require.NoError(t, e.submit(context.Background(), func(context.Context) error { return nil }))

	err := e.submit(context.Background(), func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestExecutorDrainWaitsForWorkerExit(t *testing.T) {
	e := newExecutor(4, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.run(ctx)

	require.NoError(t, e.submit(context.Background(), func(context.Context) error { return nil }))

	done := make(chan struct{})
	go func() {
		e.drain()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain never returned")
	}
}
