package async

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

func TestGroup_RunsAndWaits(t *testing.T) {
	g := NewGroup(nil)
	var count atomic.Int32

	for i := 0; i < 10; i++ {
		g.Go(context.Background(), time.Second, "count", func(context.Context) error {
			count.Add(1)
			return nil
		})
	}

	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(10), count.Load())
}

func TestGroup_LogsErrors(t *testing.T) {
	var buf bytes.Buffer
	g := NewGroup(observability.NewLogger(observability.InfoLevel, &buf))

	g.Go(context.Background(), time.Second, "audit write", func(context.Context) error {
		return errors.New("sink unavailable")
	})
	require.NoError(t, g.Wait(context.Background()))

	assert.Contains(t, buf.String(), "sink unavailable")
	assert.Contains(t, buf.String(), "audit write")
}

func TestGroup_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	g := NewGroup(observability.NewLogger(observability.InfoLevel, &buf))

	g.Go(context.Background(), time.Second, "panicky", func(context.Context) error {
		panic("boom")
	})
	require.NoError(t, g.Wait(context.Background()))

	assert.Contains(t, buf.String(), "PANIC recovered")
}

func TestGroup_DetachedFromParentCancellation(t *testing.T) {
	g := NewGroup(nil)
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	var ctxErr error
	g.Go(parent, time.Second, "detached", func(ctx context.Context) error {
		ctxErr = ctx.Err()
		return nil
	})
	require.NoError(t, g.Wait(context.Background()))
	assert.NoError(t, ctxErr)
}

func TestGroup_Timeout(t *testing.T) {
	g := NewGroup(nil)
	var sawDeadline atomic.Bool

	g.Go(context.Background(), 20*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		sawDeadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})
	require.NoError(t, g.Wait(context.Background()))
	assert.True(t, sawDeadline.Load())
}

func TestGroup_WaitRespectsContext(t *testing.T) {
	g := NewGroup(nil)
	release := make(chan struct{})
	defer close(release)

	g.Go(context.Background(), time.Minute, "blocked", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSafeGo(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, "untracked", func(context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not run the task")
	}
}
