package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("doc-%d", i)
	}
	return out
}

func TestEach_FailuresAreIsolated(t *testing.T) {
	p := New(nil, nil)
	boom := errors.New("boom")

	res, err := p.Each(context.Background(), keys(10), func(ctx context.Context, key string) error {
		switch key {
		case "doc-3":
			return boom
		case "doc-7":
			panic("bad row")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 8, res.Succeeded)
	require.Len(t, res.Failed, 2)
	assert.ErrorIs(t, res.Failed["doc-3"], boom)
	assert.Contains(t, res.Failed["doc-7"].Error(), "bad row")
	assert.ErrorIs(t, res.Err(), boom)
}

func TestEach_RespectsMaxWorkers(t *testing.T) {
	p := New(&Config{MaxWorkers: 3}, nil)

	var running, peak atomic.Int64
	res, err := p.Each(context.Background(), keys(30), func(ctx context.Context, key string) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30, res.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.NoError(t, res.Err())
}

func TestEach_CancelledContext(t *testing.T) {
	p := New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	res, err := p.Each(ctx, keys(5), func(ctx context.Context, key string) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls.Load())
	assert.Len(t, res.Failed, 5)
	for _, e := range res.Failed {
		assert.ErrorIs(t, e, ErrTaskCancelled)
	}
}

func TestShutdown(t *testing.T) {
	p := New(nil, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = p.Each(context.Background(), []string{"slow"}, func(ctx context.Context, key string) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
	assert.True(t, p.IsClosed())

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))

	_, err := p.Each(context.Background(), keys(1), func(ctx context.Context, key string) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerPoolClosed)
}
