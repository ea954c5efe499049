package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/community-portal/internal/observability"
)

type countingPublisher struct {
	calls int32
	err   error
}

func (c *countingPublisher) PublishScheduledPosts(ctx context.Context) (int, error) {
	atomic.AddInt32(&c.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return 1, c.err
}

func TestRunOnceRecordsOutcome(t *testing.T) {
	pub := &countingPublisher{err: errors.New("db down")}
	p := NewPostPublisher(pub, time.Second, observability.NewMetrics(), nil)

	p.RunOnce(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&pub.calls))
}

func TestRunStopsOnCancel(t *testing.T) {
	pub := &countingPublisher{}
	p := NewPostPublisher(pub, 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&pub.calls) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestDefaultInterval(t *testing.T) {
	p := NewPostPublisher(&countingPublisher{}, 0, nil, nil)
	assert.Equal(t, time.Minute, p.interval)
}
