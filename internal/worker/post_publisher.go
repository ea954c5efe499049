package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/observability"
)

// ScheduledPublisher is the part of the news service the sweep loop needs.
type ScheduledPublisher interface {
	PublishScheduledPosts(ctx context.Context) (int, error)
}

// PostPublisher promotes due scheduled posts on a fixed interval.
type PostPublisher struct {
	publisher ScheduledPublisher
	interval  time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewPostPublisher builds the loop. A non-positive interval falls back to one minute.
func NewPostPublisher(publisher ScheduledPublisher, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *PostPublisher {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostPublisher{publisher: publisher, interval: interval, metrics: metrics, logger: logger}
}

// Run sweeps every interval until ctx is cancelled.
func (p *PostPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("scheduled publisher started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scheduled publisher stopped")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep bounded by the interval.
func (p *PostPublisher) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	n, err := p.publisher.PublishScheduledPosts(runCtx)
	p.metrics.SchedulerRun(err)
	if err != nil {
		p.logger.Error("scheduled publish failed", zap.Error(err))
		return
	}
	p.logger.Info("scheduled publish completed", zap.Int("published", n))
}
