package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/events"
	"github.com/spec-kit/community-portal/internal/repository"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Pagination) limitOffset() (int, int) {
	p = p.normalize()
	return p.PageSize, (p.Page - 1) * p.PageSize
}

// PageResult is one page of a listing.
type PageResult[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

func newPage[T any](items []T, total int, p Pagination) PageResult[T] {
	p = p.normalize()
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: total}
}

// notFound converts a repository miss into a typed NotFound for resource.
func notFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// publishEvent dispatches after the unit of work committed. Handler failures are
// logged and reported back as a warning message.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) []string {
	if dispatcher == nil {
		return nil
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
		return []string{"notification could not be delivered"}
	}
	return nil
}
