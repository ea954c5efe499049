package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/events"
	"github.com/spec-kit/community-portal/internal/observability"
	"github.com/spec-kit/community-portal/internal/repository"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

const carouselSize = 5

// Publish triggers reported to metrics.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// NewsService drives the news and patch notes workflow.
type NewsService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewsDependencies groups collaborators for NewsService.
type NewsDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewNewsService constructs the service.
func NewNewsService(deps NewsDependencies) *NewsService {
	return &NewsService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// PostInput carries editable post fields. Status is ignored on create.
type PostInput struct {
	Title          string
	Content        string
	Excerpt        string
	Type           domain.PostType
	VersionNumber  string
	IsMajorRelease bool
	ScheduledDate  *time.Time
	FeaturedImage  string
	Tags           []string
}

// PublishResult is the outcome of a publish operation.
type PublishResult struct {
	Post     *domain.NewsPost
	Warnings []string
}

// CreatePost stores a new post. New posts always start as drafts.
func (s *NewsService) CreatePost(ctx context.Context, in PostInput) (*domain.NewsPost, error) {
	if !in.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid post type", map[string]any{"type": string(in.Type)})
	}
	post := &domain.NewsPost{Status: domain.PostStatusDraft, Type: in.Type}
	applyPostInput(post, in)

	if err := s.store.Posts().Create(ctx, post); err != nil {
		return nil, err
	}
	s.logger.Info("post created", zap.String("post_id", post.ID), zap.String("type", string(post.Type)))
	return post, nil
}

// UpdatePost edits content fields. Status and type are left alone.
func (s *NewsService) UpdatePost(ctx context.Context, id string, in PostInput) (*domain.NewsPost, error) {
	var post *domain.NewsPost
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if post, err = tx.Posts().GetForUpdate(ctx, id); err != nil {
			return notFound(err, "post")
		}
		applyPostInput(post, in)
		return tx.Posts().Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func applyPostInput(post *domain.NewsPost, in PostInput) {
	post.Title = strings.TrimSpace(in.Title)
	post.Content = in.Content
	post.Excerpt = in.Excerpt
	post.VersionNumber = in.VersionNumber
	post.IsMajorRelease = in.IsMajorRelease
	post.ScheduledDate = in.ScheduledDate
	post.FeaturedImage = in.FeaturedImage
	post.Tags = append([]string(nil), in.Tags...)
}

// SchedulePost marks a post for publication at when. The current status is not checked.
func (s *NewsService) SchedulePost(ctx context.Context, id string, when time.Time) (*domain.NewsPost, error) {
	var post *domain.NewsPost
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if post, err = tx.Posts().GetForUpdate(ctx, id); err != nil {
			return notFound(err, "post")
		}
		post.Status = domain.PostStatusScheduled
		post.ScheduledDate = &when
		return tx.Posts().Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// PublishPost publishes a post immediately. Publishing an already published post
// leaves its publication date untouched.
func (s *NewsService) PublishPost(ctx context.Context, id string) (*PublishResult, error) {
	var (
		post      *domain.NewsPost
		published bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if post, err = tx.Posts().GetForUpdate(ctx, id); err != nil {
			return notFound(err, "post")
		}
		if post.Status == domain.PostStatusPublished {
			return nil
		}
		markPublished(post, s.now())
		published = true
		return tx.Posts().Update(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	result := &PublishResult{Post: post}
	if published {
		s.metrics.PostsPublished(TriggerManual, 1)
		result.Warnings = publishEvent(ctx, s.dispatcher, s.logger, postPublishedEvent(post, false))
	}
	return result, nil
}

// PublishScheduledPosts promotes every SCHEDULED post whose date has passed and
// returns how many were published. Rows held by a concurrent sweep are skipped.
func (s *NewsService) PublishScheduledPosts(ctx context.Context) (int, error) {
	var due []domain.NewsPost
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		now := s.now()
		status := domain.PostStatusScheduled
		posts, _, err := tx.Posts().ListWithFilter(ctx, repository.PostFilter{
			Status:          &status,
			ScheduledBefore: &now,
			OrderBy:         repository.OrderByScheduled,
			Lock:            true,
		})
		if err != nil {
			return err
		}
		for i := range posts {
			markPublished(&posts[i], now)
			if err := tx.Posts().Update(ctx, &posts[i]); err != nil {
				return err
			}
		}
		due = posts
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := range due {
		publishEvent(ctx, s.dispatcher, s.logger, postPublishedEvent(&due[i], true))
	}
	s.metrics.PostsPublished(TriggerScheduled, len(due))
	return len(due), nil
}

func markPublished(post *domain.NewsPost, now time.Time) {
	post.Status = domain.PostStatusPublished
	post.PublishedDate = &now
}

func postPublishedEvent(post *domain.NewsPost, scheduled bool) events.Event {
	return events.New(events.EventPostPublished, post.ID, "", *post.PublishedDate, events.PostPublishedPayload{
		Title:         post.Title,
		Type:          post.Type,
		PublishedDate: *post.PublishedDate,
		Scheduled:     scheduled,
	})
}

// GetRecentNewsForCarousel returns up to five published news posts, newest first.
func (s *NewsService) GetRecentNewsForCarousel(ctx context.Context) ([]domain.NewsPost, error) {
	status := domain.PostStatusPublished
	postType := domain.PostTypeNews
	posts, _, err := s.store.Posts().ListWithFilter(ctx, repository.PostFilter{
		Status:  &status,
		Type:    &postType,
		OrderBy: repository.OrderByPublished,
		Limit:   carouselSize,
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []domain.NewsPost{}
	}
	return posts, nil
}

// GetLatestMajorPatchNote returns the newest published major release note, or nil.
func (s *NewsService) GetLatestMajorPatchNote(ctx context.Context) (*domain.NewsPost, error) {
	status := domain.PostStatusPublished
	postType := domain.PostTypePatchNotes
	posts, _, err := s.store.Posts().ListWithFilter(ctx, repository.PostFilter{
		Status:    &status,
		Type:      &postType,
		MajorOnly: true,
		OrderBy:   repository.OrderByPublished,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// GetPostsByStatus lists posts in a status, newest created first.
func (s *NewsService) GetPostsByStatus(ctx context.Context, status domain.PostStatus, page Pagination) (PageResult[domain.NewsPost], error) {
	if !status.Valid() {
		return PageResult[domain.NewsPost]{}, apperrors.NewValidationError("invalid post status", map[string]any{"status": string(status)})
	}
	return s.list(ctx, repository.PostFilter{Status: &status, OrderBy: repository.OrderByCreated}, page)
}

// GetPublishedPostsByType lists published posts of a type, newest published first.
func (s *NewsService) GetPublishedPostsByType(ctx context.Context, postType domain.PostType, page Pagination) (PageResult[domain.NewsPost], error) {
	if !postType.Valid() {
		return PageResult[domain.NewsPost]{}, apperrors.NewValidationError("invalid post type", map[string]any{"type": string(postType)})
	}
	status := domain.PostStatusPublished
	return s.list(ctx, repository.PostFilter{Status: &status, Type: &postType, OrderBy: repository.OrderByPublished}, page)
}

// SearchPublishedPosts matches published posts by title or content.
func (s *NewsService) SearchPublishedPosts(ctx context.Context, query string, page Pagination) (PageResult[domain.NewsPost], error) {
	status := domain.PostStatusPublished
	filter := repository.PostFilter{Status: &status, OrderBy: repository.OrderByPublished}
	if q := strings.TrimSpace(query); q != "" {
		filter.Search = &q
	}
	return s.list(ctx, filter, page)
}

func (s *NewsService) list(ctx context.Context, filter repository.PostFilter, page Pagination) (PageResult[domain.NewsPost], error) {
	filter.Limit, filter.Offset = page.limitOffset()
	posts, total, err := s.store.Posts().ListWithFilter(ctx, filter)
	if err != nil {
		return PageResult[domain.NewsPost]{}, err
	}
	return newPage(posts, total, page), nil
}

// GetPost loads a post by id.
func (s *NewsService) GetPost(ctx context.Context, id string) (*domain.NewsPost, error) {
	post, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}

// DeletePost removes a post.
func (s *NewsService) DeletePost(ctx context.Context, id string) error {
	return notFound(s.store.Posts().Delete(ctx, id), "post")
}
