package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/service"
)

// PostRequest payload for creating or editing a post. Status is accepted for
// compatibility but never applied; posts start as drafts.
type PostRequest struct {
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	Excerpt        string            `json:"excerpt"`
	Type           domain.PostType   `json:"type"`
	Status         domain.PostStatus `json:"status,omitempty"`
	VersionNumber  string            `json:"versionNumber"`
	IsMajorRelease bool              `json:"isMajorRelease"`
	ScheduledDate  *time.Time        `json:"scheduledDate"`
	FeaturedImage  string            `json:"featuredImage"`
	Tags           []string          `json:"tags"`
}

func (r PostRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Excerpt, validation.Length(0, 500)),
		validation.Field(&r.Type, validation.Required, validation.By(validValue[domain.PostType]("must be NEWS or PATCH_NOTES"))),
		validation.Field(&r.VersionNumber, validation.Length(0, 50)),
	))
}

// Input converts the payload for the news service.
func (r PostRequest) Input() service.PostInput {
	return service.PostInput{
		Title:          r.Title,
		Content:        r.Content,
		Excerpt:        r.Excerpt,
		Type:           r.Type,
		VersionNumber:  r.VersionNumber,
		IsMajorRelease: r.IsMajorRelease,
		ScheduledDate:  r.ScheduledDate,
		FeaturedImage:  r.FeaturedImage,
		Tags:           r.Tags,
	}
}

// ScheduleRequest payload for POST /api/news/:id/schedule.
type ScheduleRequest struct {
	ScheduledDate *time.Time `json:"scheduledDate"`
}

func (r ScheduleRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.ScheduledDate, validation.NotNil),
	))
}

// PostResponse is the public view of a post.
type PostResponse struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	Excerpt        string            `json:"excerpt,omitempty"`
	Type           domain.PostType   `json:"type"`
	Status         domain.PostStatus `json:"status"`
	VersionNumber  string            `json:"versionNumber,omitempty"`
	IsMajorRelease bool              `json:"isMajorRelease"`
	ScheduledDate  *time.Time        `json:"scheduledDate,omitempty"`
	PublishedDate  *time.Time        `json:"publishedDate,omitempty"`
	FeaturedImage  string            `json:"featuredImage,omitempty"`
	Tags           []string          `json:"tags"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// NewPostResponse maps a domain post.
func NewPostResponse(p *domain.NewsPost) PostResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostResponse{
		ID:             p.ID,
		Title:          p.Title,
		Content:        p.Content,
		Excerpt:        p.Excerpt,
		Type:           p.Type,
		Status:         p.Status,
		VersionNumber:  p.VersionNumber,
		IsMajorRelease: p.IsMajorRelease,
		ScheduledDate:  p.ScheduledDate,
		PublishedDate:  p.PublishedDate,
		FeaturedImage:  p.FeaturedImage,
		Tags:           tags,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// NewPostResponses maps a slice of posts.
func NewPostResponses(posts []domain.NewsPost) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, NewPostResponse(&posts[i]))
	}
	return out
}
