package domain

import "time"

// PostType distinguishes news articles from patch notes.
type PostType string

const (
	PostTypeNews       PostType = "NEWS"
	PostTypePatchNotes PostType = "PATCH_NOTES"
)

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	return t == PostTypeNews || t == PostTypePatchNotes
}

// PostStatus enumerates the publishing lifecycle.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusScheduled PostStatus = "SCHEDULED"
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusArchived  PostStatus = "ARCHIVED"
)

// Valid reports whether s is a known post status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// NewsPost is a news article or patch note. No author is recorded.
type NewsPost struct {
	ID             string
	Title          string
	Content        string
	Excerpt        string
	Type           PostType
	Status         PostStatus
	VersionNumber  string
	IsMajorRelease bool
	ScheduledDate  *time.Time
	PublishedDate  *time.Time
	FeaturedImage  string
	Tags           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
