package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/community-portal/internal/domain"
)

type postRepository struct {
	db DBTX
}

const postColumns = `id, title, content, excerpt, type, status, version_number, is_major_release,
               scheduled_date, published_date, featured_image, tags, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, post *domain.NewsPost) error {
	const query = `
        INSERT INTO news_posts (title, content, excerpt, type, status, version_number, is_major_release,
            scheduled_date, published_date, featured_image, tags)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		post.Title,
		post.Content,
		post.Excerpt,
		post.Type,
		post.Status,
		post.VersionNumber,
		post.IsMajorRelease,
		post.ScheduledDate,
		post.PublishedDate,
		post.FeaturedImage,
		tagsOrEmpty(post.Tags),
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
}

func (r *postRepository) Update(ctx context.Context, post *domain.NewsPost) error {
	const query = `
        UPDATE news_posts SET title=$1, content=$2, excerpt=$3, type=$4, status=$5, version_number=$6,
            is_major_release=$7, scheduled_date=$8, published_date=$9, featured_image=$10, tags=$11,
            updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`

	return r.db.QueryRow(ctx, query,
		post.Title,
		post.Content,
		post.Excerpt,
		post.Type,
		post.Status,
		post.VersionNumber,
		post.IsMajorRelease,
		post.ScheduledDate,
		post.PublishedDate,
		post.FeaturedImage,
		tagsOrEmpty(post.Tags),
		post.ID,
	).Scan(&post.UpdatedAt)
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM news_posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.NewsPost, error) {
	return r.fetchSingle(ctx, `SELECT `+postColumns+` FROM news_posts WHERE id=$1`, id)
}

func (r *postRepository) GetForUpdate(ctx context.Context, id string) (*domain.NewsPost, error) {
	return r.fetchSingle(ctx, `SELECT `+postColumns+` FROM news_posts WHERE id=$1 FOR UPDATE`, id)
}

func (r *postRepository) ListWithFilter(ctx context.Context, filter PostFilter) ([]domain.NewsPost, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	idx := 1

	if filter.Status != nil {
		clauses = append(clauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Type != nil {
		clauses = append(clauses, fmt.Sprintf("type = $%d", idx))
		args = append(args, *filter.Type)
		idx++
	}
	if filter.MajorOnly {
		clauses = append(clauses, "is_major_release = TRUE")
	}
	if filter.Search != nil && *filter.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", idx, idx))
		args = append(args, "%"+*filter.Search+"%")
		idx++
	}
	if filter.ScheduledBefore != nil {
		clauses = append(clauses, fmt.Sprintf("scheduled_date <= $%d", idx))
		args = append(args, *filter.ScheduledBefore)
		idx++
	}

	// Row locks cannot be combined with window functions, so locked reads skip the total.
	selectList := postColumns + `, COUNT(*) OVER()`
	if filter.Lock {
		selectList = postColumns + `, 0`
	}

	query := `SELECT ` + selectList + ` FROM news_posts WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY ` + postOrderColumn(filter.OrderBy) + ` DESC NULLS LAST, id`
	query, args = appendPaging(query, args, idx, filter.Limit, filter.Offset)
	if filter.Lock {
		query += ` FOR UPDATE SKIP LOCKED`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		posts []domain.NewsPost
		total int
	)
	for rows.Next() {
		var post domain.NewsPost
		dest := append(postDest(&post), &total)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if filter.Lock {
		total = len(posts)
	}
	return posts, total, rows.Err()
}

func (r *postRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.NewsPost, error) {
	var post domain.NewsPost
	if err := r.db.QueryRow(ctx, query, arg).Scan(postDest(&post)...); err != nil {
		return nil, err
	}
	return &post, nil
}

func postDest(post *domain.NewsPost) []any {
	return []any{
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Excerpt,
		&post.Type,
		&post.Status,
		&post.VersionNumber,
		&post.IsMajorRelease,
		&post.ScheduledDate,
		&post.PublishedDate,
		&post.FeaturedImage,
		&post.Tags,
		&post.CreatedAt,
		&post.UpdatedAt,
	}
}

func postOrderColumn(order PostOrder) string {
	switch order {
	case OrderByPublished:
		return "published_date"
	case OrderByScheduled:
		return "scheduled_date"
	default:
		return "created_at"
	}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
