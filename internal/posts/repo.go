package posts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists posts.
type Repository interface {
	ListPosts(ctx context.Context) ([]PostView, error)
	InsertPost(ctx context.Context, post *Post) error
	DeletePost(ctx context.Context, id int64) (bool, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListPosts returns every post with its author's email, oldest first.
func (r *PGRepository) ListPosts(ctx context.Context) ([]PostView, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.title, p.description, COALESCE(u.email, '')
FROM posts p
LEFT JOIN users u ON u.id = p.user_id
ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("posts: list: %w", err)
	}
	views, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PostView, error) {
		var v PostView
		err := row.Scan(&v.ID, &v.Title, &v.Description, &v.User)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("posts: scan: %w", err)
	}
	return views, nil
}

// InsertPost stores post and sets its ID.
func (r *PGRepository) InsertPost(ctx context.Context, post *Post) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (title, description, user_id) VALUES ($1, $2, $3) RETURNING id`,
		post.Title, post.Description, post.UserID,
	).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("posts: insert: %w", err)
	}
	return nil
}

// DeletePost removes a post and reports whether it existed.
func (r *PGRepository) DeletePost(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("posts: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ Repository = (*PGRepository)(nil)
