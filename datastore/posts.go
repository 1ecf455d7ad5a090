package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coreybb/scribe/models"
)

// PostRepository handles database operations for posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const selectPostColumns = `
	SELECT p.id, p.title, p.content, p.excerpt, p.user_id, p.created_at, p.updated_at, u.email
	FROM posts p
	LEFT JOIN users u ON u.id = p.user_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post        models.Post
		authorEmail sql.NullString
	)
	err := row.Scan(&post.ID, &post.Title, &post.Content, &post.Excerpt, &post.OwnerID, &post.CreatedAt, &post.UpdatedAt, &authorEmail)
	if err != nil {
		return nil, err
	}
	if authorEmail.Valid {
		post.Author = &models.PostAuthor{ID: post.OwnerID, Email: authorEmail.String}
	}
	return &post, nil
}

func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, title, content, excerpt, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, post.ID, post.Title, post.Content, post.Excerpt, post.OwnerID, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// GetPosts returns every post, newest first, with the author's email attached.
func (r *PostRepository) GetPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, selectPostColumns+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (r *PostRepository) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, selectPostColumns+` WHERE p.id = $1`, postID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get post by ID: %w", err)
	}
	return post, nil
}

// UpdatePost overwrites title, content, excerpt and updated_at. The owner column is never touched.
func (r *PostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = $2, content = $3, excerpt = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, post.ID, post.Title, post.Content, post.Excerpt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update post %s: %w", post.ID, err)
	}
	return expectAffected(res, "post", post.ID)
}

func (r *PostRepository) DeletePost(ctx context.Context, postID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post %s: %w", postID, err)
	}
	return expectAffected(res, "post", postID)
}

func expectAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s not found: %w", kind, id, sql.ErrNoRows)
	}
	return nil
}
