package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goblog/apiserver/internal/db"
	"github.com/goblog/apiserver/types"
)

// postColumns joins users so every post carries its author's username.
const postColumns = `
	p.id, p.user_id, u.username, p.title, p.text, p.created_at
	FROM blogposts p
	JOIN users u ON u.id = p.user_id`

// PostRepository handles persistence for blog posts.
type PostRepository struct {
	db db.DBTX
}

func NewPostRepository(db db.DBTX) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) GetByID(ctx context.Context, id int) (types.BlogPost, error) {
	const query = `SELECT` + postColumns + `
		WHERE p.id = $1`
	var post types.BlogPost
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.UserID,
		&post.Author,
		&post.Title,
		&post.Text,
		&post.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BlogPost{}, ErrNotFound
		}
		return types.BlogPost{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.BlogPost) (types.BlogPost, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO blogposts (user_id, title, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		post.UserID,
		post.Title,
		post.Text,
		post.CreatedAt,
	).Scan(&post.ID); err != nil {
		return types.BlogPost{}, translateError(err)
	}
	return post, nil
}

// ListAll returns one page of the site-wide feed, newest first, ties broken
// by id so equal timestamps keep insertion order. A page past the end comes
// back as an empty slice, not an error.
func (r *PostRepository) ListAll(ctx context.Context, offset, limit int) ([]types.BlogPost, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 5
	}

	const countQuery = `SELECT COUNT(1) FROM blogposts`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `SELECT` + postColumns + `
		ORDER BY p.created_at DESC, p.id ASC
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts, err := scanPosts(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByUser behaves like ListAll scoped to one author.
func (r *PostRepository) ListByUser(ctx context.Context, userID, offset, limit int) ([]types.BlogPost, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 5
	}

	total, err := r.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	const listQuery = `SELECT` + postColumns + `
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC, p.id ASC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts, err := scanPosts(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListAllByUser returns every post by the user without pagination. The
// legacy getuserposts API exposes the full list.
func (r *PostRepository) ListAllByUser(ctx context.Context, userID int) ([]types.BlogPost, error) {
	const query = `SELECT` + postColumns + `
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC, p.id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows, 0)
}

func (r *PostRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	const query = `SELECT COUNT(1) FROM blogposts WHERE user_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PostRepository) Update(ctx context.Context, post types.BlogPost) (types.BlogPost, error) {
	const query = `
		UPDATE blogposts
		SET title = $1,
			text = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, post.Title, post.Text, post.ID)
	if err != nil {
		return types.BlogPost{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.BlogPost{}, err
	}
	if affected == 0 {
		return types.BlogPost{}, ErrNotFound
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM blogposts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPosts(rows *sql.Rows, sizeHint int) ([]types.BlogPost, error) {
	posts := make([]types.BlogPost, 0, sizeHint)
	for rows.Next() {
		var post types.BlogPost
		if err := rows.Scan(
			&post.ID,
			&post.UserID,
			&post.Author,
			&post.Title,
			&post.Text,
			&post.CreatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
