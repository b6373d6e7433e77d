package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// commentRepository implements repository.CommentRepository for PostgreSQL.
type commentRepository struct {
	db *DB
}

// NewCommentRepository creates a new PostgreSQL comment repository.
func NewCommentRepository(db *DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

// commentSelect joins each comment with its author's username.
const commentSelect = `
	SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.created_at
	FROM comments c
	JOIN users u ON u.id = c.author_id
`

// Create creates a new comment.
func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO comments (review_id, author_id, text, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		comment.ReviewID, comment.AuthorID, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrReviewNotFound
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment scoped to a review.
func (r *commentRepository) GetByID(ctx context.Context, reviewID, commentID int64) (*domain.Comment, error) {
	row := r.db.Pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1 AND c.review_id = $2`, commentID, reviewID)
	comment, err := scanComment(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

// ListByReview returns a review's comments, newest first.
func (r *commentRepository) ListByReview(ctx context.Context, reviewID int64, opts repository.ListOptions) (*repository.ListResult[domain.Comment], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE review_id = $1`, reviewID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	query := commentSelect + ` WHERE c.review_id = $1 ORDER BY c.created_at DESC, c.id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, query, reviewID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return &repository.ListResult[domain.Comment]{
		Items:  comments,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Update updates a comment's text. Author and review never change.
func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE comments SET text = $1 WHERE id = $2`,
		comment.Text, comment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}

	return nil
}

// Delete deletes a comment by ID.
func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}

	return nil
}

// scanComment scans one comment row from commentSelect.
func scanComment(row pgx.Row) (*domain.Comment, error) {
	comment := &domain.Comment{}

	err := row.Scan(
		&comment.ID,
		&comment.ReviewID,
		&comment.AuthorID,
		&comment.Author,
		&comment.Text,
		&comment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// Ensure commentRepository implements repository.CommentRepository.
var _ repository.CommentRepository = (*commentRepository)(nil)
