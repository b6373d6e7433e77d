package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// reviewRepository implements repository.ReviewRepository for PostgreSQL.
type reviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new PostgreSQL review repository.
func NewReviewRepository(db *DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

// reviewSelect joins each review with its author's username.
const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.created_at
	FROM reviews r
	JOIN users u ON u.id = r.author_id
`

// Create creates a new review. The reviews_title_author_key constraint
// backstops the service-level duplicate check, so two concurrent submissions
// cannot both land.
func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO reviews (title_id, author_id, text, score, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		review.TitleID, review.AuthorID, review.Text, review.Score, review.CreatedAt,
	).Scan(&review.ID)
	if err != nil {
		if isUniqueViolationOn(err, "reviews_title_author_key") {
			return domain.ErrDuplicateReview
		}
		if isForeignKeyViolation(err) {
			return domain.ErrTitleNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// GetByID retrieves a review scoped to a title.
func (r *reviewRepository) GetByID(ctx context.Context, titleID, reviewID int64) (*domain.Review, error) {
	row := r.db.Pool.QueryRow(ctx, reviewSelect+` WHERE r.id = $1 AND r.title_id = $2`, reviewID, titleID)
	review, err := scanReview(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// ListByTitle returns a title's reviews, newest first.
func (r *reviewRepository) ListByTitle(ctx context.Context, titleID int64, opts repository.ListOptions) (*repository.ListResult[domain.Review], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE title_id = $1`, titleID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}

	query := reviewSelect + ` WHERE r.title_id = $1 ORDER BY r.created_at DESC, r.id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, query, titleID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return &repository.ListResult[domain.Review]{
		Items:  reviews,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Update updates a review's text and score. Author and title never change.
func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reviews SET text = $1, score = $2 WHERE id = $3`,
		review.Text, review.Score, review.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrReviewNotFound
	}

	return nil
}

// Delete deletes a review. Comments go with it via cascade.
func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrReviewNotFound
	}

	return nil
}

// ExistsByTitleAndAuthor checks whether the author already reviewed the title.
func (r *reviewRepository) ExistsByTitleAndAuthor(ctx context.Context, titleID, authorID int64) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE title_id = $1 AND author_id = $2)`,
		titleID, authorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check review existence: %w", err)
	}
	return exists, nil
}

// scanReview scans one review row from reviewSelect.
func scanReview(row pgx.Row) (*domain.Review, error) {
	review := &domain.Review{}

	err := row.Scan(
		&review.ID,
		&review.TitleID,
		&review.AuthorID,
		&review.Author,
		&review.Text,
		&review.Score,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return review, nil
}

// Ensure reviewRepository implements repository.ReviewRepository.
var _ repository.ReviewRepository = (*reviewRepository)(nil)
