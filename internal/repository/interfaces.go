// Package repository defines data access interfaces for the Aurelius
// catalogue service. These interfaces abstract database operations, allowing
// for different implementations (SQLite, PostgreSQL, in-memory for testing)
// while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
// Username and email uniqueness are enforced by the storage layer;
// violations surface as domain.ErrDuplicateIdentity.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns all users with pagination, ordered by creation time.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Confirmation Code Repository
// =============================================================================

// ConfirmationCodeRepository defines the interface for the one-row-per-user
// confirmation code ledger.
type ConfirmationCodeRepository interface {
	// Upsert creates the user's code row or replaces it, but only when the
	// existing row was issued at or before issuedBefore. The condition and
	// the write are a single atomic statement so two concurrent issues
	// inside the cooldown window cannot both succeed. Returns false, with
	// no mutation, when the existing code is too fresh.
	Upsert(ctx context.Context, code *domain.ConfirmationCode, issuedBefore time.Time) (bool, error)

	// GetByUserID retrieves the user's current code.
	// Returns domain.ErrCodeNotFound when the user has none.
	GetByUserID(ctx context.Context, userID int64) (*domain.ConfirmationCode, error)
}

// =============================================================================
// Catalogue Repositories
// =============================================================================

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	// Create creates a new category. A slug collision surfaces as
	// domain.ErrDuplicateSlug.
	Create(ctx context.Context, category *domain.Category) error

	// GetBySlug retrieves a category by slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// List returns categories ordered by name.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Category], error)

	// DeleteBySlug deletes a category. Titles referencing it keep existing
	// with a null category.
	DeleteBySlug(ctx context.Context, slug string) error
}

// GenreRepository defines the interface for genre data access.
type GenreRepository interface {
	// Create creates a new genre. A slug collision surfaces as
	// domain.ErrDuplicateSlug.
	Create(ctx context.Context, genre *domain.Genre) error

	// GetBySlug retrieves a genre by slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Genre, error)

	// GetBySlugs resolves a set of slugs. Returns domain.ErrGenreNotFound
	// if any slug is unknown.
	GetBySlugs(ctx context.Context, slugs []string) ([]domain.Genre, error)

	// List returns genres ordered by name.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Genre], error)

	// DeleteBySlug deletes a genre, detaching it from titles.
	DeleteBySlug(ctx context.Context, slug string) error
}

// TitleFilter restricts a title listing. All matches are exact.
type TitleFilter struct {
	// CategorySlug filters by category slug.
	CategorySlug string

	// GenreSlug filters by attached genre slug.
	GenreSlug string

	// Name filters by exact name.
	Name string

	// Year filters by release year.
	Year *int
}

// TitleRepository defines the interface for title data access.
// Reads populate the category, genres, and the aggregate rating; the rating
// is computed in the same query for single and list fetches so the two
// views can never diverge.
type TitleRepository interface {
	// Create creates a title and attaches the given genres.
	Create(ctx context.Context, title *domain.Title, genreIDs []int64) error

	// GetByID retrieves a title with category, genres, and rating.
	GetByID(ctx context.Context, id int64) (*domain.Title, error)

	// List returns titles matching the filter, with category, genres,
	// and rating populated.
	List(ctx context.Context, filter TitleFilter, opts ListOptions) (*ListResult[domain.Title], error)

	// Update rewrites the title's fields and, when genreIDs is non-nil,
	// replaces its genre set.
	Update(ctx context.Context, title *domain.Title, genreIDs []int64) error

	// Delete deletes a title and, via cascade, its reviews and comments.
	Delete(ctx context.Context, id int64) error
}

// =============================================================================
// Review & Comment Repositories
// =============================================================================

// ReviewRepository defines the interface for review data access.
// The (title_id, author_id) pair is unique at the storage level; a violation
// surfaces as domain.ErrDuplicateReview so concurrent duplicate submissions
// cannot both succeed.
type ReviewRepository interface {
	// Create creates a new review.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review scoped to a title.
	GetByID(ctx context.Context, titleID, reviewID int64) (*domain.Review, error)

	// ListByTitle returns a title's reviews, newest first.
	ListByTitle(ctx context.Context, titleID int64, opts ListOptions) (*ListResult[domain.Review], error)

	// Update updates a review's text and score. Author and title are
	// never touched.
	Update(ctx context.Context, review *domain.Review) error

	// Delete deletes a review and, via cascade, its comments.
	Delete(ctx context.Context, id int64) error

	// ExistsByTitleAndAuthor checks whether the author already reviewed
	// the title.
	ExistsByTitleAndAuthor(ctx context.Context, titleID, authorID int64) (bool, error)
}

// CommentRepository defines the interface for comment data access.
type CommentRepository interface {
	// Create creates a new comment.
	Create(ctx context.Context, comment *domain.Comment) error

	// GetByID retrieves a comment scoped to a review.
	GetByID(ctx context.Context, reviewID, commentID int64) (*domain.Comment, error)

	// ListByReview returns a review's comments, newest first.
	ListByReview(ctx context.Context, reviewID int64, opts ListOptions) (*ListResult[domain.Comment], error)

	// Update updates a comment's text.
	Update(ctx context.Context, comment *domain.Comment) error

	// Delete deletes a comment by ID.
	Delete(ctx context.Context, id int64) error
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
