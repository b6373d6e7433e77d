package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// ReviewService handles reviews and their comments. Both are nested under a
// title: every operation verifies the parent chain exists before touching
// the child resource.
type ReviewService struct {
	titleRepo   repository.TitleRepository
	reviewRepo  repository.ReviewRepository
	commentRepo repository.CommentRepository
	cfg         config.AuthConfig
	logger      zerolog.Logger

	now func() time.Time
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	titleRepo repository.TitleRepository,
	reviewRepo repository.ReviewRepository,
	commentRepo repository.CommentRepository,
	cfg config.AuthConfig,
	logger zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		titleRepo:   titleRepo,
		reviewRepo:  reviewRepo,
		commentRepo: commentRepo,
		cfg:         cfg,
		logger:      logger.With().Str("service", "review").Logger(),
		now:         time.Now,
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateReviewInput contains the data needed to create a review.
type CreateReviewInput struct {
	TitleID  int64
	AuthorID int64
	Text     string
	Score    int
}

// UpdateReviewInput contains a partial review update. Nil fields are
// untouched; author and title can never change.
type UpdateReviewInput struct {
	TitleID  int64
	ReviewID int64

	Text  *string
	Score *int
}

// ListReviewsInput contains the parent title and pagination.
type ListReviewsInput struct {
	TitleID int64
	Offset  int
	Limit   int
}

// CreateCommentInput contains the data needed to comment on a review.
type CreateCommentInput struct {
	TitleID  int64
	ReviewID int64
	AuthorID int64
	Text     string
}

// UpdateCommentInput contains a partial comment update.
type UpdateCommentInput struct {
	TitleID   int64
	ReviewID  int64
	CommentID int64

	Text *string
}

// ListCommentsInput contains the parent chain and pagination.
type ListCommentsInput struct {
	TitleID  int64
	ReviewID int64
	Offset   int
	Limit    int
}

// =============================================================================
// Reviews
// =============================================================================

// CreateReview creates a review for a title. One review per (title, author):
// a second submission is rejected, backed by a storage-level constraint for
// the concurrent case.
func (s *ReviewService) CreateReview(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	if err := s.validScore(input.Score); err != nil {
		return nil, err
	}

	if _, err := s.titleRepo.GetByID(ctx, input.TitleID); err != nil {
		if errors.Is(err, domain.ErrTitleNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("title_id", input.TitleID).Msg("failed to get title")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	exists, err := s.reviewRepo.ExistsByTitleAndAuthor(ctx, input.TitleID, input.AuthorID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check review existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, domain.ErrDuplicateReview
	}

	review := &domain.Review{
		TitleID:   input.TitleID,
		AuthorID:  input.AuthorID,
		Text:      input.Text,
		Score:     input.Score,
		CreatedAt: s.now().UTC(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			return nil, domain.ErrDuplicateReview
		}
		if errors.Is(err, domain.ErrTitleNotFound) {
			return nil, domain.ErrTitleNotFound
		}
		s.logger.Error().Err(err).Int64("title_id", input.TitleID).Msg("failed to create review")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("review_id", review.ID).
		Int64("title_id", input.TitleID).
		Int64("author_id", input.AuthorID).
		Msg("review created")

	// Re-read so the response carries the author's username.
	return s.GetReview(ctx, input.TitleID, review.ID)
}

// GetReview retrieves a review scoped to a title.
func (s *ReviewService) GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, titleID, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrReviewNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("review_id", reviewID).Msg("failed to get review")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return review, nil
}

// ListReviews returns a title's reviews, newest first. An unknown title is
// a not-found, not an empty list.
func (s *ReviewService) ListReviews(ctx context.Context, input ListReviewsInput) (*repository.ListResult[domain.Review], error) {
	if _, err := s.titleRepo.GetByID(ctx, input.TitleID); err != nil {
		if errors.Is(err, domain.ErrTitleNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("title_id", input.TitleID).Msg("failed to get title")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	result, err := s.reviewRepo.ListByTitle(ctx, input.TitleID, repository.ListOptions{
		Offset: input.Offset,
		Limit:  input.Limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("title_id", input.TitleID).Msg("failed to list reviews")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// UpdateReview applies a partial update to a review's text and score.
// The caller has already passed the object-level access check.
func (s *ReviewService) UpdateReview(ctx context.Context, input UpdateReviewInput) (*domain.Review, error) {
	review, err := s.GetReview(ctx, input.TitleID, input.ReviewID)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		review.Text = *input.Text
	}
	if input.Score != nil {
		if err := s.validScore(*input.Score); err != nil {
			return nil, err
		}
		review.Score = *input.Score
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		if errors.Is(err, domain.ErrReviewNotFound) {
			return nil, domain.ErrReviewNotFound
		}
		s.logger.Error().Err(err).Int64("review_id", input.ReviewID).Msg("failed to update review")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return review, nil
}

// DeleteReview deletes a review and, via cascade, its comments.
func (s *ReviewService) DeleteReview(ctx context.Context, titleID, reviewID int64) error {
	review, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return err
	}

	if err := s.reviewRepo.Delete(ctx, review.ID); err != nil {
		if errors.Is(err, domain.ErrReviewNotFound) {
			return domain.ErrReviewNotFound
		}
		s.logger.Error().Err(err).Int64("review_id", reviewID).Msg("failed to delete review")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("review_id", reviewID).Msg("review deleted")
	return nil
}

// =============================================================================
// Comments
// =============================================================================

// CreateComment creates a comment on a review.
func (s *ReviewService) CreateComment(ctx context.Context, input CreateCommentInput) (*domain.Comment, error) {
	if _, err := s.GetReview(ctx, input.TitleID, input.ReviewID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ReviewID:  input.ReviewID,
		AuthorID:  input.AuthorID,
		Text:      input.Text,
		CreatedAt: s.now().UTC(),
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		if errors.Is(err, domain.ErrReviewNotFound) {
			return nil, domain.ErrReviewNotFound
		}
		s.logger.Error().Err(err).Int64("review_id", input.ReviewID).Msg("failed to create comment")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("comment_id", comment.ID).
		Int64("review_id", input.ReviewID).
		Int64("author_id", input.AuthorID).
		Msg("comment created")

	return s.GetComment(ctx, input.TitleID, input.ReviewID, comment.ID)
}

// GetComment retrieves a comment, verifying the full title/review/comment
// chain.
func (s *ReviewService) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*domain.Comment, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, reviewID, commentID)
	if err != nil {
		if errors.Is(err, domain.ErrCommentNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("comment_id", commentID).Msg("failed to get comment")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return comment, nil
}

// ListComments returns a review's comments, newest first.
func (s *ReviewService) ListComments(ctx context.Context, input ListCommentsInput) (*repository.ListResult[domain.Comment], error) {
	if _, err := s.GetReview(ctx, input.TitleID, input.ReviewID); err != nil {
		return nil, err
	}

	result, err := s.commentRepo.ListByReview(ctx, input.ReviewID, repository.ListOptions{
		Offset: input.Offset,
		Limit:  input.Limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("review_id", input.ReviewID).Msg("failed to list comments")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// UpdateComment applies a partial update to a comment's text.
func (s *ReviewService) UpdateComment(ctx context.Context, input UpdateCommentInput) (*domain.Comment, error) {
	comment, err := s.GetComment(ctx, input.TitleID, input.ReviewID, input.CommentID)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		comment.Text = *input.Text
	}

	if err := s.commentRepo.Update(ctx, comment); err != nil {
		if errors.Is(err, domain.ErrCommentNotFound) {
			return nil, domain.ErrCommentNotFound
		}
		s.logger.Error().Err(err).Int64("comment_id", input.CommentID).Msg("failed to update comment")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return comment, nil
}

// DeleteComment deletes a comment.
func (s *ReviewService) DeleteComment(ctx context.Context, titleID, reviewID, commentID int64) error {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}

	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, domain.ErrCommentNotFound) {
			return domain.ErrCommentNotFound
		}
		s.logger.Error().Err(err).Int64("comment_id", commentID).Msg("failed to delete comment")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("comment_id", commentID).Msg("comment deleted")
	return nil
}

// validScore bounds a review score to the configured inclusive range.
func (s *ReviewService) validScore(score int) error {
	if score < s.cfg.MinScore || score > s.cfg.MaxScore {
		return domain.NewValidationError("score",
			fmt.Sprintf("score must be between %d and %d", s.cfg.MinScore, s.cfg.MaxScore))
	}
	return nil
}
