package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/auth"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/policy"
	"github.com/prn-tf/aurelius-catalogue/internal/service"
)

// ReviewHandler serves reviews and comments nested under titles. Reads are
// public; creating needs any authenticated user; modifying an existing
// review or comment needs its author, a moderator, or an admin — checked
// after the resource is loaded, so a missing resource stays a 404.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviews *service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger.With().Str("handler", "review").Logger(),
	}
}

// RegisterRoutes mounts the nested review and comment endpoints.
func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Route("/titles/{titleID}/reviews", func(r chi.Router) {
		r.Get("/", h.ListReviews)
		r.Post("/", h.CreateReview)

		r.Route("/{reviewID}", func(r chi.Router) {
			r.Get("/", h.GetReview)
			r.Patch("/", h.UpdateReview)
			r.Delete("/", h.DeleteReview)

			r.Route("/comments", func(r chi.Router) {
				r.Get("/", h.ListComments)
				r.Post("/", h.CreateComment)

				r.Get("/{commentID}", h.GetComment)
				r.Patch("/{commentID}", h.UpdateComment)
				r.Delete("/{commentID}", h.DeleteComment)
			})
		})
	})
}

// createReviewRequest is the review-creation body.
type createReviewRequest struct {
	Text  string `json:"text" validate:"required,max=4000"`
	Score int    `json:"score" validate:"required"`
}

// updateReviewRequest is the review partial-update body.
type updateReviewRequest struct {
	Text  *string `json:"text" validate:"omitempty,max=4000"`
	Score *int    `json:"score"`
}

// commentRequest is the comment create body.
type commentRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// updateCommentRequest is the comment partial-update body.
type updateCommentRequest struct {
	Text *string `json:"text" validate:"omitempty,max=4000"`
}

// requireAuthenticated gates the create endpoints.
func requireAuthenticated(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	actor := auth.ActorFromContext(r.Context())
	if !actor.Authenticated {
		respondError(w, domain.ErrUnauthenticated)
		return actor, false
	}
	return actor, true
}

// checkObjectAccess gates mutation of an already-loaded resource.
func checkObjectAccess(w http.ResponseWriter, r *http.Request, ownerID int64) bool {
	actor := auth.ActorFromContext(r.Context())
	if !actor.Authenticated {
		respondError(w, domain.ErrUnauthenticated)
		return false
	}
	if !policy.CanAccessObject(actor, policy.IsSafeMethod(r.Method), ownerID) {
		respondError(w, domain.ErrAccessDenied)
		return false
	}
	return true
}

// reviewIDs parses the title and review path parameters.
func reviewIDs(r *http.Request) (titleID, reviewID int64, err error) {
	titleID, err = pathID(chi.URLParam(r, "titleID"), domain.ErrTitleNotFound)
	if err != nil {
		return 0, 0, err
	}
	reviewID, err = pathID(chi.URLParam(r, "reviewID"), domain.ErrReviewNotFound)
	if err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}

// =============================================================================
// Reviews
// =============================================================================

// ListReviews handles GET /titles/{titleID}/reviews.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	titleID, err := pathID(chi.URLParam(r, "titleID"), domain.ErrTitleNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	offset, limit := pagination(r)
	result, err := h.reviews.ListReviews(r.Context(), service.ListReviewsInput{
		TitleID: titleID,
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listResponse{Count: result.Total, Results: result.Items})
}

// CreateReview handles POST /titles/{titleID}/reviews.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuthenticated(w, r)
	if !ok {
		return
	}

	titleID, err := pathID(chi.URLParam(r, "titleID"), domain.ErrTitleNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	review, err := h.reviews.CreateReview(r.Context(), service.CreateReviewInput{
		TitleID:  titleID,
		AuthorID: actor.ID,
		Text:     req.Text,
		Score:    req.Score,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, review)
}

// GetReview handles GET /titles/{titleID}/reviews/{reviewID}.
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	review, err := h.reviews.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, review)
}

// UpdateReview handles PATCH /titles/{titleID}/reviews/{reviewID}.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	review, err := h.reviews.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		respondError(w, err)
		return
	}

	if !checkObjectAccess(w, r, review.AuthorID) {
		return
	}

	var req updateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.reviews.UpdateReview(r.Context(), service.UpdateReviewInput{
		TitleID:  titleID,
		ReviewID: reviewID,
		Text:     req.Text,
		Score:    req.Score,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteReview handles DELETE /titles/{titleID}/reviews/{reviewID}.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	review, err := h.reviews.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		respondError(w, err)
		return
	}

	if !checkObjectAccess(w, r, review.AuthorID) {
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), titleID, reviewID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// Comments
// =============================================================================

// ListComments handles GET .../reviews/{reviewID}/comments.
func (h *ReviewHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	offset, limit := pagination(r)
	result, err := h.reviews.ListComments(r.Context(), service.ListCommentsInput{
		TitleID:  titleID,
		ReviewID: reviewID,
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listResponse{Count: result.Total, Results: result.Items})
}

// CreateComment handles POST .../reviews/{reviewID}/comments.
func (h *ReviewHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAuthenticated(w, r)
	if !ok {
		return
	}

	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	comment, err := h.reviews.CreateComment(r.Context(), service.CreateCommentInput{
		TitleID:  titleID,
		ReviewID: reviewID,
		AuthorID: actor.ID,
		Text:     req.Text,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, comment)
}

// GetComment handles GET .../comments/{commentID}.
func (h *ReviewHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	commentID, err := pathID(chi.URLParam(r, "commentID"), domain.ErrCommentNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	comment, err := h.reviews.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, comment)
}

// UpdateComment handles PATCH .../comments/{commentID}.
func (h *ReviewHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	commentID, err := pathID(chi.URLParam(r, "commentID"), domain.ErrCommentNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	comment, err := h.reviews.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		respondError(w, err)
		return
	}

	if !checkObjectAccess(w, r, comment.AuthorID) {
		return
	}

	var req updateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.reviews.UpdateComment(r.Context(), service.UpdateCommentInput{
		TitleID:   titleID,
		ReviewID:  reviewID,
		CommentID: commentID,
		Text:      req.Text,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteComment handles DELETE .../comments/{commentID}.
func (h *ReviewHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewIDs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	commentID, err := pathID(chi.URLParam(r, "commentID"), domain.ErrCommentNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	comment, err := h.reviews.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		respondError(w, err)
		return
	}

	if !checkObjectAccess(w, r, comment.AuthorID) {
		return
	}

	if err := h.reviews.DeleteComment(r.Context(), titleID, reviewID, commentID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
