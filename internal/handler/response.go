// Package handler provides the HTTP layer of the Aurelius catalogue API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/service"
)

// errorResponse is the JSON envelope for error replies.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// listResponse is the JSON envelope for paginated collections.
type listResponse struct {
	Count   int64       `json:"count"`
	Results interface{} `json:"results"`
}

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError maps a service error onto an HTTP status and writes the
// error envelope. Invalid and expired confirmation codes share one message
// so the response doesn't reveal whether a code exists.
func respondError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
		return
	}

	var tse *domain.TooSoonError
	if errors.As(err, &tse) {
		w.Header().Set("Retry-After", strconv.Itoa(tse.RetryAfterSeconds()))
		respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "a confirmation code was issued recently, retry later"})
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrForbiddenUsername):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrCodeNotFound):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid confirmation code"})

	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidToken):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})

	case errors.Is(err, domain.ErrAccessDenied):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: "access denied"})

	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrGenreNotFound),
		errors.Is(err, domain.ErrTitleNotFound),
		errors.Is(err, domain.ErrReviewNotFound),
		errors.Is(err, domain.ErrCommentNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrDuplicateIdentity),
		errors.Is(err, domain.ErrDuplicateSlug),
		errors.Is(err, domain.ErrDuplicateReview):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})

	default:
		if !errors.Is(err, service.ErrInternalError) {
			log.Error().Err(err).Msg("unmapped error reached the HTTP layer")
		}
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
