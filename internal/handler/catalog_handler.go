package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/auth"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/policy"
	"github.com/prn-tf/aurelius-catalogue/internal/service"
)

// CatalogHandler serves categories, genres, and titles. Reads are public;
// writes require admin access.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger.With().Str("handler", "catalog").Logger(),
	}
}

// RegisterRoutes mounts the catalogue endpoints.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Delete("/{slug}", h.DeleteCategory)
	})

	r.Route("/genres", func(r chi.Router) {
		r.Get("/", h.ListGenres)
		r.Post("/", h.CreateGenre)
		r.Delete("/{slug}", h.DeleteGenre)
	})

	r.Route("/titles", func(r chi.Router) {
		r.Get("/", h.ListTitles)
		r.Post("/", h.CreateTitle)
		r.Get("/{titleID}", h.GetTitle)
		r.Patch("/{titleID}", h.UpdateTitle)
		r.Delete("/{titleID}", h.DeleteTitle)
	})
}

// classifierRequest is the create body shared by categories and genres.
type classifierRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50"`
}

// createTitleRequest is the title-creation body.
type createTitleRequest struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Description string   `json:"description" validate:"max=4000"`
	Year        int      `json:"year" validate:"required"`
	Category    string   `json:"category" validate:"omitempty,max=50"`
	Genre       []string `json:"genre" validate:"required,min=1,dive,max=50"`
}

// updateTitleRequest is the title partial-update body.
type updateTitleRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=256"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	Year        *int     `json:"year"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`
	Genre       []string `json:"genre" validate:"omitempty,min=1,dive,max=50"`
}

// checkAccess applies the coarse read-public/write-admin policy.
func (h *CatalogHandler) checkAccess(w http.ResponseWriter, r *http.Request) bool {
	actor := auth.ActorFromContext(r.Context())
	safe := policy.IsSafeMethod(r.Method)
	if !policy.CanAccess(actor, safe) {
		if !actor.Authenticated {
			respondError(w, domain.ErrUnauthenticated)
		} else {
			respondError(w, domain.ErrAccessDenied)
		}
		return false
	}
	return true
}

// =============================================================================
// Categories
// =============================================================================

// ListCategories handles GET /categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	offset, limit := pagination(r)
	result, err := h.catalog.ListCategories(r.Context(), service.ListInput{Offset: offset, Limit: limit})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listResponse{Count: result.Total, Results: result.Items})
}

// CreateCategory handles POST /categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	var req classifierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), service.CreateClassifierInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, category)
}

// DeleteCategory handles DELETE /categories/{slug}.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "slug")); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// Genres
// =============================================================================

// ListGenres handles GET /genres.
func (h *CatalogHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	offset, limit := pagination(r)
	result, err := h.catalog.ListGenres(r.Context(), service.ListInput{Offset: offset, Limit: limit})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listResponse{Count: result.Total, Results: result.Items})
}

// CreateGenre handles POST /genres.
func (h *CatalogHandler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	var req classifierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	genre, err := h.catalog.CreateGenre(r.Context(), service.CreateClassifierInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, genre)
}

// DeleteGenre handles DELETE /genres/{slug}.
func (h *CatalogHandler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	if err := h.catalog.DeleteGenre(r.Context(), chi.URLParam(r, "slug")); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// Titles
// =============================================================================

// ListTitles handles GET /titles with exact-match filters on category,
// genre, name, and year.
func (h *CatalogHandler) ListTitles(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	offset, limit := pagination(r)
	input := service.ListTitlesInput{
		CategorySlug: r.URL.Query().Get("category"),
		GenreSlug:    r.URL.Query().Get("genre"),
		Name:         r.URL.Query().Get("name"),
		Offset:       offset,
		Limit:        limit,
	}

	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, domain.NewValidationError("year", "must be an integer"))
			return
		}
		input.Year = &year
	}

	result, err := h.catalog.ListTitles(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listResponse{Count: result.Total, Results: result.Items})
}

// CreateTitle handles POST /titles.
func (h *CatalogHandler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	var req createTitleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	title, err := h.catalog.CreateTitle(r.Context(), service.CreateTitleInput{
		Name:         req.Name,
		Description:  req.Description,
		Year:         req.Year,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, title)
}

// GetTitle handles GET /titles/{titleID}.
func (h *CatalogHandler) GetTitle(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	id, err := pathID(chi.URLParam(r, "titleID"), domain.ErrTitleNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	title, err := h.catalog.GetTitle(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, title)
}

// UpdateTitle handles PATCH /titles/{titleID}.
func (h *CatalogHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	id, err := pathID(chi.URLParam(r, "titleID"), domain.ErrTitleNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateTitleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	title, err := h.catalog.UpdateTitle(r.Context(), service.UpdateTitleInput{
		TitleID:      id,
		Name:         req.Name,
		Description:  req.Description,
		Year:         req.Year,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, title)
}

// DeleteTitle handles DELETE /titles/{titleID}.
func (h *CatalogHandler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	if !h.checkAccess(w, r) {
		return
	}

	id, err := pathID(chi.URLParam(r, "titleID"), domain.ErrTitleNotFound)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.catalog.DeleteTitle(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
