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

// UserHandler serves user administration and the self-service profile.
// Administration is admin-only for every method, reads included; the /me
// endpoints only require authentication.
type UserHandler struct {
	identity *service.IdentityService
	logger   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(identity *service.IdentityService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		identity: identity,
		logger:   logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes mounts the user endpoints. /users/me must be declared
// before /users/{username}; chi routes static segments first regardless,
// but the ordering keeps the intent readable.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Get("/me", h.GetMe)
		r.Patch("/me", h.UpdateMe)

		r.Get("/{username}", h.Get)
		r.Patch("/{username}", h.Update)
		r.Delete("/{username}", h.Delete)
	})
}

// userResponse is the public shape of a user record.
type userResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Bio      string `json:"bio"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
		Bio:      u.Bio,
	}
}

// createUserRequest is the admin user-creation body.
type createUserRequest struct {
	Username string `json:"username" validate:"required,max=150,excludesall= "`
	Email    string `json:"email" validate:"required,email,max=254"`
	Role     string `json:"role" validate:"omitempty,oneof=user moderator admin"`
	Bio      string `json:"bio" validate:"max=2000"`
}

// updateUserRequest is the admin partial-update body.
type updateUserRequest struct {
	Email *string `json:"email" validate:"omitempty,email,max=254"`
	Role  *string `json:"role" validate:"omitempty,oneof=user moderator admin"`
	Bio   *string `json:"bio" validate:"omitempty,max=2000"`
}

// updateProfileRequest is the self-service body. A role field is accepted
// but never read: a user cannot change their own role, and silently dropping
// the field keeps clients that send the full user shape working.
type updateProfileRequest struct {
	Email *string `json:"email" validate:"omitempty,email,max=254"`
	Bio   *string `json:"bio" validate:"omitempty,max=2000"`
	Role  *string `json:"role"`
}

// requireAdmin gates the administration endpoints.
func (h *UserHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	actor := auth.ActorFromContext(r.Context())
	if !actor.Authenticated {
		respondError(w, domain.ErrUnauthenticated)
		return actor, false
	}
	if !policy.CanAccess(actor, false) {
		respondError(w, domain.ErrAccessDenied)
		return actor, false
	}
	return actor, true
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	offset, limit := pagination(r)
	result, err := h.identity.ListUsers(r.Context(), service.ListUsersInput{Offset: offset, Limit: limit})
	if err != nil {
		respondError(w, err)
		return
	}

	users := make([]userResponse, 0, len(result.Items))
	for _, u := range result.Items {
		users = append(users, toUserResponse(u))
	}

	respondJSON(w, http.StatusOK, listResponse{Count: result.Total, Results: users})
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.identity.CreateUser(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Role:     domain.Role(req.Role),
		Bio:      req.Bio,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// Get handles GET /users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	user, err := h.identity.GetUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// Update handles PATCH /users/{username}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	input := service.UpdateUserInput{
		Username: chi.URLParam(r, "username"),
		Email:    req.Email,
		Bio:      req.Bio,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.identity.UpdateUser(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// Delete handles DELETE /users/{username}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	if err := h.identity.DeleteUser(r.Context(), chi.URLParam(r, "username")); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// GetMe handles GET /users/me.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if !actor.Authenticated {
		respondError(w, domain.ErrUnauthenticated)
		return
	}

	user, err := h.identity.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateMe handles PATCH /users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if !actor.Authenticated {
		respondError(w, domain.ErrUnauthenticated)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.identity.UpdateProfile(r.Context(), service.UpdateProfileInput{
		UserID: actor.ID,
		Email:  req.Email,
		Bio:    req.Bio,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toUserResponse(user))
}
