package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/service"
)

// AuthHandler serves the passwordless authentication endpoints. Both are
// public: they are the way into the system.
type AuthHandler struct {
	authService *service.AuthService
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes mounts the auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/token", h.Token)
}

// signUpRequest is the sign-up request body. Usernames follow the usual
// word/dot/at/plus/dash alphabet.
type signUpRequest struct {
	Username string `json:"username" validate:"required,max=150,excludesall= "`
	Email    string `json:"email" validate:"required,email,max=254"`
}

// signUpResponse echoes the identity the code was issued for.
type signUpResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// tokenRequest is the code-for-token exchange request body.
type tokenRequest struct {
	Username         string `json:"username" validate:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

// tokenResponse carries the minted bearer token.
type tokenResponse struct {
	Token string `json:"token"`
}

// SignUp handles POST /auth/signup: register, or reissue a code for an
// existing identity.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.authService.SignUp(r.Context(), service.SignUpInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, signUpResponse{
		Username: out.Username,
		Email:    out.Email,
	})
}

// Token handles POST /auth/token: exchange a confirmation code for a
// bearer token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	out, err := h.authService.TokenExchange(r.Context(), service.TokenExchangeInput{
		Username:         req.Username,
		ConfirmationCode: req.ConfirmationCode,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{Token: out.Token})
}
