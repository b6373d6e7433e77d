package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/auth"
	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/mailer"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// AuthService implements the passwordless sign-up and token exchange flow.
type AuthService struct {
	userRepo repository.UserRepository
	codes    *CodeService
	tokens   auth.TokenManager
	mail     mailer.Mailer
	cfg      config.AuthConfig
	logger   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	codes *CodeService,
	tokens auth.TokenManager,
	mail mailer.Mailer,
	cfg config.AuthConfig,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		codes:    codes,
		tokens:   tokens,
		mail:     mail,
		cfg:      cfg,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// SignUpInput contains the data needed to sign up or request a code reissue.
type SignUpInput struct {
	Username string
	Email    string
}

// SignUpOutput echoes the identity the code was issued for.
type SignUpOutput struct {
	Username string
	Email    string
}

// TokenExchangeInput contains the data needed to exchange a code for a token.
type TokenExchangeInput struct {
	Username         string
	ConfirmationCode string
}

// TokenExchangeOutput contains the minted access token.
type TokenExchangeOutput struct {
	Token string
}

// =============================================================================
// Service Methods
// =============================================================================

// SignUp registers a new user, or reissues a code when the exact
// (username, email) pair already exists. A request matching an existing user
// on only one of the two fields is a conflict: it would either hijack a
// username or attach a second identity to an email.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*SignUpOutput, error) {
	if s.isForbiddenUsername(input.Username) {
		return nil, fmt.Errorf("%w: %q", domain.ErrForbiddenUsername, input.Username)
	}

	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	switch {
	case err == nil:
		// Existing username: the email must match exactly for this to be
		// a legitimate reissue request.
		if user.Email != input.Email {
			return nil, fmt.Errorf("%w: username is taken", domain.ErrDuplicateIdentity)
		}

	case errors.Is(err, domain.ErrUserNotFound):
		// New username: the email must be unused too.
		taken, err := s.userRepo.ExistsByEmail(ctx, input.Email)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to check email existence")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if taken {
			return nil, fmt.Errorf("%w: email is taken", domain.ErrDuplicateIdentity)
		}

		user = domain.NewUser(input.Username, input.Email)
		if err := s.userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, domain.ErrDuplicateIdentity) {
				// Lost a race with a concurrent sign-up.
				return nil, domain.ErrDuplicateIdentity
			}
			s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		s.logger.Info().
			Int64("user_id", user.ID).
			Str("username", user.Username).
			Msg("user registered")

	default:
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	code, err := s.codes.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	// Delivery failure is not fatal: the code is stored, and the user can
	// request a reissue after the cooldown.
	if err := s.mail.SendConfirmationCode(ctx, user.Email, user.Username, code); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to deliver confirmation code")
	}

	return &SignUpOutput{
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// TokenExchange swaps a valid confirmation code for a bearer token and
// activates the account on first success. The code stays valid until it
// expires or is replaced, so a re-exchange with the same code works.
func (s *AuthService) TokenExchange(ctx context.Context, input TokenExchangeInput) (*TokenExchangeOutput, error) {
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.codes.Verify(ctx, user.ID, input.ConfirmationCode); err != nil {
		return nil, err
	}

	if !user.Active {
		user.Active = true
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to activate user")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		s.logger.Info().Int64("user_id", user.ID).Msg("user activated")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to generate token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &TokenExchangeOutput{Token: token}, nil
}

// isForbiddenUsername checks the reserved-username list, case-insensitively.
func (s *AuthService) isForbiddenUsername(username string) bool {
	for _, forbidden := range s.cfg.ForbiddenUsernames {
		if strings.EqualFold(username, forbidden) {
			return true
		}
	}
	return false
}
