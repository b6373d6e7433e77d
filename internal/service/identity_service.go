package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// IdentityService handles user administration and self-service profiles.
type IdentityService struct {
	userRepo repository.UserRepository
	cfg      config.AuthConfig
	logger   zerolog.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(
	userRepo repository.UserRepository,
	cfg config.AuthConfig,
	logger zerolog.Logger,
) *IdentityService {
	return &IdentityService{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger.With().Str("service", "identity").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateUserInput contains the data needed for an administrator to create
// a user directly.
type CreateUserInput struct {
	Username string
	Email    string
	Role     domain.Role
	Bio      string
}

// UpdateUserInput contains a partial user update. Nil fields are untouched.
type UpdateUserInput struct {
	Username string

	Email *string
	Role  *domain.Role
	Bio   *string
}

// UpdateProfileInput contains a self-service profile update. Role is
// deliberately absent: a user cannot change their own role.
type UpdateProfileInput struct {
	UserID int64

	Email *string
	Bio   *string
}

// ListUsersInput contains pagination for the user listing.
type ListUsersInput struct {
	Offset int
	Limit  int
}

// =============================================================================
// Service Methods
// =============================================================================

// CreateUser creates a user on behalf of an administrator. Unlike sign-up,
// the account is active immediately and may carry any role.
func (s *IdentityService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if s.isForbiddenUsername(input.Username) {
		return nil, fmt.Errorf("%w: %q", domain.ErrForbiddenUsername, input.Username)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "unknown role")
	}

	user := domain.NewUser(input.Username, input.Email)
	user.Role = role
	user.Bio = input.Bio
	user.Active = true

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			return nil, domain.ErrDuplicateIdentity
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("user created by administrator")

	return user, nil
}

// GetUser retrieves a user by username.
func (s *IdentityService) GetUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *IdentityService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// ListUsers returns all users with pagination.
func (s *IdentityService) ListUsers(ctx context.Context, input ListUsersInput) (*repository.ListResult[domain.User], error) {
	result, err := s.userRepo.List(ctx, repository.ListOptions{
		Offset: input.Offset,
		Limit:  input.Limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// UpdateUser applies an administrator's partial update to a user.
func (s *IdentityService) UpdateUser(ctx context.Context, input UpdateUserInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, domain.NewValidationError("role", "unknown role")
		}
		user.Role = *input.Role
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			return nil, domain.ErrDuplicateIdentity
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to update user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return user, nil
}

// UpdateProfile applies a user's update to their own profile. Role and
// username stay fixed regardless of what the request carried — the handler
// never maps those fields into this input.
func (s *IdentityService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetUserByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			return nil, domain.ErrDuplicateIdentity
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to update profile")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return user, nil
}

// DeleteUser deletes a user by username. Their reviews and comments go with
// them via cascade.
func (s *IdentityService) DeleteUser(ctx context.Context, username string) error {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to delete user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("username", username).Msg("user deleted")
	return nil
}

// isForbiddenUsername checks the reserved-username list, case-insensitively.
func (s *IdentityService) isForbiddenUsername(username string) bool {
	for _, forbidden := range s.cfg.ForbiddenUsernames {
		if strings.EqualFold(username, forbidden) {
			return true
		}
	}
	return false
}
