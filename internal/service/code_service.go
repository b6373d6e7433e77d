package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/lock"
	"github.com/prn-tf/aurelius-catalogue/internal/pkg/crypto"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// CodeService issues and verifies confirmation codes. A user has at most one
// live code; issuing replaces it, subject to a cooldown. The plaintext code
// exists only in the return value of Issue — storage holds a bcrypt hash.
type CodeService struct {
	codeRepo repository.ConfirmationCodeRepository
	locker   lock.Locker
	cfg      config.AuthConfig
	logger   zerolog.Logger

	// now is the clock, injectable for tests.
	now func() time.Time
}

// NewCodeService creates a new CodeService.
func NewCodeService(
	codeRepo repository.ConfirmationCodeRepository,
	locker lock.Locker,
	cfg config.AuthConfig,
	logger zerolog.Logger,
) *CodeService {
	return &CodeService{
		codeRepo: codeRepo,
		locker:   locker,
		cfg:      cfg,
		logger:   logger.With().Str("service", "code").Logger(),
		now:      time.Now,
	}
}

// Issue generates a fresh code for the user and stores its hash, replacing
// any previous code. A reissue inside the cooldown window is rejected with a
// TooSoonError and leaves the existing code untouched.
//
// The per-user lock serializes concurrent issues across instances; the
// conditional upsert underneath is atomic on its own, so losing the lock
// race degrades to a spurious cooldown rejection, never to a double issue.
func (s *CodeService) Issue(ctx context.Context, user *domain.User) (string, error) {
	lockKey := lock.Keys.CodeIssue(user.ID)
	acquired, err := s.locker.AcquireWithRetry(ctx, lockKey, 10*time.Second, 3, 100*time.Millisecond)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to acquire code issue lock")
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return "", &domain.TooSoonError{RetryAfter: s.cfg.ResendCooldown}
	}
	defer func() {
		if _, err := s.locker.Release(ctx, lockKey); err != nil {
			s.logger.Warn().Err(err).Str("key", lockKey).Msg("failed to release code issue lock")
		}
	}()

	plaintext, err := crypto.GenerateConfirmationCode(s.cfg.CodeLength)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate confirmation code")
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash confirmation code")
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.now().UTC()
	code := &domain.ConfirmationCode{
		UserID:   user.ID,
		CodeHash: string(hash),
		IssuedAt: now,
	}

	stored, err := s.codeRepo.Upsert(ctx, code, now.Add(-s.cfg.ResendCooldown))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to store confirmation code")
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !stored {
		return "", s.tooSoon(ctx, user.ID, now)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("confirmation code issued")
	return plaintext, nil
}

// tooSoon builds the rejection with the actual remaining wait, read from the
// row that blocked the upsert.
func (s *CodeService) tooSoon(ctx context.Context, userID int64, now time.Time) error {
	retryAfter := s.cfg.ResendCooldown

	existing, err := s.codeRepo.GetByUserID(ctx, userID)
	if err == nil {
		if remaining := s.cfg.ResendCooldown - existing.Age(now); remaining > 0 {
			retryAfter = remaining
		}
	}

	return &domain.TooSoonError{RetryAfter: retryAfter}
}

// Verify checks the submitted code against the user's stored hash. A valid
// code is not consumed: it stays usable until it expires or is replaced.
func (s *CodeService) Verify(ctx context.Context, userID int64, submitted string) error {
	code, err := s.codeRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return domain.ErrCodeNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to load confirmation code")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if code.ExpiredAt(s.now().UTC(), s.cfg.CodeTTL) {
		return domain.ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(code.CodeHash), []byte(submitted)); err != nil {
		return domain.ErrInvalidCode
	}

	return nil
}
