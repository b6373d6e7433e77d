package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// confirmationCodeRepository implements repository.ConfirmationCodeRepository
// for PostgreSQL.
type confirmationCodeRepository struct {
	db *DB
}

// NewConfirmationCodeRepository creates a new PostgreSQL confirmation code repository.
func NewConfirmationCodeRepository(db *DB) repository.ConfirmationCodeRepository {
	return &confirmationCodeRepository{db: db}
}

// Upsert inserts or conditionally replaces the user's code row. The cooldown
// guard lives in the ON CONFLICT clause, so the check and the write are one
// statement and cannot interleave with a concurrent reissue.
func (r *confirmationCodeRepository) Upsert(ctx context.Context, code *domain.ConfirmationCode, issuedBefore time.Time) (bool, error) {
	query := `
		INSERT INTO confirmation_codes (user_id, code_hash, issued_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			code_hash = excluded.code_hash,
			issued_at = excluded.issued_at
		WHERE confirmation_codes.issued_at <= $4
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		code.UserID,
		code.CodeHash,
		code.IssuedAt,
		issuedBefore,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to upsert confirmation code: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByUserID retrieves the user's current code.
func (r *confirmationCodeRepository) GetByUserID(ctx context.Context, userID int64) (*domain.ConfirmationCode, error) {
	query := `SELECT user_id, code_hash, issued_at FROM confirmation_codes WHERE user_id = $1`

	code := &domain.ConfirmationCode{}
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&code.UserID, &code.CodeHash, &code.IssuedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get confirmation code: %w", err)
	}

	return code, nil
}

// Ensure confirmationCodeRepository implements repository.ConfirmationCodeRepository.
var _ repository.ConfirmationCodeRepository = (*confirmationCodeRepository)(nil)
