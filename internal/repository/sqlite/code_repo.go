package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// confirmationCodeRepository implements repository.ConfirmationCodeRepository
// for SQLite.
type confirmationCodeRepository struct {
	db *DB
}

// NewConfirmationCodeRepository creates a new SQLite confirmation code repository.
func NewConfirmationCodeRepository(db *DB) repository.ConfirmationCodeRepository {
	return &confirmationCodeRepository{db: db}
}

// Upsert inserts or conditionally replaces the user's code row. The cooldown
// guard lives in the ON CONFLICT clause, so the check and the write are one
// statement and cannot interleave with a concurrent reissue.
func (r *confirmationCodeRepository) Upsert(ctx context.Context, code *domain.ConfirmationCode, issuedBefore time.Time) (bool, error) {
	query := `
		INSERT INTO confirmation_codes (user_id, code_hash, issued_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			code_hash = excluded.code_hash,
			issued_at = excluded.issued_at
		WHERE confirmation_codes.issued_at <= ?
	`

	result, err := r.db.ExecContext(ctx, query,
		code.UserID,
		code.CodeHash,
		code.IssuedAt.Format(time.RFC3339),
		issuedBefore.Format(time.RFC3339),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to upsert confirmation code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetByUserID retrieves the user's current code.
func (r *confirmationCodeRepository) GetByUserID(ctx context.Context, userID int64) (*domain.ConfirmationCode, error) {
	query := `SELECT user_id, code_hash, issued_at FROM confirmation_codes WHERE user_id = ?`

	code := &domain.ConfirmationCode{}
	var issuedAt string

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&code.UserID, &code.CodeHash, &issuedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get confirmation code: %w", err)
	}

	code.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt)

	return code, nil
}

// Ensure confirmationCodeRepository implements repository.ConfirmationCodeRepository.
var _ repository.ConfirmationCodeRepository = (*confirmationCodeRepository)(nil)
