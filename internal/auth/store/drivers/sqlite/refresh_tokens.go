package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshColumns = `token_id, subject_id, chain_id, issued_at, expires_at, rotated_to, revoked, updated_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, rec domain.RefreshTokenRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens
		 (token_id, subject_id, chain_id, issued_at, expires_at, rotated_to, revoked, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TokenID, rec.SubjectID, rec.ChainID,
		rec.IssuedAt, rec.ExpiresAt,
		mapStringNull(rec.RotatedTo), rec.Revoked, rec.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, tokenID string) (domain.RefreshTokenRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens WHERE token_id = ?`, tokenID)
	return scanRefreshToken(row)
}

// RotateRefreshToken is the single contended write path. The UPDATE is
// conditional on the record still being active, which makes the rotation
// linearizable per token id: the row either flips once or not at all.
func (r *refreshTokensRepo) RotateRefreshToken(ctx context.Context, oldTokenID, newTokenID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens
		 SET rotated_to = ?, updated_at = ?
		 WHERE token_id = ? AND rotated_to IS NULL AND revoked = 0`,
		newTokenID, now, oldTokenID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Lost the race or the record was never rotatable; classify from the
	// current row state.
	rec, err := r.GetRefreshToken(ctx, oldTokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return err
	}
	switch rec.Status() {
	case domain.RefreshRevoked:
		return store.ErrRevoked
	case domain.RefreshRotated:
		return store.ErrAlreadyRotated
	default:
		// Active again should be impossible; report as a conflict anyway.
		return store.ErrAlreadyRotated
	}
}

func (r *refreshTokensRepo) RevokeChain(ctx context.Context, chainID string, now time.Time) ([]domain.RefreshTokenRecord, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE chain_id = ? AND revoked = 0`,
		now, chainID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens WHERE chain_id = ?`, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshTokenRecord
	for rows.Next() {
		rec, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *refreshTokensRepo) ListActiveChains(ctx context.Context, subjectID int64, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT chain_id FROM refresh_tokens
		 WHERE subject_id = ? AND revoked = 0 AND rotated_to IS NULL AND expires_at > ?`,
		subjectID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []string
	for rows.Next() {
		var chain string
		if err := rows.Scan(&chain); err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}
	return chains, rows.Err()
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now)
	return err
}

func scanRefreshToken(row rowScanner) (domain.RefreshTokenRecord, error) {
	var rec domain.RefreshTokenRecord
	var rotatedTo sql.NullString
	err := row.Scan(
		&rec.TokenID, &rec.SubjectID, &rec.ChainID,
		&rec.IssuedAt, &rec.ExpiresAt,
		&rotatedTo, &rec.Revoked, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshTokenRecord{}, mapNotFound(err)
	}
	rec.RotatedTo = mapNullString(rotatedTo)
	return rec, nil
}
