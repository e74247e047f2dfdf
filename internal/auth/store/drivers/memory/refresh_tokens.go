package memory

import (
	"context"
	"time"

	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/store"
)

type refreshTokensRepo struct {
	ses session
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, rec domain.RefreshTokenRecord) error {
	r.ses.lock()
	defer r.ses.unlock()

	st := r.ses.state()
	if _, exists := st.tokens[rec.TokenID]; exists {
		return store.ErrAlreadyExists
	}
	rec.UpdatedAt = rec.IssuedAt
	st.tokens[rec.TokenID] = rec
	return nil
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, tokenID string) (domain.RefreshTokenRecord, error) {
	r.ses.lock()
	defer r.ses.unlock()

	rec, ok := r.ses.state().tokens[tokenID]
	if !ok {
		return domain.RefreshTokenRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *refreshTokensRepo) RotateRefreshToken(ctx context.Context, oldTokenID, newTokenID string, now time.Time) error {
	r.ses.lock()
	defer r.ses.unlock()

	st := r.ses.state()
	rec, ok := st.tokens[oldTokenID]
	if !ok {
		return store.ErrNotFound
	}

	switch rec.Status() {
	case domain.RefreshRevoked:
		return store.ErrRevoked
	case domain.RefreshRotated:
		return store.ErrAlreadyRotated
	}

	rec.RotatedTo = newTokenID
	rec.UpdatedAt = now
	st.tokens[oldTokenID] = rec
	return nil
}

func (r *refreshTokensRepo) RevokeChain(ctx context.Context, chainID string, now time.Time) ([]domain.RefreshTokenRecord, error) {
	r.ses.lock()
	defer r.ses.unlock()

	st := r.ses.state()
	var out []domain.RefreshTokenRecord
	for id, rec := range st.tokens {
		if rec.ChainID != chainID {
			continue
		}
		if !rec.Revoked {
			rec.Revoked = true
			rec.UpdatedAt = now
			st.tokens[id] = rec
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *refreshTokensRepo) ListActiveChains(ctx context.Context, subjectID int64, now time.Time) ([]string, error) {
	r.ses.lock()
	defer r.ses.unlock()

	seen := make(map[string]struct{})
	var chains []string
	for _, rec := range r.ses.state().tokens {
		if rec.SubjectID != subjectID || rec.Status() != domain.RefreshActive || !rec.ExpiresAt.After(now) {
			continue
		}
		if _, ok := seen[rec.ChainID]; ok {
			continue
		}
		seen[rec.ChainID] = struct{}{}
		chains = append(chains, rec.ChainID)
	}
	return chains, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	r.ses.lock()
	defer r.ses.unlock()

	st := r.ses.state()
	for id, rec := range st.tokens {
		if !rec.ExpiresAt.After(now) {
			delete(st.tokens, id)
		}
	}
	return nil
}
