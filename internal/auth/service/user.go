package service

import (
	"context"
	"log/slog"

	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/store"
	"github.com/trackforge/trackforge/pkg/slogx"
)

// UserService covers the small slice of user administration the auth
// subsystem owns: role changes.
type UserService struct {
	Store store.Store
}

// UpdateRole changes a user's role. Tokens already in flight keep the old
// role until they expire or rotate; the short access TTL bounds that
// window. Returns store.ErrNotFound for an unknown id.
func (s *UserService) UpdateRole(ctx context.Context, id int64, role domain.Role) (domain.Principal, error) {
	var updated domain.User

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, id); err != nil {
			return err
		}
		if err := tx.Users().UpdateUserRole(ctx, id, role); err != nil {
			return err
		}
		var err error
		updated, err = tx.Users().GetUserByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.Principal{}, mapInfra(err)
	}

	slogx.FromContext(ctx).Info("user role updated",
		slog.Int64("user_id", id),
		slog.String("role", string(role)),
	)
	return updated.Principal(), nil
}
