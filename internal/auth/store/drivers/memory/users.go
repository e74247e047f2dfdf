package memory

import (
	"context"
	"strings"
	"time"

	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/store"
)

type usersRepo struct {
	ses session
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	r.ses.lock()
	defer r.ses.unlock()

	u, ok := r.ses.state().users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	r.ses.lock()
	defer r.ses.unlock()

	st := r.ses.state()
	id, ok := st.emails[strings.ToLower(email)]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return st.users[id], nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	r.ses.lock()
	defer r.ses.unlock()

	st := r.ses.state()
	email := strings.ToLower(u.Email)
	if _, exists := st.emails[email]; exists {
		return domain.User{}, store.ErrAlreadyExists
	}

	now := time.Now().UTC()
	u.ID = st.nextID
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now
	st.nextID++
	st.users[u.ID] = u
	st.emails[email] = u.ID
	return u, nil
}

func (r *usersRepo) UpdateUserRole(ctx context.Context, id int64, role domain.Role) error {
	r.ses.lock()
	defer r.ses.unlock()

	st := r.ses.state()
	u, ok := st.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	st.users[id] = u
	return nil
}

func (r *usersRepo) CountUsers(ctx context.Context) (int64, error) {
	r.ses.lock()
	defer r.ses.unlock()

	return int64(len(r.ses.state().users)), nil
}
