package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shoplist/shoplist-go/internal/store"
)

// StorePartyRepo is a PartyRepo backed by a persistence driver, so users
// survive restarts when a durable store is configured.
type StorePartyRepo struct {
	users store.UserStore
}

// NewStorePartyRepo creates a party repository over a store driver.
func NewStorePartyRepo(users store.UserStore) *StorePartyRepo {
	return &StorePartyRepo{users: users}
}

func toRecord(u *User) *store.UserRecord {
	return &store.UserRecord{
		ID:           u.ID,
		Email:        strings.ToLower(u.Email),
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.Unix(),
	}
}

func fromRecord(rec *store.UserRecord) *User {
	return &User{
		ID:           rec.ID,
		Email:        rec.Email,
		DisplayName:  rec.DisplayName,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    time.Unix(rec.CreatedAt, 0),
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrUserExists
	default:
		return err
	}
}

func (r *StorePartyRepo) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = NewUserID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if err := r.users.CreateUser(ctx, toRecord(user)); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func (r *StorePartyRepo) Get(ctx context.Context, id string) (*User, error) {
	rec, err := r.users.GetUser(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return fromRecord(rec), nil
}

func (r *StorePartyRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	rec, err := r.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return fromRecord(rec), nil
}

func (r *StorePartyRepo) Update(ctx context.Context, user *User) error {
	if err := r.users.UpdateUser(ctx, toRecord(user)); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func (r *StorePartyRepo) Delete(ctx context.Context, id string) error {
	if err := r.users.DeleteUser(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func (r *StorePartyRepo) List(ctx context.Context) ([]*User, error) {
	recs, err := r.users.ListUsers(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	result := make([]*User, len(recs))
	for i, rec := range recs {
		result[i] = fromRecord(rec)
	}
	return result, nil
}

var _ PartyRepo = (*StorePartyRepo)(nil)
