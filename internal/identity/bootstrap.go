package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shoplist/shoplist-go/internal/platform/logutil"
)

// SeededUser defines a user to be created at startup.
type SeededUser struct {
	Email       string
	Password    string
	DisplayName string
}

// Bootstrap creates seeded users idempotently at startup.
type Bootstrap struct {
	repo PartyRepo
	auth *UserAuth
	log  *slog.Logger
}

// NewBootstrap creates a new bootstrap handler.
func NewBootstrap(repo PartyRepo, auth *UserAuth, log *slog.Logger) *Bootstrap {
	return &Bootstrap{
		repo: repo,
		auth: auth,
		log:  logutil.NoopIfNil(log),
	}
}

// Run creates the admin user and any seeded users.
// Returns the number of users created (0 if all already exist).
func (b *Bootstrap) Run(ctx context.Context, admin SeededUser, seeded []SeededUser) (int, error) {
	var created int

	if admin.Email != "" {
		n, err := b.ensureUser(ctx, admin)
		if err != nil {
			return created, err
		}
		created += n
	}

	for _, s := range seeded {
		n, err := b.ensureUser(ctx, s)
		if err != nil {
			return created, err
		}
		created += n
	}

	return created, nil
}

func (b *Bootstrap) ensureUser(ctx context.Context, s SeededUser) (int, error) {
	_, err := b.repo.GetByEmail(ctx, s.Email)
	if err == nil {
		b.log.Debug("user already exists", "email", s.Email)
		return 0, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return 0, err
	}

	hash, err := b.auth.HashPassword(s.Password)
	if err != nil {
		return 0, err
	}

	displayName := s.DisplayName
	if displayName == "" {
		displayName = s.Email
	}

	user := &User{
		ID:           NewUserID(),
		Email:        s.Email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := b.repo.Create(ctx, user); err != nil {
		return 0, err
	}

	b.log.Info("created user", "email", s.Email)
	return 1, nil
}
