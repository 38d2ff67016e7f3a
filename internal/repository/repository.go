package repository

import (
	"context"

	"github.com/kahvecikaan/photo-api/internal/domain"
)

type UserRepository interface {
	// Upsert stores u keyed by GithubLogin and reports whether the login is new.
	Upsert(ctx context.Context, u *domain.User) (created bool, err error)
	// InsertMany upserts users and returns the logins that were new.
	InsertMany(ctx context.Context, users []*domain.User) (created []string, err error)
	FindByLogin(ctx context.Context, login string) (*domain.User, error)
	FindByToken(ctx context.Context, token string) (*domain.User, error)
	Count(ctx context.Context) (int, error)
	All(ctx context.Context) ([]*domain.User, error)
}

type PhotoRepository interface {
	// Save assigns p an ID and creation time, stores it and returns the ID.
	Save(ctx context.Context, p *domain.Photo) (string, error)
	FindByID(ctx context.Context, id string) (*domain.Photo, error)
	Count(ctx context.Context) (int, error)
	All(ctx context.Context) ([]*domain.Photo, error)
	FindByUser(ctx context.Context, login string) ([]*domain.Photo, error)
}

type TagRepository interface {
	// Upsert is idempotent per (PhotoID, GithubLogin).
	Upsert(ctx context.Context, t domain.Tag) error
	PhotoIDsForUser(ctx context.Context, login string) ([]string, error)
	LoginsForPhoto(ctx context.Context, photoID string) ([]string, error)
}
