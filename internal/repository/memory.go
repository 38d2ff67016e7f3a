package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kahvecikaan/photo-api/internal/domain"
)

// Memory repositories keep everything in process. They hand out copies so
// callers can never mutate stored records.

type memoryUserRepository struct {
	users []*domain.User
	mutex sync.RWMutex
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{}
}

func (r *memoryUserRepository) Upsert(ctx context.Context, u *domain.User) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.upsert(u), nil
}

func (r *memoryUserRepository) InsertMany(ctx context.Context, users []*domain.User) ([]string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var created []string
	for _, u := range users {
		if r.upsert(u) {
			created = append(created, u.GithubLogin)
		}
	}
	return created, nil
}

func (r *memoryUserRepository) upsert(u *domain.User) bool {
	stored := *u
	for i, existing := range r.users {
		if existing.GithubLogin == u.GithubLogin {
			r.users[i] = &stored
			return false
		}
	}
	r.users = append(r.users, &stored)
	return true
}

func (r *memoryUserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, u := range r.users {
		if u.GithubLogin == login {
			found := *u
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepository) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if token == "" {
		return nil, domain.ErrUserNotFound
	}
	for _, u := range r.users {
		if u.GithubToken == token {
			found := *u
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepository) Count(ctx context.Context) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.users), nil
}

func (r *memoryUserRepository) All(ctx context.Context) ([]*domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		c := *u
		users = append(users, &c)
	}
	return users, nil
}

type memoryPhotoRepository struct {
	photos []*domain.Photo
	lastID int
	mutex  sync.RWMutex
}

func NewMemoryPhotoRepository() PhotoRepository {
	return &memoryPhotoRepository{}
}

func (r *memoryPhotoRepository) Save(ctx context.Context, p *domain.Photo) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p.ID = r.getNextID()
	p.Created = time.Now().UTC()

	stored := *p
	r.photos = append(r.photos, &stored)
	return p.ID, nil
}

func (r *memoryPhotoRepository) FindByID(ctx context.Context, id string) (*domain.Photo, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, p := range r.photos {
		if p.ID == id {
			found := *p
			return &found, nil
		}
	}
	return nil, domain.ErrPhotoNotFound
}

func (r *memoryPhotoRepository) Count(ctx context.Context) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.photos), nil
}

func (r *memoryPhotoRepository) All(ctx context.Context) ([]*domain.Photo, error) {
	return r.filter(func(*domain.Photo) bool { return true }), nil
}

func (r *memoryPhotoRepository) FindByUser(ctx context.Context, login string) ([]*domain.Photo, error) {
	return r.filter(func(p *domain.Photo) bool { return p.UserID == login }), nil
}

func (r *memoryPhotoRepository) filter(keep func(*domain.Photo) bool) []*domain.Photo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	photos := make([]*domain.Photo, 0, len(r.photos))
	for _, p := range r.photos {
		if keep(p) {
			c := *p
			photos = append(photos, &c)
		}
	}
	return photos
}

func (r *memoryPhotoRepository) getNextID() string {
	r.lastID++
	return strconv.Itoa(r.lastID)
}

type memoryTagRepository struct {
	tags  map[domain.Tag]struct{}
	order []domain.Tag
	mutex sync.RWMutex
}

func NewMemoryTagRepository() TagRepository {
	return &memoryTagRepository{tags: make(map[domain.Tag]struct{})}
}

func (r *memoryTagRepository) Upsert(ctx context.Context, t domain.Tag) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.tags[t]; ok {
		return nil
	}
	r.tags[t] = struct{}{}
	r.order = append(r.order, t)
	return nil
}

func (r *memoryTagRepository) PhotoIDsForUser(ctx context.Context, login string) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := []string{}
	for _, t := range r.order {
		if t.GithubLogin == login {
			ids = append(ids, t.PhotoID)
		}
	}
	return ids, nil
}

func (r *memoryTagRepository) LoginsForPhoto(ctx context.Context, photoID string) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	logins := []string{}
	for _, t := range r.order {
		if t.PhotoID == photoID {
			logins = append(logins, t.GithubLogin)
		}
	}
	return logins, nil
}
