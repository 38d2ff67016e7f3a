package service

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/events"
	"github.com/kahvecikaan/photo-api/internal/repository"
)

type PhotoService interface {
	PostPhoto(ctx context.Context, input domain.PostPhotoInput) (*domain.Photo, error)
	TagPhoto(ctx context.Context, githubLogin, photoID string) (*domain.Photo, error)
	TotalPhotos(ctx context.Context) (int, error)
	AllPhotos(ctx context.Context) ([]*domain.Photo, error)
	Photo(ctx context.Context, id string) (*domain.Photo, error)
	PostedBy(ctx context.Context, githubLogin string) ([]*domain.Photo, error)
	InPhotos(ctx context.Context, githubLogin string) ([]*domain.Photo, error)
	TaggedUsers(ctx context.Context, photoID string) ([]*domain.User, error)
}

type photoService struct {
	photos    repository.PhotoRepository
	users     repository.UserRepository
	tags      repository.TagRepository
	publisher events.Publisher
	validator *domain.Validation
	logger    hclog.Logger
}

func NewPhotoService(
	photos repository.PhotoRepository,
	users repository.UserRepository,
	tags repository.TagRepository,
	publisher events.Publisher,
	logger hclog.Logger) PhotoService {
	return &photoService{
		photos:    photos,
		users:     users,
		tags:      tags,
		publisher: publisher,
		validator: domain.NewValidation(),
		logger:    logger,
	}
}

// PostPhoto stores a photo owned by the current user and announces it on
// the photo-added topic. A failed announcement does not fail the post.
func (s *photoService) PostPhoto(ctx context.Context, input domain.PostPhotoInput) (*domain.Photo, error) {
	user := domain.CurrentUser(ctx)
	if user == nil {
		return nil, domain.ErrUnauthorized
	}

	if input.Category == "" {
		input.Category = domain.CategoryPortrait
	}
	if errs := s.validator.Validate(input); len(errs) > 0 {
		s.logger.Debug("Rejected photo input", "user", user.GithubLogin, "error", errs)
		return nil, errs
	}

	photo := &domain.Photo{
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		UserID:      user.GithubLogin,
	}

	if _, err := s.photos.Save(ctx, photo); err != nil {
		s.logger.Error("Unable to save photo", "user", user.GithubLogin, "error", err)
		return nil, err
	}
	s.logger.Info("Photo posted", "id", photo.ID, "user", user.GithubLogin)

	event := events.PhotoAdded{Photo: photo}
	if err := s.publisher.Publish(events.TopicPhotoAdded, event); err != nil {
		s.logger.Error("Unable to publish photo-added", "id", photo.ID, "error", err)
	}

	return photo, nil
}

func (s *photoService) TagPhoto(ctx context.Context, githubLogin, photoID string) (*domain.Photo, error) {
	photo, err := s.photos.FindByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByLogin(ctx, githubLogin); err != nil {
		return nil, err
	}

	if err := s.tags.Upsert(ctx, domain.Tag{PhotoID: photoID, GithubLogin: githubLogin}); err != nil {
		s.logger.Error("Unable to tag photo", "photo", photoID, "user", githubLogin, "error", err)
		return nil, err
	}

	s.logger.Debug("Photo tagged", "photo", photoID, "user", githubLogin)
	return photo, nil
}

func (s *photoService) TotalPhotos(ctx context.Context) (int, error) {
	return s.photos.Count(ctx)
}

func (s *photoService) AllPhotos(ctx context.Context) ([]*domain.Photo, error) {
	return s.photos.All(ctx)
}

func (s *photoService) Photo(ctx context.Context, id string) (*domain.Photo, error) {
	return s.photos.FindByID(ctx, id)
}

func (s *photoService) PostedBy(ctx context.Context, githubLogin string) ([]*domain.Photo, error) {
	return s.photos.FindByUser(ctx, githubLogin)
}

func (s *photoService) InPhotos(ctx context.Context, githubLogin string) ([]*domain.Photo, error) {
	ids, err := s.tags.PhotoIDsForUser(ctx, githubLogin)
	if err != nil {
		return nil, err
	}

	photos := make([]*domain.Photo, 0, len(ids))
	for _, id := range ids {
		p, err := s.photos.FindByID(ctx, id)
		if errors.Is(err, domain.ErrPhotoNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, nil
}

func (s *photoService) TaggedUsers(ctx context.Context, photoID string) ([]*domain.User, error) {
	logins, err := s.tags.LoginsForPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(logins))
	for _, login := range logins {
		u, err := s.users.FindByLogin(ctx, login)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}
