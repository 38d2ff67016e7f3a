package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/events"
	"github.com/kahvecikaan/photo-api/internal/repository"
)

// MaxFakeUsers is the most users one addFakeUsers call may request.
const MaxFakeUsers = 5000

type UserService interface {
	GithubAuth(ctx context.Context, code, clientID, clientSecret string) (*domain.AuthPayload, error)
	AddFakeUsers(ctx context.Context, count int) ([]*domain.User, error)
	FakeUserAuth(ctx context.Context, githubLogin string) (*domain.AuthPayload, error)
	UserByToken(ctx context.Context, token string) (*domain.User, error)
	TotalUsers(ctx context.Context) (int, error)
	AllUsers(ctx context.Context) ([]*domain.User, error)
	User(ctx context.Context, githubLogin string) (*domain.User, error)
}

// GithubApp holds the OAuth app credentials used when a githubAuth call
// does not supply its own.
type GithubApp struct {
	ClientID     string
	ClientSecret string
}

// UnknownLoginError is returned by FakeUserAuth for a login nobody has.
type UnknownLoginError struct {
	Login string
}

func (e *UnknownLoginError) Error() string {
	return fmt.Sprintf("Cannot find user with githubLogin %q", e.Login)
}

func (e *UnknownLoginError) Unwrap() error { return domain.ErrUserNotFound }

type userService struct {
	users     repository.UserRepository
	github    GithubClient
	fakes     FakeUserSource
	app       GithubApp
	publisher events.Publisher
	logger    hclog.Logger
}

func NewUserService(
	users repository.UserRepository,
	github GithubClient,
	fakes FakeUserSource,
	app GithubApp,
	publisher events.Publisher,
	logger hclog.Logger) UserService {
	return &userService{
		users:     users,
		github:    github,
		fakes:     fakes,
		app:       app,
		publisher: publisher,
		logger:    logger,
	}
}

// GithubAuth exchanges an OAuth code for a token, stores the latest
// account details and returns the token. A first login announces the user.
func (s *userService) GithubAuth(ctx context.Context, code, clientID, clientSecret string) (*domain.AuthPayload, error) {
	if clientID == "" {
		clientID = s.app.ClientID
	}
	if clientSecret == "" {
		clientSecret = s.app.ClientSecret
	}

	account, err := s.github.Authorize(ctx, GithubCredentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         code,
	})
	if err != nil {
		s.logger.Error("GitHub authorization failed", "error", err)
		return nil, err
	}

	user := &domain.User{
		GithubLogin: account.Login,
		Name:        account.Name,
		Avatar:      account.AvatarURL,
		GithubToken: account.AccessToken,
	}

	created, err := s.users.Upsert(ctx, user)
	if err != nil {
		s.logger.Error("Unable to store user", "login", user.GithubLogin, "error", err)
		return nil, err
	}
	s.logger.Info("User authorized with GitHub", "login", user.GithubLogin, "new", created)

	if created {
		s.announce(user)
	}

	return &domain.AuthPayload{Token: account.AccessToken, User: user}, nil
}

// AddFakeUsers seeds count random users and announces the ones that are new.
func (s *userService) AddFakeUsers(ctx context.Context, count int) ([]*domain.User, error) {
	if count < 1 || count > MaxFakeUsers {
		return nil, domain.ErrInvalidCount
	}

	users, err := s.fakes.Fetch(ctx, count)
	if err != nil {
		s.logger.Error("Unable to fetch fake users", "count", count, "error", err)
		return nil, err
	}

	created, err := s.users.InsertMany(ctx, users)
	if err != nil {
		s.logger.Error("Unable to store fake users", "count", len(users), "error", err)
		return nil, err
	}
	s.logger.Info("Added fake users", "count", len(users), "new", len(created))

	isNew := make(map[string]bool, len(created))
	for _, login := range created {
		isNew[login] = true
	}
	for _, u := range users {
		if isNew[u.GithubLogin] {
			s.announce(u)
		}
	}
	return users, nil
}

func (s *userService) FakeUserAuth(ctx context.Context, githubLogin string) (*domain.AuthPayload, error) {
	user, err := s.users.FindByLogin(ctx, githubLogin)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, &UnknownLoginError{Login: githubLogin}
	}
	if err != nil {
		return nil, err
	}
	return &domain.AuthPayload{Token: user.GithubToken, User: user}, nil
}

func (s *userService) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	return s.users.FindByToken(ctx, token)
}

func (s *userService) TotalUsers(ctx context.Context) (int, error) {
	return s.users.Count(ctx)
}

func (s *userService) AllUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.All(ctx)
}

func (s *userService) User(ctx context.Context, githubLogin string) (*domain.User, error) {
	return s.users.FindByLogin(ctx, githubLogin)
}

func (s *userService) announce(u *domain.User) {
	if err := s.publisher.Publish(events.TopicUserAdded, events.UserAdded{User: u}); err != nil {
		s.logger.Error("Unable to publish user-added", "login", u.GithubLogin, "error", err)
	}
}
