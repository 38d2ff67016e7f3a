package service

import (
	"context"

	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockGithubClient struct {
	mock.Mock
}

func (m *mockGithubClient) Authorize(ctx context.Context, creds GithubCredentials) (*GithubAccount, error) {
	args := m.Called(ctx, creds)
	account, _ := args.Get(0).(*GithubAccount)
	return account, args.Error(1)
}

type mockFakeUserSource struct {
	mock.Mock
}

func (m *mockFakeUserSource) Fetch(ctx context.Context, count int) ([]*domain.User, error) {
	args := m.Called(ctx, count)
	users, _ := args.Get(0).([]*domain.User)
	return users, args.Error(1)
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, any) error { return context.DeadlineExceeded }
