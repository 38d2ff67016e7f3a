package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kahvecikaan/photo-api/internal/domain"
)

const DefaultRandomUserURL = "https://randomuser.me/api/"

// FakeUserSource produces throwaway accounts for seeding.
type FakeUserSource interface {
	Fetch(ctx context.Context, count int) ([]*domain.User, error)
}

type randomUserSource struct {
	client  *http.Client
	baseURL string
}

func NewRandomUserSource(baseURL string) FakeUserSource {
	if baseURL == "" {
		baseURL = DefaultRandomUserURL
	}
	return &randomUserSource{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

type randomUserResponse struct {
	Results []struct {
		Login struct {
			Username string `json:"username"`
			SHA1     string `json:"sha1"`
		} `json:"login"`
		Name struct {
			First string `json:"first"`
			Last  string `json:"last"`
		} `json:"name"`
		Picture struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"picture"`
	} `json:"results"`
	Error string `json:"error"`
}

func (s *randomUserSource) Fetch(ctx context.Context, count int) ([]*domain.User, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing random user url: %w", err)
	}
	q := u.Query()
	q.Set("results", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: randomuser responded %d", domain.ErrUpstream, resp.StatusCode)
	}

	var body randomUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding randomuser response: %v", domain.ErrUpstream, err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstream, body.Error)
	}

	users := make([]*domain.User, 0, len(body.Results))
	for _, r := range body.Results {
		users = append(users, &domain.User{
			GithubLogin: r.Login.Username,
			Name:        r.Name.First + " " + r.Name.Last,
			Avatar:      r.Picture.Thumbnail,
			GithubToken: r.Login.SHA1,
		})
	}
	return users, nil
}
