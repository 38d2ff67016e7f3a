package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kahvecikaan/photo-api/internal/domain"
)

const (
	DefaultGithubTokenURL = "https://github.com/login/oauth/access_token"
	DefaultGithubUserURL  = "https://api.github.com/user"
)

// GithubCredentials is what the client exchanges for an access token.
type GithubCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

// GithubAccount is the GitHub user behind an access token.
type GithubAccount struct {
	Login       string
	Name        string
	AvatarURL   string
	AccessToken string
}

type GithubClient interface {
	Authorize(ctx context.Context, creds GithubCredentials) (*GithubAccount, error)
}

type githubClient struct {
	client   *http.Client
	tokenURL string
	userURL  string
}

// NewGithubClient talks to GitHub at the given endpoints. Empty URLs fall
// back to the public GitHub ones.
func NewGithubClient(tokenURL, userURL string) GithubClient {
	if tokenURL == "" {
		tokenURL = DefaultGithubTokenURL
	}
	if userURL == "" {
		userURL = DefaultGithubUserURL
	}
	return &githubClient{
		client:   &http.Client{Timeout: 10 * time.Second},
		tokenURL: tokenURL,
		userURL:  userURL,
	}
}

type githubTokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

type githubUserResponse struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Message   string `json:"message"`
}

func (g *githubClient) Authorize(ctx context.Context, creds GithubCredentials) (*GithubAccount, error) {
	token, err := g.requestToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	account, err := g.requestAccount(ctx, token)
	if err != nil {
		return nil, err
	}
	account.AccessToken = token
	return account, nil
}

func (g *githubClient) requestToken(ctx context.Context, creds GithubCredentials) (string, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var tr githubTokenResponse
	if err := g.do(req, &tr); err != nil {
		return "", err
	}

	switch {
	case tr.Message != "":
		return "", fmt.Errorf("%w: %s", domain.ErrGithubAuth, tr.Message)
	case tr.ErrorDescription != "":
		return "", fmt.Errorf("%w: %s", domain.ErrGithubAuth, tr.ErrorDescription)
	case tr.Error != "":
		return "", fmt.Errorf("%w: %s", domain.ErrGithubAuth, tr.Error)
	case tr.AccessToken == "":
		return "", fmt.Errorf("%w: no access token returned", domain.ErrGithubAuth)
	}
	return tr.AccessToken, nil
}

func (g *githubClient) requestAccount(ctx context.Context, token string) (*GithubAccount, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/json")

	var ur githubUserResponse
	if err := g.do(req, &ur); err != nil {
		return nil, err
	}
	if ur.Message != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrGithubAuth, ur.Message)
	}
	if ur.Login == "" {
		return nil, fmt.Errorf("%w: github returned no login", domain.ErrGithubAuth)
	}

	return &GithubAccount{Login: ur.Login, Name: ur.Name, AvatarURL: ur.AvatarURL}, nil
}

// do sends req and decodes the JSON body into out. GitHub reports most
// failures in the body, so non-2xx statuses are decoded too.
func (g *githubClient) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: github responded %d with an unreadable body", domain.ErrUpstream, resp.StatusCode)
	}
	return nil
}
