package domain

import "context"

// User is a photo-share account. GithubLogin is the identity key,
// GithubToken is the bearer token clients authenticate with.
type User struct {
	GithubLogin string `json:"githubLogin"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	GithubToken string `json:"-"`
}

// AuthPayload is returned by the login mutations
type AuthPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type currentUserKey struct{}

// WithCurrentUser returns a copy of ctx carrying the authenticated user.
func WithCurrentUser(ctx context.Context, u *User) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, currentUserKey{}, u)
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(ctx context.Context) *User {
	u, _ := ctx.Value(currentUserKey{}).(*User)
	return u
}
