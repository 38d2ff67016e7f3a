package graph

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/events"
	"github.com/kahvecikaan/photo-api/internal/service"
)

// Resolver connects the schema to the services and the event bus.
type Resolver struct {
	photos service.PhotoService
	users  service.UserService
	events events.Subscriber
	log    hclog.Logger
}

func NewResolver(
	photos service.PhotoService,
	users service.UserService,
	subscriber events.Subscriber,
	logger hclog.Logger) *Resolver {
	return &Resolver{
		photos: photos,
		users:  users,
		events: subscriber,
		log:    logger,
	}
}

// Query

func (r *Resolver) me(p graphql.ResolveParams) (interface{}, error) {
	if u := domain.CurrentUser(p.Context); u != nil {
		return u, nil
	}
	return nil, nil
}

func (r *Resolver) totalPhotos(p graphql.ResolveParams) (interface{}, error) {
	n, err := r.photos.TotalPhotos(p.Context)
	return n, r.mapError(err)
}

func (r *Resolver) allPhotos(p graphql.ResolveParams) (interface{}, error) {
	photos, err := r.photos.AllPhotos(p.Context)
	return photos, r.mapError(err)
}

func (r *Resolver) photo(p graphql.ResolveParams) (interface{}, error) {
	photo, err := r.photos.Photo(p.Context, stringArg(p, "id"))
	if errors.Is(err, domain.ErrPhotoNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.mapError(err)
	}
	return photo, nil
}

func (r *Resolver) totalUsers(p graphql.ResolveParams) (interface{}, error) {
	n, err := r.users.TotalUsers(p.Context)
	return n, r.mapError(err)
}

func (r *Resolver) allUsers(p graphql.ResolveParams) (interface{}, error) {
	users, err := r.users.AllUsers(p.Context)
	return users, r.mapError(err)
}

func (r *Resolver) user(p graphql.ResolveParams) (interface{}, error) {
	u, err := r.users.User(p.Context, stringArg(p, "login"))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.mapError(err)
	}
	return u, nil
}

// Mutation

func (r *Resolver) postPhoto(p graphql.ResolveParams) (interface{}, error) {
	raw, _ := p.Args["input"].(map[string]interface{})

	input := domain.PostPhotoInput{}
	input.Name, _ = raw["name"].(string)
	input.Description, _ = raw["description"].(string)
	switch c := raw["category"].(type) {
	case domain.PhotoCategory:
		input.Category = c
	case string:
		input.Category = domain.PhotoCategory(c)
	}

	photo, err := r.photos.PostPhoto(p.Context, input)
	if err != nil {
		return nil, r.mapError(err)
	}
	return photo, nil
}

func (r *Resolver) tagPhoto(p graphql.ResolveParams) (interface{}, error) {
	photo, err := r.photos.TagPhoto(p.Context, stringArg(p, "githubLogin"), stringArg(p, "photoID"))
	if err != nil {
		return nil, r.mapError(err)
	}
	return photo, nil
}

func (r *Resolver) githubAuth(p graphql.ResolveParams) (interface{}, error) {
	payload, err := r.users.GithubAuth(p.Context,
		stringArg(p, "code"),
		stringArg(p, "clientID"),
		stringArg(p, "clientSecret"))
	if err != nil {
		return nil, r.mapError(err)
	}
	return payload, nil
}

func (r *Resolver) addFakeUsers(p graphql.ResolveParams) (interface{}, error) {
	count, ok := p.Args["count"].(int)
	if !ok {
		count = 1
	}
	users, err := r.users.AddFakeUsers(p.Context, count)
	if err != nil {
		return nil, r.mapError(err)
	}
	return users, nil
}

func (r *Resolver) fakeUserAuth(p graphql.ResolveParams) (interface{}, error) {
	payload, err := r.users.FakeUserAuth(p.Context, stringArg(p, "githubLogin"))
	if err != nil {
		return nil, r.mapError(err)
	}
	return payload, nil
}

// Type fields

func (r *Resolver) postedPhotos(p graphql.ResolveParams) (interface{}, error) {
	u, err := source[*domain.User](p)
	if err != nil {
		return nil, err
	}
	photos, err := r.photos.PostedBy(p.Context, u.GithubLogin)
	return photos, r.mapError(err)
}

func (r *Resolver) inPhotos(p graphql.ResolveParams) (interface{}, error) {
	u, err := source[*domain.User](p)
	if err != nil {
		return nil, err
	}
	photos, err := r.photos.InPhotos(p.Context, u.GithubLogin)
	return photos, r.mapError(err)
}

func (r *Resolver) postedBy(p graphql.ResolveParams) (interface{}, error) {
	photo, err := source[*domain.Photo](p)
	if err != nil {
		return nil, err
	}
	u, err := r.users.User(p.Context, photo.UserID)
	if err != nil {
		return nil, r.mapError(err)
	}
	return u, nil
}

func (r *Resolver) taggedUsers(p graphql.ResolveParams) (interface{}, error) {
	photo, err := source[*domain.Photo](p)
	if err != nil {
		return nil, err
	}
	users, err := r.photos.TaggedUsers(p.Context, photo.ID)
	return users, r.mapError(err)
}

func stringArg(p graphql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

func source[T any](p graphql.ResolveParams) (T, error) {
	v, ok := p.Source.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected source %T for field %s", p.Source, p.Info.FieldName)
	}
	return v, nil
}
