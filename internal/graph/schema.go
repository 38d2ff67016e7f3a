package graph

import (
	"github.com/graphql-go/graphql"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/events"
)

// NewSchema builds the photo-share schema around r.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	categoryValues := graphql.EnumValueConfigMap{}
	for _, c := range domain.PhotoCategories {
		categoryValues[string(c)] = &graphql.EnumValueConfig{Value: c}
	}
	categoryEnum := graphql.NewEnum(graphql.EnumConfig{
		Name:   "PhotoCategory",
		Values: categoryValues,
	})

	var userType, photoType *graphql.Object

	userType = graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"githubLogin": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.ID),
					Resolve: userField(func(u *domain.User) interface{} { return u.GithubLogin }),
				},
				"name": &graphql.Field{
					Type:    graphql.String,
					Resolve: userField(func(u *domain.User) interface{} { return u.Name }),
				},
				"avatar": &graphql.Field{
					Type:    graphql.String,
					Resolve: userField(func(u *domain.User) interface{} { return u.Avatar }),
				},
				"postedPhotos": &graphql.Field{
					Type:    nonNullList(photoType),
					Resolve: r.postedPhotos,
				},
				"inPhotos": &graphql.Field{
					Type:    nonNullList(photoType),
					Resolve: r.inPhotos,
				},
			}
		}),
	})

	photoType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Photo",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.ID),
					Resolve: photoField(func(p *domain.Photo) interface{} { return p.ID }),
				},
				"url": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.String),
					Resolve: photoField(func(p *domain.Photo) interface{} { return p.URL() }),
				},
				"name": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.String),
					Resolve: photoField(func(p *domain.Photo) interface{} { return p.Name }),
				},
				"description": &graphql.Field{
					Type:    graphql.String,
					Resolve: photoField(func(p *domain.Photo) interface{} { return p.Description }),
				},
				"category": &graphql.Field{
					Type:    graphql.NewNonNull(categoryEnum),
					Resolve: photoField(func(p *domain.Photo) interface{} { return p.Category }),
				},
				"postedBy": &graphql.Field{
					Type:    graphql.NewNonNull(userType),
					Resolve: r.postedBy,
				},
				"taggedUsers": &graphql.Field{
					Type:    nonNullList(userType),
					Resolve: r.taggedUsers,
				},
				"created": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.DateTime),
					Resolve: photoField(func(p *domain.Photo) interface{} { return p.Created }),
				},
			}
		}),
	})

	authPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a, err := source[*domain.AuthPayload](p)
					if err != nil {
						return nil, err
					}
					return a.Token, nil
				},
			},
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a, err := source[*domain.AuthPayload](p)
					if err != nil {
						return nil, err
					}
					return a.User, nil
				},
			},
		},
	})

	postPhotoInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PostPhotoInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name": &graphql.InputObjectFieldConfig{
				Type: graphql.NewNonNull(graphql.String),
			},
			"category": &graphql.InputObjectFieldConfig{
				Type:        categoryEnum,
				Description: "Defaults to PORTRAIT.",
			},
			"description": &graphql.InputObjectFieldConfig{
				Type: graphql.String,
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.me,
			},
			"totalPhotos": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: r.totalPhotos,
			},
			"allPhotos": &graphql.Field{
				Type:    nonNullList(photoType),
				Resolve: r.allPhotos,
			},
			"Photo": &graphql.Field{
				Type: photoType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.photo,
			},
			"totalUsers": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: r.totalUsers,
			},
			"allUsers": &graphql.Field{
				Type:    nonNullList(userType),
				Resolve: r.allUsers,
			},
			"User": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"login": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.user,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"postPhoto": &graphql.Field{
				Type: graphql.NewNonNull(photoType),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(postPhotoInput)},
				},
				Resolve: r.postPhoto,
			},
			"tagPhoto": &graphql.Field{
				Type: graphql.NewNonNull(photoType),
				Args: graphql.FieldConfigArgument{
					"githubLogin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"photoID":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.tagPhoto,
			},
			"githubAuth": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"code":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"clientID":     &graphql.ArgumentConfig{Type: graphql.String},
					"clientSecret": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.githubAuth,
			},
			"addFakeUsers": &graphql.Field{
				Type: nonNullList(userType),
				Args: graphql.FieldConfigArgument{
					"count": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				},
				Resolve: r.addFakeUsers,
			},
			"fakeUserAuth": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"githubLogin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.fakeUserAuth,
			},
		},
	})

	subscription := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"newPhoto": &graphql.Field{
				Type:      graphql.NewNonNull(photoType),
				Subscribe: r.subscribe(events.TopicPhotoAdded),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					e, err := source[events.PhotoAdded](p)
					if err != nil {
						return nil, err
					}
					return e.Photo, nil
				},
			},
			"newUser": &graphql.Field{
				Type:      graphql.NewNonNull(userType),
				Subscribe: r.subscribe(events.TopicUserAdded),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					e, err := source[events.UserAdded](p)
					if err != nil {
						return nil, err
					}
					return e.User, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:        query,
		Mutation:     mutation,
		Subscription: subscription,
	})
}

func nonNullList(t graphql.Type) *graphql.NonNull {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t)))
}

func userField(get func(*domain.User) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		u, err := source[*domain.User](p)
		if err != nil {
			return nil, err
		}
		return get(u), nil
	}
}

func photoField(get func(*domain.Photo) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		photo, err := source[*domain.Photo](p)
		if err != nil {
			return nil, err
		}
		return get(photo), nil
	}
}
