package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/events"
	"github.com/kahvecikaan/photo-api/internal/files"
	"github.com/kahvecikaan/photo-api/internal/graph"
	"github.com/kahvecikaan/photo-api/internal/repository"
	"github.com/kahvecikaan/photo-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router http.Handler
	photos service.PhotoService
	users  repository.UserRepository
}

func newFixture(t *testing.T) fixture {
	log := hclog.NewNullLogger()
	bus := events.NewEventBus(log)
	t.Cleanup(func() { _ = bus.Close(context.Background()) })

	users := repository.NewMemoryUserRepository()
	photos := service.NewPhotoService(repository.NewMemoryPhotoRepository(), users,
		repository.NewMemoryTagRepository(), bus, log)
	userSvc := service.NewUserService(users, nil, nil, service.GithubApp{}, bus, log)

	exec, err := graph.NewExecutor(graph.NewResolver(photos, userSvc, bus, log), log)
	require.NoError(t, err)

	store, err := files.NewLocal(t.TempDir(), 16)
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		GraphQL:   NewGraphQLHandler(exec, log),
		Images:    NewImageHandler(photos, store, log),
		WebSocket: http.NotFoundHandler(),
		Users:     userSvc,
		CORS:      &CORSConfig{AllowedOrigins: []string{"http://app.test"}, AllowedMethods: []string{"GET", "POST"}},
		ClientID:  "client-1",
		Logger:    log,
	})

	_, err = users.Upsert(context.Background(), &domain.User{GithubLogin: "moon", Name: "Moon", GithubToken: "tok-moon"})
	require.NoError(t, err)
	_, err = users.Upsert(context.Background(), &domain.User{GithubLogin: "sun", Name: "Sun", GithubToken: "tok-sun"})
	require.NoError(t, err)

	return fixture{router: router, photos: photos, users: users}
}

func (f fixture) serve(r *http.Request) *httptest.ResponseRecorder {
	rw := httptest.NewRecorder()
	f.router.ServeHTTP(rw, r)
	return rw
}

func (f fixture) graphql(t *testing.T, token, query string) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(graph.Request{Query: query})
	r := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", token)
	}

	rw := f.serve(r)
	require.Equal(t, http.StatusOK, rw.Code)

	var res map[string]interface{}
	require.NoError(t, json.NewDecoder(rw.Body).Decode(&res))
	return res
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"abc", "abc"},
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Bearer", "Bearer"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TokenFromHeader(tt.header), tt.header)
	}
}

func TestGraphQLPostAuthenticatesUser(t *testing.T) {
	f := newFixture(t)

	res := f.graphql(t, "", `{ me { githubLogin } }`)
	assert.Equal(t, map[string]interface{}{"me": nil}, res["data"])

	res = f.graphql(t, "Bearer tok-moon", `{ me { githubLogin } }`)
	assert.Equal(t, map[string]interface{}{"me": map[string]interface{}{"githubLogin": "moon"}}, res["data"])

	// the original raw token form keeps working
	res = f.graphql(t, "tok-sun", `{ me { githubLogin } }`)
	assert.Equal(t, map[string]interface{}{"me": map[string]interface{}{"githubLogin": "sun"}}, res["data"])

	res = f.graphql(t, "Bearer unknown", `{ me { githubLogin } }`)
	assert.Equal(t, map[string]interface{}{"me": nil}, res["data"])
}

func TestGraphQLGet(t *testing.T) {
	f := newFixture(t)

	q := url.Values{"query": {`query users($l: ID!) { User(login: $l) { name } }`}, "variables": {`{"l":"sun"}`}}
	rw := f.serve(httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rw.Code)
	assert.JSONEq(t, `{"data":{"User":{"name":"Sun"}}}`, rw.Body.String())
}

func TestGraphQLGetRejectsMutations(t *testing.T) {
	f := newFixture(t)

	q := url.Values{"query": {`mutation { addFakeUsers(count: 1) { githubLogin } }`}}
	rw := f.serve(httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
	require.Equal(t, http.StatusMethodNotAllowed, rw.Code)
	assert.Equal(t, http.MethodPost, rw.Header().Get("Allow"))

	var er ErrorResponse
	require.NoError(t, json.NewDecoder(rw.Body).Decode(&er))
	assert.Contains(t, er.Message, "POST")
}

func TestGraphQLBadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing query", httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`))},
		{"broken json", httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{`))},
		{"bad variables", httptest.NewRequest(http.MethodGet, "/graphql?query=%7BtotalUsers%7D&variables=nope", nil)},
		{"subscription", httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"subscription { newUser { name } }"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := f.serve(tt.req)
			assert.Equal(t, http.StatusBadRequest, rw.Code)

			var er ErrorResponse
			require.NoError(t, json.NewDecoder(rw.Body).Decode(&er))
			assert.NotEmpty(t, er.Message)
		})
	}
}

func TestGraphQLRawBody(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{ totalUsers }`))
	r.Header.Set("Content-Type", "application/graphql")
	rw := f.serve(r)
	assert.JSONEq(t, `{"data":{"totalUsers":2}}`, rw.Body.String())
}

func TestImageUploadAndServe(t *testing.T) {
	f := newFixture(t)
	moon := domain.WithCurrentUser(context.Background(), &domain.User{GithubLogin: "moon"})
	photo, err := f.photos.PostPhoto(moon, domain.PostPhotoInput{Name: "Dog"})
	require.NoError(t, err)

	upload := func(token, id, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/photos/"+id+"/image", strings.NewReader(body))
		if token != "" {
			r.Header.Set("Authorization", token)
		}
		return f.serve(r)
	}

	assert.Equal(t, http.StatusUnauthorized, upload("", photo.ID, "img").Code)
	assert.Equal(t, http.StatusForbidden, upload("tok-sun", photo.ID, "img").Code)
	assert.Equal(t, http.StatusNotFound, upload("tok-moon", "404", "img").Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload("tok-moon", photo.ID, strings.Repeat("x", 17)).Code)

	rw := upload("tok-moon", photo.ID, "GIF89a tiny")
	require.Equal(t, http.StatusCreated, rw.Code)
	assert.JSONEq(t, `{"url":"`+photo.URL()+`"}`, rw.Body.String())

	rw = f.serve(httptest.NewRequest(http.MethodGet, photo.URL(), nil))
	require.Equal(t, http.StatusOK, rw.Code)
	body, _ := io.ReadAll(rw.Body)
	assert.Equal(t, "GIF89a tiny", string(body))

	rw = f.serve(httptest.NewRequest(http.MethodGet, "/img/photos/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t)

	rw := f.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.NotEmpty(t, rw.Header().Get("X-Request-ID"))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-ID", "abc-123")
	rw = f.serve(r)
	assert.Equal(t, "abc-123", rw.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	r := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	r.Header.Set("Origin", "http://app.test")
	rw := f.serve(r)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "http://app.test", rw.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://evil.test")
	rw = f.serve(r)
	assert.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticRoutes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		path     string
		contains string
	}{
		{"/swagger.yaml", "Photo Share API"},
		{"/docs", "redoc"},
		{"/playground", "GraphQLPlayground"},
		{"/auth/github", "client_id=client-1"},
		{"/metrics", "photo_api_event_subscriptions"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rw := f.serve(httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rw.Code)
			assert.Contains(t, rw.Body.String(), tt.contains)
		})
	}
}

type noUsers struct{}

func (noUsers) UserByToken(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func TestRecoversFromPanics(t *testing.T) {
	router := NewRouter(RouterConfig{
		GraphQL:   nil,
		Images:    &ImageHandler{},
		WebSocket: http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		Users:     noUsers{},
		Logger:    hclog.NewNullLogger(),
	})

	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/graphql/ws", nil))
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
}
