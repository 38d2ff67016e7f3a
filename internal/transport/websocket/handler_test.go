package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/events"
	"github.com/kahvecikaan/photo-api/internal/graph"
	"github.com/kahvecikaan/photo-api/internal/repository"
	"github.com/kahvecikaan/photo-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server *httptest.Server
	bus    *events.EventBus
	photos service.PhotoService
	users  repository.UserRepository
}

func newFixture(t *testing.T) fixture {
	log := hclog.NewNullLogger()
	bus := events.NewEventBus(log)
	users := repository.NewMemoryUserRepository()

	photos := service.NewPhotoService(repository.NewMemoryPhotoRepository(), users,
		repository.NewMemoryTagRepository(), bus, log)
	userSvc := service.NewUserService(users, nil, nil, service.GithubApp{}, bus, log)

	exec, err := graph.NewExecutor(graph.NewResolver(photos, userSvc, bus, log), log)
	require.NoError(t, err)

	h := NewHandler(log, exec, userSvc)
	h.initTimeout = 200 * time.Millisecond
	srv := httptest.NewServer(h)

	t.Cleanup(func() {
		srv.Close()
		_ = bus.Close(context.Background())
	})
	return fixture{server: srv, bus: bus, photos: photos, users: users}
}

func (f fixture) dial(t *testing.T, protocols ...string) *websocket.Conn {
	if protocols == nil {
		protocols = []string{Subprotocol}
	}
	dialer := websocket.Dialer{Subprotocols: protocols}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(f.server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func closeCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		require.ErrorAs(t, err, &ce)
		return ce.Code
	}
}

func TestConnectionAckAndPing(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"type":"connection_init"}`)
	assert.Equal(t, "connection_ack", read(t, conn).Type)

	send(t, conn, `{"type":"ping"}`)
	assert.Equal(t, "pong", read(t, conn).Type)
}

func TestSubscribeBeforeInitIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"id":"1","type":"subscribe","payload":{"query":"subscription { newPhoto { id } }"}}`)
	assert.Equal(t, closeUnauthorized, closeCode(t, conn))
}

func TestInitTimeout(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	assert.Equal(t, closeInitTimeout, closeCode(t, conn))
}

func TestDuplicateInit(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"type":"connection_init"}`)
	read(t, conn)
	send(t, conn, `{"type":"connection_init"}`)
	assert.Equal(t, closeTooManyInits, closeCode(t, conn))
}

func TestInvalidMessage(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"type":"shout"}`)
	assert.Equal(t, closeInvalidMessage, closeCode(t, conn))
}

func TestQueryOverWebSocket(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"type":"connection_init"}`)
	read(t, conn)

	send(t, conn, `{"id":"q","type":"subscribe","payload":{"query":"{ totalPhotos }"}}`)

	next := read(t, conn)
	assert.Equal(t, "next", next.Type)
	assert.Equal(t, "q", next.ID)
	assert.JSONEq(t, `{"data":{"totalPhotos":0}}`, string(next.Payload))

	done := read(t, conn)
	assert.Equal(t, "complete", done.Type)
	assert.Equal(t, "q", done.ID)
}

func TestNewPhotoSubscription(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Upsert(context.Background(), &domain.User{GithubLogin: "moon", GithubToken: "tok"})
	require.NoError(t, err)

	conn := f.dial(t)
	send(t, conn, `{"type":"connection_init","payload":{"Authorization":"Bearer tok"}}`)
	read(t, conn)

	send(t, conn, `{"id":"s1","type":"subscribe","payload":{"query":"subscription { newPhoto { name postedBy { githubLogin } } }"}}`)
	require.Eventually(t, func() bool {
		return f.bus.SubscriberCount(events.TopicPhotoAdded) == 1
	}, time.Second, time.Millisecond)

	ctx := domain.WithCurrentUser(context.Background(), &domain.User{GithubLogin: "moon"})
	_, err = f.photos.PostPhoto(ctx, domain.PostPhotoInput{Name: "Dog"})
	require.NoError(t, err)

	next := read(t, conn)
	assert.Equal(t, "next", next.Type)
	assert.Equal(t, "s1", next.ID)
	assert.JSONEq(t, `{"data":{"newPhoto":{"name":"Dog","postedBy":{"githubLogin":"moon"}}}}`, string(next.Payload))

	// the client stops the operation, which releases the bus subscription
	send(t, conn, `{"id":"s1","type":"complete"}`)
	require.Eventually(t, func() bool {
		return f.bus.SubscriberCount(events.TopicPhotoAdded) == 0
	}, time.Second, time.Millisecond)
}

func TestDuplicateOperationID(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"type":"connection_init"}`)
	read(t, conn)

	sub := `{"id":"s1","type":"subscribe","payload":{"query":"subscription { newUser { githubLogin } }"}}`
	send(t, conn, sub)
	require.Eventually(t, func() bool {
		return f.bus.SubscriberCount(events.TopicUserAdded) == 1
	}, time.Second, time.Millisecond)

	send(t, conn, sub)
	assert.Equal(t, closeSubscriberExists, closeCode(t, conn))
}

func TestDisconnectReleasesSubscriptions(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"type":"connection_init"}`)
	read(t, conn)
	send(t, conn, `{"id":"a","type":"subscribe","payload":{"query":"subscription { newUser { githubLogin } }"}}`)
	send(t, conn, `{"id":"b","type":"subscribe","payload":{"query":"subscription { newPhoto { id } }"}}`)

	require.Eventually(t, func() bool {
		return f.bus.TopicCount() == 2
	}, time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return f.bus.TopicCount() == 0
	}, time.Second, time.Millisecond)
}

func TestValidationErrorsUseErrorMessage(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	send(t, conn, `{"type":"connection_init"}`)
	read(t, conn)
	send(t, conn, `{"id":"bad","type":"subscribe","payload":{"query":"subscription { nope }"}}`)

	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "bad", msg.ID)

	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Payload, &errs))
	assert.NotEmpty(t, errs)
}
