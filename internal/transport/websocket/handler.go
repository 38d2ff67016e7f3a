package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/graph"
	httpTransport "github.com/kahvecikaan/photo-api/internal/transport/http"
)

const writeWait = 10 * time.Second

// Handler serves GraphQL operations, subscriptions in particular, over
// websockets.
type Handler struct {
	Upgrader    websocket.Upgrader
	Log         hclog.Logger
	exec        *graph.Executor
	users       httpTransport.UserLookup
	initTimeout time.Duration
}

func NewHandler(log hclog.Logger, exec *graph.Executor, users httpTransport.UserLookup) *Handler {
	return &Handler{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{Subprotocol},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		Log:         log,
		exec:        exec,
		users:       users,
		initTimeout: 10 * time.Second,
	}
}

// connection is the state of one websocket client.
type connection struct {
	h    *Handler
	conn *websocket.Conn
	log  hclog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu    sync.Mutex
	acked bool
	user  *domain.User
	ops   map[string]context.CancelFunc
	wg    sync.WaitGroup
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Error("Unable to upgrade to WebSocket", "error", err)
		return
	}
	defer conn.Close()

	// the request context ends with the handler, so operations hang off
	// their own context which is cancelled on disconnect
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		h:      h,
		conn:   conn,
		log:    h.Log.With("remote", r.RemoteAddr),
		ctx:    ctx,
		cancel: cancel,
		user:   domain.CurrentUser(r.Context()),
		ops:    make(map[string]context.CancelFunc),
	}
	defer c.wg.Wait()
	defer cancel()

	if conn.Subprotocol() != Subprotocol {
		c.close(closeInvalidMessage, "Subprotocol not acceptable")
		return
	}

	initTimer := time.AfterFunc(h.initTimeout, func() {
		c.mu.Lock()
		acked := c.acked
		c.mu.Unlock()
		if !acked {
			c.close(closeInitTimeout, "Connection initialisation timeout")
		}
	})
	defer initTimer.Stop()

	c.log.Info("WebSocket connection opened")
	c.readPump()
	c.log.Info("WebSocket connection closed")
}

func (c *connection) readPump() {
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Error("Error reading message", "error", err)
			}
			return
		}

		if !c.handle(msg) {
			return
		}
	}
}

// handle processes one client message and reports whether to keep reading.
func (c *connection) handle(msg Message) bool {
	switch msg.Type {
	case typeConnectionInit:
		return c.init(msg)
	case typePing:
		c.write(outgoing{Type: typePong})
	case typePong:
	case typeSubscribe:
		return c.subscribe(msg)
	case typeComplete:
		c.stop(msg.ID)
	default:
		c.close(closeInvalidMessage, fmt.Sprintf("Invalid message type %q", msg.Type))
		return false
	}
	return true
}

func (c *connection) init(msg Message) bool {
	c.mu.Lock()
	if c.acked {
		c.mu.Unlock()
		c.close(closeTooManyInits, "Too many initialisation requests")
		return false
	}
	c.mu.Unlock()

	var payload initPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.close(closeInvalidMessage, "Invalid connection_init payload")
			return false
		}
	}

	if token := httpTransport.TokenFromHeader(payload.token()); token != "" {
		user, err := c.h.users.UserByToken(c.ctx, token)
		if err != nil {
			c.log.Debug("Connection with unknown token", "error", err)
		} else {
			c.user = user
		}
	}

	c.mu.Lock()
	c.acked = true
	c.mu.Unlock()

	c.write(outgoing{Type: typeConnectionAck})
	return true
}

func (c *connection) subscribe(msg Message) bool {
	c.mu.Lock()
	acked := c.acked
	_, exists := c.ops[msg.ID]
	c.mu.Unlock()

	if !acked {
		c.close(closeUnauthorized, "Unauthorized")
		return false
	}
	if msg.ID == "" {
		c.close(closeInvalidMessage, "Subscribe message requires an id")
		return false
	}
	if exists {
		c.close(closeSubscriberExists, fmt.Sprintf("Subscriber for %s already exists", msg.ID))
		return false
	}

	var req graph.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.Query == "" {
		c.close(closeInvalidMessage, "Invalid subscribe payload")
		return false
	}

	ctx, cancel := context.WithCancel(domain.WithCurrentUser(c.ctx, c.user))
	c.mu.Lock()
	c.ops[msg.ID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx, msg.ID, req)
	return true
}

// run streams the results of one operation to the client.
func (c *connection) run(ctx context.Context, id string, req graph.Request) {
	defer c.wg.Done()
	defer c.finish(id)

	c.log.Debug("Operation started", "id", id, "operation", req.OperationName)

	first := true
	for res := range c.h.exec.Subscribe(ctx, req) {
		if first && res.Data == nil && len(res.Errors) > 0 {
			c.write(outgoing{ID: id, Type: typeError, Payload: res.Errors})
			return
		}
		first = false

		if err := c.write(outgoing{ID: id, Type: typeNext, Payload: res}); err != nil {
			return
		}
	}

	// a client complete or a disconnect needs no reply
	if ctx.Err() == nil {
		c.write(outgoing{ID: id, Type: typeComplete})
	}
}

// finish forgets operation id and releases its context.
func (c *connection) finish(id string) {
	c.mu.Lock()
	cancel, ok := c.ops[id]
	delete(c.ops, id)
	c.mu.Unlock()

	if ok {
		cancel()
	}
	c.log.Debug("Operation finished", "id", id)
}

// stop cancels operation id at the client's request.
func (c *connection) stop(id string) {
	c.mu.Lock()
	cancel, ok := c.ops[id]
	c.mu.Unlock()

	if ok {
		cancel()
	}
}

func (c *connection) write(msg outgoing) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Error("Error writing message to WebSocket", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

func (c *connection) close(code int, reason string) {
	c.log.Info("Closing WebSocket connection", "code", code, "reason", reason)

	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	c.cancel()
	c.conn.Close()
}
