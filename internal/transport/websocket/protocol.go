package websocket

import "encoding/json"

// Subprotocol is the graphql-transport-ws protocol name clients negotiate.
const Subprotocol = "graphql-transport-ws"

// message types
const (
	typeConnectionInit = "connection_init"
	typeConnectionAck  = "connection_ack"
	typePing           = "ping"
	typePong           = "pong"
	typeSubscribe      = "subscribe"
	typeNext           = "next"
	typeError          = "error"
	typeComplete       = "complete"
)

// close codes
const (
	closeInvalidMessage   = 4400
	closeUnauthorized     = 4401
	closeInitTimeout      = 4408
	closeSubscriberExists = 4409
	closeTooManyInits     = 4429
)

// Message is one protocol frame.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outgoing struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type initPayload struct {
	Authorization string `json:"Authorization"`
	AuthToken     string `json:"authToken"`
}

func (p initPayload) token() string {
	if p.Authorization != "" {
		return p.Authorization
	}
	return p.AuthToken
}
