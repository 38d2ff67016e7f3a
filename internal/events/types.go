package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kahvecikaan/photo-api/internal/domain"
)

const (
	TopicPhotoAdded = "photo-added"
	TopicUserAdded  = "user-added"
)

// Topics lists every topic that carries a typed event.
var Topics = []string{TopicPhotoAdded, TopicUserAdded}

// Event is a payload that knows its topic and can check itself.
// Publish validates every Event before fan-out.
type Event interface {
	Topic() string
	Validate() error
}

type PhotoAdded struct {
	Photo *domain.Photo `json:"photo"`
}

func (PhotoAdded) Topic() string { return TopicPhotoAdded }

func (e PhotoAdded) Validate() error {
	if e.Photo == nil || e.Photo.ID == "" {
		return errors.New("photo-added: photo id is required")
	}
	return nil
}

type UserAdded struct {
	User *domain.User `json:"user"`
}

func (UserAdded) Topic() string { return TopicUserAdded }

func (e UserAdded) Validate() error {
	if e.User == nil || e.User.GithubLogin == "" {
		return errors.New("user-added: githubLogin is required")
	}
	return nil
}

// Decode turns a JSON document back into the event variant for topic.
func Decode(topic string, data []byte) (Event, error) {
	var e Event
	switch topic {
	case TopicPhotoAdded:
		var pa PhotoAdded
		if err := json.Unmarshal(data, &pa); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", topic, err)
		}
		e = pa
	case TopicUserAdded:
		var ua UserAdded
		if err := json.Unmarshal(data, &ua); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", topic, err)
		}
		e = ua
	default:
		return nil, fmt.Errorf("%w: unknown topic %q", ErrInvalidEvent, topic)
	}

	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return e, nil
}

func checkEvent(topic string, payload any) error {
	e, ok := payload.(Event)
	if !ok {
		return nil
	}
	if e.Topic() != topic {
		return fmt.Errorf("%w: %T belongs on %q, not %q", ErrInvalidEvent, e, e.Topic(), topic)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}
