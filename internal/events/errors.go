package events

import "errors"

var (
	// ErrBusClosed is returned by Publish and Subscribe after Close.
	ErrBusClosed = errors.New("events: bus closed")
	// ErrEmptyTopic is returned when a topic name is empty.
	ErrEmptyTopic = errors.New("events: topic name must not be empty")
	// ErrNoTopics is returned by Subscribe without any topic.
	ErrNoTopics = errors.New("events: at least one topic is required")
	// ErrTooManySubscribers is returned when a topic is at its subscriber limit.
	ErrTooManySubscribers = errors.New("events: too many subscribers")
	// ErrInvalidEvent is returned when a typed payload fails validation
	// or is published on a topic it does not belong to.
	ErrInvalidEvent = errors.New("events: invalid event")
	// ErrSubscriptionClosed signals the normal end of a subscription.
	ErrSubscriptionClosed = errors.New("events: subscription closed")
)
