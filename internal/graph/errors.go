package graph

import (
	"errors"

	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"github.com/kahvecikaan/photo-api/internal/events"
)

// Error codes reported in a GraphQL error's extensions.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeBadGateway      = "BAD_GATEWAY"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error is a resolver error with a machine readable code.
type Error struct {
	Code    string
	Message string
	err     error
}

var _ gqlerrors.ExtendedError = (*Error)(nil)

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

// codeFor classifies err. Unknown errors are internal.
func codeFor(err error) string {
	var verrs domain.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrGithubAuth):
		return CodeUnauthenticated
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrPhotoNotFound):
		return CodeNotFound
	case errors.As(err, &verrs), errors.Is(err, domain.ErrInvalidCount):
		return CodeBadUserInput
	case errors.Is(err, domain.ErrUpstream):
		return CodeBadGateway
	case errors.Is(err, events.ErrTooManySubscribers), errors.Is(err, events.ErrBusClosed):
		return CodeUnavailable
	}
	return CodeInternal
}

func (r *Resolver) mapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}

	code := codeFor(err)
	msg := err.Error()
	if code == CodeInternal {
		r.log.Error("Resolver failed", "error", err)
		msg = "internal server error"
	}
	return &Error{Code: code, Message: msg, err: err}
}
