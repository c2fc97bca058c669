package orderclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork is returned when the order service cannot be reached or keeps failing.
	ErrNetwork = errors.New("orderclient: order service unreachable")
	// ErrUnauthenticated is returned when no token is bound or the service rejects it.
	ErrUnauthenticated = errors.New("orderclient: unauthenticated")
	// ErrNotFound is matched by status errors carrying HTTP 404.
	ErrNotFound = errors.New("orderclient: not found")
	// ErrDecode is returned when a payload cannot be normalized.
	ErrDecode = errors.New("orderclient: unexpected payload")
)

// StatusError reports a request the order service answered but did not accept.
type StatusError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.HTTPStatus)
	}
	if e.Status != "" {
		return fmt.Sprintf("orderclient: %s (status %q, http %d)", msg, e.Status, e.HTTPStatus)
	}
	return fmt.Sprintf("orderclient: %s (http %d)", msg, e.HTTPStatus)
}

// Is lets errors.Is match ErrNotFound for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.HTTPStatus == http.StatusNotFound
}

func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
