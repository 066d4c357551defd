package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/sharetube/watchroom/internal/service/room"
	"github.com/sharetube/watchroom/pkg/rest"
	"github.com/sharetube/watchroom/pkg/validator"
	"github.com/sharetube/watchroom/pkg/wsrouter"
)

var errRateLimited = errors.New("too many commands")

func errorStatus(err error) int {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, room.ErrNotMember), errors.Is(err, room.ErrNotAuthorized), errors.Is(err, errNotJoined):
		return http.StatusForbidden
	case errors.Is(err, room.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrAlreadyQueued):
		return http.StatusConflict
	case errors.Is(err, room.ErrInvalidPosition),
		errors.Is(err, room.ErrInvalidMessage),
		errors.Is(err, room.ErrInvalidReaction),
		errors.Is(err, wsrouter.ErrMalformedDestination),
		errors.Is(err, wsrouter.ErrUnknownDestination),
		errors.Is(err, wsrouter.ErrMalformedPayload),
		errors.As(err, &validationErrors):
		return http.StatusBadRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internal failures from clients.
func errorMessage(err error) string {
	if errorStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}

	return err.Error()
}

func (c controller) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, "request failed", "error", err)
	} else {
		c.logger.DebugContext(ctx, "request rejected", "error", err)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		rest.WriteJSON(w, status, rest.Envelope{"errors": validationErrors})
		return
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": errorMessage(err)})
}
