package api

import (
	"chat-room/errors"
	stdErrors "errors"
	"log/slog"
	"net/http"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{errors.ErrInvalidInput, http.StatusUnprocessableEntity, "INVALID_INPUT", "Invalid input"},
	{errors.ErrUnknownSender, http.StatusUnprocessableEntity, "UNKNOWN_USER", "User is not a participant"},
	{errors.ErrParticipantExists, http.StatusConflict, "CONFLICT", "Participant already exists"},
	{errors.ErrParticipantNotFound, http.StatusNotFound, "PARTICIPANT_NOT_FOUND", "Participant not found"},
	{errors.ErrMessageNotFound, http.StatusNotFound, "MESSAGE_NOT_FOUND", "Message not found"},
	{errors.ErrNotMessageOwner, http.StatusUnauthorized, "UNAUTHORIZED", "Only the sender can change a message"},
}

// writeServiceError maps sentinel errors to their status, anything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	for _, m := range errorMappings {
		if stdErrors.Is(err, m.target) {
			message := m.message
			if m.target == errors.ErrInvalidInput {
				message = err.Error()
			}
			writeError(w, m.status, m.code, message)
			return
		}
	}
	log.Error("Request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
		"error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
}
