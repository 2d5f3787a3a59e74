package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidrelay/internal/delivery"
	"vidrelay/internal/media"
	"vidrelay/internal/resolve"
)

// ErrInvalidInput marks a malformed or incomplete client request.
var ErrInvalidInput = errors.New("invalid input")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status":  "error",
		"message": msg,
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var failed *resolve.AllProvidersFailedError
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, delivery.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.As(err, &failed):
		return http.StatusBadGateway
	case errors.Is(err, delivery.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)

	var nf *media.NotFoundError
	if errors.As(err, &nf) {
		writeJSON(w, status, map[string]any{
			"status":    "error",
			"message":   err.Error(),
			"available": nf.Available,
		})
		return
	}
	writeError(w, status, err.Error())
}
