package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/recipebox/apiserver/internal/services"
	"github.com/recipebox/apiserver/internal/store"
	"github.com/recipebox/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is the structured error payload. Fields carries
// per-field validation messages when present.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func userFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID < 1 {
		return types.User{}, errors.New("missing user")
	}
	return user, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// WriteError writes the structured error envelope. Exported so
// router-level handlers (404/405) produce the same body shape.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	WriteError(w, status, message)
}

// writeServiceError translates service and store errors to HTTP
// statuses: validation failures become 400 with field messages,
// missing rows (including ownership mismatches) become 404, anything
// else a generic 500.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Fields: validationErr.Fields,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// parseIDList parses a comma-separated list of integer ids from a
// query parameter. Any non-integer segment is a validation error.
func parseIDList(raw, field string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, &services.ValidationError{Fields: map[string]string{
				field: "a comma-separated list of integers is required",
			}}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseBoolParam interprets a query parameter as a boolean-from-integer:
// absent means false, any nonzero integer means true.
func parseBoolParam(raw, field string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return false, &services.ValidationError{Fields: map[string]string{
			field: "an integer is required",
		}}
	}
	return value != 0, nil
}
