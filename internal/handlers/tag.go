package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/recipebox/apiserver/internal/services"
)

// TagHandler provides HTTP handlers for tags.
type TagHandler struct {
	tags *services.TagService
}

// NewTagHandler constructs a handler with the provided service.
func NewTagHandler(tags *services.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// TagRouter registers tag routes on the given router. Every route
// requires authentication.
func TagRouter(r chi.Router, tags *services.TagService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTagHandler(tags)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{tagID}", func(r chi.Router) {
		r.Patch("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

// LabelRequest is the payload for creating or renaming a tag or
// ingredient.
type LabelRequest struct {
	Name string `json:"name"`
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assignedOnly, err := parseBoolParam(r.URL.Query().Get("assigned_only"), "assigned_only")
	if err != nil {
		writeServiceError(w, err, "invalid query")
		return
	}

	tags, err := h.tags.List(r.Context(), user.ID, assignedOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req LabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	tag, err := h.tags.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		writeServiceError(w, err, "failed to create tag")
		return
	}

	writeJSON(w, http.StatusCreated, tag)
}

func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTagID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req LabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	tag, err := h.tags.Update(r.Context(), user.ID, id, req.Name)
	if err != nil {
		writeServiceError(w, err, "failed to update tag")
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTagID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.tags.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err, "failed to delete tag")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseTagID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "tagID"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid tag id")
	}
	return id, nil
}
