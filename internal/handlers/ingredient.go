package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/recipebox/apiserver/internal/services"
)

// IngredientHandler provides HTTP handlers for ingredients.
type IngredientHandler struct {
	ingredients *services.IngredientService
}

// NewIngredientHandler constructs a handler with the provided service.
func NewIngredientHandler(ingredients *services.IngredientService) *IngredientHandler {
	return &IngredientHandler{ingredients: ingredients}
}

// IngredientRouter registers ingredient routes on the given router.
// Every route requires authentication.
func IngredientRouter(r chi.Router, ingredients *services.IngredientService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewIngredientHandler(ingredients)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{ingredientID}", func(r chi.Router) {
		r.Patch("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
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

	ingredients, err := h.ingredients.List(r.Context(), user.ID, assignedOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ingredients")
		return
	}

	writeJSON(w, http.StatusOK, ingredients)
}

func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	ingredient, err := h.ingredients.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		writeServiceError(w, err, "failed to create ingredient")
		return
	}

	writeJSON(w, http.StatusCreated, ingredient)
}

func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIngredientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req LabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	ingredient, err := h.ingredients.Update(r.Context(), user.ID, id, req.Name)
	if err != nil {
		writeServiceError(w, err, "failed to update ingredient")
		return
	}

	writeJSON(w, http.StatusOK, ingredient)
}

func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIngredientID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ingredients.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err, "failed to delete ingredient")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseIngredientID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "ingredientID"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid ingredient id")
	}
	return id, nil
}
