package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/recipebox/apiserver/internal/services"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20
	formFieldImage     = "image"
)

// RecipeHandler provides HTTP handlers for recipes.
type RecipeHandler struct {
	recipes *services.RecipeService
}

// NewRecipeHandler constructs a handler with the provided service.
func NewRecipeHandler(recipes *services.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// RecipeRouter registers recipe routes on the given router. Every
// route requires authentication.
func RecipeRouter(r chi.Router, recipes *services.RecipeService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewRecipeHandler(recipes)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{recipeID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Replace)
		r.Patch("/", handler.PartialUpdate)
		r.Delete("/", handler.Delete)
		r.Post("/upload-image", handler.UploadImage)
		r.Get("/image", handler.DownloadImage)
	})
}

// RecipeRequest is the JSON payload for creating or updating a recipe.
// Pointer fields distinguish an omitted field from a zero value.
type RecipeRequest struct {
	Title       *string      `json:"title"`
	TimeMinutes *int         `json:"time_minutes"`
	Price       *json.Number `json:"price"`
	Link        *string      `json:"link"`
	Tags        *[]int       `json:"tags"`
	Ingredients *[]int       `json:"ingredients"`
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tagIDs, err := parseIDList(r.URL.Query().Get("tags"), "tags")
	if err != nil {
		writeServiceError(w, err, "invalid query")
		return
	}
	ingredientIDs, err := parseIDList(r.URL.Query().Get("ingredients"), "ingredients")
	if err != nil {
		writeServiceError(w, err, "invalid query")
		return
	}

	recipes, err := h.recipes.List(r.Context(), user.ID, tagIDs, ingredientIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list recipes")
		return
	}

	writeJSON(w, http.StatusOK, recipes)
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseRecipeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.recipes.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch recipe")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	input := services.RecipeInput{
		TimeMinutes: req.TimeMinutes,
	}
	if req.Title != nil {
		input.Title = *req.Title
	}
	if req.Price != nil {
		input.Price = req.Price.String()
	}
	if req.Link != nil {
		input.Link = *req.Link
	}
	if req.Tags != nil {
		input.TagIDs = *req.Tags
	}
	if req.Ingredients != nil {
		input.IngredientIDs = *req.Ingredients
	}

	recipe, err := h.recipes.Create(r.Context(), user.ID, input)
	if err != nil {
		writeServiceError(w, err, "failed to create recipe")
		return
	}

	writeJSON(w, http.StatusCreated, recipe)
}

// Replace handles PUT: a full replacement where omitted associations
// are detached.
func (h *RecipeHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// PartialUpdate handles PATCH: only supplied fields are touched.
func (h *RecipeHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseRecipeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	patch := services.RecipePatch{
		Title:         req.Title,
		TimeMinutes:   req.TimeMinutes,
		Link:          req.Link,
		TagIDs:        req.Tags,
		IngredientIDs: req.Ingredients,
	}
	if req.Price != nil {
		price := req.Price.String()
		patch.Price = &price
	}

	detail, err := h.recipes.Update(r.Context(), user.ID, id, patch, partial)
	if err != nil {
		writeServiceError(w, err, "failed to update recipe")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseRecipeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.recipes.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err, "failed to delete recipe")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart form with an "image" file field.
func (h *RecipeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseRecipeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.recipes.UploadImage(r.Context(), user.ID, id, data)
	if err != nil {
		writeServiceError(w, err, "failed to upload image")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// DownloadImage streams the stored recipe image back to the owner.
func (h *RecipeHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseRecipeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, contentType, err := h.recipes.DownloadImage(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch image")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func parseRecipeID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "recipeID"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid recipe id")
	}
	return id, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
