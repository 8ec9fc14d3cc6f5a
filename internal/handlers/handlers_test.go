package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/recipebox/apiserver/internal/handlers"
	"github.com/recipebox/apiserver/internal/services"
	"github.com/recipebox/apiserver/internal/store/storetest"
	"github.com/recipebox/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageStorage struct {
	objects map[string][]byte
}

func newFakeImageStorage() *fakeImageStorage {
	return &fakeImageStorage{objects: map[string][]byte{}}
}

func (f *fakeImageStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeImageStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object with key %q", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeImageStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

// apiFixture wires the full route tree against in-memory repositories,
// mirroring the server's layout.
type apiFixture struct {
	router *chi.Mux
	images *fakeImageStorage
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	memory := storetest.New()
	images := newFakeImageStorage()

	userService := services.NewUserService(memory.Users())
	authService := services.NewAuthService(userService, memory.Tokens())
	tagService := services.NewTagService(memory.Tags())
	ingredientService := services.NewIngredientService(memory.Ingredients())
	recipeService := services.NewRecipeService(memory.Recipes(), memory.Tags(), memory.Ingredients(), images, nil)

	userHandler := handlers.NewUserHandler(userService, authService)

	router := chi.NewRouter()
	router.Route("/user", func(r chi.Router) {
		handlers.UserRouter(r, userService, authService)
	})
	router.Route("/recipe", func(r chi.Router) {
		r.Route("/tags", func(r chi.Router) {
			handlers.TagRouter(r, tagService, userHandler.RequireAuth)
		})
		r.Route("/ingredients", func(r chi.Router) {
			handlers.IngredientRouter(r, ingredientService, userHandler.RequireAuth)
		})
		r.Route("/recipes", func(r chi.Router) {
			handlers.RecipeRouter(r, recipeService, userHandler.RequireAuth)
		})
	})

	return &apiFixture{router: router, images: images}
}

func (fx *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its bearer token.
func (fx *apiFixture) register(t *testing.T, email string) string {
	t.Helper()

	rec := fx.do(t, http.MethodPost, "/user/create", "", map[string]any{
		"email":    email,
		"name":     "Test User",
		"password": "test_password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.do(t, http.MethodPost, "/user/token", "", map[string]any{
		"email":    email,
		"password": "test_password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func pngPayload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func TestCreateUserEndpoint(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodPost, "/user/create", "", map[string]any{
		"email":    "test@example.com",
		"name":     "Test",
		"password": "test_password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	decodeInto(t, rec, &body)
	assert.Equal(t, "test@example.com", body["email"])
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, rec.Body.String(), "test_password")
}

func TestCreateUserValidation(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodPost, "/user/create", "", map[string]any{
		"email":    "test@example.com",
		"password": "pw",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp handlers.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Contains(t, resp.Fields, "password")
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	fx := newAPIFixture(t)
	fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/user/create", "", map[string]any{
		"email":    "test@example.com",
		"password": "other_password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokenEndpointBadCredentials(t *testing.T) {
	fx := newAPIFixture(t)
	fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/user/token", "", map[string]any{
		"email":    "test@example.com",
		"password": "wrong_password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unable to authenticate")
}

func TestMeEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodGet, "/user/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeInto(t, rec, &body)
	assert.Equal(t, "test@example.com", body["email"])

	rec = fx.do(t, http.MethodPatch, "/user/me", token, map[string]any{
		"name": "Renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &body)
	assert.Equal(t, "Renamed", body["name"])
}

func TestMeRequiresAuth(t *testing.T) {
	fx := newAPIFixture(t)

	rec := fx.do(t, http.MethodGet, "/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = fx.do(t, http.MethodGet, "/user/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMePostNotAllowed(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/user/me", token, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecipeRoutesRequireAuth(t *testing.T) {
	fx := newAPIFixture(t)

	for _, path := range []string{"/recipe/recipes", "/recipe/tags", "/recipe/ingredients"} {
		rec := fx.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestTagEndpoints(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/tags", token, map[string]any{"name": "vegan"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.Tag
	decodeInto(t, rec, &created)
	assert.Equal(t, "vegan", created.Name)

	rec = fx.do(t, http.MethodPost, "/recipe/tags", token, map[string]any{"name": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodGet, "/recipe/tags", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []types.Tag
	decodeInto(t, rec, &listed)
	require.Len(t, listed, 1)

	rec = fx.do(t, http.MethodPatch, "/recipe/tags/1", token, map[string]any{"name": "vegetarian"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodDelete, "/recipe/tags/1", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTagListAssignedOnlyQuery(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/tags", token, map[string]any{"name": "dinner"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var assigned types.Tag
	decodeInto(t, rec, &assigned)

	rec = fx.do(t, http.MethodPost, "/recipe/tags", token, map[string]any{"name": "unused"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "Pancakes",
		"time_minutes": 10,
		"price":        5.00,
		"tags":         []int{assigned.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.do(t, http.MethodGet, "/recipe/tags?assigned_only=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []types.Tag
	decodeInto(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, assigned.ID, listed[0].ID)
}

func TestRecipeIsolationBetweenUsers(t *testing.T) {
	fx := newAPIFixture(t)
	alice := fx.register(t, "alice@example.com")
	bob := fx.register(t, "bob@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/recipes", alice, map[string]any{
		"title":        "Private dish",
		"time_minutes": 20,
		"price":        7.50,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.Recipe
	decodeInto(t, rec, &created)

	rec = fx.do(t, http.MethodGet, "/recipe/recipes", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []types.Recipe
	decodeInto(t, rec, &listed)
	assert.Empty(t, listed)

	// Another user's recipe is indistinguishable from a missing one.
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = fx.do(t, method, "/recipe/recipes/1", bob, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
}

func TestRecipeCreateAndDetail(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/tags", token, map[string]any{"name": "dessert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var tag types.Tag
	decodeInto(t, rec, &tag)

	rec = fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "Cheesecake",
		"time_minutes": 30,
		"price":        5.5,
		"tags":         []int{tag.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.Recipe
	decodeInto(t, rec, &created)
	assert.Equal(t, "5.50", created.Price)

	rec = fx.do(t, http.MethodGet, "/recipe/recipes/1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The detail view expands tags into objects.
	var detail struct {
		Title string      `json:"title"`
		Tags  []types.Tag `json:"tags"`
	}
	decodeInto(t, rec, &detail)
	assert.Equal(t, "Cheesecake", detail.Title)
	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "dessert", detail.Tags[0].Name)
}

func TestRecipeCreateValidation(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title": "Missing fields",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp handlers.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Contains(t, resp.Fields, "time_minutes")
	assert.Contains(t, resp.Fields, "price")
}

func TestRecipeListFilterQuery(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/tags", token, map[string]any{"name": "vegan"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var tag types.Tag
	decodeInto(t, rec, &tag)

	rec = fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "Tagged",
		"time_minutes": 10,
		"price":        5,
		"tags":         []int{tag.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "Untagged",
		"time_minutes": 10,
		"price":        5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.do(t, http.MethodGet, "/recipe/recipes?tags=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []types.Recipe
	decodeInto(t, rec, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Tagged", listed[0].Title)

	rec = fx.do(t, http.MethodGet, "/recipe/recipes?tags=not-a-number", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecipeFullAndPartialUpdate(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/tags", token, map[string]any{"name": "dessert"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var tag types.Tag
	decodeInto(t, rec, &tag)

	rec = fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "Original",
		"time_minutes": 10,
		"price":        5,
		"tags":         []int{tag.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// PATCH touches only the supplied fields.
	rec = fx.do(t, http.MethodPatch, "/recipe/recipes/1", token, map[string]any{
		"title": "Patched",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Title string      `json:"title"`
		Price string      `json:"price"`
		Tags  []types.Tag `json:"tags"`
	}
	decodeInto(t, rec, &detail)
	assert.Equal(t, "Patched", detail.Title)
	assert.Equal(t, "5.00", detail.Price)
	assert.Len(t, detail.Tags, 1)

	// PUT without tags detaches them.
	rec = fx.do(t, http.MethodPut, "/recipe/recipes/1", token, map[string]any{
		"title":        "Replaced",
		"time_minutes": 15,
		"price":        6,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &detail)
	assert.Equal(t, "Replaced", detail.Title)
	assert.Empty(t, detail.Tags)

	// PUT with a field missing is rejected.
	rec = fx.do(t, http.MethodPut, "/recipe/recipes/1", token, map[string]any{
		"title": "Incomplete",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecipeDeleteEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "Doomed",
		"time_minutes": 10,
		"price":        5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.do(t, http.MethodDelete, "/recipe/recipes/1", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(t, http.MethodGet, "/recipe/recipes/1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func (fx *apiFixture) upload(t *testing.T, path, token string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "recipe.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func TestRecipeImageUpload(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "With image",
		"time_minutes": 10,
		"price":        5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.upload(t, "/recipe/recipes/1/upload-image", token, pngPayload(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Image string `json:"image"`
	}
	decodeInto(t, rec, &detail)
	require.NotEmpty(t, detail.Image)
	assert.Contains(t, fx.images.objects, detail.Image)
}

func TestRecipeImageDownload(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "With image",
		"time_minutes": 10,
		"price":        5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// No image uploaded yet.
	rec = fx.do(t, http.MethodGet, "/recipe/recipes/1/image", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	payload := pngPayload(t)
	rec = fx.upload(t, "/recipe/recipes/1/upload-image", token, payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/recipe/recipes/1/image", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, payload, rec.Body.Bytes())

	// Another user cannot fetch the image.
	other := fx.register(t, "other@example.com")
	rec = fx.do(t, http.MethodGet, "/recipe/recipes/1/image", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.WriteError(rec, http.StatusMethodNotAllowed, "method not allowed")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp handlers.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, "method not allowed", resp.Error)
}

func TestRecipeImageUploadRejectsNonImage(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.register(t, "test@example.com")

	rec := fx.do(t, http.MethodPost, "/recipe/recipes", token, map[string]any{
		"title":        "No image",
		"time_minutes": 10,
		"price":        5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fx.upload(t, "/recipe/recipes/1/upload-image", token, []byte("not an image"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp handlers.ErrorResponse
	decodeInto(t, rec, &resp)
	assert.Contains(t, resp.Fields, "image")
	assert.Empty(t, fx.images.objects)
}
