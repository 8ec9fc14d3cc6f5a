package types

import "time"

// Tag is a label a user attaches to their recipes.
// Tags are visible and mutable only by their owning user. Duplicate
// names per user are permitted.
type Tag struct {
	// ID is the unique identifier of the tag.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the owning user.
	UserID int `json:"-" db:"user_id"`

	// Name is the free-text label.
	Name string `json:"name" db:"name"`

	// CreatedAt is the timestamp at which the tag was created.
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Ingredient is a component a user references from their recipes.
// It has the same ownership shape as Tag but is a distinct entity.
type Ingredient struct {
	// ID is the unique identifier of the ingredient.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the owning user.
	UserID int `json:"-" db:"user_id"`

	// Name is the free-text label.
	Name string `json:"name" db:"name"`

	// CreatedAt is the timestamp at which the ingredient was created.
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Recipe is the central owned entity of the system. A recipe belongs
// to exactly one user and carries unordered many-to-many associations
// with that user's tags and ingredients.
type Recipe struct {
	// ID is the unique identifier of the recipe. Identifiers are
	// monotonically assigned, so descending ID order is
	// most-recently-created first.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the owning user.
	UserID int `json:"-" db:"user_id"`

	// Title is the human-readable name of the recipe.
	Title string `json:"title" db:"title"`

	// TimeMinutes is the preparation time in whole minutes.
	TimeMinutes int `json:"time_minutes" db:"time_minutes"`

	// Price is a fixed-point decimal rendered with two fractional
	// digits, e.g. "5.00". Up to three integer digits are allowed.
	Price string `json:"price" db:"price"`

	// Link is an optional external reference for the recipe.
	Link string `json:"link" db:"link"`

	// ImageKey is the object-storage key of the recipe image, empty
	// when no image has been uploaded.
	ImageKey string `json:"image,omitempty" db:"image_key"`

	// TagIDs are the identifiers of the tags attached to the recipe.
	TagIDs []int `json:"tags" db:"-"`

	// IngredientIDs are the identifiers of the attached ingredients.
	IngredientIDs []int `json:"ingredients" db:"-"`

	// CreatedAt is the timestamp at which the recipe was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RecipeDetail is the expanded representation returned by the detail
// endpoint: associations are full objects rather than bare identifiers.
type RecipeDetail struct {
	Recipe

	// Tags are the attached tags, expanded.
	Tags []Tag `json:"tags"`

	// Ingredients are the attached ingredients, expanded.
	Ingredients []Ingredient `json:"ingredients"`
}
