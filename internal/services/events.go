package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/recipebox/apiserver/internal/mq"
)

// EventPublisher sends a payload to a named channel. *mq.MQ satisfies
// this interface.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Events publishes recipe domain events for downstream consumers
// (indexing, notifications). Publishing is best-effort: failures are
// logged and never fail the request.
type Events struct {
	publisher EventPublisher
	channel   string
	logger    *slog.Logger
}

// NewEvents builds an event publisher. A nil publisher disables
// publishing entirely.
func NewEvents(publisher EventPublisher, channel string, logger *slog.Logger) *Events {
	return &Events{publisher: publisher, channel: channel, logger: logger}
}

// RecipeEvent is the wire payload published for every recipe mutation.
type RecipeEvent struct {
	Type       string    `json:"type"`
	UserID     int       `json:"user_id"`
	RecipeID   int       `json:"recipe_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventRecipeCreated       = "recipe.created"
	EventRecipeUpdated       = "recipe.updated"
	EventRecipeDeleted       = "recipe.deleted"
	EventRecipeImageUploaded = "recipe.image_uploaded"
)

func (e *Events) RecipeCreated(ctx context.Context, userID, recipeID int) {
	e.publish(ctx, EventRecipeCreated, userID, recipeID)
}

func (e *Events) RecipeUpdated(ctx context.Context, userID, recipeID int) {
	e.publish(ctx, EventRecipeUpdated, userID, recipeID)
}

func (e *Events) RecipeDeleted(ctx context.Context, userID, recipeID int) {
	e.publish(ctx, EventRecipeDeleted, userID, recipeID)
}

func (e *Events) RecipeImageUploaded(ctx context.Context, userID, recipeID int) {
	e.publish(ctx, EventRecipeImageUploaded, userID, recipeID)
}

func (e *Events) publish(ctx context.Context, eventType string, userID, recipeID int) {
	if e == nil || e.publisher == nil {
		return
	}

	data, err := json.Marshal(RecipeEvent{
		Type:       eventType,
		UserID:     userID,
		RecipeID:   recipeID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	attrs := map[string]string{"type": eventType}
	if _, err := e.publisher.Publish(ctx, e.channel, data, attrs); err != nil && e.logger != nil {
		e.logger.Warn("failed to publish recipe event",
			"type", eventType,
			"recipe_id", recipeID,
			"error", err,
		)
	}
}

// NewRecipeEventLogger returns a handler that logs consumed recipe
// events. A malformed payload is an error so the broker redelivers it.
func NewRecipeEventLogger(logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var event RecipeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("decode recipe event: %w", err)
		}
		logger.Info("recipe event",
			"type", event.Type,
			"user_id", event.UserID,
			"recipe_id", event.RecipeID,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}
