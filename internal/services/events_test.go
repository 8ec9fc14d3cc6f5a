package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/recipebox/apiserver/internal/mq"
	"github.com/recipebox/apiserver/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher records every published message.
type fakePublisher struct {
	channel string
	data    []byte
	attrs   map[string]string
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.channel = channel
	f.data = data
	f.attrs = attrs
	return "message-id", nil
}

func TestEventsPublish(t *testing.T) {
	publisher := &fakePublisher{}
	events := services.NewEvents(publisher, "recipe.events", slog.Default())

	events.RecipeCreated(context.Background(), 7, 42)

	assert.Equal(t, "recipe.events", publisher.channel)
	assert.Equal(t, map[string]string{"type": services.EventRecipeCreated}, publisher.attrs)

	var event services.RecipeEvent
	require.NoError(t, json.Unmarshal(publisher.data, &event))
	assert.Equal(t, services.EventRecipeCreated, event.Type)
	assert.Equal(t, 7, event.UserID)
	assert.Equal(t, 42, event.RecipeID)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestEventsNilPublisherIsSilent(t *testing.T) {
	events := services.NewEvents(nil, "recipe.events", slog.Default())

	// Must not panic with publishing disabled.
	events.RecipeCreated(context.Background(), 1, 1)
	events.RecipeDeleted(context.Background(), 1, 1)
}

func TestRecipeEventLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	handler := services.NewRecipeEventLogger(log)

	data, err := json.Marshal(services.RecipeEvent{
		Type:       services.EventRecipeUpdated,
		UserID:     7,
		RecipeID:   42,
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	err = handler(context.Background(), mq.Message{ID: "message-id", Data: data})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), services.EventRecipeUpdated)
	assert.Contains(t, buf.String(), "recipe_id=42")
}

func TestRecipeEventLoggerRejectsMalformedPayload(t *testing.T) {
	handler := services.NewRecipeEventLogger(slog.Default())

	err := handler(context.Background(), mq.Message{Data: []byte("not json")})
	assert.Error(t, err)
}
