package memory

import (
	"architect/internal/apperr"
	"architect/internal/repository/db"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	conv, err := s.CreateConversation(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, conv.Phase)
	assert.Empty(t, conv.Data.Messages)

	data := db.ConversationData{
		Messages: []db.Message{{Role: db.RoleUser, Content: "hi", Timestamp: time.Now()}},
		Answers:  map[string]any{"concept": "todo"},
	}
	phase := 2
	require.NoError(t, s.UpdateConversation(ctx, conv.ID, db.ConversationUpdate{Data: &data, Phase: &phase}))

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Phase)
	require.Len(t, got.Data.Messages, 1)
	assert.Equal(t, "todo", got.Data.Answers["concept"])

	require.NoError(t, s.DeleteConversation(ctx, conv.ID))
	_, err = s.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID), apperr.ErrNotFound)
}

func TestReadsDoNotAliasStoredState(t *testing.T) {
	ctx := context.Background()
	s := New()

	conv, err := s.CreateConversation(ctx, 1)
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	got.Data.Messages = append(got.Data.Messages, db.Message{Role: db.RoleUser, Content: "leak"})
	got.Data.Answers["k"] = "v"

	again, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Data.Messages)
	assert.Empty(t, again.Data.Answers)
}

func TestUpdateConversation_RejectsPhaseOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := New()
	conv, err := s.CreateConversation(ctx, 1)
	require.NoError(t, err)

	phase := 6
	err = s.UpdateConversation(ctx, conv.ID, db.ConversationUpdate{Phase: &phase})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestConversationsByUser_OrderedByLastUpdated(t *testing.T) {
	ctx := context.Background()
	s := New()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first, err := s.CreateConversation(ctx, 1)
	require.NoError(t, err)
	second, err := s.CreateConversation(ctx, 1)
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, 2)
	require.NoError(t, err)

	phase := 2
	require.NoError(t, s.UpdateConversation(ctx, first.ID, db.ConversationUpdate{Phase: &phase}))

	list, err := s.GetConversationsByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestSpecificationVersioning(t *testing.T) {
	ctx := context.Background()
	s := New()
	convID := int64(9)

	spec, err := s.CreateSpecification(ctx, &db.Specification{
		UserID:         1,
		ConversationID: &convID,
		AppName:        "Tasky",
		Document: db.Document{
			Overview: db.Overview{AppName: "Tasky"},
			Rest:     map[string]json.RawMessage{"features": json.RawMessage(`["a"]`)},
		},
		BuildPrompt: "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, spec.Version)

	prompt := "p2"
	updated, err := s.UpdateSpecification(ctx, spec.ID, db.SpecificationUpdate{BuildPrompt: &prompt})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "p2", updated.BuildPrompt)
	assert.Contains(t, updated.Document.Rest, "features")

	updated, err = s.UpdateSpecification(ctx, spec.ID, db.SpecificationUpdate{})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)

	_, err = s.UpdateSpecification(ctx, 999, db.SpecificationUpdate{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	user, err := s.CreateUser(ctx, "demo", "demo@example.com", "demo123")
	require.NoError(t, err)
	assert.NotEqual(t, "demo123", user.PasswordHash)

	_, err = s.CreateUser(ctx, "demo", "other@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	byName, err := s.GetUserByUsername(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = s.GetUserByID(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.CreateTemplate(ctx, "social", db.TemplateData{Name: "Community"})
	require.NoError(t, err)
	_, err = s.CreateTemplate(ctx, "ecommerce", db.TemplateData{Name: "Shop"})
	require.NoError(t, err)

	n, err := s.CountTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.GetTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ecommerce", all[0].Category)

	social, err := s.GetTemplatesByCategory(ctx, "social")
	require.NoError(t, err)
	require.Len(t, social, 1)
	assert.Equal(t, "Community", social[0].Data.Name)
}
