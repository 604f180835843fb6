package specification

import (
	"architect/internal/apperr"
	"architect/internal/config"
	"architect/internal/lock"
	"architect/internal/repository/db"
	"architect/internal/service/conversation"
	"architect/internal/service/llm"
	"architect/internal/testutil"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

type fixture struct {
	db            *testutil.MockDatabase
	generator     *testutil.MockGenerator
	conversations *conversation.ConversationService
	specs         *SpecificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:        testutil.NewMockDatabase(),
		generator: &testutil.MockGenerator{},
	}
	f.generator.GenerateFunc = func(_ context.Context, req llm.GenerationRequest) (string, error) {
		if req.Schema != nil {
			return validReply, nil
		}
		return "Tell me more.", nil
	}
	f.conversations = conversation.NewConversationService(f.db, f.generator, lock.NewLocal(time.Second), config.DefaultInterviewPrompt)
	f.specs = NewSpecificationService(f.db, f.generator, config.DefaultSynthesisPrompt)
	return f
}

func (f *fixture) conversationWithTurns(t *testing.T, owner int64, turns ...string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := f.conversations.Create(ctx, owner)
	require.NoError(t, err)
	for _, turn := range turns {
		_, err := f.conversations.AppendAndRespond(ctx, id, owner, turn)
		require.NoError(t, err)
	}
	return id
}

func (f *fixture) specCount(t *testing.T, owner int64) int {
	t.Helper()
	specs, err := f.specs.List(context.Background(), owner)
	require.NoError(t, err)
	return len(specs)
}

func TestTodoAppScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	convID := f.conversationWithTurns(t, alice, "I want a todo app")
	conv, err := f.conversations.Get(ctx, convID, alice)
	require.NoError(t, err)
	assert.Len(t, conv.Transcript, 2)

	_, err = f.conversations.AppendAndRespond(ctx, convID, alice, "it needs due dates")
	require.NoError(t, err)
	conv, err = f.conversations.Get(ctx, convID, alice)
	require.NoError(t, err)
	assert.Len(t, conv.Transcript, 4)

	result, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Output.AppName)
	assert.NotEmpty(t, result.Output.Document.Overview.Tagline)
	assert.NotEmpty(t, result.Output.BuildPrompt)

	stored, err := f.specs.Get(ctx, result.Specification.ID, alice)
	require.NoError(t, err)
	require.NotNil(t, stored.ConversationID)
	assert.Equal(t, convID, *stored.ConversationID)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, "Tasky", stored.AppName)
}

func TestSynthesize_RequestCarriesTranscriptAndSchema(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app", "it needs due dates")

	_, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)

	req := f.generator.LastRequest()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, config.DefaultSynthesisPrompt, req.Messages[0].Content)
	assert.Equal(t, llm.RoleUser, req.Messages[1].Role)

	var transcript []db.Message
	require.NoError(t, json.Unmarshal([]byte(req.Messages[1].Content), &transcript))
	require.Len(t, transcript, 4)
	assert.Equal(t, "it needs due dates", transcript[2].Content)

	require.NotNil(t, req.Schema)
	assert.Equal(t, SchemaName, req.Schema.Name)
	assert.True(t, req.Schema.Strict)
	schema, err := OutputSchema()
	require.NoError(t, err)
	assert.JSONEq(t, string(schema), string(req.Schema.Schema))
}

func TestSynthesize_TwiceCreatesTwoRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app")

	first, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)
	second, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)

	assert.NotEqual(t, first.Specification.ID, second.Specification.ID)
	assert.Equal(t, 1, first.Specification.Version)
	assert.Equal(t, 1, second.Specification.Version)
	assert.Equal(t, 2, f.specCount(t, alice))
}

func TestSynthesize_FailuresCreateNoRow(t *testing.T) {
	tests := []struct {
		name    string
		reply   func(context.Context, llm.GenerationRequest) (string, error)
		wantErr error
	}{
		{
			name:    "generation failed",
			reply:   func(context.Context, llm.GenerationRequest) (string, error) { return "", apperr.ErrGenerationFailed },
			wantErr: apperr.ErrGenerationFailed,
		},
		{
			name:    "untyped provider error",
			reply:   func(context.Context, llm.GenerationRequest) (string, error) { return "", fmt.Errorf("connection reset") },
			wantErr: apperr.ErrGenerationFailed,
		},
		{
			name:    "not json",
			reply:   func(context.Context, llm.GenerationRequest) (string, error) { return "Sure! Your app is called Tasky.", nil },
			wantErr: apperr.ErrInvalidGenerationOutput,
		},
		{
			name: "missing tagline",
			reply: func(context.Context, llm.GenerationRequest) (string, error) {
				return `{"appName":"A","document":{"overview":{"appName":"A","targetUser":"u","coreValue":"v"}},"buildPrompt":"p"}`, nil
			},
			wantErr: apperr.ErrInvalidGenerationOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			convID := f.conversationWithTurns(t, alice, "I want a todo app")

			f.generator.GenerateFunc = tt.reply
			_, err := f.specs.Synthesize(ctx, convID, alice)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, f.specCount(t, alice))
		})
	}
}

func TestSynthesize_ForeignConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app")
	calls := len(f.generator.Requests())

	_, err := f.specs.Synthesize(ctx, convID, bob)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Len(t, f.generator.Requests(), calls)

	_, err = f.specs.Synthesize(ctx, 999, alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdate_IncrementsVersionByOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app")
	result, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)
	id := result.Specification.ID

	prompt := "edited prompt"
	doc := db.Document{
		Overview: db.Overview{AppName: "Tasky", Tagline: "Done is better", TargetUser: "students", CoreValue: "focus"},
		Rest:     map[string]json.RawMessage{"notes": json.RawMessage(`"free-form"`)},
	}

	patches := []Patch{
		{BuildPrompt: &prompt},
		{Document: &doc},
		{},
		{Document: &doc, BuildPrompt: &prompt},
	}
	for i, patch := range patches {
		spec, err := f.specs.Update(ctx, id, alice, patch)
		require.NoError(t, err)
		assert.Equal(t, i+2, spec.Version)
	}

	spec, err := f.specs.Get(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, "edited prompt", spec.BuildPrompt)
	assert.Equal(t, "Done is better", spec.Document.Overview.Tagline)
	assert.Contains(t, spec.Document.Rest, "notes")
	assert.Equal(t, "Tasky", spec.AppName)
}

func TestCrossOwnerSpecificationAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app")
	result, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)
	id := result.Specification.ID

	_, err = f.specs.Get(ctx, id, bob)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	prompt := "hijacked"
	_, err = f.specs.Update(ctx, id, bob, Patch{BuildPrompt: &prompt})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.specs.Export(ctx, id, bob)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	spec, err := f.specs.Get(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.Version)

	bobs, err := f.specs.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobs)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app")
	result, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)

	export, err := f.specs.Export(ctx, result.Specification.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "tasky-spec.md", export.Filename)
	assert.True(t, strings.HasPrefix(export.Content, "# Tasky - spec\n\n# Tasky"))
	assert.True(t, strings.HasSuffix(export.Content, "\n"))
}

func TestSpecificationSurvivesConversationDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app")
	result, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)

	require.NoError(t, f.conversations.Delete(ctx, convID, alice))

	_, err = f.conversations.Get(ctx, convID, alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	spec, err := f.specs.Get(ctx, result.Specification.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, convID, *spec.ConversationID)
}

func TestList_StorageUnavailableDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	f.db.GetSpecificationsByUserFunc = func(context.Context, int64) ([]db.Specification, error) {
		return nil, fmt.Errorf("query: %w", apperr.ErrStorageUnavailable)
	}

	specs, err := f.specs.List(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestSynthesize_StoresWhenCallerCancelsDuringGeneration(t *testing.T) {
	f := newFixture(t)
	convID := f.conversationWithTurns(t, alice, "I want a todo app")

	f.db.CreateSpecificationFunc = func(ctx context.Context, spec *db.Specification) (*db.Specification, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return f.db.Fallback.CreateSpecification(ctx, spec)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.generator.GenerateFunc = func(context.Context, llm.GenerationRequest) (string, error) {
		cancel()
		return validReply, nil
	}

	result, err := f.specs.Synthesize(ctx, convID, alice)
	require.NoError(t, err)
	assert.Equal(t, "Tasky", result.Specification.AppName)
	assert.Equal(t, 1, f.specCount(t, alice))
}
