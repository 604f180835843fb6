package conversation

import (
	"architect/internal/apperr"
	"architect/internal/lock"
	"architect/internal/repository/db"
	"architect/internal/service/llm"
	"architect/internal/testutil"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

func newTestService(database db.Database, generator llm.Generator) *ConversationService {
	return NewConversationService(database, generator, lock.NewLocal(time.Second), "You are an app design expert.")
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(testutil.NewMockDatabase(), testutil.NewStaticGenerator("hi"))

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	conv, err := svc.Get(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, PhaseConcept, conv.Phase)
	assert.Empty(t, conv.Transcript)
	assert.NotNil(t, conv.Answers)
	assert.Empty(t, conv.Answers)
	assert.Equal(t, alice, conv.OwnerID)
}

func TestAppendAndRespond_GrowsTranscriptInOrder(t *testing.T) {
	ctx := context.Background()
	gen := &testutil.MockGenerator{}
	gen.GenerateFunc = func(_ context.Context, req llm.GenerationRequest) (string, error) {
		return "reply to " + req.Messages[len(req.Messages)-1].Content, nil
	}
	svc := newTestService(testutil.NewMockDatabase(), gen)

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	const n = 4
	for i := 0; i < n; i++ {
		reply, err := svc.AppendAndRespond(ctx, id, alice, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("reply to message %d", i), reply)
	}

	conv, err := svc.Get(ctx, id, alice)
	require.NoError(t, err)
	require.Len(t, conv.Transcript, 2*n)
	for i := 0; i < n; i++ {
		user, assistant := conv.Transcript[2*i], conv.Transcript[2*i+1]
		assert.Equal(t, db.RoleUser, user.Role)
		assert.Equal(t, fmt.Sprintf("message %d", i), user.Content)
		assert.Equal(t, db.RoleAssistant, assistant.Role)
		assert.Equal(t, fmt.Sprintf("reply to message %d", i), assistant.Content)
		assert.False(t, user.Timestamp.IsZero())
		assert.False(t, assistant.Timestamp.Before(user.Timestamp))
	}
}

func TestAppendAndRespond_RequestLayout(t *testing.T) {
	ctx := context.Background()
	gen := testutil.NewStaticGenerator("ok")
	svc := newTestService(testutil.NewMockDatabase(), gen)

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)
	_, err = svc.AppendAndRespond(ctx, id, alice, "first")
	require.NoError(t, err)
	_, err = svc.AdvancePhase(ctx, id, alice)
	require.NoError(t, err)
	_, err = svc.AppendAndRespond(ctx, id, alice, "second")
	require.NoError(t, err)

	req := gen.LastRequest()
	require.Len(t, req.Messages, 4)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "You are an app design expert.")
	assert.Contains(t, req.Messages[0].Content, "Phase: 2/5")
	assert.Contains(t, req.Messages[0].Content, PhaseAudience.Topic())
	assert.Contains(t, req.Messages[0].Content, "Messages so far: 2")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "first"}, req.Messages[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "ok"}, req.Messages[2])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "second"}, req.Messages[3])
	assert.Nil(t, req.Schema)
}

func TestAppendAndRespond_GenerationFailureRecordsFallback(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(testutil.NewMockDatabase(), testutil.NewFailingGenerator(apperr.ErrGenerationFailed))

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	reply, err := svc.AppendAndRespond(ctx, id, alice, "a todo app")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)

	conv, err := svc.Get(ctx, id, alice)
	require.NoError(t, err)
	require.Len(t, conv.Transcript, 2)
	assert.Equal(t, "a todo app", conv.Transcript[0].Content)
	assert.Equal(t, FallbackReply, conv.Transcript[1].Content)
}

func TestAppendAndRespond_EmptyMessage(t *testing.T) {
	ctx := context.Background()
	gen := testutil.NewStaticGenerator("ok")
	svc := newTestService(testutil.NewMockDatabase(), gen)

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	_, err = svc.AppendAndRespond(ctx, id, alice, "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, gen.Requests())
}

func TestAppendAndRespond_PersistFailurePropagates(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewMockDatabase()
	database.UpdateConversationFunc = func(context.Context, int64, db.ConversationUpdate) error {
		return fmt.Errorf("write: %w", apperr.ErrStorageUnavailable)
	}
	svc := newTestService(database, testutil.NewStaticGenerator("ok"))

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	_, err = svc.AppendAndRespond(ctx, id, alice, "hello")
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
}

func TestAdvancePhase_Clamps(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(testutil.NewMockDatabase(), testutil.NewStaticGenerator("ok"))

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	var phase Phase
	for i := 0; i < 10; i++ {
		phase, err = svc.AdvancePhase(ctx, id, alice)
		require.NoError(t, err)
		assert.LessOrEqual(t, int(phase), int(LastPhase))
	}
	assert.Equal(t, PhaseTechnical, phase)

	conv, err := svc.Get(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, PhaseTechnical, conv.Phase)
}

func TestSetAnswer(t *testing.T) {
	ctx := context.Background()
	gen := testutil.NewStaticGenerator("ok")
	svc := newTestService(testutil.NewMockDatabase(), gen)

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, svc.SetAnswer(ctx, id, alice, "targetUser", "students"))
	assert.ErrorIs(t, svc.SetAnswer(ctx, id, alice, "", "x"), apperr.ErrInvalidInput)

	conv, err := svc.Get(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, "students", conv.Answers["targetUser"])

	_, err = svc.AppendAndRespond(ctx, id, alice, "hello")
	require.NoError(t, err)
	for _, m := range gen.LastRequest().Messages {
		assert.NotContains(t, m.Content, "students")
	}
}

func TestCrossOwnerAccessIsNotFound(t *testing.T) {
	ctx := context.Background()
	gen := testutil.NewStaticGenerator("ok")
	svc := newTestService(testutil.NewMockDatabase(), gen)

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	_, err = svc.Get(ctx, id, bob)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.AppendAndRespond(ctx, id, bob, "hijack")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.AdvancePhase(ctx, id, bob)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, svc.SetAnswer(ctx, id, bob, "k", "v"), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id, bob), apperr.ErrNotFound)

	conv, err := svc.Get(ctx, id, alice)
	require.NoError(t, err)
	assert.Empty(t, conv.Transcript)
	assert.Equal(t, PhaseConcept, conv.Phase)
	assert.Empty(t, gen.Requests())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(testutil.NewMockDatabase(), testutil.NewStaticGenerator("ok"))

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id, alice))

	_, err = svc.Get(ctx, id, alice)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id, alice), apperr.ErrNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(testutil.NewMockDatabase(), testutil.NewStaticGenerator("ok"))

	first, err := svc.Create(ctx, alice)
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob)
	require.NoError(t, err)
	second, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	list, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []int64{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []int64{first, second}, ids)
}

func TestList_StorageUnavailableDegradesToEmpty(t *testing.T) {
	database := testutil.NewMockDatabase()
	database.GetConversationsByUserFunc = func(context.Context, int64) ([]db.Conversation, error) {
		return nil, fmt.Errorf("query: %w", apperr.ErrStorageUnavailable)
	}
	svc := newTestService(database, testutil.NewStaticGenerator("ok"))

	list, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestList_OtherErrorsPropagate(t *testing.T) {
	database := testutil.NewMockDatabase()
	database.GetConversationsByUserFunc = func(context.Context, int64) ([]db.Conversation, error) {
		return nil, errors.New("syntax error")
	}
	svc := newTestService(database, testutil.NewStaticGenerator("ok"))

	_, err := svc.List(context.Background(), alice)
	assert.Error(t, err)
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	gen := &testutil.MockGenerator{GenerateFunc: func(context.Context, llm.GenerationRequest) (string, error) {
		time.Sleep(2 * time.Millisecond)
		return "ok", nil
	}}
	svc := newTestService(testutil.NewMockDatabase(), gen)

	id, err := svc.Create(ctx, alice)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AppendAndRespond(ctx, id, alice, fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	conv, err := svc.Get(ctx, id, alice)
	require.NoError(t, err)
	assert.Len(t, conv.Transcript, 2*writers)
	for i := 0; i < writers; i++ {
		assert.Equal(t, db.RoleUser, conv.Transcript[2*i].Role)
		assert.Equal(t, db.RoleAssistant, conv.Transcript[2*i+1].Role)
	}
}

func TestAppendAndRespond_SavesWhenCallerCancelsDuringGeneration(t *testing.T) {
	database := testutil.NewMockDatabase()
	database.UpdateConversationFunc = func(ctx context.Context, id int64, update db.ConversationUpdate) error {
		// database/sql fails the same way once ctx is done
		if err := ctx.Err(); err != nil {
			return err
		}
		return database.Fallback.UpdateConversation(ctx, id, update)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	generator := &testutil.MockGenerator{GenerateFunc: func(context.Context, llm.GenerationRequest) (string, error) {
		cancel()
		return "real reply", nil
	}}
	svc := newTestService(database, llm.NewGateway(generator, nil, llm.GatewayConfig{Timeout: time.Second}))

	id, err := svc.Create(context.Background(), alice)
	require.NoError(t, err)

	reply, err := svc.AppendAndRespond(ctx, id, alice, "I want a todo app")
	require.NoError(t, err)
	assert.Equal(t, "real reply", reply)
	assert.Len(t, generator.Requests(), 1)

	conv, err := svc.Get(context.Background(), id, alice)
	require.NoError(t, err)
	require.Len(t, conv.Transcript, 2)
	assert.Equal(t, "I want a todo app", conv.Transcript[0].Content)
	assert.Equal(t, "real reply", conv.Transcript[1].Content)
}
